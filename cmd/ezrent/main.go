// Command ezrent runs the rental billing API and its maintenance tasks.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/livefire2015/ez-rent/src/config"
	"github.com/livefire2015/ez-rent/src/database"
	"github.com/livefire2015/ez-rent/src/events"
	"github.com/livefire2015/ez-rent/src/logging"
	"github.com/livefire2015/ez-rent/src/services"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	var configPath string
	rootCmd := &cobra.Command{
		Use:           "ezrent",
		Short:         "Rental property billing",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (default ./ezrent.yaml)")

	rootCmd.AddCommand(
		serveCmd(&configPath),
		migrateCmd(&configPath),
		billsCmd(&configPath),
		settingsCmd(&configPath),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app holds the wired services for one command invocation
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	db        *sql.DB
	publisher events.Publisher

	rooms       *services.RoomService
	tenants     *services.TenantService
	settings    *services.SettingsService
	readings    *services.MeterReadingService
	charges     *services.ChargeService
	payments    *services.PaymentService
	maintenance *services.MaintenanceService
	billing     *services.BillingService
	fees        *services.FeeService
	dashboard   *services.DashboardService
	export      *services.ExportService
}

// bootstrap loads config, connects to the database and wires services.
// withEvents controls whether a Kafka producer is created.
func bootstrap(ctx context.Context, configPath string, withEvents bool) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, err
	}

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db, database.Up); err != nil {
			db.Close()
			return nil, err
		}
	}

	var publisher events.Publisher = events.NopPublisher{}
	if withEvents {
		publisher, err = events.New(cfg.Kafka, logger)
		if err != nil {
			db.Close()
			return nil, err
		}
	}

	a := &app{cfg: cfg, logger: logger, db: db, publisher: publisher}
	a.rooms = services.NewRoomService(db)
	a.tenants = services.NewTenantService(db)
	a.settings = services.NewSettingsService(db)
	a.readings = services.NewMeterReadingService(db, a.settings)
	a.charges = services.NewChargeService(db)
	a.payments = services.NewPaymentService(db)
	a.maintenance = services.NewMaintenanceService(db)
	a.billing = services.NewBillingService(db, publisher, logger)
	if cfg.Billing.FallbackToDefaults {
		a.billing.WithDefaults(cfg.Billing.Defaults.AsSettings())
	}
	a.fees = services.NewFeeService(db, a.billing, publisher, logger)
	a.dashboard = services.NewDashboardService(db)
	a.export = services.NewExportService(a.billing)
	return a, nil
}

func (a *app) Close() {
	if err := a.publisher.Close(); err != nil {
		a.logger.Warn("Failed to close event publisher", zap.Error(err))
	}
	if err := a.db.Close(); err != nil {
		a.logger.Warn("Failed to close database", zap.Error(err))
	}
	_ = a.logger.Sync()
}
