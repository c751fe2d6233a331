package main

import (
	"github.com/livefire2015/ez-rent/src/httpapi"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := bootstrap(ctx, *configPath, true)
			if err != nil {
				return err
			}
			defer a.Close()

			srv := httpapi.New(httpapi.Deps{
				Rooms:       a.rooms,
				Tenants:     a.tenants,
				Readings:    a.readings,
				Payments:    a.payments,
				Charges:     a.charges,
				Maintenance: a.maintenance,
				Settings:    a.settings,
				Bills:       a.billing,
				Exporter:    a.export,
				LateFees:    a.fees,
				Dashboards:  a.dashboard,
			}, httpapi.Options{
				Logger:         a.logger,
				GenerateLimit:  rate.Limit(a.cfg.Billing.GenerateRatePerSec),
				GenerateBurst:  a.cfg.Billing.GenerateBurst,
				MetricsEnabled: a.cfg.Metrics.Enabled,
				MetricsPath:    a.cfg.Metrics.Path,
			})

			a.logger.Info("Starting ezrent",
				zap.String("env", a.cfg.App.Env),
				zap.Bool("kafka", a.cfg.Kafka.Enabled),
				zap.Bool("fallback_to_defaults", a.cfg.Billing.FallbackToDefaults),
			)
			return httpapi.ListenAndServe(ctx, a.cfg.Server, srv, a.logger)
		},
	}
}
