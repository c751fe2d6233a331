package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/livefire2015/ez-rent/src/models"
)

// ErrSettingKeyRequired is returned when a setting has a blank key
var ErrSettingKeyRequired = errors.New("setting key is required")

// SettingsService reads and writes system settings
type SettingsService struct {
	db *sql.DB
}

// NewSettingsService creates a new settings service
func NewSettingsService(db *sql.DB) *SettingsService {
	return &SettingsService{db: db}
}

// ListSettings returns every setting ordered by key
func (s *SettingsService) ListSettings(ctx context.Context) ([]models.SystemSetting, error) {
	query := `SELECT key, value, description, updated_at FROM system_settings ORDER BY key`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}
	defer rows.Close()

	var settings []models.SystemSetting
	for rows.Next() {
		var st models.SystemSetting
		if err := rows.Scan(&st.Key, &st.Value, &st.Description, &st.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		settings = append(settings, st)
	}
	return settings, rows.Err()
}

// Snapshot reads all settings into an immutable snapshot
func (s *SettingsService) Snapshot(ctx context.Context) (models.Settings, error) {
	settings, err := s.ListSettings(ctx)
	if err != nil {
		return models.Settings{}, err
	}
	values := make(map[string]string, len(settings))
	for _, st := range settings {
		values[st.Key] = st.Value
	}
	return models.NewSettings(values), nil
}

// SetSetting creates or replaces a setting. Documented keys must parse.
// An empty description keeps the stored one.
func (s *SettingsService) SetSetting(ctx context.Context, key, value, description string) (*models.SystemSetting, error) {
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)
	if key == "" {
		return nil, invalid(ErrSettingKeyRequired)
	}
	if err := models.ValidateSetting(key, value); err != nil {
		return nil, invalid(err)
	}

	st := &models.SystemSetting{Key: key, Value: value, Description: description, UpdatedAt: time.Now().UTC()}
	query := `
		INSERT INTO system_settings (key, value, description, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value,
		    description = CASE WHEN EXCLUDED.description = '' THEN system_settings.description ELSE EXCLUDED.description END,
		    updated_at = EXCLUDED.updated_at
		RETURNING description
	`
	err := s.db.QueryRowContext(ctx, query, st.Key, st.Value, st.Description, st.UpdatedAt).Scan(&st.Description)
	if err != nil {
		return nil, fmt.Errorf("failed to save setting %s: %w", key, err)
	}
	return st, nil
}
