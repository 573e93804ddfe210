package store

import (
	"context"
	"encoding/json"
	"fmt"

	"backoffice/internal/common"
	"backoffice/internal/domain/dispatch"
)

var _ dispatch.SettingsProvider = (*SupabaseStore)(nil)

// AdminSettings loads the notification_settings row of the first admin
// listed in user_roles.
func (s *SupabaseStore) AdminSettings(ctx context.Context) (*dispatch.Settings, error) {
	data, _, err := s.client.From(rolesTable).
		Select("user_id", "", false).
		Eq("role", "admin").
		Limit(1, "").
		Execute()
	if err != nil {
		return nil, fmt.Errorf("fetching admin role: %w", err)
	}

	var roles []struct {
		UserID string `json:"user_id"`
	}
	if err := json.Unmarshal(data, &roles); err != nil {
		return nil, fmt.Errorf("parsing admin role: %w", err)
	}
	if len(roles) == 0 || roles[0].UserID == "" {
		return nil, common.NewNotFoundError("admin user", "role=admin")
	}
	adminID := roles[0].UserID

	data, _, err = s.client.From(settingsTable).
		Select("*", "", false).
		Eq("user_id", adminID).
		Limit(1, "").
		Execute()
	if err != nil {
		return nil, fmt.Errorf("fetching admin settings: %w", err)
	}

	settings, err := parseSettings(data)
	if err != nil {
		return nil, err
	}
	if settings == nil {
		return nil, common.NewNotFoundError("notification settings", adminID)
	}
	return settings, nil
}

// parseSettings decodes a notification_settings result set. It returns
// nil, nil when the set is empty.
func parseSettings(data []byte) (*dispatch.Settings, error) {
	var rows []dispatch.Settings
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("parsing admin settings: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}
