package store

import (
	"fmt"

	supa "github.com/supabase-community/supabase-go"
)

const (
	notificationsTable = "app_notifications"
	settingsTable      = "notification_settings"
	rolesTable         = "user_roles"
	deliveryTable      = "notification_logs"
)

// SupabaseStore persists back-office notification data through the
// Supabase PostgREST API.
type SupabaseStore struct {
	client *supa.Client
}

// NewSupabaseStore creates a new Supabase-backed store.
func NewSupabaseStore(supabaseURL, serviceKey string) (*SupabaseStore, error) {
	client, err := supa.NewClient(supabaseURL, serviceKey, nil)
	if err != nil {
		return nil, fmt.Errorf("creating supabase client: %w", err)
	}
	return &SupabaseStore{client: client}, nil
}
