package models

import "time"

// Setting keys
const (
	SettingCommissionRate    = "commission_rate"
	SettingAdminPasswordHash = "admin_password_hash"
)

// DefaultCommissionRate is the bootstrap fallback used when no settings row
// exists at all.
const DefaultCommissionRate = 0.10

// Setting is one row of the mutable key-value settings collection.
type Setting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}
