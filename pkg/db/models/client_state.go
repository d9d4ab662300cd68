package models

import "time"

// ClientState is one persisted slot of a visitor's state (session token, profile, cart lines).
type ClientState struct {
	VisitorID string    `gorm:"column:visitor_id;primaryKey"`
	Slot      string    `gorm:"column:slot;primaryKey"`
	Value     []byte    `gorm:"column:value;not null"`
	ExpiresAt time.Time `gorm:"column:expires_at;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName pins the table used by the sql visitor storage backend.
func (ClientState) TableName() string {
	return "client_states"
}
