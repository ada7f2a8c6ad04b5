package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// Connection represents an authorized link to a git hosting provider.
// Token columns hold vault-sealed ciphertext and must never be logged
// or returned to API callers.
type Connection struct {
	ID          string `gorm:"primaryKey"`
	Provider    string `gorm:"not null;index"` // "github", "gitlab", "gitea"
	InstanceURL string // set for self-hosted gitlab/gitea

	Username string
	Email    string

	AccessTokenEncrypted  string `gorm:"type:text;not null"`
	RefreshTokenEncrypted string `gorm:"type:text"`

	TokenExpiresAt *time.Time
	Scopes         StringArray `gorm:"type:text"`

	ConnectedAt time.Time `gorm:"not null"`
	LastUsedAt  *time.Time
	// No column default: gorm drops zero-valued fields that carry one on
	// insert, which would silently turn is_active=false into true. The
	// orchestrator sets the value explicitly on every insert.
	IsActive bool `gorm:"not null"`
}

// TableName overrides the table name used by Connection
func (Connection) TableName() string {
	return "git_connections"
}

// ConnectionView is the public representation of a Connection. It carries
// no token material.
type ConnectionView struct {
	ID          string    `json:"id"`
	Provider    string    `json:"provider"`
	InstanceURL string    `json:"instance_url,omitempty"`
	Username    string    `json:"username,omitempty"`
	Email       string    `json:"email,omitempty"`
	Scopes      []string  `json:"scopes"`
	ConnectedAt time.Time `json:"connected_at"`
	IsActive    bool      `json:"is_active"`
}

// View strips the secret fields for API responses.
func (c *Connection) View() ConnectionView {
	return ConnectionView{
		ID:          c.ID,
		Provider:    c.Provider,
		InstanceURL: c.InstanceURL,
		Username:    c.Username,
		Email:       c.Email,
		Scopes:      c.Scopes,
		ConnectedAt: c.ConnectedAt,
		IsActive:    c.IsActive,
	}
}

// ConnectionStatus reports the result of a liveness probe against the
// provider on behalf of a connection.
type ConnectionStatus struct {
	ConnectionID string    `json:"connection_id"`
	IsValid      bool      `json:"is_valid"`
	Username     string    `json:"username,omitempty"`
	Scopes       []string  `json:"scopes"`
	CheckedAt    time.Time `json:"checked_at"`
}

// OAuthInitiateResult is returned by the flow orchestrator when a new
// authorization flow is started.
type OAuthInitiateResult struct {
	AuthorizationURL string `json:"authorization_url"`
	State            string `json:"state"`
}

// StringArray is a custom type for []string that can be stored as JSON in database
type StringArray []string

// Scan implements sql.Scanner interface
func (s *StringArray) Scan(value interface{}) error {
	if value == nil {
		*s = []string{}
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to unmarshal JSON value")
	}
	return json.Unmarshal(bytes, s)
}

// Value implements driver.Valuer interface
func (s StringArray) Value() (driver.Value, error) {
	if len(s) == 0 {
		return json.Marshal([]string{})
	}
	return json.Marshal(s)
}
