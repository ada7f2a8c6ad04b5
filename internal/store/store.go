// Package store persists git provider connections. Token columns hold
// ciphertext produced by the vault; the store never sees plaintext.
package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-gitbridge/gitbridge/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Store struct {
	db *gorm.DB
}

func New(driver, dsn string) (*Store, error) {
	dialector, err := openDialector(driver, dsn)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	// Auto migrate
	if err := db.AutoMigrate(&models.Connection{}); err != nil {
		return nil, err
	}

	return &Store{db: db}, nil
}

// CreateConnection inserts a new connection row.
func (s *Store) CreateConnection(conn *models.Connection) error {
	if err := s.db.Create(conn).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrConnectionConflict
		}
		return fmt.Errorf("create connection: %w", err)
	}
	return nil
}

// GetConnection returns a connection by id, active or not.
func (s *Store) GetConnection(id string) (*models.Connection, error) {
	var conn models.Connection
	if err := s.db.Where("id = ?", id).First(&conn).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("get connection: %w", err)
	}
	return &conn, nil
}

// ListActiveConnections returns all connections with is_active=true.
// Order is not guaranteed.
func (s *Store) ListActiveConnections() ([]models.Connection, error) {
	var conns []models.Connection
	if err := s.db.Where("is_active = ?", true).Find(&conns).Error; err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}
	return conns, nil
}

// DeleteConnection removes a connection by id.
func (s *Store) DeleteConnection(id string) error {
	result := s.db.Where("id = ?", id).Delete(&models.Connection{})
	if result.Error != nil {
		return fmt.Errorf("delete connection: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// UpdateConnectionTokens atomically replaces the stored token material
// after a refresh. An empty encryptedRefresh keeps the existing refresh
// token, matching providers that omit it from refresh responses. A nil
// expiresAt clears the recorded expiry: the grant just succeeded, so a
// stale timestamp from the previous token must not force another
// refresh on every use.
func (s *Store) UpdateConnectionTokens(
	id string,
	encryptedAccess, encryptedRefresh string,
	expiresAt *time.Time,
	now time.Time,
) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var conn models.Connection
		if err := tx.Where("id = ?", id).First(&conn).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRecordNotFound
			}
			return err
		}

		conn.AccessTokenEncrypted = encryptedAccess
		if encryptedRefresh != "" {
			conn.RefreshTokenEncrypted = encryptedRefresh
		}
		conn.TokenExpiresAt = expiresAt
		conn.LastUsedAt = &now

		return tx.Save(&conn).Error
	})
}

// TouchConnection updates last_used_at after a successful provider call.
func (s *Store) TouchConnection(id string, now time.Time) error {
	result := s.db.Model(&models.Connection{}).
		Where("id = ?", id).
		Update("last_used_at", now)
	if result.Error != nil {
		return fmt.Errorf("touch connection: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// Health checks database connectivity
func (s *Store) Health() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// Close closes the underlying database connection
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
