package store

import (
	"errors"
	"fmt"
	"net/netip"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mozilla/classify-client/internal/models"
)

// AttributionModel is the GORM model for the exported attribution table.
// Deployments that still carry the retired service's per-address export use
// this backend instead of a MaxMind database.
type AttributionModel struct {
	IP          string `gorm:"column:ip;primaryKey"`
	CountryCode string `gorm:"column:country_code"`
	CountryName string `gorm:"column:country_name"`
}

// TableName overrides GORM's pluralized default.
func (AttributionModel) TableName() string {
	return "ip_attributions"
}

// MySQLStore implements Store over a MySQL attribution table.
type MySQLStore struct {
	db *gorm.DB
}

// NewMySQLStore connects with the given DSN.
// DSN format: user:password@tcp(host:port)/dbname?parseTime=true
func NewMySQLStore(dsn string) (*MySQLStore, error) {
	config := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(mysql.Open(dsn), config)
	if err != nil {
		return nil, fmt.Errorf("connecting to MySQL: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("pinging MySQL: %w", err)
	}

	return &MySQLStore{db: db}, nil
}

// FindCountry implements the Store interface. Addresses are stored in their
// canonical textual form, so the query key is normalized the same way.
func (s *MySQLStore) FindCountry(addr netip.Addr) (*models.Country, error) {
	if !addr.IsValid() {
		return nil, ErrNotFound
	}

	var record AttributionModel
	result := s.db.Where("ip = ?", addr.Unmap().String()).First(&record)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("attribution query failed: %w", result.Error)
	}

	return &models.Country{
		Code: record.CountryCode,
		Name: record.CountryName,
	}, nil
}

// Close closes the database connection.
func (s *MySQLStore) Close() error {
	if s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
