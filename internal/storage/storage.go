// Package storage records launched platform operations using GORM and SQLite.
// The ledger is local bookkeeping only; the platform remains the source of
// truth for job state.
package storage

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Sentinel errors following Dave Cheney's principle: define errors as values
var (
	ErrNilJob      = errors.New("job cannot be nil")
	ErrNotFound    = errors.New("job not found")
	ErrUnknownKind = errors.New("unknown job kind")
)

// Job kinds recorded in the ledger.
const (
	KindUpload     = "upload"
	KindTraining   = "training"
	KindDeployment = "deployment"
	KindTransform  = "transform"
)

// Job represents one accepted platform operation.
type Job struct {
	ID uint `gorm:"primaryKey"`

	Kind           string `gorm:"not null;index:idx_kind"`
	Name           string `gorm:"not null;index:idx_name"`
	Image          string
	InputLocation  string
	OutputLocation string
	InstanceType   string
	InstanceCount  int32
	Region         string

	// Result is the identifier the platform returned: an S3 path, a model
	// artifact location or an endpoint name.
	Result string

	LaunchedAt time.Time `gorm:"not null;index:idx_launched_at"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store defines the interface for ledger operations
type Store interface {
	Close() error
	RecordJob(*Job) error
	GetJob(kind, name string) (*Job, error)
	ListAll() ([]*Job, error)
	ListByKind(kind string) ([]*Job, error)
}

// DB wraps gorm.DB with the ledger operations
type DB struct {
	db *gorm.DB
}

// Config holds database configuration
type Config struct {
	DatabasePath string
	LogLevel     string // silent, error, warn, info
}

// DefaultPath returns the ledger location for a project root directory.
func DefaultPath(dir string) string {
	return filepath.Join(dir, "sagify", "sagify.db")
}

// InitDB initializes the database connection and runs migrations
func InitDB(cfg Config) (*DB, error) {
	logLevel := logger.Silent
	switch cfg.LogLevel {
	case "error":
		logLevel = logger.Error
	case "warn":
		logLevel = logger.Warn
	case "info":
		logLevel = logger.Info
	}

	db, err := gorm.Open(sqlite.Open(cfg.DatabasePath), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&Job{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database connection
func (d *DB) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying SQL DB: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database connection: %w", err)
	}
	return nil
}

// RecordJob inserts a new ledger entry
func (d *DB) RecordJob(job *Job) error {
	if job == nil {
		return ErrNilJob
	}
	if !validKind(job.Kind) {
		return fmt.Errorf("%w: %q", ErrUnknownKind, job.Kind)
	}
	if job.LaunchedAt.IsZero() {
		job.LaunchedAt = time.Now()
	}
	if err := d.db.Create(job).Error; err != nil {
		return fmt.Errorf("failed to record job: %w", err)
	}
	return nil
}

// GetJob retrieves the most recent entry for a kind and name
func (d *DB) GetJob(kind, name string) (*Job, error) {
	var job Job
	err := d.db.Where("kind = ? AND name = ?", kind, name).
		Order("launched_at DESC").First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

// ListAll returns all ledger entries, newest first
func (d *DB) ListAll() ([]*Job, error) {
	var jobs []*Job
	if err := d.db.Order("launched_at DESC").Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return jobs, nil
}

// ListByKind returns all entries of one kind, newest first
func (d *DB) ListByKind(kind string) ([]*Job, error) {
	if !validKind(kind) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	var jobs []*Job
	if err := d.db.Where("kind = ?", kind).Order("launched_at DESC").Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("failed to list %s jobs: %w", kind, err)
	}
	return jobs, nil
}

func validKind(kind string) bool {
	switch kind {
	case KindUpload, KindTraining, KindDeployment, KindTransform:
		return true
	}
	return false
}
