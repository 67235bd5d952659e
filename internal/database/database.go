package database

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mrlokans/shelfshare/internal/entities"
	"github.com/mrlokans/shelfshare/internal/logging"
)

// ErrNoRowsChanged is returned by conditional updates whose precondition did not hold.
var ErrNoRowsChanged = errors.New("no rows changed")

// Models lists every entity managed by AutoMigrate.
var Models = []any{
	&entities.User{},
	&entities.Location{},
	&entities.LocationMember{},
	&entities.Shelf{},
	&entities.Book{},
	&entities.BookLoan{},
	&entities.BookRating{},
	&entities.LocationInvitation{},
	&entities.BookRemovalRequest{},
	&entities.SignupApprovalRequest{},
	&entities.AuditEvent{},
	&entities.Setting{},
}

type Database struct {
	DB *gorm.DB
}

func NewDatabase(dbPath string) (*Database, error) {
	db, err := gorm.Open(sqlite.Open(dbPath+"?_busy_timeout=5000&_journal_mode=WAL"), &gorm.Config{
		Logger:                                   logging.GormLogger(),
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(Models...); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	logrus.WithField("path", dbPath).Info("database initialized")

	return &Database{DB: db}, nil
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks that the underlying connection is usable.
func (d *Database) Ping() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// RequireChanged converts a zero-row result of a conditional update into ErrNoRowsChanged.
func RequireChanged(result *gorm.DB) error {
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNoRowsChanged
	}
	return nil
}
