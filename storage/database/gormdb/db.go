// Package gormdb implements the user and class room repositories on gorm.
package gormdb

import (
	"time"

	"github.com/pkg/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type (
	userModel struct {
		ID           string `gorm:"primaryKey"`
		Name         string
		Username     string   `gorm:"index"`
		Email        string   `gorm:"index"`
		IsActive     bool
		Roles        []string `gorm:"serializer:json"`
		PasswordHash []byte
		CreatedAt    time.Time
		UpdatedAt    time.Time
		LastLogin    time.Time
	}

	roomModel struct {
		ID          string `gorm:"primaryKey"`
		Name        string
		Code        string   `gorm:"uniqueIndex"`
		OwnerID     string   `gorm:"index"`
		QuestionIDs []string `gorm:"serializer:json"`
		CreatedAt   time.Time
	}
)

func (userModel) TableName() string { return "users" }
func (roomModel) TableName() string { return "rooms" }

// Open opens the sqlite database at dsn.
func Open(dsn string, debug bool) (*gorm.DB, error) {
	level := gormlogger.Silent
	if debug {
		level = gormlogger.Warn
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(level)})
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	return db, nil
}

// Migrate creates or alters the users and rooms tables.
func Migrate(db *gorm.DB) error {
	return errors.Wrap(db.AutoMigrate(&userModel{}, &roomModel{}), "migrating database")
}
