// Package shared holds the set up code the api and admin binaries have in common.
package shared

import (
	"context"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/projetogalileu/galileu/core"
	"github.com/projetogalileu/galileu/core/classroom"
	"github.com/projetogalileu/galileu/core/realtime"
	"github.com/projetogalileu/galileu/core/user"
	"github.com/projetogalileu/galileu/storage/database"
	"github.com/projetogalileu/galileu/storage/database/gormdb"
	sqlxrepos "github.com/projetogalileu/galileu/storage/database/sqlx"
	memstore "github.com/projetogalileu/galileu/storage/realtime/memory"
	redisstore "github.com/projetogalileu/galileu/storage/realtime/redis"
)

// DB is the relational store behind the user and class room services.
type DB struct {
	Users user.Repository
	Rooms classroom.Repository

	migrate func(ctx context.Context) error
	close   func() error
}

// Migrate creates the missing tables.
func (db DB) Migrate(ctx context.Context) error { return db.migrate(ctx) }

func (db DB) Close() error { return db.close() }

// NewValidator returns the validator with the core and user rules registered, and its translator.
func NewValidator() (*validator.Validate, ut.Translator, error) {
	validate := validator.New()
	translator := core.NewTranslator()
	if err := core.InitValidators(validate, translator); err != nil {
		return nil, nil, err
	}
	if err := user.InitValidators(validate, translator); err != nil {
		return nil, nil, err
	}
	return validate, translator, nil
}

// OpenDB opens the relational store with conf.Database.Driver: sqlx (default) or gorm.
// Tables are not migrated.
func OpenDB(conf *core.Config) (DB, error) {
	switch conf.Database.Driver {
	case "gorm":
		db, err := gormdb.Open(conf.Database.DSN, conf.Debug)
		if err != nil {
			return DB{}, err
		}
		return gormDB(db)

	case "sqlx", "":
		db, err := database.Open(conf)
		if err != nil {
			return DB{}, err
		}
		return sqlxDB(db), nil
	}
	return DB{}, errors.Errorf("unknown database driver %q", conf.Database.Driver)
}

func sqlxDB(db *sqlx.DB) DB {
	r := sqlxrepos.New(db)
	return DB{
		Users:   r.Users,
		Rooms:   r.Rooms,
		migrate: func(ctx context.Context) error { return database.Migrate(ctx, db) },
		close:   db.Close,
	}
}

func gormDB(db *gorm.DB) (DB, error) {
	pool, err := db.DB()
	if err != nil {
		return DB{}, errors.Wrap(err, "getting gorm connection pool")
	}
	return DB{
		Users:   gormdb.NewUserRepository(db),
		Rooms:   gormdb.NewRoomRepository(db),
		migrate: func(ctx context.Context) error { return gormdb.Migrate(db.WithContext(ctx)) },
		close:   pool.Close,
	}, nil
}

// OpenRealtimeStore returns the store conf.Realtime.Backend names: memory (default) or redis,
// which needs client. The returned func releases the store.
func OpenRealtimeStore(ctx context.Context, conf *core.Config, client *redis.Client, logger core.Logger) (realtime.Store, func() error, error) {
	switch conf.Realtime.Backend {
	case "redis":
		if client == nil {
			return nil, nil, errors.New("the redis realtime backend needs redis.address")
		}
		s, err := redisstore.New(ctx, client, conf.Realtime.Key, logger)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil

	case "memory", "":
		return memstore.New(), func() error { return nil }, nil
	}
	return nil, nil, errors.Errorf("unknown realtime backend %q", conf.Realtime.Backend)
}
