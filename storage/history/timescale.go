package history

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/projetogalileu/galileu/core/session"
)

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// TimescaleSink inserts one row per snapshot in a hypertable.
type TimescaleSink struct {
	pool  *pgxpool.Pool
	db    execer
	table string
}

var _ session.HistorySink = (*TimescaleSink)(nil)

func NewTimescaleSink(ctx context.Context, dsn, table string) (*TimescaleSink, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "connecting to timescale")
	}
	s, err := newTimescaleSink(ctx, pool, table)
	if err != nil {
		pool.Close()
		return nil, err
	}
	s.pool = pool
	return s, nil
}

// newTimescaleSink returns a sink writing through db, its table initialized.
func newTimescaleSink(ctx context.Context, db execer, table string) (*TimescaleSink, error) {
	s := &TimescaleSink{db: db, table: pgx.Identifier{table}.Sanitize()}
	if err := s.InitializeTable(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// InitializeTable creates the table and turns it into a hypertable when missing.
func (s *TimescaleSink) InitializeTable(ctx context.Context) error {
	_, err := s.db.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			time             TIMESTAMPTZ NOT NULL,
			session_id       TEXT NOT NULL,
			user_name        TEXT NOT NULL,
			distancia        DOUBLE PRECISION,
			angulo           DOUBLE PRECISION,
			velocidade       DOUBLE PRECISION,
			px               DOUBLE PRECISION,
			py               DOUBLE PRECISION,
			tempo            DOUBLE PRECISION,
			aceleracao       DOUBLE PRECISION,
			forca_peso       DOUBLE PRECISION,
			forca_normal     DOUBLE PRECISION,
			forca_atrito     DOUBLE PRECISION,
			forca_resultante DOUBLE PRECISION
		)`, s.table))
	if err != nil {
		return errors.Wrap(err, "creating history table")
	}
	_, err = s.db.Exec(ctx, fmt.Sprintf(`SELECT create_hypertable('%s', 'time', if_not_exists => TRUE)`, s.table))
	return errors.Wrap(err, "converting history table to hypertable")
}

func (s *TimescaleSink) Name() string { return "timescale" }

func (s *TimescaleSink) WriteSnapshot(ctx context.Context, snap session.Snapshot) error {
	d := snap.Data
	_, err := s.db.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s (time, session_id, user_name, distancia, angulo, velocidade, px, py, tempo,
			aceleracao, forca_peso, forca_normal, forca_atrito, forca_resultante)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`, s.table),
		snap.At, snap.SessionID, snap.UserName, d.Distance, d.Angle, d.Velocity, d.Px, d.Py, d.Time,
		d.Acceleration, d.Weight, d.Normal, d.Friction, d.Resultant,
	)
	return errors.Wrap(err, "inserting history row")
}

func (s *TimescaleSink) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}
