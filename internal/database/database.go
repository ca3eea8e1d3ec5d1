package database

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/paulexconde/surveyflow/internal/config"
	"go.uber.org/zap"
)

//go:embed schema.sql
var schema string

// Open connects to postgres and makes sure the schema exists.
func Open(ctx context.Context, conf config.DatabaseConfig, log *zap.Logger) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", conf.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(conf.MaxOpenConns)
	db.SetMaxIdleConns(conf.MaxIdleConns)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	log.Info("Database connection established successfully.", zap.String("host", conf.Host), zap.String("dbname", conf.DBName))

	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	log.Info("Database schema ensured successfully.")

	return db, nil
}

// Migrate applies the embedded schema. Every statement is idempotent.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
