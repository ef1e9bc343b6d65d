package database

import (
	"context"
	"database/sql"
	_ "embed"
	"time"
	"todo_collab/internal/platform/config"

	"github.com/charmbracelet/log"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
)

var DB *sql.DB

func Connect() {
	var err error
	DB, err = sql.Open("pgx", config.AppConfig.DBConnStr)
	if err != nil {
		log.Fatal("Error opening database", "err", err)
	}

	DB.SetMaxOpenConns(25)
	DB.SetMaxIdleConns(25)
	DB.SetConnMaxLifetime(5 * time.Minute)

	if err = DB.Ping(); err != nil {
		log.Fatal("Error connecting to database", "err", err)
	}

	log.Info("Successfully connected to PostgreSQL database")
}

func Close() {
	if DB != nil {
		DB.Close()
		log.Info("Database connection closed")
	}
}

//go:embed schema.sql
var schema string

// Migrate creates missing tables and the default task state. Every
// statement is idempotent.
func Migrate(ctx context.Context) error {
	if _, err := DB.ExecContext(ctx, schema); err != nil {
		return err
	}
	log.Info("Database schema is up to date")
	return nil
}
