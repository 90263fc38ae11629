package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"

	"github.com/joho/godotenv"

	"hourglass/internal/config"
	"hourglass/internal/db"
	"hourglass/internal/engine"
	"hourglass/internal/migrate"
)

const EnvFile = ".env"

// Workspace is an opened hourglass directory: config, migrated database and engine.
type Workspace struct {
	Dir    string
	Config *config.Config
	DB     *sql.DB
	Logger *slog.Logger
	Engine engine.Engine
}

// Open loads the workspace config (defaults when absent), opens and migrates
// the database and builds the engine.
func Open(ctx context.Context, dir string) (*Workspace, error) {
	cfg, err := config.LoadOptional(dir)
	if err != nil {
		return nil, err
	}
	logger := NewLogger(cfg.Log)
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	applied, err := migrate.Migrate(ctx, conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	for _, name := range applied {
		logger.Debug("migration applied", "name", name)
	}
	return &Workspace{
		Dir:    dir,
		Config: cfg,
		DB:     conn,
		Logger: logger,
		Engine: engine.New(conn, cfg, logger),
	}, nil
}

func (w *Workspace) Close() error {
	return w.DB.Close()
}

// LoadEnv loads dir/.env into the process environment without overriding
// variables that are already set. A missing file is not an error.
func LoadEnv(dir string) error {
	err := godotenv.Load(filepath.Join(dir, EnvFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// SetEnvValue writes key=value into dir/.env, keeping the other entries.
func SetEnvValue(dir, key, value string) error {
	path := filepath.Join(dir, EnvFile)
	values, err := godotenv.Read(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		values = map[string]string{}
	}
	values[key] = value
	return godotenv.Write(values, path)
}
