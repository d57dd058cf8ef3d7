package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/acme-console/admin-console/internal/directory"
	"github.com/acme-console/admin-console/internal/platform/db"
)

// LoadDirectory builds the read-only directory from the configured source.
// The postgres source reads one snapshot and releases its pool.
func LoadDirectory(ctx context.Context, cfg *Config, logger *slog.Logger) (*directory.Directory, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var (
		dir *directory.Directory
		err error
	)
	switch cfg.DirectorySource {
	case DirectorySeed, "":
		dir = directory.Seed()
	case DirectoryFile:
		dir, err = directory.LoadFile(cfg.DirectoryFile)
	case DirectoryPostgres:
		dir, err = loadPostgresDirectory(ctx, cfg.PGDSN)
	default:
		err = fmt.Errorf("unknown directory source %q", cfg.DirectorySource)
	}
	if err != nil {
		return nil, err
	}
	logger.Info("directory loaded",
		slog.String("source", cfg.DirectorySource),
		slog.Int("accounts", len(dir.Accounts())),
		slog.Int("users", len(dir.Users())),
	)
	return dir, nil
}

func loadPostgresDirectory(ctx context.Context, dsn string) (*directory.Directory, error) {
	pool, err := db.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	defer pool.Close()
	return directory.NewPGSource(pool).Load(ctx)
}
