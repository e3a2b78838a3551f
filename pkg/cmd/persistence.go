// Package cmd wires shared infrastructure for the accredo binaries.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/eventra-io/accredo/pkg/persistence"
	"github.com/eventra-io/accredo/pkg/persistence/file"
	"github.com/eventra-io/accredo/pkg/persistence/postgresql"
)

// NewPersistence selects the persistence backend from the database URL
// scheme. postgres:// and postgresql:// get the SQL backend; anything else
// is treated as a file path for development setups.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	switch parsePersistenceProvider(databaseURL) {
	case "postgresql":
		p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			panic(fmt.Errorf("failed to initialize postgresql persistence: %w", err))
		}

		return p
	default:
		return file.NewPersistence(databaseURL)
	}
}

func parsePersistenceProvider(databaseURL string) string {
	provider, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file"
	}

	if provider == "postgres" || provider == "postgresql" {
		return "postgresql"
	}

	return "file"
}
