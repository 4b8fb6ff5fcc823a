package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/probata/caseflow/pkg/persistence"
	"github.com/probata/caseflow/pkg/persistence/file"
	"github.com/probata/caseflow/pkg/persistence/postgresql"
)

// NewPersistence selects a persistence provider from the database URL
// scheme. postgres:// and postgresql:// map to PostgreSQL; anything else is
// treated as a file-store path (an optional file:// prefix is stripped).
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return postgresql.NewPersistence(ctx, logger, databaseURL)
	case databaseURL == "":
		return nil, fmt.Errorf("database URL is required")
	default:
		return file.NewPersistence(databaseURL), nil
	}
}
