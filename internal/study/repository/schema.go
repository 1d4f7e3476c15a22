package repository

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"dailystudy/internal/common/db"
)

//go:embed schema.sql
var schemaSQL string

// EnsureSchema creates the tables when they do not exist yet.
func EnsureSchema(ctx context.Context, provider db.Provider) error {
	database, err := db.CurrentDatabase(provider)
	if err != nil {
		return err
	}
	for _, stmt := range strings.Split(schemaSQL, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := database.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
