package nodestore

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"wiretap/internal/wiretap"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema changes.
// Existing databases must be recreated after a bump.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match the expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// rootPaths are the namespace roots created with every database, after "/".
var rootPaths = []string{wiretap.ProjectsPath, wiretap.UsersPath, wiretap.VolumesPath}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	err = s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to recreate it)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}

	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}

		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
			return fmt.Errorf("record schema version: %w", err)
		}

		rootID, err := s.insertNode(ctx, tx, nodeRow{path: "/", nodeType: wiretap.TypeNode})
		if err != nil {
			return fmt.Errorf("create root: %w", err)
		}
		for _, root := range rootPaths {
			row := nodeRow{
				parentID: sql.NullInt64{Int64: rootID, Valid: true},
				path:     root,
				name:     root[1:],
				nodeType: wiretap.TypeNode,
			}
			if _, err := s.insertNode(ctx, tx, row); err != nil {
				return fmt.Errorf("create root %s: %w", root, err)
			}
		}
		return nil
	})
}
