package nodestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"wiretap/internal/wiretap"
)

const defaultLibraryList = "Libraries"

var (
	// ErrNotFound reports a path with no node.
	ErrNotFound = errors.New("node does not exist")
	// ErrDuplicate reports a sibling with the same display name.
	ErrDuplicate = errors.New("node already exists")
	// ErrProtected reports an attempt to destroy a namespace root.
	ErrProtected = errors.New("node cannot be destroyed")
	// ErrNoMetadata reports a node without the requested metadata stream.
	ErrNoMetadata = errors.New("no metadata stream")
)

type nodeRow struct {
	id       int64
	parentID sql.NullInt64
	path     string
	name     string
	nodeType wiretap.NodeType
	volumeID sql.NullInt64
}

func (r nodeRow) info() wiretap.NodeInfo {
	return wiretap.NodeInfo{Path: r.path, Name: r.name, Type: r.nodeType}
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

const nodeColumns = "id, parent_id, path, name, type, volume_id"

func scanNode(scanner interface{ Scan(dest ...any) error }) (nodeRow, error) {
	var (
		row     nodeRow
		typeStr string
	)
	if err := scanner.Scan(&row.id, &row.parentID, &row.path, &row.name, &typeStr, &row.volumeID); err != nil {
		return nodeRow{}, err
	}
	row.nodeType = wiretap.NodeType(typeStr)
	return row, nil
}

func cleanPath(p string) (string, error) {
	p = strings.TrimSpace(p)
	if !strings.HasPrefix(p, "/") {
		return "", fmt.Errorf("invalid node path %q", p)
	}
	return path.Clean(p), nil
}

func (s *Store) nodeByPath(ctx context.Context, q querier, p string) (nodeRow, error) {
	row, err := scanNode(q.QueryRowContext(ctx, "SELECT "+nodeColumns+" FROM nodes WHERE path = ?", p))
	if errors.Is(err, sql.ErrNoRows) {
		return nodeRow{}, fmt.Errorf("%w: %s", ErrNotFound, p)
	}
	if err != nil {
		return nodeRow{}, fmt.Errorf("lookup %s: %w", p, err)
	}
	return row, nil
}

func (s *Store) insertNode(ctx context.Context, tx *sql.Tx, row nodeRow) (int64, error) {
	res, err := tx.ExecContext(ctx,
		"INSERT INTO nodes (parent_id, path, name, type, volume_id, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		row.parentID, row.path, row.name, row.nodeType.String(), row.volumeID,
		s.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// Lookup returns the node at path.
func (s *Store) Lookup(ctx context.Context, nodePath string) (wiretap.NodeInfo, error) {
	ctx = ensureContext(ctx)
	p, err := cleanPath(nodePath)
	if err != nil {
		return wiretap.NodeInfo{}, err
	}
	var row nodeRow
	err = retryOnBusy(ctx, func() error {
		var lookupErr error
		row, lookupErr = s.nodeByPath(ctx, s.db, p)
		return lookupErr
	})
	if err != nil {
		return wiretap.NodeInfo{}, err
	}
	return row.info(), nil
}

// Children lists the children of path in creation order. A volume lists the
// projects it hosts.
func (s *Store) Children(ctx context.Context, nodePath string) ([]wiretap.NodeInfo, error) {
	ctx = ensureContext(ctx)
	p, err := cleanPath(nodePath)
	if err != nil {
		return nil, err
	}

	var out []wiretap.NodeInfo
	err = retryOnBusy(ctx, func() error {
		out = nil
		parent, err := s.nodeByPath(ctx, s.db, p)
		if err != nil {
			return err
		}
		query := "SELECT " + nodeColumns + " FROM nodes WHERE parent_id = ? ORDER BY id"
		args := []any{parent.id}
		if parent.nodeType == wiretap.TypeVolume {
			query = "SELECT " + nodeColumns + " FROM nodes WHERE volume_id = ? AND type = ? ORDER BY id"
			args = []any{parent.id, wiretap.TypeProject.String()}
		}
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("list children of %s: %w", p, err)
		}
		defer rows.Close()
		for rows.Next() {
			row, err := scanNode(rows)
			if err != nil {
				return fmt.Errorf("scan child of %s: %w", p, err)
			}
			out = append(out, row.info())
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CreateChild creates a node below parentPath. A NODE created under a VOLUME
// becomes a PROJECT below /projects hosted by that volume. A new WORKSPACE
// receives the configured library lists.
func (s *Store) CreateChild(ctx context.Context, parentPath, name string, nodeType wiretap.NodeType) (wiretap.NodeInfo, error) {
	ctx = ensureContext(ctx)
	p, err := cleanPath(parentPath)
	if err != nil {
		return wiretap.NodeInfo{}, err
	}
	if err := wiretap.ValidateName(name); err != nil {
		return wiretap.NodeInfo{}, err
	}
	if _, err := wiretap.ParseNodeType(nodeType.String()); err != nil {
		return wiretap.NodeInfo{}, err
	}

	var created nodeRow
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		parent, err := s.nodeByPath(ctx, tx, p)
		if err != nil {
			return err
		}

		row := nodeRow{
			parentID: sql.NullInt64{Int64: parent.id, Valid: true},
			path:     wiretap.JoinPath(parent.path, name),
			name:     name,
			nodeType: nodeType,
		}
		if parent.nodeType == wiretap.TypeVolume && nodeType == wiretap.TypeNode {
			projects, err := s.nodeByPath(ctx, tx, wiretap.ProjectsPath)
			if err != nil {
				return err
			}
			row.parentID = sql.NullInt64{Int64: projects.id, Valid: true}
			row.path = wiretap.JoinPath(projects.path, name)
			row.nodeType = wiretap.TypeProject
			row.volumeID = sql.NullInt64{Int64: parent.id, Valid: true}
		}

		if err := s.ensureAbsent(ctx, tx, row.path); err != nil {
			return err
		}
		id, err := s.insertNode(ctx, tx, row)
		if err != nil {
			return fmt.Errorf("insert %s: %w", row.path, err)
		}
		row.id = id

		if row.nodeType == wiretap.TypeWorkspace {
			for _, list := range s.libraryLists {
				child := nodeRow{
					parentID: sql.NullInt64{Int64: id, Valid: true},
					path:     wiretap.JoinPath(row.path, list),
					name:     list,
					nodeType: wiretap.TypeLibraryList,
				}
				if _, err := s.insertNode(ctx, tx, child); err != nil {
					return fmt.Errorf("insert %s: %w", child.path, err)
				}
			}
		}
		created = row
		return nil
	})
	if err != nil {
		return wiretap.NodeInfo{}, err
	}
	return created.info(), nil
}

func (s *Store) ensureAbsent(ctx context.Context, q querier, p string) error {
	var count int
	if err := q.QueryRowContext(ctx, "SELECT COUNT(1) FROM nodes WHERE path = ?", p).Scan(&count); err != nil {
		return fmt.Errorf("check %s: %w", p, err)
	}
	if count > 0 {
		return fmt.Errorf("%w: %s", ErrDuplicate, p)
	}
	return nil
}

// AddVolume registers a volume below /volumes. Registering an existing volume
// returns it unchanged.
func (s *Store) AddVolume(ctx context.Context, name string) (wiretap.NodeInfo, error) {
	ctx = ensureContext(ctx)
	if err := wiretap.ValidateName(name); err != nil {
		return wiretap.NodeInfo{}, err
	}
	info, err := s.Lookup(ctx, wiretap.JoinPath(wiretap.VolumesPath, name))
	if err == nil {
		if info.Type != wiretap.TypeVolume {
			return wiretap.NodeInfo{}, fmt.Errorf("%w: %s is a %s", ErrDuplicate, info.Path, info.Type)
		}
		return info, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return wiretap.NodeInfo{}, err
	}
	return s.CreateChild(ctx, wiretap.VolumesPath, name, wiretap.TypeVolume)
}

// SetMetadata replaces the stream on the node at path.
func (s *Store) SetMetadata(ctx context.Context, nodePath, stream, data string) error {
	ctx = ensureContext(ctx)
	p, err := cleanPath(nodePath)
	if err != nil {
		return err
	}
	if strings.TrimSpace(stream) == "" {
		return errors.New("metadata stream name is required")
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		node, err := s.nodeByPath(ctx, tx, p)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO metadata (node_id, stream, data, updated_at) VALUES (?, ?, ?, ?)
			ON CONFLICT(node_id, stream) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
			node.id, stream, data, s.now().UTC().Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("write %s metadata for %s: %w", stream, p, err)
		}
		return nil
	})
}

// Metadata returns the stream stored on the node at path.
func (s *Store) Metadata(ctx context.Context, nodePath, stream string) (string, error) {
	ctx = ensureContext(ctx)
	p, err := cleanPath(nodePath)
	if err != nil {
		return "", err
	}
	var data string
	err = retryOnBusy(ctx, func() error {
		node, err := s.nodeByPath(ctx, s.db, p)
		if err != nil {
			return err
		}
		err = s.db.QueryRowContext(ctx,
			"SELECT data FROM metadata WHERE node_id = ? AND stream = ?", node.id, stream,
		).Scan(&data)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w %s on %s", ErrNoMetadata, stream, p)
		}
		return err
	})
	if err != nil {
		return "", err
	}
	return data, nil
}

// Destroy removes the node at path, everything below it, and their metadata.
// Namespace roots cannot be destroyed.
func (s *Store) Destroy(ctx context.Context, nodePath string) error {
	ctx = ensureContext(ctx)
	p, err := cleanPath(nodePath)
	if err != nil {
		return err
	}
	if p == "/" {
		return fmt.Errorf("%w: %s", ErrProtected, p)
	}
	for _, root := range rootPaths {
		if p == root {
			return fmt.Errorf("%w: %s", ErrProtected, p)
		}
	}

	prefix := p + "/"
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.nodeByPath(ctx, tx, p); err != nil {
			return err
		}
		subtree := "SELECT id FROM nodes WHERE path = ? OR substr(path, 1, length(?)) = ?"
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM metadata WHERE node_id IN ("+subtree+")", p, prefix, prefix,
		); err != nil {
			return fmt.Errorf("delete metadata below %s: %w", p, err)
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE nodes SET volume_id = NULL WHERE volume_id IN ("+subtree+")", p, prefix, prefix,
		); err != nil {
			return fmt.Errorf("detach projects from %s: %w", p, err)
		}
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM nodes WHERE path = ? OR substr(path, 1, length(?)) = ?", p, prefix, prefix,
		); err != nil {
			return fmt.Errorf("delete %s: %w", p, err)
		}
		return nil
	})
}

// Stats summarizes the stored tree.
type Stats struct {
	Path   string         `json:"path"`
	Total  int            `json:"total"`
	ByType map[string]int `json:"by_type"`
}

// Stats counts stored nodes by type.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	ctx = ensureContext(ctx)
	stats := Stats{Path: s.path, ByType: make(map[string]int)}
	err := retryOnBusy(ctx, func() error {
		stats.Total = 0
		clear(stats.ByType)
		rows, err := s.db.QueryContext(ctx, "SELECT type, COUNT(1) FROM nodes GROUP BY type")
		if err != nil {
			return fmt.Errorf("count nodes: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var (
				nodeType string
				count    int
			)
			if err := rows.Scan(&nodeType, &count); err != nil {
				return fmt.Errorf("scan node count: %w", err)
			}
			stats.ByType[nodeType] = count
			stats.Total += count
		}
		return rows.Err()
	})
	if err != nil {
		return Stats{}, err
	}
	return stats, nil
}
