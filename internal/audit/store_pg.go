package audit

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool used by PGStore.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PGStore writes audit entries to the audit_logs table.
type PGStore struct {
	DB DB
}

const insertAuditSQL = `INSERT INTO audit_logs (actor, action, resource_type, method, path, route, status, ip, user_agent, request_id, metadata)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

const listAuditSQL = `SELECT id, actor, action, resource_type, method, path, route, status, ip, user_agent, request_id, metadata, created_at
FROM audit_logs
WHERE ($1 = '' OR resource_type = $1)
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3`

// InsertAuditLog implements Store.
func (s PGStore) InsertAuditLog(ctx context.Context, e Entry) error {
	var metadata []byte
	if len(e.Metadata) > 0 {
		metadata = e.Metadata
	}
	_, err := s.DB.Exec(ctx, insertAuditSQL,
		e.Actor, e.Action, e.ResourceType, e.Method, e.Path, e.Route,
		e.Status, e.IP, e.UserAgent, e.RequestID, metadata,
	)
	if err != nil {
		return fmt.Errorf("audit: insert: %w", err)
	}
	return nil
}

// ListAuditLogs implements Store, newest first.
func (s PGStore) ListAuditLogs(ctx context.Context, p ListParams) ([]Entry, error) {
	rows, err := s.DB.Query(ctx, listAuditSQL, p.ResourceType, p.Limit, p.Offset)
	if err != nil {
		return nil, fmt.Errorf("audit: list: %w", err)
	}
	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Entry, error) {
		var e Entry
		var metadata []byte
		err := row.Scan(&e.ID, &e.Actor, &e.Action, &e.ResourceType, &e.Method, &e.Path, &e.Route,
			&e.Status, &e.IP, &e.UserAgent, &e.RequestID, &metadata, &e.CreatedAt)
		e.Metadata = metadata
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("audit: scan: %w", err)
	}
	return entries, nil
}
