package db

import (
	"context"
	"fmt"
	"time"

	"github.com/audiocove/audiocove/internal/analytics"
)

// InsertRequestEvent persists a single request event.
// Implements analytics.EventStore.
func (db *DB) InsertRequestEvent(ctx context.Context, event analytics.Event) error {
	query := `INSERT INTO request_events (time, client_ip, fingerprint, client_name, method, path, route_class, status, user_agent)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := db.conn.ExecContext(ctx, query,
		event.Time,
		event.ClientIP,
		event.Fingerprint,
		event.ClientName,
		event.Method,
		event.Path,
		event.RouteClass,
		event.Status,
		event.UserAgent,
	)
	if err != nil {
		return fmt.Errorf("failed to insert request event: %w", err)
	}
	return nil
}

// ClientStat summarizes one client's traffic over a window.
type ClientStat struct {
	Fingerprint string `json:"fingerprint"`
	ClientName  string `json:"client_name,omitempty"`
	ClientIP    string `json:"client_ip,omitempty"`
	Requests    int64  `json:"requests"`
	Errors      int64  `json:"errors"`
}

// TopClients returns the most active clients since the given time,
// identified by fingerprint. Used by the admin dashboard.
func (db *DB) TopClients(ctx context.Context, since time.Time, limit int) ([]ClientStat, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT fingerprint, MAX(client_name), MAX(client_ip),
	                 COUNT(*), SUM(CASE WHEN status >= 400 THEN 1 ELSE 0 END)
	          FROM request_events
	          WHERE time >= ? AND fingerprint != ''
	          GROUP BY fingerprint
	          ORDER BY COUNT(*) DESC
	          LIMIT ?`

	rows, err := db.conn.QueryContext(ctx, query, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top clients: %w", err)
	}
	defer rows.Close()

	var stats []ClientStat
	for rows.Next() {
		var stat ClientStat
		if err := rows.Scan(&stat.Fingerprint, &stat.ClientName, &stat.ClientIP, &stat.Requests, &stat.Errors); err != nil {
			return nil, fmt.Errorf("failed to scan client stat: %w", err)
		}
		stats = append(stats, stat)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating client stats: %w", err)
	}

	return stats, nil
}

// PruneRequestEvents deletes events older than the cutoff and returns
// the number of rows removed.
func (db *DB) PruneRequestEvents(ctx context.Context, before time.Time) (int64, error) {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM request_events WHERE time < ?`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to prune request events: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows, nil
}
