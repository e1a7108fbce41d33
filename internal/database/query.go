package database

import (
	"database/sql"
	"time"
)

const selectRemovals = `
	SELECT id, timestamp, action, path, file_name, object_type, error_message
	FROM removals
`

// GetRecentRemovals returns the N most recent records
func (d *RemovalDB) GetRecentRemovals(limit int) ([]RemovalRecord, error) {
	return d.queryRemovals(selectRemovals+`
	ORDER BY timestamp DESC, id DESC
	LIMIT ?
	`, limit)
}

// GetRemovalsByAction returns records filtered by action type
func (d *RemovalDB) GetRemovalsByAction(action string, limit int) ([]RemovalRecord, error) {
	return d.queryRemovals(selectRemovals+`
	WHERE action = ?
	ORDER BY timestamp DESC, id DESC
	LIMIT ?
	`, action, limit)
}

// GetRemovalsByPath returns records matching a path pattern (SQL LIKE syntax)
func (d *RemovalDB) GetRemovalsByPath(pathPattern string, limit int) ([]RemovalRecord, error) {
	return d.queryRemovals(selectRemovals+`
	WHERE path LIKE ?
	ORDER BY timestamp DESC, id DESC
	LIMIT ?
	`, pathPattern, limit)
}

// GetRemovalsByDateRange returns records within a time range
func (d *RemovalDB) GetRemovalsByDateRange(start, end time.Time) ([]RemovalRecord, error) {
	return d.queryRemovals(selectRemovals+`
	WHERE timestamp BETWEEN ? AND ?
	ORDER BY timestamp DESC, id DESC
	`, start.UTC(), end.UTC())
}

// GetCountByAction returns count of records grouped by action
func (d *RemovalDB) GetCountByAction(since time.Time) (map[string]int, error) {
	rows, err := d.db.Query(`
	SELECT action, COUNT(*)
	FROM removals
	WHERE timestamp >= ?
	GROUP BY action
	`, since.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var action string
		var count int
		if err := rows.Scan(&action, &count); err != nil {
			return nil, err
		}
		counts[action] = count
	}

	return counts, rows.Err()
}

// RemovalStats holds aggregated statistics
type RemovalStats struct {
	TotalRemoved int            `json:"total_removed"`
	TotalDryRun  int            `json:"total_dry_run"`
	TotalSkipped int            `json:"total_skipped"`
	TotalErrors  int            `json:"total_errors"`
	ByAction     map[string]int `json:"by_action"`
	StartDate    time.Time      `json:"start_date"`
	EndDate      time.Time      `json:"end_date"`
}

// GetRemovalStats returns statistics for the last N days
func (d *RemovalDB) GetRemovalStats(days int) (*RemovalStats, error) {
	now := d.now()
	since := now.AddDate(0, 0, -days)

	byAction, err := d.GetCountByAction(since)
	if err != nil {
		return nil, err
	}

	return &RemovalStats{
		TotalRemoved: byAction["REMOVE"],
		TotalDryRun:  byAction["DRY_RUN"],
		TotalSkipped: byAction["SKIP"],
		TotalErrors:  byAction["ERROR"],
		ByAction:     byAction,
		StartDate:    since,
		EndDate:      now,
	}, nil
}

// DeleteOldRecords removes records older than specified days
func (d *RemovalDB) DeleteOldRecords(olderThanDays int) (int64, error) {
	cutoff := d.now().AddDate(0, 0, -olderThanDays).UTC()

	result, err := d.db.Exec(`DELETE FROM removals WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

// queryRemovals executes a query and scans the results
func (d *RemovalDB) queryRemovals(query string, args ...interface{}) ([]RemovalRecord, error) {
	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []RemovalRecord
	for rows.Next() {
		var r RemovalRecord
		var fileName, objectType, errMsg sql.NullString

		if err := rows.Scan(&r.ID, &r.Timestamp, &r.Action, &r.Path, &fileName, &objectType, &errMsg); err != nil {
			return nil, err
		}

		r.FileName = fileName.String
		r.ObjectType = objectType.String
		r.ErrorMessage = errMsg.String
		records = append(records, r)
	}

	return records, rows.Err()
}
