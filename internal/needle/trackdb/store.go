package trackdb

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/smartneedle/needletrack/internal/needle"
)

// SessionRecord is one stored tracking session.
type SessionRecord struct {
	SessionID           string
	StartedUnixNanos    int64
	EndedUnixNanos      int64 // zero while the session is live
	SmoothingMethod     string
	ConfidenceThreshold int
	ScanPlaneMode       string
	ActivePlanes        []string
	TotalCycles         int
}

// CycleRecord is one stored tracking cycle.
type CycleRecord struct {
	SessionID      string
	CycleNumber    int
	Plane          string
	TSUnixNanos    int64
	Confidence     int
	ConfidenceText string
	Updated        bool

	// RawRAS is nil when the cycle had no detection.
	RawRAS *[3]float64

	TrackedRAS  [3]float64
	SmoothedRAS [3]float64
}

// Store implements needle.Recorder on top of a TrackDB, plus the query side
// used by the monitor and reporting tools.
type Store struct {
	db *TrackDB
}

// NewStore returns a session store backed by db.
func NewStore(db *TrackDB) *Store {
	return &Store{db: db}
}

// StartSession inserts the session row at tracking start.
func (s *Store) StartSession(sessionID string, cfg needle.SessionConfig, start time.Time) error {
	planes := make([]string, len(cfg.ActivePlanes))
	for i, p := range cfg.ActivePlanes {
		planes[i] = string(p)
	}
	_, err := s.db.Exec(`
		INSERT INTO tracking_sessions (
			session_id, started_unix_nanos, smoothing_method,
			confidence_threshold, scan_plane_mode, active_planes
		) VALUES (?, ?, ?, ?, ?, ?)`,
		sessionID,
		start.UnixNano(),
		string(cfg.Smoothing),
		int(cfg.ConfidenceThreshold),
		string(cfg.ScanPlaneMode),
		strings.Join(planes, ","),
	)
	if err != nil {
		return fmt.Errorf("insert session %s: %w", sessionID, err)
	}
	return nil
}

// RecordCycle inserts one cycle row.
func (s *Store) RecordCycle(sessionID string, res *needle.CycleResult, at time.Time) error {
	var rawR, rawA, rawS sql.NullFloat64
	if res.RawRAS != nil {
		rawR = sql.NullFloat64{Float64: res.RawRAS[0], Valid: true}
		rawA = sql.NullFloat64{Float64: res.RawRAS[1], Valid: true}
		rawS = sql.NullFloat64{Float64: res.RawRAS[2], Valid: true}
	}
	updated := 0
	if res.Updated {
		updated = 1
	}
	_, err := s.db.Exec(`
		INSERT INTO tracking_cycles (
			session_id, cycle_number, plane, ts_unix_nanos,
			confidence, confidence_text, updated,
			raw_r, raw_a, raw_s,
			tracked_r, tracked_a, tracked_s,
			smoothed_r, smoothed_a, smoothed_s
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID,
		res.Cycle,
		string(res.Plane),
		at.UnixNano(),
		int(res.Confidence),
		res.Confidence.Label(),
		updated,
		rawR, rawA, rawS,
		res.Tracked[0], res.Tracked[1], res.Tracked[2],
		res.Smoothed[0], res.Smoothed[1], res.Smoothed[2],
	)
	if err != nil {
		return fmt.Errorf("insert cycle %d for session %s: %w", res.Cycle, sessionID, err)
	}
	return nil
}

// EndSession finalizes the session row at tracking stop.
func (s *Store) EndSession(sessionID string, end time.Time, totalCycles int) error {
	_, err := s.db.Exec(`
		UPDATE tracking_sessions
		SET ended_unix_nanos = ?, total_cycles = ?
		WHERE session_id = ?`,
		end.UnixNano(), totalCycles, sessionID,
	)
	if err != nil {
		return fmt.Errorf("finalize session %s: %w", sessionID, err)
	}
	return nil
}

// GetSession returns one session row, or nil when it does not exist.
func (s *Store) GetSession(sessionID string) (*SessionRecord, error) {
	row := s.db.QueryRow(`
		SELECT session_id, started_unix_nanos, COALESCE(ended_unix_nanos, 0),
		       smoothing_method, confidence_threshold, scan_plane_mode,
		       active_planes, total_cycles
		FROM tracking_sessions WHERE session_id = ?`, sessionID)

	var rec SessionRecord
	var planes string
	err := row.Scan(
		&rec.SessionID, &rec.StartedUnixNanos, &rec.EndedUnixNanos,
		&rec.SmoothingMethod, &rec.ConfidenceThreshold, &rec.ScanPlaneMode,
		&planes, &rec.TotalCycles,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", sessionID, err)
	}
	if planes != "" {
		rec.ActivePlanes = strings.Split(planes, ",")
	}
	return &rec, nil
}

// ListSessions returns the most recent sessions, newest first.
func (s *Store) ListSessions(limit int) ([]*SessionRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT session_id, started_unix_nanos, COALESCE(ended_unix_nanos, 0),
		       smoothing_method, confidence_threshold, scan_plane_mode,
		       active_planes, total_cycles
		FROM tracking_sessions
		ORDER BY started_unix_nanos DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []*SessionRecord
	for rows.Next() {
		var rec SessionRecord
		var planes string
		if err := rows.Scan(
			&rec.SessionID, &rec.StartedUnixNanos, &rec.EndedUnixNanos,
			&rec.SmoothingMethod, &rec.ConfidenceThreshold, &rec.ScanPlaneMode,
			&planes, &rec.TotalCycles,
		); err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		if planes != "" {
			rec.ActivePlanes = strings.Split(planes, ",")
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}

// GetCycles returns a session's cycles in processing order.
func (s *Store) GetCycles(sessionID string, limit int) ([]*CycleRecord, error) {
	if limit <= 0 {
		limit = 10000
	}
	rows, err := s.db.Query(`
		SELECT session_id, cycle_number, plane, ts_unix_nanos,
		       confidence, confidence_text, updated,
		       raw_r, raw_a, raw_s,
		       tracked_r, tracked_a, tracked_s,
		       smoothed_r, smoothed_a, smoothed_s
		FROM tracking_cycles
		WHERE session_id = ?
		ORDER BY cycle_number ASC LIMIT ?`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("get cycles for session %s: %w", sessionID, err)
	}
	defer rows.Close()

	var out []*CycleRecord
	for rows.Next() {
		var rec CycleRecord
		var updated int
		var rawR, rawA, rawS sql.NullFloat64
		if err := rows.Scan(
			&rec.SessionID, &rec.CycleNumber, &rec.Plane, &rec.TSUnixNanos,
			&rec.Confidence, &rec.ConfidenceText, &updated,
			&rawR, &rawA, &rawS,
			&rec.TrackedRAS[0], &rec.TrackedRAS[1], &rec.TrackedRAS[2],
			&rec.SmoothedRAS[0], &rec.SmoothedRAS[1], &rec.SmoothedRAS[2],
		); err != nil {
			return nil, fmt.Errorf("scan cycle row: %w", err)
		}
		rec.Updated = updated != 0
		if rawR.Valid && rawA.Valid && rawS.Valid {
			rec.RawRAS = &[3]float64{rawR.Float64, rawA.Float64, rawS.Float64}
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}
