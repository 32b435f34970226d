package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/calder-games/simcore/internal/replay"
	"github.com/calder-games/simcore/internal/trace"
)

// SessionInfo is a stored session's header row, returned by ListSessions.
type SessionInfo struct {
	ID          string
	Seed        uint64
	StartTime   time.Time
	Duration    time.Duration
	FrameCount  int
	Fingerprint string
	CreatedAt   time.Time
}

// SaveSession persists a completed session: header, frames, and metadata in
// one transaction. Saving an id that already exists is a silent no-op
// (idempotent), so retrying a failed CLI run cannot duplicate frames.
//
// The session's content fingerprint is computed here and stored alongside
// the header; LoadSession re-derives it to detect corruption.
func (s *Store) SaveSession(ctx context.Context, session *replay.Session) error {
	fingerprint, err := trace.SessionFingerprint(session)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save session: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	res, err := tx.ExecContext(ctx, `
		INSERT INTO sessions
		(id, seed, start_time_ns, duration_ns, frame_count, fingerprint, created_at_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		session.ID,
		int64(session.Seed),
		session.StartTime.UnixNano(),
		int64(session.Duration),
		len(session.Frames),
		fingerprint,
		time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// Already stored; frames are immutable, nothing to update.
		return nil
	}

	for _, f := range session.Frames {
		data, err := marshalFrameData(f.Data)
		if err != nil {
			return fmt.Errorf("save session frame %d: %w", f.Number, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO frames (session_id, number, timestamp_ns, data)
			VALUES (?, ?, ?, ?)
		`, session.ID, f.Number, f.Timestamp.UnixNano(), data); err != nil {
			return fmt.Errorf("save session frame %d: %w", f.Number, err)
		}
	}

	for k, v := range session.Metadata {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO session_metadata (session_id, key, value)
			VALUES (?, ?, ?)
		`, session.ID, k, v); err != nil {
			return fmt.Errorf("save session metadata %q: %w", k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save session: commit: %w", err)
	}
	return nil
}

// LoadSession reads a stored session back, frames in recorded order, and
// verifies the stored fingerprint against the loaded content. Returns
// NotFoundError if the id has no row.
func (s *Store) LoadSession(ctx context.Context, id string) (*replay.Session, error) {
	var (
		seed        int64
		startNs     int64
		durationNs  int64
		fingerprint string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT seed, start_time_ns, duration_ns, fingerprint
		FROM sessions WHERE id = ?
	`, id).Scan(&seed, &startNs, &durationNs, &fingerprint)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &NotFoundError{ID: id}
		}
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}

	session := &replay.Session{
		ID:        id,
		Seed:      uint64(seed),
		StartTime: time.Unix(0, startNs).UTC(),
		Duration:  time.Duration(durationNs),
		Metadata:  map[string]string{},
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT number, timestamp_ns, data
		FROM frames WHERE session_id = ?
		ORDER BY number ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("load session %s frames: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			number int64
			tsNs   int64
			raw    string
		)
		if err := rows.Scan(&number, &tsNs, &raw); err != nil {
			return nil, fmt.Errorf("load session %s frames: %w", id, err)
		}
		data, err := unmarshalFrameData(raw)
		if err != nil {
			return nil, fmt.Errorf("load session %s frame %d: %w", id, number, err)
		}
		session.Frames = append(session.Frames, replay.Frame{
			Number:    number,
			Timestamp: time.Unix(0, tsNs).UTC(),
			Data:      data,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load session %s frames: %w", id, err)
	}

	metaRows, err := s.db.QueryContext(ctx, `
		SELECT key, value FROM session_metadata WHERE session_id = ?
	`, id)
	if err != nil {
		return nil, fmt.Errorf("load session %s metadata: %w", id, err)
	}
	defer metaRows.Close()
	for metaRows.Next() {
		var k, v string
		if err := metaRows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("load session %s metadata: %w", id, err)
		}
		session.Metadata[k] = v
	}
	if err := metaRows.Err(); err != nil {
		return nil, fmt.Errorf("load session %s metadata: %w", id, err)
	}

	loaded, err := trace.SessionFingerprint(session)
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	if loaded != fingerprint {
		return nil, fmt.Errorf("load session %s: fingerprint mismatch (stored %s, loaded %s)",
			id, fingerprint, loaded)
	}

	return session, nil
}

// ListSessions returns stored session headers, oldest first.
func (s *Store) ListSessions(ctx context.Context) ([]SessionInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seed, start_time_ns, duration_ns, frame_count, fingerprint, created_at_ns
		FROM sessions
		ORDER BY created_at_ns ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var infos []SessionInfo
	for rows.Next() {
		var (
			info      SessionInfo
			seed      int64
			startNs   int64
			durNs     int64
			createdNs int64
		)
		if err := rows.Scan(&info.ID, &seed, &startNs, &durNs,
			&info.FrameCount, &info.Fingerprint, &createdNs); err != nil {
			return nil, fmt.Errorf("list sessions: %w", err)
		}
		info.Seed = uint64(seed)
		info.StartTime = time.Unix(0, startNs).UTC()
		info.Duration = time.Duration(durNs)
		info.CreatedAt = time.Unix(0, createdNs).UTC()
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return infos, nil
}

// DeleteSession removes a session and, via cascade, its frames and
// metadata. Returns false if the id had no row.
func (s *Store) DeleteSession(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete session %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete session %s: %w", id, err)
	}
	return n > 0, nil
}
