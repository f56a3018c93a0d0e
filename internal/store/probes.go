package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cutagent/internal/media/ffprobe"
)

// FileStamp identifies one version of a file on disk.
type FileStamp struct {
	Size    int64
	ModTime time.Time
}

// LookupProbe returns the cached probe for path when it was recorded for the
// same size and modification time.
func (s *Store) LookupProbe(ctx context.Context, path string, stamp FileStamp) (ffprobe.Info, bool, error) {
	ctx = ensureContext(ctx)
	var (
		size    int64
		mtimeNS int64
		payload string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT size_bytes, mtime_ns, info_json FROM probe_cache WHERE path = ?", path,
	).Scan(&size, &mtimeNS, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return ffprobe.Info{}, false, nil
	}
	if err != nil {
		return ffprobe.Info{}, false, fmt.Errorf("lookup probe cache: %w", err)
	}
	if size != stamp.Size || mtimeNS != stamp.ModTime.UnixNano() {
		return ffprobe.Info{}, false, nil
	}
	var info ffprobe.Info
	if err := json.Unmarshal([]byte(payload), &info); err != nil {
		return ffprobe.Info{}, false, fmt.Errorf("decode cached probe for %s: %w", path, err)
	}
	return info, true, nil
}

// SaveProbe stores info for path, replacing any earlier entry.
func (s *Store) SaveProbe(ctx context.Context, path string, stamp FileStamp, info ffprobe.Info) error {
	payload, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("encode probe for %s: %w", path, err)
	}
	err = s.exec(ctx, `INSERT INTO probe_cache (path, size_bytes, mtime_ns, info_json, probed_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			size_bytes = excluded.size_bytes,
			mtime_ns = excluded.mtime_ns,
			info_json = excluded.info_json,
			probed_at = excluded.probed_at`,
		path, stamp.Size, stamp.ModTime.UnixNano(), string(payload), formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("save probe cache: %w", err)
	}
	return nil
}

// PruneProbes removes cache entries probed before cutoff.
func (s *Store) PruneProbes(ctx context.Context, cutoff time.Time) error {
	if err := s.exec(ctx, "DELETE FROM probe_cache WHERE probed_at < ?", formatTime(cutoff)); err != nil {
		return fmt.Errorf("prune probe cache: %w", err)
	}
	return nil
}
