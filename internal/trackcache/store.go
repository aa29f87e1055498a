package trackcache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	"hanziblur/internal/aggregate"
	"hanziblur/internal/fileutil"
	"hanziblur/internal/logging"
)

// lockRetry is how often a blocked writer polls the sidecar lock.
const lockRetry = 50 * time.Millisecond

// Store is a SQLite-backed track cache.
type Store struct {
	db     *sql.DB
	path   string
	lock   *flock.Flock
	logger *slog.Logger
}

// Open creates or opens the cache database at path and applies migrations.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	if path == "" {
		return nil, errors.New("cache path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}

	s := &Store{
		db:     db,
		path:   path,
		lock:   flock.New(path + ".lock"),
		logger: logging.NewComponentLogger(logger, "trackcache"),
	}
	if err := s.withLock(ctx, func() error { return s.migrate(ctx) }); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Path returns the database location.
func (s *Store) Path() string { return s.path }

// Close releases the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Lookup returns the tracks stored for the video at videoPath under
// settings. A changed file produces a different fingerprint and misses.
func (s *Store) Lookup(ctx context.Context, videoPath, settings string) ([]aggregate.Track, bool, error) {
	fp, err := fileutil.Fingerprint(videoPath)
	if err != nil {
		return nil, false, fmt.Errorf("fingerprint video: %w", err)
	}
	var payload string
	err = s.db.QueryRowContext(ctx,
		`SELECT tracks_json FROM analyses WHERE fingerprint = ? AND settings = ?`,
		fp, settings,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query cache: %w", err)
	}
	var tracks []aggregate.Track
	if err := json.Unmarshal([]byte(payload), &tracks); err != nil {
		s.logger.Warn("discarding corrupt cache entry",
			logging.String(logging.FieldEventType, "trackcache_corrupt"),
			logging.String("video", videoPath),
			logging.Error(err),
		)
		return nil, false, nil
	}
	if tracks == nil {
		tracks = []aggregate.Track{}
	}
	s.logger.Debug("cache hit", logging.String("video", videoPath), logging.Int("tracks", len(tracks)))
	return tracks, true, nil
}

// Store records tracks for the video at videoPath, replacing any previous
// entry under the same settings.
func (s *Store) Store(ctx context.Context, videoPath, settings string, tracks []aggregate.Track) error {
	fp, err := fileutil.Fingerprint(videoPath)
	if err != nil {
		return fmt.Errorf("fingerprint video: %w", err)
	}
	if tracks == nil {
		tracks = []aggregate.Track{}
	}
	payload, err := json.Marshal(tracks)
	if err != nil {
		return fmt.Errorf("marshal tracks: %w", err)
	}
	return s.withLock(ctx, func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO analyses (fingerprint, settings, video_path, tracks_json, track_count, created_at)
             VALUES (?, ?, ?, ?, ?, ?)
             ON CONFLICT(fingerprint, settings) DO UPDATE SET
                 video_path = excluded.video_path,
                 tracks_json = excluded.tracks_json,
                 track_count = excluded.track_count,
                 created_at = excluded.created_at`,
			fp, settings, videoPath, string(payload), len(tracks),
			time.Now().UTC().Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("store tracks: %w", err)
		}
		return nil
	})
}

// Count returns the number of cached analyses.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM analyses`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count cache entries: %w", err)
	}
	return n, nil
}

// Purge removes entries created before cutoff; a zero cutoff removes all.
func (s *Store) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	var removed int64
	err := s.withLock(ctx, func() error {
		var (
			res sql.Result
			err error
		)
		if cutoff.IsZero() {
			res, err = s.db.ExecContext(ctx, `DELETE FROM analyses`)
		} else {
			res, err = s.db.ExecContext(ctx, `DELETE FROM analyses WHERE created_at < ?`,
				cutoff.UTC().Format(time.RFC3339Nano))
		}
		if err != nil {
			return fmt.Errorf("purge cache: %w", err)
		}
		removed, _ = res.RowsAffected()
		return nil
	})
	return removed, err
}

func (s *Store) withLock(ctx context.Context, fn func() error) error {
	ok, err := s.lock.TryLockContext(ctx, lockRetry)
	if err != nil {
		return fmt.Errorf("acquire cache lock: %w", err)
	}
	if !ok {
		return errors.New("cache lock not acquired")
	}
	defer func() { _ = s.lock.Unlock() }()
	return fn()
}
