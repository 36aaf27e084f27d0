package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/jobrefme/jobrefme-cli/internal/client/store/migrations"
	"github.com/jobrefme/jobrefme-cli/internal/common"
	"github.com/jobrefme/jobrefme-cli/internal/dbx"
	"github.com/jobrefme/jobrefme-cli/internal/logging"
)

// defaultPollInterval bounds how stale another process's view can get when
// filesystem notifications are unavailable (network mounts, some containers).
const defaultPollInterval = 250 * time.Millisecond

// SQLiteStore is the durable file-backed store shared between the cli and
// agent processes. Every write appends to a changes journal inside the same
// transaction; other processes tail the journal (fsnotify wakeup plus a
// polling fallback) and emit Watch events for entries whose origin differs
// from their own handle id.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	origin string
	log    logging.Logger

	pollInterval time.Duration

	mu       sync.Mutex
	closed   bool
	watchers map[chan Change]struct{}

	cancelTail context.CancelFunc
	tailDone   chan struct{}
}

type SQLiteOption func(*SQLiteStore)

// WithPollInterval overrides the journal polling fallback interval.
func WithPollInterval(d time.Duration) SQLiteOption {
	return func(s *SQLiteStore) { s.pollInterval = d }
}

// WithLogger attaches a logger; by default the store is silent.
func WithLogger(l logging.Logger) SQLiteOption {
	return func(s *SQLiteStore) { s.log = l }
}

// OpenSQLite opens (creating if needed) the store database at path and
// starts the journal tailer.
func OpenSQLite(ctx context.Context, path string, opts ...SQLiteOption) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}

	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteStore{
		db:           db,
		path:         path,
		origin:       uuid.NewString(),
		log:          logging.NewNopLogger(),
		pollInterval: defaultPollInterval,
		watchers:     make(map[chan Change]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	lastSeq, err := s.maxSeq(ctx)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	tailCtx, cancel := context.WithCancel(context.Background())
	s.cancelTail = cancel
	s.tailDone = make(chan struct{})
	go s.tailJournal(tailCtx, lastSeq)

	return s, nil
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("run store migrations: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get kv[%s]: %w", key, err)
	}
	return value, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key string, value []byte) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO kv (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value
		`, key, value); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO changes (key, value, deleted, origin) VALUES (?, ?, 0, ?)`,
			key, value, s.origin)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to set kv[%s]: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil || n == 0 {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO changes (key, deleted, origin) VALUES (?, 1, ?)`,
			key, s.origin)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to delete kv[%s]: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context) (map[string][]byte, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM kv`)
	if err != nil {
		return nil, fmt.Errorf("failed to list kv: %w", err)
	}
	defer rows.Close()

	result := make(map[string][]byte)
	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan kv row: %w", err)
		}
		result[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate kv rows: %w", err)
	}
	return result, nil
}

func (s *SQLiteStore) Watch(ctx context.Context) (<-chan Change, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, errors.New("store is closed")
	}
	ch := make(chan Change, watchBuffer)
	s.watchers[ch] = struct{}{}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		if _, ok := s.watchers[ch]; ok {
			delete(s.watchers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}()

	return ch, nil
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	for ch := range s.watchers {
		delete(s.watchers, ch)
		close(ch)
	}
	s.mu.Unlock()

	s.cancelTail()
	<-s.tailDone
	return s.db.Close()
}

func (s *SQLiteStore) maxSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM changes`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("failed to read journal position: %w", err)
	}
	return seq.Int64, nil
}

// tailJournal emits changes appended by other processes. A filesystem watch
// on the database directory wakes the tailer promptly; the ticker is the
// fallback when fsnotify cannot deliver.
func (s *SQLiteStore) tailJournal(ctx context.Context, lastSeq int64) {
	defer close(s.tailDone)

	var fsEvents chan struct{}
	watcher, err := fsnotify.NewWatcher()
	if err == nil {
		defer watcher.Close()
		if err := watcher.Add(filepath.Dir(s.path)); err == nil {
			fsEvents = make(chan struct{}, 1)
			go s.forwardFSEvents(ctx, watcher, fsEvents)
		}
	} else {
		s.log.Warn(ctx, "store change notifications degraded to polling", "error", err)
	}

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-fsEvents:
		}

		seq, err := s.drainJournal(ctx, lastSeq)
		if err != nil {
			if ctx.Err() == nil {
				s.log.Error(ctx, "failed to read store journal", "error", err)
			}
			continue
		}
		lastSeq = seq
	}
}

func (s *SQLiteStore) forwardFSEvents(ctx context.Context, watcher *fsnotify.Watcher, out chan<- struct{}) {
	base := filepath.Base(s.path)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			// WAL mode writes land in <db>-wal; match on the shared prefix.
			if !strings.HasPrefix(filepath.Base(ev.Name), base) {
				continue
			}
			select {
			case out <- struct{}{}:
			default:
			}
		case _, ok := <-watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

func (s *SQLiteStore) drainJournal(ctx context.Context, after int64) (int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, key, value, deleted, origin FROM changes
		WHERE seq > ? ORDER BY seq
	`, after)
	if err != nil {
		return after, err
	}
	defer rows.Close()

	last := after
	for rows.Next() {
		var (
			seq     int64
			key     string
			value   []byte
			deleted int
			origin  string
		)
		if err := rows.Scan(&seq, &key, &value, &deleted, &origin); err != nil {
			return last, err
		}
		last = seq
		if origin == s.origin {
			continue
		}
		s.emit(Change{Key: key, Value: value, Deleted: deleted != 0})
	}
	return last, rows.Err()
}

func (s *SQLiteStore) emit(c Change) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.watchers {
		select {
		case ch <- c:
		default:
		}
	}
}
