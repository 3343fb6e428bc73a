// Package store implements the dual-storage engine: an append-only JSONL log
// as the durable source of truth and a derived SQLite cache with full-text
// search. Every mutation updates both under a cross-process file lock; the
// importer reconciles the cache with whatever the log has become since the
// last invocation (git pulls, merges, manual edits).
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/natefinch/atomic"
	sqlite3 "github.com/ncruces/go-sqlite3"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/tetratelabs/wazero"

	"github.com/tissue-dev/tissue/internal/config"
	"github.com/tissue-dev/tissue/internal/debug"
	"github.com/tissue-dev/tissue/internal/ids"
	"github.com/tissue-dev/tissue/internal/journal"
)

// DirName is the conventional store directory name.
const DirName = ".tissue"

// DBFileName is the derived cache inside the store directory.
const DBFileName = "issues.db"

// DefaultPrefix is used when no prefix can be derived from the environment.
const DefaultPrefix = "tissue"

var gitignore = strings.Join([]string{
	DBFileName,
	DBFileName + "-shm",
	DBFileName + "-wal",
	journal.LockFileName,
	"debug.log",
}, "\n") + "\n"

func init() {
	// Persistent WASM compilation cache: first run compiles the embedded
	// sqlite build (~200ms), subsequent runs load it in ~20ms.
	cache := wazero.NewCompilationCache()
	if userCache, err := os.UserCacheDir(); err == nil {
		if c, err := wazero.NewCompilationCacheWithDir(filepath.Join(userCache, "tissue", "wasm")); err == nil {
			cache = c
		}
	}
	sqlite3.RuntimeConfig = wazero.NewRuntimeConfig().WithCompilationCache(cache)
}

// Store is an open handle on a store directory: the cache connection, the
// journal, and the configured prefix. A Store is single-process state; all
// cross-process coordination goes through the journal lock and the cache's
// own locking.
type Store struct {
	db     *sql.DB
	dir    string
	prefix string
	jnl    *journal.Journal
}

// execer is the subset of database/sql shared by *sql.DB, *sql.Conn and
// *sql.Tx that the query helpers need.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Open opens an existing store and reconciles the cache with the log.
func Open(ctx context.Context, dir string) (*Store, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrStoreNotFound, dir)
	}
	s, err := open(ctx, dir)
	if err != nil {
		return nil, err
	}
	if _, err := s.Reconcile(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// Init creates the store directory and its files, then opens it. An empty
// prefix derives one from the basename of the directory's parent.
func Init(ctx context.Context, dir, prefix string) (*Store, error) {
	if prefix == "" {
		prefix = filepath.Base(filepath.Dir(absPath(dir)))
		if prefix == "." || prefix == string(filepath.Separator) || prefix == "" {
			prefix = DefaultPrefix
		}
	}
	normalized, err := ids.NormalizePrefix(prefix)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	if err := atomic.WriteFile(filepath.Join(dir, ".gitignore"), strings.NewReader(gitignore)); err != nil {
		return nil, fmt.Errorf("write .gitignore: %w", err)
	}
	local := &config.Local{IssuePrefix: normalized}
	if err := local.Save(dir); err != nil {
		return nil, fmt.Errorf("write %s: %w", config.LocalFileName, err)
	}

	s, err := open(ctx, dir)
	if err != nil {
		return nil, err
	}
	if err := s.SetPrefix(ctx, normalized); err != nil {
		_ = s.Close()
		return nil, err
	}
	if _, err := s.Reconcile(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func open(ctx context.Context, dir string) (*Store, error) {
	jnl := journal.New(dir)
	if err := jnl.Ensure(); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(dir, DBFileName)
	connStr := "file:" + dbPath +
		"?_pragma=journal_mode(WAL)" +
		"&_pragma=synchronous(NORMAL)" +
		"&_pragma=busy_timeout(300000)" +
		"&_pragma=foreign_keys(ON)"

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping cache: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize cache schema: %w", err)
	}

	s := &Store{db: db, dir: dir, jnl: jnl}
	if err := s.loadPrefix(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	debug.AttachStore(dir)
	debug.Logf("store opened at %s (prefix %q)", dir, s.prefix)
	return s, nil
}

// Close releases the cache connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Dir returns the store directory.
func (s *Store) Dir() string { return s.dir }

// Prefix returns the configured issue prefix.
func (s *Store) Prefix() string { return s.prefix }

// JournalPath returns the log file path.
func (s *Store) JournalPath() string { return s.jnl.Path() }

// EnsureLog creates the log and lock files if missing.
func (s *Store) EnsureLog() error { return s.jnl.Ensure() }

// SetPrefix normalizes and persists the issue prefix, in the cache and in
// config.yaml so it survives cache deletion.
func (s *Store) SetPrefix(ctx context.Context, prefix string) error {
	normalized, err := ids.NormalizePrefix(prefix)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value
	`, configKeyPrefix, normalized); err != nil {
		return fmt.Errorf("save prefix: %w", err)
	}
	local := config.LoadLocal(s.dir)
	local.IssuePrefix = normalized
	if err := local.Save(s.dir); err != nil {
		return fmt.Errorf("save %s: %w", config.LocalFileName, err)
	}
	s.prefix = normalized
	return nil
}

// loadPrefix reads the configured prefix from the cache, falling back to
// config.yaml (the cache may be a fresh rebuild).
func (s *Store) loadPrefix(ctx context.Context) error {
	var prefix string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM config WHERE key = ?`, configKeyPrefix).Scan(&prefix)
	if err == sql.ErrNoRows || prefix == "" {
		if local := config.LoadLocal(s.dir); local.IssuePrefix != "" {
			prefix = local.IssuePrefix
			if _, err := s.db.ExecContext(ctx, `
				INSERT INTO config (key, value) VALUES (?, ?)
				ON CONFLICT (key) DO UPDATE SET value = excluded.value
			`, configKeyPrefix, prefix); err != nil {
				return fmt.Errorf("restore prefix: %w", err)
			}
		}
	} else if err != nil {
		return fmt.Errorf("load prefix: %w", err)
	}
	s.prefix = prefix
	return nil
}

// FindStoreDir walks upward from start looking for a .tissue directory.
// Returns "" when none is found.
func FindStoreDir(start string) string {
	dir := absPath(start)
	for {
		candidate := filepath.Join(dir, DirName)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// loadWatermark reads the importer watermark from the cache. ok is false
// when no watermark has been saved yet (fresh cache).
func (s *Store) loadWatermark(ctx context.Context, q execer) (journal.Stat, bool, error) {
	vals := make(map[string]string, 3)
	rows, err := q.QueryContext(ctx, `SELECT key, value FROM metadata WHERE key IN (?, ?, ?)`,
		metaKeyOffset, metaKeyInode, metaKeyMtime)
	if err != nil {
		return journal.Stat{}, false, fmt.Errorf("load watermark: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return journal.Stat{}, false, err
		}
		vals[k] = v
	}
	if err := rows.Err(); err != nil {
		return journal.Stat{}, false, err
	}
	if len(vals) < 3 {
		return journal.Stat{}, false, nil
	}
	offset, err1 := strconv.ParseInt(vals[metaKeyOffset], 10, 64)
	inode, err2 := strconv.ParseUint(vals[metaKeyInode], 10, 64)
	mtime, err3 := strconv.ParseInt(vals[metaKeyMtime], 10, 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return journal.Stat{}, false, nil
	}
	return journal.Stat{Size: offset, Inode: inode, MtimeNs: mtime}, true, nil
}

// saveWatermark records how far the importer has consumed the log, together
// with the file identity captured at that point.
func (s *Store) saveWatermark(ctx context.Context, q execer, st journal.Stat) error {
	for k, v := range map[string]string{
		metaKeyOffset: strconv.FormatInt(st.Size, 10),
		metaKeyInode:  strconv.FormatUint(st.Inode, 10),
		metaKeyMtime:  strconv.FormatInt(st.MtimeNs, 10),
	} {
		if _, err := q.ExecContext(ctx, `
			INSERT INTO metadata (key, value) VALUES (?, ?)
			ON CONFLICT (key) DO UPDATE SET value = excluded.value
		`, k, v); err != nil {
			return fmt.Errorf("save watermark: %w", err)
		}
	}
	return nil
}

// Info summarizes the open store for diagnostics.
type Info struct {
	Dir      string `json:"dir"`
	LogPath  string `json:"log_path"`
	DBPath   string `json:"db_path"`
	Prefix   string `json:"prefix"`
	Offset   int64  `json:"jsonl_offset"`
	Issues   int    `json:"issues"`
	Comments int    `json:"comments"`
	Deps     int    `json:"deps"`
}

// Info reports paths, the configured prefix, the watermark offset and row
// counts.
func (s *Store) Info(ctx context.Context) (*Info, error) {
	info := &Info{
		Dir:     s.dir,
		LogPath: s.jnl.Path(),
		DBPath:  filepath.Join(s.dir, DBFileName),
		Prefix:  s.prefix,
	}
	if wm, ok, err := s.loadWatermark(ctx, s.db); err != nil {
		return nil, err
	} else if ok {
		info.Offset = wm.Size
	}
	counts := []struct {
		query string
		dest  *int
	}{
		{`SELECT COUNT(*) FROM issues`, &info.Issues},
		{`SELECT COUNT(*) FROM comments`, &info.Comments},
		{`SELECT COUNT(*) FROM deps WHERE state = 'active'`, &info.Deps},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("count rows: %w", err)
		}
	}
	return info, nil
}
