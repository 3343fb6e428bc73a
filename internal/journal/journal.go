package journal

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/tissue-dev/tissue/internal/lockfile"
)

// FileName is the log file inside the store directory.
const FileName = "issues.jsonl"

// LockFileName is the sibling file used solely as the flock target.
const LockFileName = "lock"

// Stat captures the identity of the log at a point in time. The importer
// compares it against the watermark saved in the cache.
type Stat struct {
	Size    int64
	Inode   uint64
	MtimeNs int64
}

// Journal is a handle on the store's log and lock files.
type Journal struct {
	path     string
	lockPath string
}

// New returns a journal rooted at the given store directory.
func New(storeDir string) *Journal {
	return &Journal{
		path:     filepath.Join(storeDir, FileName),
		lockPath: filepath.Join(storeDir, LockFileName),
	}
}

// Path returns the log file path.
func (j *Journal) Path() string { return j.path }

// LockPath returns the lock file path.
func (j *Journal) LockPath() string { return j.lockPath }

// Ensure creates an empty log and lock file if they do not exist.
func (j *Journal) Ensure() error {
	for _, p := range []string{j.path, j.lockPath} {
		f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY, 0o644) // #nosec G304 - store-owned paths
		if err != nil {
			return fmt.Errorf("create %s: %w", filepath.Base(p), err)
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	return nil
}

// Lock blocks until the journal lock is held in the given mode.
func (j *Journal) Lock(mode lockfile.Mode) (*lockfile.Lock, error) {
	return lockfile.Acquire(j.lockPath, mode)
}

// Stat reads the current (size, inode, mtime) of the log.
func (j *Journal) Stat() (Stat, error) {
	return statFile(j.path)
}

// Append writes the serialized records, one per line, to the end of the log,
// fsyncs, and returns the resulting Stat so the caller can advance the
// watermark. The caller must hold the exclusive journal lock: the append and
// the watermark update form one critical section.
func (j *Journal) Append(recs []Record) (Stat, error) {
	f, err := os.OpenFile(j.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644) // #nosec G304 - store-owned path
	if err != nil {
		return Stat{}, fmt.Errorf("open log for append: %w", err)
	}
	defer func() { _ = f.Close() }()

	var buf bytes.Buffer
	for _, r := range recs {
		line, err := Encode(r)
		if err != nil {
			return Stat{}, fmt.Errorf("encode record: %w", err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		return Stat{}, fmt.Errorf("append to log: %w", err)
	}
	if err := f.Sync(); err != nil {
		return Stat{}, fmt.Errorf("fsync log: %w", err)
	}
	return j.Stat()
}

// ReadTail returns the raw log bytes from offset through the last complete
// line, plus the number of bytes consumed. A trailing partial line (a writer
// mid-append on a filesystem without append atomicity) is left for the next
// pass. The caller should hold at least a shared journal lock.
func (j *Journal) ReadTail(offset int64) ([]byte, int64, error) {
	f, err := os.Open(j.path) // #nosec G304 - store-owned path
	if err != nil {
		return nil, 0, fmt.Errorf("open log: %w", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return nil, 0, fmt.Errorf("seek log: %w", err)
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, 0, fmt.Errorf("read log: %w", err)
	}
	end := bytes.LastIndexByte(data, '\n')
	if end < 0 {
		return nil, 0, nil
	}
	return data[:end+1], int64(end + 1), nil
}

// Lines splits raw log bytes into trimmed lines, dropping empties.
func Lines(data []byte) [][]byte {
	var out [][]byte
	for _, line := range bytes.Split(data, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) > 0 {
			out = append(out, line)
		}
	}
	return out
}

// Rewrite streams the log through keep and atomically replaces it with the
// surviving lines, preserving their relative order. Lines that fail to parse
// are kept verbatim: rewriting must never destroy data it does not
// understand. The caller must hold the exclusive journal lock.
func (j *Journal) Rewrite(keep func(Record) bool) error {
	src, err := os.Open(j.path) // #nosec G304 - store-owned path
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer func() { _ = src.Close() }()

	tmp, err := os.CreateTemp(filepath.Dir(j.path), FileName+".rewrite-*")
	if err != nil {
		return fmt.Errorf("create temp log: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath) // no-op after successful rename
	}()

	w := bufio.NewWriter(tmp)
	sc := bufio.NewScanner(src)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		rec, err := ParseLine(line)
		if err == nil && !keep(rec) {
			continue
		}
		if _, err := w.Write(line); err != nil {
			return fmt.Errorf("write temp log: %w", err)
		}
		if err := w.WriteByte('\n'); err != nil {
			return fmt.Errorf("write temp log: %w", err)
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("scan log: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush temp log: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("fsync temp log: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp log: %w", err)
	}
	if err := os.Rename(tmpPath, j.path); err != nil {
		return fmt.Errorf("replace log: %w", err)
	}
	return nil
}
