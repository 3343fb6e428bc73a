package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tissue-dev/tissue/internal/debug"
	"github.com/tissue-dev/tissue/internal/journal"
	"github.com/tissue-dev/tissue/internal/lockfile"
)

// ImportResult counts records applied by one reconcile pass.
type ImportResult struct {
	Issues   int
	Comments int
	Deps     int
	Skipped  int
	Full     bool
}

func (r ImportResult) empty() bool {
	return r.Issues == 0 && r.Comments == 0 && r.Deps == 0 && r.Skipped == 0
}

// String renders a one-line human summary.
func (r ImportResult) String() string {
	mode := "incremental"
	if r.Full {
		mode = "full"
	}
	return fmt.Sprintf("%s import: %d issues, %d deps, %d comments, %d skipped",
		mode, r.Issues, r.Deps, r.Comments, r.Skipped)
}

// Reconcile compares the log's (inode, size, mtime) against the saved
// watermark and brings the cache up to date. It runs at the start of every
// command.
//
// Decision table:
//   - inode changed            -> full reimport (file replaced)
//   - offset beyond file size  -> full reimport (log truncated)
//   - stored mtime > current   -> full reimport (clock/replace anomaly)
//   - size == offset           -> no-op
//   - otherwise                -> incremental from the stored offset
func (s *Store) Reconcile(ctx context.Context) (ImportResult, error) {
	cur, err := s.jnl.Stat()
	if err != nil {
		return ImportResult{}, err
	}
	wm, ok, err := s.loadWatermark(ctx, s.db)
	if err != nil {
		return ImportResult{}, err
	}

	switch {
	case !ok:
		return s.fullReimport(ctx)
	case wm.Inode != cur.Inode:
		debug.Logf("log inode changed (%d -> %d), full reimport", wm.Inode, cur.Inode)
		return s.fullReimport(ctx)
	case wm.Size > cur.Size:
		debug.Logf("log truncated (%d -> %d), full reimport", wm.Size, cur.Size)
		return s.fullReimport(ctx)
	case wm.MtimeNs > cur.MtimeNs:
		debug.Logf("log mtime went backwards, full reimport")
		return s.fullReimport(ctx)
	case wm.Size == cur.Size:
		return ImportResult{}, nil
	default:
		return s.incrementalImport(ctx, wm.Size)
	}
}

// ForceReimport rebuilds the cache content tables from the whole log.
func (s *Store) ForceReimport(ctx context.Context) (ImportResult, error) {
	return s.fullReimport(ctx)
}

var contentTables = []string{
	"issue_fts", "comments", "issue_tags", "tags", "deps", "issues",
}

func (s *Store) fullReimport(ctx context.Context) (ImportResult, error) {
	err := s.inImmediateTx(ctx, func(tx execer) error {
		for _, table := range contentTables {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("truncate %s: %w", table, err)
			}
		}
		return nil
	})
	if err != nil {
		return ImportResult{}, err
	}
	res, err := s.incrementalImport(ctx, 0)
	res.Full = true
	return res, err
}

func (s *Store) incrementalImport(ctx context.Context, offset int64) (ImportResult, error) {
	// Tail read under a shared lock: concurrent writers hold the exclusive
	// lock across their append + watermark pair, so we never observe one
	// without the other.
	lock, err := s.jnl.Lock(lockfile.Shared)
	if err != nil {
		return ImportResult{}, err
	}
	data, consumed, readErr := s.jnl.ReadTail(offset)
	st, statErr := s.jnl.Stat()
	if relErr := lock.Release(); relErr != nil {
		return ImportResult{}, relErr
	}
	if readErr != nil {
		return ImportResult{}, readErr
	}
	if statErr != nil {
		return ImportResult{}, statErr
	}
	if consumed == 0 {
		return ImportResult{}, nil
	}

	var res ImportResult
	err = s.inImmediateTx(ctx, func(tx execer) error {
		var comments []journal.CommentRecord
		for _, line := range journal.Lines(data) {
			rec, err := journal.ParseLine(line)
			if err != nil {
				debug.Warnf("skipping unparseable log line: %v", err)
				res.Skipped++
				continue
			}
			switch r := rec.(type) {
			case journal.IssueRecord:
				applied, err := s.applyIssue(ctx, tx, r)
				if err := skipMalformed(err, &res); err != nil {
					return err
				}
				if applied {
					res.Issues++
				}
			case journal.DepRecord:
				applied, err := s.applyDep(ctx, tx, r)
				if err := skipMalformed(err, &res); err != nil {
					return err
				}
				if applied {
					res.Deps++
				}
			case journal.CommentRecord:
				// Buffered: a merged log can carry a comment line before
				// its issue line. Applying comments last keeps the
				// foreign key satisfied for everything but genuinely
				// dangling comments.
				comments = append(comments, r)
			}
		}
		for _, c := range comments {
			applied, err := s.applyComment(ctx, tx, c)
			if err := skipMalformed(err, &res); err != nil {
				return err
			}
			if applied {
				res.Comments++
			}
		}
		// Advance by the bytes actually consumed, under the file identity
		// observed at read time.
		return s.saveWatermark(ctx, tx, journal.Stat{
			Size:    offset + consumed,
			Inode:   st.Inode,
			MtimeNs: st.MtimeNs,
		})
	})
	if err != nil {
		return ImportResult{}, err
	}
	if !res.empty() {
		debug.Logf("%s", res.String())
	}
	return res, nil
}

// skipMalformed downgrades ErrMalformedRecord to a warning; import never
// aborts on bad records, only on cache failures.
func skipMalformed(err error, res *ImportResult) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrMalformedRecord) {
		debug.Warnf("skipping record: %v", err)
		res.Skipped++
		return nil
	}
	return err
}

// applyIssue upserts an issue row with last-writer-wins resolution: the
// incoming record is applied only if its rev is byte-lexicographically
// greater than the stored rev, or equal with a later updated_at. Tags fully
// replace the stored set. Status and priority are persisted verbatim.
func (s *Store) applyIssue(ctx context.Context, tx execer, r journal.IssueRecord) (bool, error) {
	if r.ID == "" || r.Rev == "" {
		return false, fmt.Errorf("%w: issue record without id or rev", ErrMalformedRecord)
	}

	var storedRev string
	var storedUpdated int64
	err := tx.QueryRowContext(ctx, `SELECT rev, updated_at FROM issues WHERE id = ?`, r.ID).
		Scan(&storedRev, &storedUpdated)
	switch {
	case err == sql.ErrNoRows:
		// insert below
	case err != nil:
		return false, fmt.Errorf("look up issue %s: %w", r.ID, err)
	default:
		if r.Rev < storedRev || (r.Rev == storedRev && r.UpdatedAt <= storedUpdated) {
			return false, nil
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO issues (id, title, body, status, priority, created_at, updated_at, rev)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			title = excluded.title, body = excluded.body, status = excluded.status,
			priority = excluded.priority, created_at = excluded.created_at,
			updated_at = excluded.updated_at, rev = excluded.rev
	`, r.ID, r.Title, r.Body, r.Status, r.Priority, r.CreatedAt, r.UpdatedAt, r.Rev); err != nil {
		return false, fmt.Errorf("apply issue %s: %w", r.ID, err)
	}
	if err := s.replaceTags(ctx, tx, r.ID, r.Tags); err != nil {
		return false, err
	}
	if err := s.refreshFTS(ctx, tx, r.ID); err != nil {
		return false, err
	}
	return true, nil
}

// applyDep upserts a dependency row on its composite key. The record wins
// only if its rev is strictly greater than the stored one. Tombstones apply
// the same way; they flip state rather than delete.
func (s *Store) applyDep(ctx context.Context, tx execer, r journal.DepRecord) (bool, error) {
	if r.SrcID == "" || r.DstID == "" || r.Kind == "" {
		return false, fmt.Errorf("%w: dep record without src, dst or kind", ErrMalformedRecord)
	}

	var storedRev string
	err := tx.QueryRowContext(ctx,
		`SELECT rev FROM deps WHERE src_id = ? AND dst_id = ? AND kind = ?`,
		r.SrcID, r.DstID, r.Kind).Scan(&storedRev)
	switch {
	case err == sql.ErrNoRows:
	case err != nil:
		return false, fmt.Errorf("look up dep %s->%s: %w", r.SrcID, r.DstID, err)
	default:
		if r.Rev <= storedRev {
			return false, nil
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO deps (src_id, dst_id, kind, state, created_at, rev)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (src_id, dst_id, kind) DO UPDATE SET
			state = excluded.state, created_at = excluded.created_at, rev = excluded.rev
	`, r.SrcID, r.DstID, r.Kind, r.State, r.CreatedAt, r.Rev); err != nil {
		return false, fmt.Errorf("apply dep %s->%s: %w", r.SrcID, r.DstID, err)
	}
	return true, nil
}

// applyComment inserts a comment if its id is new and its issue exists.
// Dangling comments (issue never materialized in this batch) are skipped.
func (s *Store) applyComment(ctx context.Context, tx execer, r journal.CommentRecord) (bool, error) {
	if r.ID == "" || r.IssueID == "" {
		return false, fmt.Errorf("%w: comment record without id or issue_id", ErrMalformedRecord)
	}

	var exists bool
	if err := tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM issues WHERE id = ?)`, r.IssueID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check issue %s: %w", r.IssueID, err)
	}
	if !exists {
		debug.Logf("dropping dangling comment %s for missing issue %s", r.ID, r.IssueID)
		return false, nil
	}

	result, err := tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO comments (id, issue_id, body, created_at)
		VALUES (?, ?, ?, ?)
	`, r.ID, r.IssueID, r.Body, r.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("apply comment %s: %w", r.ID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}
	if err := s.refreshFTS(ctx, tx, r.IssueID); err != nil {
		return false, err
	}
	return true, nil
}
