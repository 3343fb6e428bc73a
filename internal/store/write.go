package store

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/tissue-dev/tissue/internal/debug"
	"github.com/tissue-dev/tissue/internal/ids"
	"github.com/tissue-dev/tissue/internal/journal"
	"github.com/tissue-dev/tissue/internal/lockfile"
	"github.com/tissue-dev/tissue/internal/rev"
	"github.com/tissue-dev/tissue/internal/types"
)

// Retry windows. Two loops coexist: a short one around individual cache
// statements and a coarser one around whole operations. Exhausting both
// surfaces ErrBusy.
const (
	stmtRetries  = 10
	stmtSleepMin = 50 * time.Millisecond
	stmtSleepMax = 500 * time.Millisecond

	opRetries  = 50
	opSleepMin = 10 * time.Millisecond
	opSleepMax = 200 * time.Millisecond
)

func sleepBetween(min, max time.Duration) {
	time.Sleep(min + time.Duration(rand.Int63n(int64(max-min))))
}

// execRetry runs a statement, retrying on contention.
func execRetry(ctx context.Context, q execer, query string, args ...any) error {
	var err error
	for attempt := 0; attempt < stmtRetries; attempt++ {
		if _, err = q.ExecContext(ctx, query, args...); !isBusy(err) {
			return err
		}
		sleepBetween(stmtSleepMin, stmtSleepMax)
	}
	return fmt.Errorf("%w: %v", ErrBusy, err)
}

// inImmediateTx runs fn inside a BEGIN IMMEDIATE transaction on a dedicated
// connection. IMMEDIATE claims the single writer slot up front, so conflicts
// surface at begin time instead of at commit. database/sql cannot express
// transaction modes, hence the raw statements on a pinned conn.
func (s *Store) inImmediateTx(ctx context.Context, fn func(tx execer) error) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer func() { _ = conn.Close() }()

	if err := execRetry(ctx, conn, "BEGIN IMMEDIATE"); err != nil {
		return fmt.Errorf("begin immediate: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			// Background context: rollback must run even if ctx is done.
			_, _ = conn.ExecContext(context.Background(), "ROLLBACK")
		}
	}()

	if err := fn(conn); err != nil {
		return err
	}
	if err := execRetry(ctx, conn, "COMMIT"); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

// runWrite is the common mutation shape: an immediate cache transaction in
// which fn mutates tables and returns the log records to append; the records
// are appended and fsynced under the exclusive journal lock, the watermark is
// advanced inside the same transaction, and only then does the cache commit.
// If the cache commit fails after the append, the next reconcile re-applies
// the appended records (self-healing).
//
// The whole operation retries on contention with short sleeps.
func (s *Store) runWrite(ctx context.Context, fn func(tx execer) ([]journal.Record, error)) error {
	var err error
	for attempt := 0; attempt < opRetries; attempt++ {
		err = s.writeOnce(ctx, fn)
		if !isBusy(err) {
			return err
		}
		debug.Logf("write contention (attempt %d): %v", attempt+1, err)
		sleepBetween(opSleepMin, opSleepMax)
	}
	return fmt.Errorf("%w: %v", ErrBusy, err)
}

func (s *Store) writeOnce(ctx context.Context, fn func(tx execer) ([]journal.Record, error)) error {
	var lock *lockfile.Lock
	defer func() {
		if lock != nil {
			_ = lock.Release()
		}
	}()

	return s.inImmediateTx(ctx, func(tx execer) error {
		recs, err := fn(tx)
		if err != nil {
			return err
		}
		if len(recs) == 0 {
			return nil
		}
		lock, err = s.jnl.Lock(lockfile.Exclusive)
		if err != nil {
			return err
		}
		st, err := s.jnl.Append(recs)
		if err != nil {
			return err
		}
		// This process has already applied the records to the cache; the
		// watermark moves past them so reconcile will not re-ingest.
		return s.saveWatermark(ctx, tx, st)
	})
}

// NewIssue carries the caller-supplied fields for issue creation. Priority
// is a pointer so an explicit 0 stays distinguishable from unset and fails
// validation instead of being coerced to the default.
type NewIssue struct {
	Title    string
	Body     string
	Status   types.Status // default open
	Priority *int         // default 2
	Tags     []string
}

// CreateIssue validates inputs, mints a collision-free ID and writes the
// issue to both stores.
func (s *Store) CreateIssue(ctx context.Context, in NewIssue) (*types.Issue, error) {
	if in.Status == "" {
		in.Status = types.StatusOpen
	}
	priority := types.PriorityDefault
	if in.Priority != nil {
		priority = *in.Priority
	}
	now := time.Now().UnixMilli()
	issue := &types.Issue{
		Title:     in.Title,
		Body:      in.Body,
		Status:    in.Status,
		Priority:  priority,
		CreatedAt: now,
		UpdatedAt: now,
		Rev:       rev.New(),
		Tags:      types.NormalizeTags(in.Tags),
	}
	if err := issue.Validate(); err != nil {
		return nil, err
	}
	if s.prefix == "" {
		return nil, fmt.Errorf("%w: store has no configured prefix", ErrInvalidPrefix)
	}

	err := s.runWrite(ctx, func(tx execer) ([]journal.Record, error) {
		id, err := s.mintID(ctx, tx, issue)
		if err != nil {
			return nil, err
		}
		issue.ID = id
		if err := s.insertIssueRow(ctx, tx, issue); err != nil {
			return nil, err
		}
		return []journal.Record{journal.NewIssueRecord(issue)}, nil
	})
	if err != nil {
		return nil, err
	}
	return issue, nil
}

// mintID derives a hash ID from the issue content, bumping the nonce on
// collision. Running inside the write transaction keeps the existence check
// and the insert atomic across processes.
func (s *Store) mintID(ctx context.Context, tx execer, issue *types.Issue) (string, error) {
	for nonce := 0; nonce < ids.MaxNonce; nonce++ {
		id := ids.Mint(s.prefix, issue.Title, issue.Body, issue.CreatedAt, nonce)
		var exists bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM issues WHERE id = ?)`, id).Scan(&exists); err != nil {
			return "", fmt.Errorf("check id %s: %w", id, err)
		}
		if !exists {
			return id, nil
		}
	}
	return "", ErrIDCollision
}

func (s *Store) insertIssueRow(ctx context.Context, tx execer, issue *types.Issue) error {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO issues (id, title, body, status, priority, created_at, updated_at, rev)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			title = excluded.title, body = excluded.body, status = excluded.status,
			priority = excluded.priority, created_at = excluded.created_at,
			updated_at = excluded.updated_at, rev = excluded.rev
	`, issue.ID, issue.Title, issue.Body, issue.Status, issue.Priority,
		issue.CreatedAt, issue.UpdatedAt, issue.Rev); err != nil {
		return fmt.Errorf("write issue %s: %w", issue.ID, err)
	}
	if err := s.replaceTags(ctx, tx, issue.ID, issue.Tags); err != nil {
		return err
	}
	return s.refreshFTS(ctx, tx, issue.ID)
}

// IssuePatch is a field-level partial update: nil pointers carry the stored
// value forward. Tag removals apply after additions, so a tag in both lists
// is a net removal.
type IssuePatch struct {
	Title      *string
	Body       *string
	Status     *types.Status
	Priority   *int
	AddTags    []string
	RemoveTags []string
}

// UpdateIssue applies a partial update as a full-row replacement with a fresh
// rev and updated_at.
func (s *Store) UpdateIssue(ctx context.Context, id string, patch IssuePatch) (*types.Issue, error) {
	var updated *types.Issue
	err := s.runWrite(ctx, func(tx execer) ([]journal.Record, error) {
		issue, err := s.getIssueTx(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		if patch.Title != nil {
			issue.Title = *patch.Title
		}
		if patch.Body != nil {
			issue.Body = *patch.Body
		}
		if patch.Status != nil {
			issue.Status = *patch.Status
		}
		if patch.Priority != nil {
			issue.Priority = *patch.Priority
		}
		issue.Tags = mergeTags(issue.Tags, patch.AddTags, patch.RemoveTags)
		issue.UpdatedAt = time.Now().UnixMilli()
		if issue.UpdatedAt < issue.CreatedAt {
			issue.UpdatedAt = issue.CreatedAt
		}
		issue.Rev = rev.New()
		if err := issue.Validate(); err != nil {
			return nil, err
		}
		if err := s.insertIssueRow(ctx, tx, issue); err != nil {
			return nil, err
		}
		updated = issue
		return []journal.Record{journal.NewIssueRecord(issue)}, nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func mergeTags(current, add, remove []string) []string {
	set := make(map[string]bool, len(current)+len(add))
	for _, t := range current {
		set[t] = true
	}
	for _, t := range add {
		set[t] = true
	}
	for _, t := range remove {
		delete(set, t)
	}
	merged := make([]string, 0, len(set))
	for t := range set {
		merged = append(merged, t)
	}
	return types.NormalizeTags(merged)
}

// AddComment appends an immutable comment to an issue. The comment ID is a
// revision token, so IDs sort chronologically.
func (s *Store) AddComment(ctx context.Context, issueID, body string) (*types.Comment, error) {
	comment := &types.Comment{
		ID:        rev.New(),
		IssueID:   issueID,
		Body:      body,
		CreatedAt: time.Now().UnixMilli(),
	}
	err := s.runWrite(ctx, func(tx execer) ([]journal.Record, error) {
		var exists bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM issues WHERE id = ?)`, issueID).Scan(&exists); err != nil {
			return nil, fmt.Errorf("check issue %s: %w", issueID, err)
		}
		if !exists {
			return nil, fmt.Errorf("%w: %s", ErrIssueNotFound, issueID)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO comments (id, issue_id, body, created_at) VALUES (?, ?, ?, ?)
		`, comment.ID, comment.IssueID, comment.Body, comment.CreatedAt); err != nil {
			return nil, fmt.Errorf("write comment: %w", err)
		}
		if err := s.refreshFTS(ctx, tx, issueID); err != nil {
			return nil, err
		}
		return []journal.Record{journal.NewCommentRecord(comment)}, nil
	})
	if err != nil {
		return nil, err
	}
	return comment, nil
}

// AddDep records a dependency edge between two existing issues. Relates
// edges are canonicalized to ascending (src, dst) order before storage, so
// the undirected pair has a single identity.
func (s *Store) AddDep(ctx context.Context, srcID, dstID string, kind types.DepKind) (*types.Dep, error) {
	return s.writeDep(ctx, srcID, dstID, kind, types.DepActive)
}

// RemoveDep soft-deletes an edge by writing a tombstone with a fresh rev.
// The row is never physically deleted, so removal merges deterministically
// against concurrent re-adds.
func (s *Store) RemoveDep(ctx context.Context, srcID, dstID string, kind types.DepKind) (*types.Dep, error) {
	return s.writeDep(ctx, srcID, dstID, kind, types.DepRemoved)
}

func (s *Store) writeDep(ctx context.Context, srcID, dstID string, kind types.DepKind, state types.DepState) (*types.Dep, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDepKind, kind)
	}
	if srcID == dstID {
		return nil, fmt.Errorf("%w: %s", ErrSelfDependency, srcID)
	}
	src, dst := types.CanonicalDepPair(srcID, dstID, kind)
	dep := &types.Dep{
		SrcID:     src,
		DstID:     dst,
		Kind:      kind,
		State:     state,
		CreatedAt: time.Now().UnixMilli(),
		Rev:       rev.New(),
	}
	err := s.runWrite(ctx, func(tx execer) ([]journal.Record, error) {
		for _, id := range []string{src, dst} {
			var exists bool
			if err := tx.QueryRowContext(ctx,
				`SELECT EXISTS(SELECT 1 FROM issues WHERE id = ?)`, id).Scan(&exists); err != nil {
				return nil, fmt.Errorf("check issue %s: %w", id, err)
			}
			if !exists {
				return nil, fmt.Errorf("%w: %s", ErrIssueNotFound, id)
			}
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO deps (src_id, dst_id, kind, state, created_at, rev)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (src_id, dst_id, kind) DO UPDATE SET
				state = excluded.state, created_at = excluded.created_at, rev = excluded.rev
		`, dep.SrcID, dep.DstID, dep.Kind, dep.State, dep.CreatedAt, dep.Rev); err != nil {
			return nil, fmt.Errorf("write dep: %w", err)
		}
		return []journal.Record{journal.NewDepRecord(dep)}, nil
	})
	if err != nil {
		return nil, err
	}
	return dep, nil
}

// replaceTags makes the stored tag set for an issue exactly tags.
func (s *Store) replaceTags(ctx context.Context, tx execer, issueID string, tags []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM issue_tags WHERE issue_id = ?`, issueID); err != nil {
		return fmt.Errorf("clear tags for %s: %w", issueID, err)
	}
	for _, tag := range tags {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO tags (name) VALUES (?)`, tag); err != nil {
			return fmt.Errorf("intern tag %q: %w", tag, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO issue_tags (issue_id, tag_id)
			SELECT ?, id FROM tags WHERE name = ?
		`, issueID, tag); err != nil {
			return fmt.Errorf("attach tag %q: %w", tag, err)
		}
	}
	return nil
}

// refreshFTS rewrites the search row for an issue from its current title,
// body and the chronological concatenation of its comment bodies.
func (s *Store) refreshFTS(ctx context.Context, tx execer, issueID string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM issue_fts WHERE issue_id = ?`, issueID); err != nil {
		return fmt.Errorf("clear search row for %s: %w", issueID, err)
	}

	var title, body string
	err := tx.QueryRowContext(ctx, `SELECT title, body FROM issues WHERE id = ?`, issueID).
		Scan(&title, &body)
	if err == sql.ErrNoRows {
		return nil // issue gone, search row stays gone
	}
	if err != nil {
		return fmt.Errorf("load issue %s for search: %w", issueID, err)
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT body FROM comments WHERE issue_id = ? ORDER BY created_at, id`, issueID)
	if err != nil {
		return fmt.Errorf("load comments for search: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var bodies []string
	for rows.Next() {
		var b string
		if err := rows.Scan(&b); err != nil {
			return err
		}
		bodies = append(bodies, b)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO issue_fts (title, body, comments, issue_id) VALUES (?, ?, ?, ?)
	`, title, body, strings.Join(bodies, "\n"), issueID); err != nil {
		return fmt.Errorf("write search row for %s: %w", issueID, err)
	}
	return nil
}
