package store

import (
	"context"
	"time"

	"github.com/tissue-dev/tissue/internal/debug"
	"github.com/tissue-dev/tissue/internal/journal"
	"github.com/tissue-dev/tissue/internal/lockfile"
	"github.com/tissue-dev/tissue/internal/types"
)

// CleanOptions bounds a cleanup pass.
type CleanOptions struct {
	// OlderThanDays keeps issues touched within the last N days. Zero means
	// no age bound.
	OlderThanDays int
	// Force performs the removal. Without it Clean only reports candidates.
	Force bool
}

// Clean removes issues in a terminal status from the log, together with their
// comments and every dependency edge touching them. This is the only
// operation that rewrites history: the log is replaced under the exclusive
// lock and the cache is rebuilt from the survivor. Without Force it returns
// the candidates and changes nothing.
func (s *Store) Clean(ctx context.Context, opts CleanOptions) ([]*types.Issue, error) {
	query := `
		SELECT id, title, body, status, priority, created_at, updated_at, rev
		FROM issues WHERE status IN (?, ?)
	`
	args := []any{types.StatusClosed, types.StatusDuplicate}
	if opts.OlderThanDays > 0 {
		cutoff := time.Now().AddDate(0, 0, -opts.OlderThanDays).UnixMilli()
		query += " AND updated_at < ?"
		args = append(args, cutoff)
	}
	query += " ORDER BY updated_at"

	candidates, err := s.queryIssues(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if !opts.Force || len(candidates) == 0 {
		return candidates, nil
	}

	remove := make(map[string]bool, len(candidates))
	for _, issue := range candidates {
		remove[issue.ID] = true
	}

	// The exclusive lock held across the rewrite keeps concurrent writers
	// from appending to the file being replaced.
	lock, err := s.jnl.Lock(lockfile.Exclusive)
	if err != nil {
		return nil, err
	}
	rewriteErr := s.jnl.Rewrite(func(rec journal.Record) bool {
		switch r := rec.(type) {
		case journal.IssueRecord:
			return !remove[r.ID]
		case journal.CommentRecord:
			return !remove[r.IssueID]
		case journal.DepRecord:
			return !remove[r.SrcID] && !remove[r.DstID]
		}
		return true
	})
	if relErr := lock.Release(); relErr != nil && rewriteErr == nil {
		rewriteErr = relErr
	}
	if rewriteErr != nil {
		return nil, rewriteErr
	}

	debug.Logf("clean removed %d issues from the log", len(candidates))
	if _, err := s.ForceReimport(ctx); err != nil {
		return nil, err
	}
	return candidates, nil
}
