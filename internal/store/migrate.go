package store

import (
	"context"
	"fmt"

	"github.com/tissue-dev/tissue/internal/debug"
	"github.com/tissue-dev/tissue/internal/journal"
	"github.com/tissue-dev/tissue/internal/types"
)

// MigrateResult counts what a migration moved or would move.
type MigrateResult struct {
	Issues      int
	Comments    int
	Deps        int
	SkippedDeps int
}

// String renders a one-line human summary.
func (r MigrateResult) String() string {
	return fmt.Sprintf("%d issues, %d deps (%d skipped), %d comments",
		r.Issues, r.Deps, r.SkippedDeps, r.Comments)
}

// MigrateFrom merges the issues of another store into this one, preserving
// IDs, revisions and timestamps. Records already present here are skipped, so
// migration is idempotent. Dependency edges come along only when both
// endpoints exist here after the merge; edges into issues that stay behind
// are counted as skipped. With dryRun nothing is written.
func (s *Store) MigrateFrom(ctx context.Context, srcDir string, dryRun bool) (*MigrateResult, error) {
	src, err := Open(ctx, srcDir)
	if err != nil {
		return nil, fmt.Errorf("open source store: %w", err)
	}
	defer func() { _ = src.Close() }()

	srcIssues, err := src.ListIssues(ctx, ListOptions{})
	if err != nil {
		return nil, err
	}

	res := &MigrateResult{}
	var issues []*types.Issue
	present := make(map[string]bool, len(srcIssues))
	for _, issue := range srcIssues {
		exists, err := s.issueExists(ctx, issue.ID)
		if err != nil {
			return nil, err
		}
		present[issue.ID] = true
		if exists {
			continue
		}
		issues = append(issues, issue)
		res.Issues++
	}

	srcDeps, err := src.activeDeps(ctx)
	if err != nil {
		return nil, err
	}
	var deps []*types.Dep
	for _, dep := range srcDeps {
		// After the merge every source issue exists here, so an edge is
		// eligible exactly when both endpoints are source issues.
		if !present[dep.SrcID] || !present[dep.DstID] {
			res.SkippedDeps++
			continue
		}
		var n int
		if err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM deps WHERE src_id = ? AND dst_id = ? AND kind = ?`,
			dep.SrcID, dep.DstID, dep.Kind).Scan(&n); err != nil {
			return nil, err
		}
		if n > 0 {
			continue
		}
		deps = append(deps, dep)
		res.Deps++
	}

	var comments []*types.Comment
	for _, issue := range srcIssues {
		cs, err := src.Comments(ctx, issue.ID)
		if err != nil {
			return nil, err
		}
		for _, c := range cs {
			var n int
			if err := s.db.QueryRowContext(ctx,
				`SELECT COUNT(*) FROM comments WHERE id = ?`, c.ID).Scan(&n); err != nil {
				return nil, err
			}
			if n > 0 {
				continue
			}
			comments = append(comments, c)
			res.Comments++
		}
	}

	if dryRun {
		return res, nil
	}

	// Issues first, then deps, then comments, so every record's referents
	// precede it in the log.
	err = s.runWrite(ctx, func(tx execer) ([]journal.Record, error) {
		var recs []journal.Record
		for _, issue := range issues {
			if _, err := s.applyIssue(ctx, tx, journal.NewIssueRecord(issue)); err != nil {
				return nil, err
			}
			recs = append(recs, journal.NewIssueRecord(issue))
		}
		for _, dep := range deps {
			if _, err := s.applyDep(ctx, tx, journal.NewDepRecord(dep)); err != nil {
				return nil, err
			}
			recs = append(recs, journal.NewDepRecord(dep))
		}
		for _, c := range comments {
			if _, err := s.applyComment(ctx, tx, journal.NewCommentRecord(c)); err != nil {
				return nil, err
			}
			recs = append(recs, journal.NewCommentRecord(c))
		}
		return recs, nil
	})
	if err != nil {
		return nil, err
	}
	debug.Logf("migrated from %s: %s", srcDir, res)
	return res, nil
}

func (s *Store) issueExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	if err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM issues WHERE id = ?)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("check issue %s: %w", id, err)
	}
	return exists, nil
}

// activeDeps returns every active dependency edge in the store.
func (s *Store) activeDeps(ctx context.Context) ([]*types.Dep, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT src_id, dst_id, kind, state, created_at, rev FROM deps
		WHERE state = 'active'
		ORDER BY created_at, src_id, dst_id
	`)
	if err != nil {
		return nil, fmt.Errorf("load deps: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []*types.Dep
	for rows.Next() {
		d := &types.Dep{}
		if err := rows.Scan(&d.SrcID, &d.DstID, &d.Kind, &d.State, &d.CreatedAt, &d.Rev); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
