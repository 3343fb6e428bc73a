package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/tissue-dev/tissue/internal/ids"
	"github.com/tissue-dev/tissue/internal/types"
)

// ResolveID turns user input into a full issue ID. It tries an exact match,
// then a unique ID-prefix match, then (only when the input carries no dash) a
// unique match against the hash portion of the ID.
func (s *Store) ResolveID(ctx context.Context, input string) (string, error) {
	if !ids.ValidLookupInput(input) {
		return "", fmt.Errorf("%w: %q", ErrInvalidIDInput, input)
	}

	var id string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM issues WHERE id = ?`, input).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return "", fmt.Errorf("resolve %q: %w", input, err)
	}

	matches, err := s.collectIDs(ctx, `SELECT id FROM issues WHERE id LIKE ? ORDER BY id`, input+"%")
	if err != nil {
		return "", err
	}
	if len(matches) == 1 {
		return matches[0], nil
	}
	if len(matches) > 1 {
		return "", fmt.Errorf("%w: %q matches %s", ErrAmbiguousID, input, strings.Join(matches, ", "))
	}

	// Hash-suffix lookup: "a3f8" finds "acme-a3f8e9xq". Skipped whenever the
	// input contains a dash, which makes it an ID-shaped string.
	if !strings.Contains(input, "-") {
		candidates, err := s.collectIDs(ctx,
			`SELECT id FROM issues WHERE id LIKE ? ORDER BY id`, "%-"+input+"%")
		if err != nil {
			return "", err
		}
		lowered := strings.ToLower(input)
		var verified []string
		for _, c := range candidates {
			if strings.HasPrefix(strings.ToLower(ids.HashPart(c)), lowered) {
				verified = append(verified, c)
			}
		}
		if len(verified) == 1 {
			return verified[0], nil
		}
		if len(verified) > 1 {
			return "", fmt.Errorf("%w: %q matches %s", ErrAmbiguousID, input, strings.Join(verified, ", "))
		}
	}

	return "", fmt.Errorf("%w: %q", ErrIssueNotFound, input)
}

func (s *Store) collectIDs(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query ids: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// GetIssue fetches one issue with its tags. Returns ErrIssueNotFound.
func (s *Store) GetIssue(ctx context.Context, id string) (*types.Issue, error) {
	return s.getIssueTx(ctx, s.db, id)
}

func (s *Store) getIssueTx(ctx context.Context, q execer, id string) (*types.Issue, error) {
	issue := &types.Issue{}
	err := q.QueryRowContext(ctx, `
		SELECT id, title, body, status, priority, created_at, updated_at, rev
		FROM issues WHERE id = ?
	`, id).Scan(&issue.ID, &issue.Title, &issue.Body, &issue.Status,
		&issue.Priority, &issue.CreatedAt, &issue.UpdatedAt, &issue.Rev)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrIssueNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get issue %s: %w", id, err)
	}
	tags, err := s.loadTags(ctx, q, id)
	if err != nil {
		return nil, err
	}
	issue.Tags = tags
	return issue, nil
}

func (s *Store) loadTags(ctx context.Context, q execer, issueID string) ([]string, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT t.name FROM tags t
		JOIN issue_tags it ON it.tag_id = t.id
		WHERE it.issue_id = ?
		ORDER BY t.name
	`, issueID)
	if err != nil {
		return nil, fmt.Errorf("load tags for %s: %w", issueID, err)
	}
	defer func() { _ = rows.Close() }()
	tags := []string{}
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// Comments returns an issue's comments in chronological order.
func (s *Store) Comments(ctx context.Context, issueID string) ([]*types.Comment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, issue_id, body, created_at FROM comments
		WHERE issue_id = ?
		ORDER BY created_at, id
	`, issueID)
	if err != nil {
		return nil, fmt.Errorf("load comments for %s: %w", issueID, err)
	}
	defer func() { _ = rows.Close() }()
	var out []*types.Comment
	for rows.Next() {
		c := &types.Comment{}
		if err := rows.Scan(&c.ID, &c.IssueID, &c.Body, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Deps returns the active dependency edges touching an issue, in either
// direction, ordered by kind then creation time.
func (s *Store) Deps(ctx context.Context, issueID string) ([]*types.Dep, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT src_id, dst_id, kind, state, created_at, rev FROM deps
		WHERE state = 'active' AND (src_id = ? OR dst_id = ?)
		ORDER BY kind, created_at
	`, issueID, issueID)
	if err != nil {
		return nil, fmt.Errorf("load deps for %s: %w", issueID, err)
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

// ListOptions filters a listing. Status is a raw string so values that only
// exist in imported logs remain reachable.
type ListOptions struct {
	Status string
	Tag    string
	Search string
	Limit  int
}

// ListIssues returns issues matching the filters. With a search query,
// results rank by bm25 over (title, body, comments) with title weighted
// highest, ties broken by recency; otherwise by recency alone.
func (s *Store) ListIssues(ctx context.Context, opts ListOptions) ([]*types.Issue, error) {
	var (
		clauses []string
		args    []any
		join    string
		order   = "ORDER BY i.updated_at DESC"
	)
	if opts.Search != "" {
		join = "JOIN issue_fts ON issue_fts.issue_id = i.id"
		clauses = append(clauses, "issue_fts MATCH ?")
		args = append(args, opts.Search)
		order = "ORDER BY bm25(issue_fts, 1.0, 0.5, 0.25), i.updated_at DESC"
	}
	if opts.Status != "" {
		clauses = append(clauses, "i.status = ?")
		args = append(args, opts.Status)
	}
	if opts.Tag != "" {
		clauses = append(clauses, `i.id IN (
			SELECT it.issue_id FROM issue_tags it
			JOIN tags t ON t.id = it.tag_id WHERE t.name = ?)`)
		args = append(args, opts.Tag)
	}

	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	limit := ""
	if opts.Limit > 0 {
		limit = "LIMIT ?"
		args = append(args, opts.Limit)
	}

	// #nosec G201 - clause fragments are fixed strings, values are bound
	query := fmt.Sprintf(`
		SELECT i.id, i.title, i.body, i.status, i.priority, i.created_at, i.updated_at, i.rev
		FROM issues i %s %s %s %s
	`, join, where, order, limit)

	return s.queryIssues(ctx, query, args...)
}

// ReadyIssues returns open issues with no transitive active blocker, ordered
// by priority then recency. The recursive CTE seeds on blocks edges whose
// source is active and walks forward through further blocks edges; cycles
// terminate because UNION deduplicates.
func (s *Store) ReadyIssues(ctx context.Context, limit int) ([]*types.Issue, error) {
	query := `
		WITH RECURSIVE blocked(id) AS (
			SELECT d.dst_id
			FROM deps d
			JOIN issues blocker ON blocker.id = d.src_id
			WHERE d.kind = 'blocks' AND d.state = 'active'
			  AND blocker.status IN ('open', 'in_progress', 'paused')
			UNION
			SELECT d.dst_id
			FROM deps d
			JOIN blocked b ON b.id = d.src_id
			WHERE d.kind = 'blocks' AND d.state = 'active'
		)
		SELECT i.id, i.title, i.body, i.status, i.priority, i.created_at, i.updated_at, i.rev
		FROM issues i
		WHERE i.status = 'open' AND i.id NOT IN (SELECT id FROM blocked)
		ORDER BY i.priority ASC, i.updated_at DESC
	`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	return s.queryIssues(ctx, query, args...)
}

func (s *Store) queryIssues(ctx context.Context, query string, args ...any) ([]*types.Issue, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query issues: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*types.Issue
	for rows.Next() {
		issue := &types.Issue{}
		if err := rows.Scan(&issue.ID, &issue.Title, &issue.Body, &issue.Status,
			&issue.Priority, &issue.CreatedAt, &issue.UpdatedAt, &issue.Rev); err != nil {
			return nil, err
		}
		out = append(out, issue)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, issue := range out {
		tags, err := s.loadTags(ctx, s.db, issue.ID)
		if err != nil {
			return nil, err
		}
		issue.Tags = tags
	}
	return out, nil
}
