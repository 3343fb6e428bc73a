// Package types defines the core data model shared by the journal and the
// cache: issues, comments, dependencies, and their enumerated states.
package types

import (
	"fmt"
	"sort"
)

// Status is the lifecycle state of an issue.
type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusPaused     Status = "paused"
	StatusDuplicate  Status = "duplicate"
	StatusClosed     Status = "closed"
)

// Valid reports whether s is one of the five canonical statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusPaused, StatusDuplicate, StatusClosed:
		return true
	}
	return false
}

// Active reports whether an issue in this state can block other issues.
func (s Status) Active() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusPaused:
		return true
	}
	return false
}

// Terminal reports whether this state is eligible for clean.
func (s Status) Terminal() bool {
	return s == StatusClosed || s == StatusDuplicate
}

// DepKind is the type of a dependency edge.
type DepKind string

const (
	DepBlocks  DepKind = "blocks"
	DepParent  DepKind = "parent"
	DepRelates DepKind = "relates"
)

// Valid reports whether k is one of the three allowed kinds.
func (k DepKind) Valid() bool {
	return k == DepBlocks || k == DepParent || k == DepRelates
}

// DepState marks a dependency edge as live or tombstoned. Removal never
// deletes a row; it flips the state.
type DepState string

const (
	DepActive  DepState = "active"
	DepRemoved DepState = "removed"
)

// Priority bounds. 1 is highest.
const (
	PriorityHighest = 1
	PriorityDefault = 2
	PriorityLowest  = 5
)

// ValidPriority reports whether p is within the accepted range.
func ValidPriority(p int) bool {
	return p >= PriorityHighest && p <= PriorityLowest
}

// Issue is a tracked work item. All timestamps are Unix epoch milliseconds.
type Issue struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Body      string   `json:"body"`
	Status    Status   `json:"status"`
	Priority  int      `json:"priority"`
	CreatedAt int64    `json:"created_at"`
	UpdatedAt int64    `json:"updated_at"`
	Rev       string   `json:"rev"`
	Tags      []string `json:"tags"`
}

// Validate checks the write-path invariants. The importer deliberately does
// not call this: records read back from the log are persisted verbatim so a
// newer writer's values survive a round-trip through an older binary.
func (i *Issue) Validate() error {
	if i.Title == "" {
		return fmt.Errorf("issue title must not be empty")
	}
	if !Status(i.Status).Valid() {
		return fmt.Errorf("invalid status %q", i.Status)
	}
	if !ValidPriority(i.Priority) {
		return fmt.Errorf("priority %d out of range %d..%d", i.Priority, PriorityHighest, PriorityLowest)
	}
	if i.CreatedAt > i.UpdatedAt {
		return fmt.Errorf("created_at %d after updated_at %d", i.CreatedAt, i.UpdatedAt)
	}
	return nil
}

// NormalizeTags sorts the tag set ascending and drops duplicates and empty
// strings. The serialized form of an issue always carries sorted tags.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Comment is an immutable note attached to an issue. Its ID is a revision
// token, so comment IDs sort chronologically.
type Comment struct {
	ID        string `json:"id"`
	IssueID   string `json:"issue_id"`
	Body      string `json:"body"`
	CreatedAt int64  `json:"created_at"`
}

// Dep is a dependency edge between two issues, keyed by (src, dst, kind).
// For kind "relates" the pair is stored in ascending lexicographic order.
type Dep struct {
	SrcID     string   `json:"src_id"`
	DstID     string   `json:"dst_id"`
	Kind      DepKind  `json:"kind"`
	State     DepState `json:"state"`
	CreatedAt int64    `json:"created_at"`
	Rev       string   `json:"rev"`
}

// CanonicalDepPair returns the (src, dst) pair in storage order for the given
// kind: relates edges are undirected and canonicalized to (min, max), the
// directional kinds are kept as supplied.
func CanonicalDepPair(src, dst string, kind DepKind) (string, string) {
	if kind == DepRelates && dst < src {
		return dst, src
	}
	return src, dst
}
