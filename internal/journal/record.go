// Package journal owns the durable log: a UTF-8 file of one JSON record per
// line. The log is the source of truth; the relational cache is derived from
// it. Field names and ordering in the encoded records are stable because
// third-party tools parse these lines.
package journal

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tissue-dev/tissue/internal/types"
)

// Record type tags.
const (
	TypeIssue   = "issue"
	TypeComment = "comment"
	TypeDep     = "dep"
)

// ErrUnknownType is returned for records whose type tag is not one of the
// three known variants.
var ErrUnknownType = errors.New("unknown record type")

// Record is the closed union over the three line shapes. The concrete types
// are IssueRecord, CommentRecord and DepRecord.
type Record interface {
	recordType() string
}

// IssueRecord is the full-row serialization of an issue. Status and priority
// are carried verbatim: the journal does not validate, so values written by a
// newer version survive a round-trip through an older one.
type IssueRecord struct {
	Type      string   `json:"type"`
	ID        string   `json:"id"`
	Rev       string   `json:"rev"`
	Title     string   `json:"title"`
	Body      string   `json:"body"`
	Status    string   `json:"status"`
	Priority  int      `json:"priority"`
	Tags      []string `json:"tags"`
	CreatedAt int64    `json:"created_at"`
	UpdatedAt int64    `json:"updated_at"`
}

func (IssueRecord) recordType() string { return TypeIssue }

// CommentRecord serializes an immutable comment. Its ID is a revision token.
type CommentRecord struct {
	Type      string `json:"type"`
	ID        string `json:"id"`
	IssueID   string `json:"issue_id"`
	Body      string `json:"body"`
	CreatedAt int64  `json:"created_at"`
}

func (CommentRecord) recordType() string { return TypeComment }

// DepRecord serializes a dependency edge, including tombstones
// (state "removed").
type DepRecord struct {
	Type      string `json:"type"`
	SrcID     string `json:"src_id"`
	DstID     string `json:"dst_id"`
	Kind      string `json:"kind"`
	State     string `json:"state"`
	CreatedAt int64  `json:"created_at"`
	Rev       string `json:"rev"`
}

func (DepRecord) recordType() string { return TypeDep }

// NewIssueRecord builds the record for an issue row. Tags are normalized so
// the serialized set is always sorted and non-nil.
func NewIssueRecord(i *types.Issue) IssueRecord {
	return IssueRecord{
		Type:      TypeIssue,
		ID:        i.ID,
		Rev:       i.Rev,
		Title:     i.Title,
		Body:      i.Body,
		Status:    string(i.Status),
		Priority:  i.Priority,
		Tags:      types.NormalizeTags(i.Tags),
		CreatedAt: i.CreatedAt,
		UpdatedAt: i.UpdatedAt,
	}
}

// NewCommentRecord builds the record for a comment.
func NewCommentRecord(c *types.Comment) CommentRecord {
	return CommentRecord{
		Type:      TypeComment,
		ID:        c.ID,
		IssueID:   c.IssueID,
		Body:      c.Body,
		CreatedAt: c.CreatedAt,
	}
}

// NewDepRecord builds the record for a dependency edge or tombstone.
func NewDepRecord(d *types.Dep) DepRecord {
	return DepRecord{
		Type:      TypeDep,
		SrcID:     d.SrcID,
		DstID:     d.DstID,
		Kind:      string(d.Kind),
		State:     string(d.State),
		CreatedAt: d.CreatedAt,
		Rev:       d.Rev,
	}
}

// Encode renders a record as a single JSON line without the trailing newline.
func Encode(r Record) ([]byte, error) {
	return json.Marshal(r)
}

// ParseLine decodes one trimmed, non-empty log line into its variant.
// It rejects lines that are not JSON objects or whose type tag is unknown;
// per-field validation is the cache applier's concern.
func ParseLine(line []byte) (Record, error) {
	var head struct {
		Type *string `json:"type"`
	}
	if err := json.Unmarshal(line, &head); err != nil {
		return nil, fmt.Errorf("not a JSON object: %w", err)
	}
	if head.Type == nil {
		return nil, fmt.Errorf("%w: missing type field", ErrUnknownType)
	}
	switch *head.Type {
	case TypeIssue:
		var r IssueRecord
		if err := json.Unmarshal(line, &r); err != nil {
			return nil, fmt.Errorf("issue record: %w", err)
		}
		return r, nil
	case TypeComment:
		var r CommentRecord
		if err := json.Unmarshal(line, &r); err != nil {
			return nil, fmt.Errorf("comment record: %w", err)
		}
		return r, nil
	case TypeDep:
		var r DepRecord
		if err := json.Unmarshal(line, &r); err != nil {
			return nil, fmt.Errorf("dep record: %w", err)
		}
		return r, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, *head.Type)
	}
}
