package store

// The cache schema. Every table here is derived state: destroying issues.db
// and reopening the store rebuilds an equivalent cache from the log.
//
// Deliberately missing constraints: issues.status and issues.priority carry
// no CHECK, and deps has no foreign keys. The importer persists log values
// verbatim (forward compatibility with newer writers) and applies dep records
// eagerly, possibly before both endpoint issues exist. Validation belongs to
// the write path.
const schema = `
-- Issues table
CREATE TABLE IF NOT EXISTS issues (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    body TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'open',
    priority INTEGER NOT NULL DEFAULT 2,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    rev TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_issues_status ON issues(status);
CREATE INDEX IF NOT EXISTS idx_issues_priority ON issues(priority);
CREATE INDEX IF NOT EXISTS idx_issues_updated_at ON issues(updated_at);

-- Tag names, interned
CREATE TABLE IF NOT EXISTS tags (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE
);

-- Issue-tag join
CREATE TABLE IF NOT EXISTS issue_tags (
    issue_id TEXT NOT NULL,
    tag_id INTEGER NOT NULL,
    PRIMARY KEY (issue_id, tag_id),
    FOREIGN KEY (issue_id) REFERENCES issues(id) ON DELETE CASCADE,
    FOREIGN KEY (tag_id) REFERENCES tags(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_issue_tags_tag ON issue_tags(tag_id);

-- Comments table; comment ids are revision tokens, immutable once written
CREATE TABLE IF NOT EXISTS comments (
    id TEXT PRIMARY KEY,
    issue_id TEXT NOT NULL,
    body TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    FOREIGN KEY (issue_id) REFERENCES issues(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_comments_issue ON comments(issue_id);
CREATE INDEX IF NOT EXISTS idx_comments_created_at ON comments(created_at);

-- Dependencies table; soft-delete only, removal flips state to 'removed'
CREATE TABLE IF NOT EXISTS deps (
    src_id TEXT NOT NULL,
    dst_id TEXT NOT NULL,
    kind TEXT NOT NULL,
    state TEXT NOT NULL DEFAULT 'active',
    created_at INTEGER NOT NULL,
    rev TEXT NOT NULL,
    PRIMARY KEY (src_id, dst_id, kind)
);

CREATE INDEX IF NOT EXISTS idx_deps_dst ON deps(dst_id);
CREATE INDEX IF NOT EXISTS idx_deps_src_kind_state ON deps(src_id, kind, state);

-- Config table (user-facing settings: the issue prefix)
CREATE TABLE IF NOT EXISTS config (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

-- Metadata table (internal state: the importer watermark)
CREATE TABLE IF NOT EXISTS metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

-- Full-text search over title, body and concatenated comments.
-- issue_id is unindexed so the bm25 weights (1.0, 0.5, 0.25) map exactly
-- onto the three content columns.
CREATE VIRTUAL TABLE IF NOT EXISTS issue_fts USING fts5(
    title, body, comments, issue_id UNINDEXED
);
`

// Config and metadata keys.
const (
	configKeyPrefix = "id_prefix"
	metaKeyOffset   = "jsonl_offset"
	metaKeyInode    = "jsonl_inode"
	metaKeyMtime    = "jsonl_mtime"
)
