// Package tissue provides a minimal public API for programs that want to use
// the tissue storage engine directly instead of shelling out to the CLI.
//
// It exports the core types and the store entry points. Everything else lives
// under internal/ and is not part of the supported surface.
package tissue

import (
	"context"

	"github.com/tissue-dev/tissue/internal/store"
	"github.com/tissue-dev/tissue/internal/types"
)

// Store is an open handle on a store directory.
type Store = store.Store

// Open opens an existing store directory and reconciles its cache with the
// log.
func Open(ctx context.Context, dir string) (*Store, error) {
	return store.Open(ctx, dir)
}

// Init creates a store directory and opens it. An empty prefix derives one
// from the repository directory name.
func Init(ctx context.Context, dir, prefix string) (*Store, error) {
	return store.Init(ctx, dir, prefix)
}

// FindStoreDir walks upward from start looking for a .tissue directory.
// Returns "" when none is found.
func FindStoreDir(start string) string {
	return store.FindStoreDir(start)
}

// Core types.
type (
	Issue    = types.Issue
	Comment  = types.Comment
	Dep      = types.Dep
	Status   = types.Status
	DepKind  = types.DepKind
	DepState = types.DepState
)

// Request and result types.
type (
	NewIssue      = store.NewIssue
	IssuePatch    = store.IssuePatch
	ListOptions   = store.ListOptions
	CleanOptions  = store.CleanOptions
	ImportResult  = store.ImportResult
	MigrateResult = store.MigrateResult
	Info          = store.Info
)

// Status constants.
const (
	StatusOpen       = types.StatusOpen
	StatusInProgress = types.StatusInProgress
	StatusPaused     = types.StatusPaused
	StatusDuplicate  = types.StatusDuplicate
	StatusClosed     = types.StatusClosed
)

// Dependency kinds.
const (
	DepBlocks  = types.DepBlocks
	DepParent  = types.DepParent
	DepRelates = types.DepRelates
)

// Sentinel errors.
var (
	ErrStoreNotFound  = store.ErrStoreNotFound
	ErrIssueNotFound  = store.ErrIssueNotFound
	ErrAmbiguousID    = store.ErrAmbiguousID
	ErrInvalidIDInput = store.ErrInvalidIDInput
	ErrInvalidPrefix  = store.ErrInvalidPrefix
	ErrInvalidDepKind = store.ErrInvalidDepKind
	ErrSelfDependency = store.ErrSelfDependency
	ErrIDCollision    = store.ErrIDCollision
	ErrBusy           = store.ErrBusy
)
