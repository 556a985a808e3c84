// Package bundle implements the bundle manager (spec §4.H): grouping a
// project's files into manual (glob-defined) and smart (classification-
// derived) collections, and materializing a bundle into a single
// structured artifact for an agent to consume.
package bundle

import (
	"context"
	"time"
)

// MasterBundleName is the manual bundle guaranteed to exist, matching
// every file (spec §3 Bundle invariant).
const MasterBundleName = "master"

// smartBundlePrefix namespaces purpose-derived smart bundles.
const smartBundlePrefix = "smart:"

// smartBundleKindPrefix namespaces syntax-kind-derived smart bundles.
const smartBundleKindPrefix = "smart:type-"

// Summary is one bundle's listing entry.
type Summary struct {
	Name        string
	Manual      bool
	Patterns    []string // manual bundles only
	FileCount   int
	SizeBytes   int64
	Dirty       bool
	GeneratedAt time.Time
}

// Manager exposes the bundle manager's three operations (spec §4.H).
type Manager interface {
	// List returns every manual bundle plus every non-empty smart bundle.
	List(ctx context.Context) ([]Summary, error)

	// Resolve returns the files belonging to a bundle by name, without
	// materializing their contents.
	Resolve(ctx context.Context, name string) ([]string, error)

	// Materialize renders a bundle's full artifact (spec §4.H): project
	// metadata, bundle name, and for every included file its content plus
	// a per-chunk inline summary. Regenerating a manual bundle clears its
	// dirty flag and updates size/timestamp.
	Materialize(ctx context.Context, name string) ([]byte, error)

	// NotifyFileChanged marks every manual bundle whose patterns match
	// path as dirty (spec §4.H's dirty-tracking rule). Called by the
	// orchestrator on file create/modify/delete events.
	NotifyFileChanged(ctx context.Context, path string) error
}
