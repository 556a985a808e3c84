// Package fanout maintains the set of live subscribers to a project's
// indexing and bundle activity (spec §4.K) and broadcasts events to them
// on a best-effort basis.
package fanout

import "time"

// Kind identifies an event's payload shape.
type Kind string

const (
	KindFileChanged         Kind = "file-changed"
	KindBundleUpdated       Kind = "bundle-updated"
	KindBundleSyncStarted   Kind = "bundle-sync-started"
	KindBundleSyncCompleted Kind = "bundle-sync-completed"
	KindBundleSyncFailed    Kind = "bundle-sync-failed"
	KindStatusSnapshot      Kind = "status-snapshot"
)

// FileChanged describes a single file create/modify/delete event.
type FileChanged struct {
	Path      string `json:"path"`
	Operation string `json:"operation"` // "created" | "modified" | "deleted"
}

// BundleUpdated reports a bundle's new materialized stats.
type BundleUpdated struct {
	Name      string `json:"name"`
	FileCount int    `json:"file_count"`
	SizeBytes int64  `json:"size_bytes"`
}

// BundleSync reports the start, completion, or failure of a bundle
// regeneration.
type BundleSync struct {
	Name  string `json:"name"`
	Error string `json:"error,omitempty"` // set only for bundle-sync-failed
}

// StatusSnapshot is the orchestrator's overall pipeline state, modeled on
// the teacher's IndexProgressSnapshot (internal/async/status.go).
type StatusSnapshot struct {
	Stage          string  `json:"stage"`
	FilesTotal     int     `json:"files_total"`
	FilesProcessed int     `json:"files_processed"`
	ChunksTotal    int     `json:"chunks_total"`
	ChunksEmbedded int     `json:"chunks_embedded"`
	ProgressPct    float64 `json:"progress_pct"`
	ElapsedSeconds int     `json:"elapsed_seconds"`
	ErrorMessage   string  `json:"error_message,omitempty"`
}

// Event is one broadcast message; exactly one payload field is populated,
// matching Kind.
type Event struct {
	Kind          Kind            `json:"kind"`
	Timestamp     time.Time       `json:"timestamp"`
	FileChanged   *FileChanged    `json:"file_changed,omitempty"`
	BundleUpdated *BundleUpdated  `json:"bundle_updated,omitempty"`
	BundleSync    *BundleSync     `json:"bundle_sync,omitempty"`
	Status        *StatusSnapshot `json:"status,omitempty"`
}

// Fanout is the live-update broadcaster's contract (spec §4.K).
type Fanout interface {
	// Subscribe registers a new subscriber and immediately delivers a
	// full status snapshot on the returned channel (spec §4.K). Calling
	// the returned cancel func unsubscribes and closes the channel.
	Subscribe(bufferSize int) (events <-chan Event, cancel func())

	// Publish broadcasts evt to every current subscriber on a best-effort
	// basis: a slow or gone subscriber never blocks or affects delivery
	// to the others.
	Publish(evt Event)

	// UpdateStatus replaces the current status snapshot and broadcasts a
	// status-snapshot event reflecting it.
	UpdateStatus(s StatusSnapshot)

	// CurrentStatus returns the last status snapshot (or its zero value
	// before the first UpdateStatus call).
	CurrentStatus() StatusSnapshot

	// SubscriberCount returns the number of currently active subscribers.
	SubscriberCount() int
}
