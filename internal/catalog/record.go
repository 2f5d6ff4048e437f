// Package catalog holds the per-run stores produced by a traversal: the file
// record store (one record per canonical path) and the link registry (the
// directed dependency edges between files). Both are owned exclusively by the
// traversal engine while a run is in flight and are read-only afterwards.
package catalog

// Kind classifies a file by what it can reference
type Kind string

const (
	// KindLeaf is a file with no outgoing references (images, audio, text, simple models)
	KindLeaf Kind = "leaf"
	// KindComposite is a scene file capable of referencing other files
	KindComposite Kind = "composite"
	// KindUnknown is a file type the scanner does not classify
	KindUnknown Kind = "unknown"
)

// Status is the processing state of a file record. Transitions are
// monotonically non-decreasing, except Failed which is terminal from any
// non-terminal state.
type Status string

const (
	// StatusDiscovered means the path is known but not yet queued
	StatusDiscovered Status = "discovered"
	// StatusQueued means the path is on the work stack
	StatusQueued Status = "queued"
	// StatusProcessing means extraction is in flight (or the subtree is open)
	StatusProcessing Status = "processing"
	// StatusFinalized means metadata was extracted and stored
	StatusFinalized Status = "finalized"
	// StatusFailed means extraction failed; FailReason says why
	StatusFailed Status = "failed"
)

var statusRank = map[Status]int{
	StatusDiscovered: 0,
	StatusQueued:     1,
	StatusProcessing: 2,
	StatusFinalized:  3,
	StatusFailed:     3,
}

// Terminal reports whether a status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusFinalized || s == StatusFailed
}

// FileRecord is the single source of truth for one discovered file.
// Exactly one record exists per canonical path.
type FileRecord struct {
	// Path is the canonical absolute path (unique key)
	Path string `json:"path"`

	Kind   Kind   `json:"kind"`
	Status Status `json:"status"`

	// Metadata is the opaque structure produced by the extractor;
	// nil until the record is finalized
	Metadata map[string]interface{} `json:"metadata,omitempty"`

	// FailReason is set when Status is StatusFailed
	FailReason string `json:"failReason,omitempty"`

	// Filesystem facts captured at discovery time
	SizeBytes int64  `json:"sizeBytes"`
	Extension string `json:"extension"`
}
