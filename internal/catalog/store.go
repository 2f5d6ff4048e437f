package catalog

import (
	"iter"

	"blenddoc/internal/errors"
)

// Store owns all FileRecords for a run. The traversal engine is the only
// writer; after the run completes the store is read-only input for the
// digraph builder and the report.
type Store struct {
	records map[string]*FileRecord
	order   []string // insertion order, for deterministic reporting
}

// NewStore creates an empty record store
func NewStore() *Store {
	return &Store{
		records: make(map[string]*FileRecord),
	}
}

// Add creates a record in state Discovered. It fails with RECORD_EXISTS when
// the path is already present; the engine uses GetOrCreate instead, since the
// same path may be rediscovered from a different referrer.
func (s *Store) Add(path string, kind Kind, sizeBytes int64, extension string) (*FileRecord, error) {
	if _, ok := s.records[path]; ok {
		return nil, errors.Newf(errors.RecordExists, "record already exists for %q", path)
	}
	rec := &FileRecord{
		Path:      path,
		Kind:      kind,
		Status:    StatusDiscovered,
		SizeBytes: sizeBytes,
		Extension: extension,
	}
	s.records[path] = rec
	s.order = append(s.order, path)
	return rec, nil
}

// GetOrCreate returns the existing record for path, or creates one in state
// Discovered. The second return value reports whether a record was created.
func (s *Store) GetOrCreate(path string, kind Kind, sizeBytes int64, extension string) (*FileRecord, bool) {
	if rec, ok := s.records[path]; ok {
		return rec, false
	}
	rec, _ := s.Add(path, kind, sizeBytes, extension)
	return rec, true
}

// Get returns the record for path or RECORD_NOT_FOUND
func (s *Store) Get(path string) (*FileRecord, error) {
	rec, ok := s.records[path]
	if !ok {
		return nil, errors.Newf(errors.RecordNotFound, "no record for %q", path)
	}
	return rec, nil
}

// SetStatus transitions a record. Regressions and transitions out of a
// terminal state return STATUS_REGRESSION; Failed is reachable from any
// non-terminal state.
func (s *Store) SetStatus(path string, status Status) error {
	rec, err := s.Get(path)
	if err != nil {
		return err
	}
	if rec.Status.Terminal() {
		if rec.Status == status {
			return nil
		}
		return errors.Newf(errors.StatusRegression,
			"record %q is terminal (%s), cannot move to %s", path, rec.Status, status)
	}
	if status != StatusFailed && statusRank[status] < statusRank[rec.Status] {
		return errors.Newf(errors.StatusRegression,
			"record %q cannot move from %s back to %s", path, rec.Status, status)
	}
	rec.Status = status
	return nil
}

// SetMetadata stores extractor output on an existing record
func (s *Store) SetMetadata(path string, metadata map[string]interface{}) error {
	rec, err := s.Get(path)
	if err != nil {
		return err
	}
	rec.Metadata = metadata
	return nil
}

// Fail marks a record Failed with a reason. Failing an already-terminal
// record is rejected like any other transition out of a terminal state.
func (s *Store) Fail(path string, reason string) error {
	if err := s.SetStatus(path, StatusFailed); err != nil {
		return err
	}
	rec, _ := s.Get(path)
	rec.FailReason = reason
	return nil
}

// Len returns the number of records
func (s *Store) Len() int {
	return len(s.records)
}

// All yields records in insertion order. The sequence is lazy and
// restartable; ranging twice yields the same order.
func (s *Store) All() iter.Seq[*FileRecord] {
	return func(yield func(*FileRecord) bool) {
		for _, path := range s.order {
			if !yield(s.records[path]) {
				return
			}
		}
	}
}

// CountByStatus tallies records per status, for run summaries
func (s *Store) CountByStatus() map[Status]int {
	counts := make(map[Status]int)
	for _, path := range s.order {
		counts[s.records[path].Status]++
	}
	return counts
}
