package mirror

import (
	"errors"
	"sort"
	"time"
)

var (
	ErrNoSource     = errors.New("mirror: listing source missing")
	ErrNoStore      = errors.New("mirror: destination store missing")
	ErrEmptyListing = errors.New("mirror: no files found at source")
)

// SyncPlan is what a dry run would do. Without verification no content is transferred, so
// files present on both sides are listed in ToUpload and Unverified. Verified plans fill
// Unchanged, Bytes and Failed instead.
type SyncPlan struct {
	ToUpload   []string
	ToDelete   []string
	Unverified []string
	Unchanged  []string
	Failed     map[string]error
	Bytes      int64
}

// SyncResult reports one reconciliation pass. In dry-run mode Uploaded and Deleted hold what
// would have happened.
type SyncResult struct {
	DryRun        bool
	Uploaded      []string
	Deleted       []string
	Unchanged     []string
	Unverified    []string
	Failed        map[string]error
	BytesUploaded int64
	Duration      time.Duration
}

func newSyncResult(dryRun bool) *SyncResult {
	return &SyncResult{
		DryRun: dryRun,
		Failed: make(map[string]error),
	}
}

// FailedFiles returns the names of failed items in sorted order.
func (r *SyncResult) FailedFiles() []string {
	names := make([]string, 0, len(r.Failed))
	for name := range r.Failed {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Changed reports whether the pass uploaded or deleted anything.
func (r *SyncResult) Changed() bool {
	return len(r.Uploaded) > 0 || len(r.Deleted) > 0
}
