package store

import (
	"errors"
	"fmt"
)

var (
	// ErrNoDraft is returned when an operation needs a current draft.
	ErrNoDraft = errors.New("no current resume draft")
	// ErrNoRemoteID is returned by UpdateResume before the draft was ever created.
	ErrNoRemoteID = errors.New("resume has no remote id")
	// ErrAlreadyPersisted rejects CreateResume once a remote id is known.
	ErrAlreadyPersisted = errors.New("resume already persisted")
	// ErrSuperseded is returned when the draft was replaced while a save was in flight.
	ErrSuperseded = errors.New("draft replaced during save")
)

// SaveError is a persistence failure that was not recovered by falling back
// to create. The draft stays in memory, so the save can simply be retried.
type SaveError struct {
	Op       string
	ResumeID string
	Err      error
}

func (e *SaveError) Error() string {
	if e.ResumeID == "" {
		return fmt.Sprintf("%s resume: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s resume %s: %v", e.Op, e.ResumeID, e.Err)
}

func (e *SaveError) Unwrap() error { return e.Err }

// Retryable is always true; the draft is preserved.
func (e *SaveError) Retryable() bool { return true }
