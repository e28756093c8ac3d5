package models

import (
	"time"

	"github.com/google/uuid"
)

// ResultStatus is derived from which timing fields are set.
type ResultStatus string

const (
	ResultCreated        ResultStatus = "created"
	ResultDorsalAssigned ResultStatus = "dorsal_assigned"
	ResultStarted        ResultStatus = "started"
	ResultFinished       ResultStatus = "finished"
	// ResultIncomplete marks a finish recorded with no start time, so net
	// time could never be computed.
	ResultIncomplete ResultStatus = "incomplete"
)

// RaceResult is the per-registration timing record: dorsal number, start and
// finish timestamps, and the derived net time in whole seconds. EventID is
// denormalized from the registration so the database can enforce dorsal
// uniqueness per event with a plain unique index.
type RaceResult struct {
	ID             uuid.UUID  `json:"id"`
	RegistrationID uuid.UUID  `json:"registration_id"`
	EventID        uuid.UUID  `json:"event_id"`
	DorsalNumber   *int       `json:"dorsal_number,omitempty"`
	StartTime      *time.Time `json:"start_time,omitempty"`
	FinishTime     *time.Time `json:"finish_time,omitempty"`
	NetTimeSeconds *int       `json:"net_time_seconds,omitempty"`

	Registration *Registration `json:"registration,omitempty"`
}

// Status derives the timing state from the populated fields.
func (r RaceResult) Status() ResultStatus {
	switch {
	case r.FinishTime != nil && r.NetTimeSeconds != nil:
		return ResultFinished
	case r.FinishTime != nil:
		return ResultIncomplete
	case r.StartTime != nil:
		return ResultStarted
	case r.DorsalNumber != nil:
		return ResultDorsalAssigned
	default:
		return ResultCreated
	}
}
