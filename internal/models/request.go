package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// RequestState captures the lifecycle of a spending request.
type RequestState string

const (
	StateDraft           RequestState = "DRAFT"
	StatePendingDirector RequestState = "PENDING_DIRECTOR"
	StatePendingFinance  RequestState = "PENDING_FINANCE"
	StateApproved        RequestState = "APPROVED"
	StateRejected        RequestState = "REJECTED"
)

// Terminal reports whether no further mutation is permitted.
func (s RequestState) Terminal() bool {
	return s == StateApproved || s == StateRejected
}

// Validatable reports whether a validate/reject command may apply.
func (s RequestState) Validatable() bool {
	return s == StatePendingDirector || s == StatePendingFinance
}

// RequestKind selects the routing on first submission.
type RequestKind string

const (
	KindStandard        RequestKind = "STANDARD"
	KindDirectToFinance RequestKind = "DIRECT_TO_FINANCE"
)

// ValidationStage names the three validation slots.
type ValidationStage string

const (
	StageDirector         ValidationStage = "DIRECTOR"
	StageFinance          ValidationStage = "FINANCE"
	StageGeneralDirection ValidationStage = "GENERAL_DIRECTION"
)

// ErrSlotFilled is returned when a validation slot would be overwritten.
// Slots are a write-once audit trail.
var ErrSlotFilled = errors.New("validation slot already recorded")

// ValidationSlot is the (validator, timestamp, comment) triple recorded per
// stage. It is a read view over the flat request columns.
type ValidationSlot struct {
	ValidatorID *string    `json:"validator_id,omitempty"`
	ValidatedAt *time.Time `json:"validated_at,omitempty"`
	Comment     *string    `json:"comment,omitempty"`
}

// Filled reports whether the slot has been recorded.
func (s ValidationSlot) Filled() bool {
	return s.ValidatorID != nil
}

// Request is a single spending/event ask. The creator id and the creator's
// role are snapshotted at creation time and never re-derived.
type Request struct {
	ID          string          `db:"id" json:"id"`
	CreatorID   string          `db:"creator_id" json:"creator_id"`
	CreatorRole Role            `db:"creator_role" json:"creator_role"`
	Kind        RequestKind     `db:"kind" json:"kind"`
	Purpose     string          `db:"purpose" json:"purpose"`
	Amount      decimal.Decimal `db:"amount" json:"amount"`
	State       RequestState    `db:"state" json:"state"`

	DirectorValidatorID *string    `db:"director_validator_id" json:"-"`
	DirectorValidatedAt *time.Time `db:"director_validated_at" json:"-"`
	DirectorComment     *string    `db:"director_comment" json:"-"`

	FinanceValidatorID *string    `db:"finance_validator_id" json:"-"`
	FinanceValidatedAt *time.Time `db:"finance_validated_at" json:"-"`
	FinanceComment     *string    `db:"finance_comment" json:"-"`

	GeneralValidatorID *string    `db:"general_validator_id" json:"-"`
	GeneralValidatedAt *time.Time `db:"general_validated_at" json:"-"`
	GeneralComment     *string    `db:"general_comment" json:"-"`

	RecallReason *string    `db:"recall_reason" json:"recall_reason,omitempty"`
	SubmittedAt  *time.Time `db:"submitted_at" json:"submitted_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// Slot returns the validation slot for a stage.
func (r *Request) Slot(stage ValidationStage) ValidationSlot {
	switch stage {
	case StageDirector:
		return ValidationSlot{ValidatorID: r.DirectorValidatorID, ValidatedAt: r.DirectorValidatedAt, Comment: r.DirectorComment}
	case StageFinance:
		return ValidationSlot{ValidatorID: r.FinanceValidatorID, ValidatedAt: r.FinanceValidatedAt, Comment: r.FinanceComment}
	case StageGeneralDirection:
		return ValidationSlot{ValidatorID: r.GeneralValidatorID, ValidatedAt: r.GeneralValidatedAt, Comment: r.GeneralComment}
	}
	return ValidationSlot{}
}

// SlotFilled reports whether a stage has already been recorded.
func (r *Request) SlotFilled(stage ValidationStage) bool {
	return r.Slot(stage).Filled()
}

// RecordValidation writes a slot exactly once. A non-nil validator id is
// permanent: any second write for the same stage fails with ErrSlotFilled
// and leaves the record untouched.
func (r *Request) RecordValidation(stage ValidationStage, validatorID string, at time.Time, comment string) error {
	if r.SlotFilled(stage) {
		return ErrSlotFilled
	}
	vid := validatorID
	ts := at
	cmt := comment
	switch stage {
	case StageDirector:
		r.DirectorValidatorID = &vid
		r.DirectorValidatedAt = &ts
		r.DirectorComment = &cmt
	case StageFinance:
		r.FinanceValidatorID = &vid
		r.FinanceValidatedAt = &ts
		r.FinanceComment = &cmt
	case StageGeneralDirection:
		r.GeneralValidatorID = &vid
		r.GeneralValidatedAt = &ts
		r.GeneralComment = &cmt
	default:
		return errors.New("unknown validation stage")
	}
	return nil
}

// FinanceStageComplete reports whether both second-stage slots are recorded.
// The approved state holds iff this does.
func (r *Request) FinanceStageComplete() bool {
	return r.SlotFilled(StageFinance) && r.SlotFilled(StageGeneralDirection)
}

// Slots returns all three slots keyed by stage, for serialization.
func (r *Request) Slots() map[ValidationStage]ValidationSlot {
	return map[ValidationStage]ValidationSlot{
		StageDirector:         r.Slot(StageDirector),
		StageFinance:          r.Slot(StageFinance),
		StageGeneralDirection: r.Slot(StageGeneralDirection),
	}
}

// RequestFilter constrains listing queries.
type RequestFilter struct {
	States    []RequestState
	Kind      RequestKind
	CreatorID string
	// TeamDirectorID limits results to requests whose creator reports to
	// this director (or is this director).
	TeamDirectorID string
	Limit          int
	Offset         int
}
