package dto

import (
	"github.com/mlefebvre/budget-approval-api/internal/models"
)

// CreateRequestRequest opens a new draft.
type CreateRequestRequest struct {
	Kind    models.RequestKind `json:"kind" validate:"omitempty,oneof=STANDARD DIRECT_TO_FINANCE"`
	Purpose string             `json:"purpose" validate:"required,max=500"`
	Amount  string             `json:"amount" validate:"required"`
}

// ValidateRequestRequest carries the optional validation comment.
type ValidateRequestRequest struct {
	Comment string `json:"comment"`
}

// RejectRequestRequest carries the mandatory rejection reason. The engine,
// not the binding layer, enforces the non-empty rule so the caller gets the
// stable REJECTION_COMMENT_REQUIRED code.
type RejectRequestRequest struct {
	Comment string `json:"comment"`
}

// RecallRequestRequest reopens a pending request back to draft.
type RecallRequestRequest struct {
	Reason string `json:"reason"`
}

// RequestQuery filters list endpoints.
type RequestQuery struct {
	States []models.RequestState
	Kind   models.RequestKind
	Page   int
	Limit  int
}

// SubmitResponse reports the entry transition and who must be notified.
type SubmitResponse struct {
	State      models.RequestState `json:"state"`
	Addressees []string            `json:"addressees"`
}

// TransitionResponse reports the outcome of a validate/reject command.
type TransitionResponse struct {
	State   models.RequestState `json:"state"`
	Message string              `json:"message"`
}

// CanValidateResponse is the read-only UI gating answer.
type CanValidateResponse struct {
	CanValidate bool `json:"can_validate"`
}

// RequestDetail pairs the request with its three validation slots.
type RequestDetail struct {
	Request *models.Request                                  `json:"request"`
	Slots   map[models.ValidationStage]models.ValidationSlot `json:"slots"`
}

// NewRequestDetail builds the detail view.
func NewRequestDetail(req *models.Request) *RequestDetail {
	if req == nil {
		return nil
	}
	return &RequestDetail{Request: req, Slots: req.Slots()}
}
