package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mlefebvre/budget-approval-api/internal/dto"
	"github.com/mlefebvre/budget-approval-api/internal/models"
	"github.com/mlefebvre/budget-approval-api/internal/repository"
	appErrors "github.com/mlefebvre/budget-approval-api/pkg/errors"
)

// SelfValidationComment is recorded in the director slot when a director
// submits their own request and skips the director stage.
const SelfValidationComment = "self-validated by creator"

var defaultValidationComments = map[models.ValidationStage]string{
	models.StageDirector:         "validated by the supervising director",
	models.StageFinance:          "validated by the finance department",
	models.StageGeneralDirection: "validated by the general direction",
}

type workflowRequestStore interface {
	GetByID(ctx context.Context, id string) (*models.Request, error)
	UpdateForTransition(ctx context.Context, id string, apply func(*models.Request) error) (*models.Request, error)
}

type workflowDirectory interface {
	GetActor(ctx context.Context, id string) (*models.Actor, error)
	ListActiveByRole(ctx context.Context, role models.Role) ([]models.Actor, error)
}

type auditRecorder interface {
	Record(ctx context.Context, actorID, requestID, action string, details map[string]interface{})
}

type notifier interface {
	Notify(ctx context.Context, addressees []string, subject, body string)
}

type transitionObserver interface {
	ObserveTransition(from, to models.RequestState, event string)
	ObserveDenial(code string)
}

// WorkflowService is the validation engine: it authorizes an actor, applies
// one state transition atomically, and emits the audit/notification events.
// It is stateless; the only side effect is the single persistence write.
type WorkflowService struct {
	store     workflowRequestStore
	directory workflowDirectory
	audit     auditRecorder
	notify    notifier
	metrics   transitionObserver
	logger    *zap.Logger
}

// WorkflowServiceOption configures the service.
type WorkflowServiceOption func(*WorkflowService)

// WithTransitionObserver attaches workflow metrics.
func WithTransitionObserver(obs transitionObserver) WorkflowServiceOption {
	return func(s *WorkflowService) {
		if obs != nil {
			s.metrics = obs
		}
	}
}

// NewWorkflowService constructs the engine. Audit and notifier are optional:
// a nil sink simply drops events.
func NewWorkflowService(store workflowRequestStore, directory workflowDirectory, audit auditRecorder, notify notifier, logger *zap.Logger, opts ...WorkflowServiceOption) *WorkflowService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &WorkflowService{
		store:     store,
		directory: directory,
		audit:     audit,
		notify:    notify,
		logger:    logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Submit moves a draft into the approval chain and returns the new state
// plus the set of actors who must be notified. Routing per request kind and
// creator role: field reps go to their supervising director first, directors
// self-validate and jump to finance, direct-to-finance requests skip the
// director stage entirely.
func (s *WorkflowService) Submit(ctx context.Context, requestID, actorID string) (*dto.SubmitResponse, error) {
	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return nil, s.deny(err)
	}

	from := models.StateDraft
	updated, err := s.store.UpdateForTransition(ctx, requestID, func(req *models.Request) error {
		if req.CreatorID != actor.ID {
			return appErrors.ErrNotOwner
		}
		if req.State != models.StateDraft {
			return appErrors.ErrAlreadySubmitted
		}

		target := models.StatePendingFinance
		now := time.Now().UTC()

		switch {
		case req.Kind == models.KindDirectToFinance:
			// Straight to the finance stage, no director slot involved.
		case req.CreatorRole == models.RoleDirector:
			// A director's own request carries an auto-validated director
			// slot. After a recall the slot is already set and stays.
			if !req.SlotFilled(models.StageDirector) {
				if err := req.RecordValidation(models.StageDirector, req.CreatorID, now, SelfValidationComment); err != nil {
					return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "record self-validation")
				}
			}
		case req.CreatorRole == models.RoleFieldRep:
			// Slots survive a recall: a director slot filled before the
			// recall routes the resubmission directly to finance.
			if !req.SlotFilled(models.StageDirector) {
				if actor.SupervisingDirectorID == nil {
					return appErrors.ErrNoSupervisingDirector
				}
				target = models.StatePendingDirector
			}
		}

		req.State = target
		req.SubmittedAt = &now
		req.RecallReason = nil
		return nil
	})
	if err != nil {
		return nil, s.deny(s.translateStoreErr(err))
	}

	addressees := s.addresseesFor(ctx, updated, actor)

	s.observe(from, updated.State, "submit")
	s.record(ctx, actor.ID, updated.ID, models.AuditActionRequestSubmit, map[string]interface{}{
		"from": from, "to": updated.State, "kind": updated.Kind,
	})
	s.send(ctx, addressees, "Budget request awaiting validation",
		fmt.Sprintf("Request %s (%s, %s) is awaiting your validation.", updated.ID, updated.Purpose, updated.Amount.StringFixed(2)))

	return &dto.SubmitResponse{State: updated.State, Addressees: addressees}, nil
}

// Validate records the acting role's validation slot and advances the state
// machine. The slot check and write happen under the request row lock, so a
// duplicate validation by the same role always fails with ALREADY_VALIDATED.
func (s *WorkflowService) Validate(ctx context.Context, requestID, actorID, comment string) (*dto.TransitionResponse, error) {
	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return nil, s.deny(err)
	}

	var from models.RequestState
	updated, err := s.store.UpdateForTransition(ctx, requestID, func(req *models.Request) error {
		from = req.State
		if !req.State.Validatable() {
			return appErrors.ErrInvalidState
		}

		creator, err := s.creatorFor(ctx, req)
		if err != nil {
			return err
		}
		if !models.CanValidateAtState(actor.Role, actor.ID, req, creator) {
			return appErrors.ErrForbidden
		}

		stage, err := s.effectiveStage(actor.Role, req)
		if err != nil {
			return err
		}

		cmt := strings.TrimSpace(comment)
		if cmt == "" {
			cmt = defaultValidationComments[stage]
		}
		if err := req.RecordValidation(stage, actor.ID, time.Now().UTC(), cmt); err != nil {
			return appErrors.ErrAlreadyValidated
		}

		switch req.State {
		case models.StatePendingDirector:
			req.State = models.StatePendingFinance
		case models.StatePendingFinance:
			if req.FinanceStageComplete() {
				req.State = models.StateApproved
			}
		}
		return nil
	})
	if err != nil {
		return nil, s.deny(s.translateStoreErr(err))
	}

	message := "validation recorded"
	action := models.AuditActionRequestValidate
	switch {
	case updated.State == models.StateApproved:
		message = "request fully approved"
		action = models.AuditActionRequestApprove
		s.send(ctx, []string{updated.CreatorID}, "Budget request approved",
			fmt.Sprintf("Request %s has been approved by finance and general direction.", updated.ID))
	case from == models.StatePendingDirector:
		addressees := s.addresseesFor(ctx, updated, actor)
		s.send(ctx, addressees, "Budget request awaiting validation",
			fmt.Sprintf("Request %s passed the director stage and awaits finance validation.", updated.ID))
	}

	s.observe(from, updated.State, "validate")
	s.record(ctx, actor.ID, updated.ID, action, map[string]interface{}{
		"from": from, "to": updated.State,
	})

	return &dto.TransitionResponse{State: updated.State, Message: message}, nil
}

// Reject terminates the request. A non-empty comment is mandatory and is
// recorded in the rejecting role's slot; the other slots stay untouched
// forever.
func (s *WorkflowService) Reject(ctx context.Context, requestID, actorID, comment string) (*dto.TransitionResponse, error) {
	comment = strings.TrimSpace(comment)
	if comment == "" {
		return nil, s.deny(appErrors.ErrRejectionCommentRequired)
	}

	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return nil, s.deny(err)
	}

	var from models.RequestState
	updated, err := s.store.UpdateForTransition(ctx, requestID, func(req *models.Request) error {
		from = req.State
		if !req.State.Validatable() {
			return appErrors.ErrInvalidState
		}

		creator, err := s.creatorFor(ctx, req)
		if err != nil {
			return err
		}
		if !models.CanValidateAtState(actor.Role, actor.ID, req, creator) {
			return appErrors.ErrForbidden
		}

		stage, err := s.effectiveStage(actor.Role, req)
		if err != nil {
			return err
		}
		if err := req.RecordValidation(stage, actor.ID, time.Now().UTC(), comment); err != nil {
			return appErrors.ErrAlreadyValidated
		}

		req.State = models.StateRejected
		return nil
	})
	if err != nil {
		return nil, s.deny(s.translateStoreErr(err))
	}

	s.observe(from, models.StateRejected, "reject")
	s.record(ctx, actor.ID, updated.ID, models.AuditActionRequestReject, map[string]interface{}{
		"from": from, "to": updated.State, "reason": comment,
	})
	s.send(ctx, []string{updated.CreatorID}, "Budget request rejected",
		fmt.Sprintf("Request %s was rejected: %s", updated.ID, comment))

	return &dto.TransitionResponse{State: updated.State, Message: "request rejected"}, nil
}

// Recall reopens a pending request back to draft. Only the creator may
// recall, and previously recorded validation slots are kept: the request is
// treated as freshly submitted on the next Submit, minus the stages already
// validated.
func (s *WorkflowService) Recall(ctx context.Context, requestID, actorID, reason string) error {
	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return s.deny(err)
	}

	var from models.RequestState
	updated, err := s.store.UpdateForTransition(ctx, requestID, func(req *models.Request) error {
		from = req.State
		if req.CreatorID != actor.ID {
			return appErrors.ErrNotOwner
		}
		if !req.State.Validatable() {
			return appErrors.ErrInvalidState
		}
		req.State = models.StateDraft
		trimmed := strings.TrimSpace(reason)
		if trimmed != "" {
			req.RecallReason = &trimmed
		}
		return nil
	})
	if err != nil {
		return s.deny(s.translateStoreErr(err))
	}

	s.observe(from, models.StateDraft, "recall")
	s.record(ctx, actor.ID, updated.ID, models.AuditActionRequestRecall, map[string]interface{}{
		"from": from, "reason": reason,
	})
	return nil
}

// CanValidate answers the read-only UI gating question: may this actor
// validate the request in its current state. It never mutates anything.
func (s *WorkflowService) CanValidate(ctx context.Context, requestID, actorID string) (bool, error) {
	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		if appErrors.Is(err, appErrors.ErrActorInactive) {
			return false, nil
		}
		return false, err
	}

	req, err := s.store.GetByID(ctx, requestID)
	if err != nil {
		return false, s.translateStoreErr(err)
	}

	creator, err := s.creatorFor(ctx, req)
	if err != nil {
		return false, err
	}
	if !models.CanValidateAtState(actor.Role, actor.ID, req, creator) {
		return false, nil
	}

	// A role that already filled its slot has nothing left to validate.
	if _, err := s.effectiveStage(actor.Role, req); err != nil {
		return false, nil
	}
	return true, nil
}

// effectiveStage resolves which slot the acting role writes. Administrators
// fill whichever finance-stage slot is still empty, finance first when both
// are; a role whose slot is already recorded gets ALREADY_VALIDATED.
func (s *WorkflowService) effectiveStage(role models.Role, req *models.Request) (models.ValidationStage, error) {
	switch req.State {
	case models.StatePendingDirector:
		return models.StageDirector, nil
	case models.StatePendingFinance:
		switch role {
		case models.RoleFinanceValidator:
			return models.StageFinance, nil
		case models.RoleGeneralDirection:
			return models.StageGeneralDirection, nil
		case models.RoleAdministrator:
			if !req.SlotFilled(models.StageFinance) {
				return models.StageFinance, nil
			}
			if !req.SlotFilled(models.StageGeneralDirection) {
				return models.StageGeneralDirection, nil
			}
			return "", appErrors.ErrAlreadyValidated
		}
	}
	return "", appErrors.ErrInvalidState
}

// creatorFor loads the creator's directory entry when the stage rule needs
// it (director stage only).
func (s *WorkflowService) creatorFor(ctx context.Context, req *models.Request) (*models.Actor, error) {
	if req.State != models.StatePendingDirector {
		return nil, nil
	}
	creator, err := s.directory.GetActor(ctx, req.CreatorID)
	if err != nil {
		return nil, err
	}
	return creator, nil
}

// addresseesFor computes who must hear about the request's current stage.
// Directory failures here are logged, not surfaced: the transition is
// already committed and notification is best-effort.
func (s *WorkflowService) addresseesFor(ctx context.Context, req *models.Request, actor *models.Actor) []string {
	switch req.State {
	case models.StatePendingDirector:
		if actor.SupervisingDirectorID != nil {
			return []string{*actor.SupervisingDirectorID}
		}
		creator, err := s.directory.GetActor(ctx, req.CreatorID)
		if err != nil || creator.SupervisingDirectorID == nil {
			return nil
		}
		return []string{*creator.SupervisingDirectorID}
	case models.StatePendingFinance:
		seen := make(map[string]struct{})
		var ids []string
		for _, role := range []models.Role{models.RoleFinanceValidator, models.RoleGeneralDirection, models.RoleAdministrator} {
			actors, err := s.directory.ListActiveByRole(ctx, role)
			if err != nil {
				s.logger.Warn("addressee lookup failed", zap.String("role", string(role)), zap.Error(err))
				continue
			}
			for _, a := range actors {
				if _, ok := seen[a.ID]; ok {
					continue
				}
				seen[a.ID] = struct{}{}
				ids = append(ids, a.ID)
			}
		}
		return ids
	}
	return nil
}

func (s *WorkflowService) loadActor(ctx context.Context, actorID string) (*models.Actor, error) {
	actor, err := s.directory.GetActor(ctx, actorID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, appErrors.ErrActorNotFound
		}
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, appErrors.ErrStoreUnavailable.Message)
	}
	if !actor.Active {
		return nil, appErrors.ErrActorInactive
	}
	return actor, nil
}

// translateStoreErr maps storage failures onto the error taxonomy: missing
// rows become REQUEST_NOT_FOUND, domain errors pass through untouched,
// anything else is the retryable STORE_UNAVAILABLE class.
func (s *WorkflowService) translateStoreErr(err error) error {
	if err == nil {
		return nil
	}
	if repository.IsNotFound(err) {
		return appErrors.ErrRequestNotFound
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return err
	}
	return appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, appErrors.ErrStoreUnavailable.Message)
}

func (s *WorkflowService) record(ctx context.Context, actorID, requestID, action string, details map[string]interface{}) {
	if s.audit == nil {
		return
	}
	s.audit.Record(ctx, actorID, requestID, action, details)
}

func (s *WorkflowService) send(ctx context.Context, addressees []string, subject, body string) {
	if s.notify == nil || len(addressees) == 0 {
		return
	}
	s.notify.Notify(ctx, addressees, subject, body)
}

func (s *WorkflowService) observe(from, to models.RequestState, event string) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveTransition(from, to, event)
}

func (s *WorkflowService) deny(err error) error {
	if s.metrics != nil && err != nil {
		s.metrics.ObserveDenial(appErrors.FromError(err).Code)
	}
	return err
}
