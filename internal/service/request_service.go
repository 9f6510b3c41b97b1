package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mlefebvre/budget-approval-api/internal/dto"
	"github.com/mlefebvre/budget-approval-api/internal/models"
	"github.com/mlefebvre/budget-approval-api/internal/repository"
	appErrors "github.com/mlefebvre/budget-approval-api/pkg/errors"
)

type requestStore interface {
	Create(ctx context.Context, req *models.Request) error
	GetByID(ctx context.Context, id string) (*models.Request, error)
	List(ctx context.Context, filter models.RequestFilter) ([]models.Request, error)
}

// RequestService owns the draft lifecycle and read access. Visibility
// follows the role permission table: field reps see their own requests,
// directors additionally see their team's, the finance-stage roles see all.
type RequestService struct {
	store     requestStore
	directory workflowDirectory
	audit     auditRecorder
	validate  *validator.Validate
	logger    *zap.Logger
}

// NewRequestService constructs the service.
func NewRequestService(store requestStore, directory workflowDirectory, audit auditRecorder, logger *zap.Logger) *RequestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RequestService{
		store:     store,
		directory: directory,
		audit:     audit,
		validate:  validator.New(),
		logger:    logger,
	}
}

// Create opens a new draft for the acting actor. The creator's role is
// snapshotted on the row so later routing does not depend on directory
// changes.
func (s *RequestService) Create(ctx context.Context, actorID string, input dto.CreateRequestRequest) (*dto.RequestDetail, error) {
	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return nil, err
	}

	if err := s.validate.Struct(input); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, appErrors.ErrValidation.Message)
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(input.Amount))
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "amount must be a decimal number")
	}
	if amount.Cmp(decimal.Zero) <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "amount must be greater than zero")
	}

	kind := input.Kind
	if kind == "" {
		kind = models.KindStandard
	}

	req := &models.Request{
		CreatorID:   actor.ID,
		CreatorRole: actor.Role,
		Kind:        kind,
		Purpose:     strings.TrimSpace(input.Purpose),
		Amount:      amount,
		State:       models.StateDraft,
	}
	if err := s.store.Create(ctx, req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, appErrors.ErrStoreUnavailable.Message)
	}

	if s.audit != nil {
		s.audit.Record(ctx, actor.ID, req.ID, models.AuditActionRequestCreate, map[string]interface{}{
			"kind": req.Kind, "amount": req.Amount.String(),
		})
	}
	return dto.NewRequestDetail(req), nil
}

// Get returns one request if the actor is allowed to see it.
func (s *RequestService) Get(ctx context.Context, actorID, requestID string) (*dto.RequestDetail, error) {
	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return nil, err
	}

	req, err := s.store.GetByID(ctx, requestID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, appErrors.ErrRequestNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, appErrors.ErrStoreUnavailable.Message)
	}

	visible, err := s.canView(ctx, actor, req)
	if err != nil {
		return nil, err
	}
	if !visible {
		return nil, appErrors.ErrForbidden
	}
	return dto.NewRequestDetail(req), nil
}

// List returns the requests the actor may see, scoped by their role.
func (s *RequestService) List(ctx context.Context, actorID string, query dto.RequestQuery) ([]models.Request, error) {
	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return nil, err
	}

	filter := models.RequestFilter{
		States: query.States,
		Kind:   query.Kind,
		Limit:  query.Limit,
	}
	if query.Page > 1 && query.Limit > 0 {
		filter.Offset = (query.Page - 1) * query.Limit
	}

	switch {
	case models.HasPermission(actor.Role, models.ActionViewAll):
		// no scoping
	case models.HasPermission(actor.Role, models.ActionViewTeam):
		filter.TeamDirectorID = actor.ID
	default:
		filter.CreatorID = actor.ID
	}

	requests, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, appErrors.ErrStoreUnavailable.Message)
	}
	return requests, nil
}

// canView resolves the visibility rule for a single request.
func (s *RequestService) canView(ctx context.Context, actor *models.Actor, req *models.Request) (bool, error) {
	if actor.ID == req.CreatorID {
		return true, nil
	}
	if models.HasPermission(actor.Role, models.ActionViewAll) {
		return true, nil
	}
	if models.HasPermission(actor.Role, models.ActionViewTeam) {
		creator, err := s.directory.GetActor(ctx, req.CreatorID)
		if err != nil {
			return false, err
		}
		return creator.SupervisingDirectorID != nil && *creator.SupervisingDirectorID == actor.ID, nil
	}
	return false, nil
}

func (s *RequestService) loadActor(ctx context.Context, actorID string) (*models.Actor, error) {
	actor, err := s.directory.GetActor(ctx, actorID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, appErrors.ErrActorNotFound
		}
		return nil, err
	}
	if !actor.Active {
		return nil, appErrors.ErrActorInactive
	}
	return actor, nil
}
