package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mlefebvre/budget-approval-api/internal/models"
	appErrors "github.com/mlefebvre/budget-approval-api/pkg/errors"
)

type stubRequestStore struct {
	requests map[string]*models.Request
	txErr    error
}

func (s *stubRequestStore) GetByID(_ context.Context, id string) (*models.Request, error) {
	req, ok := s.requests[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *req
	return &cp, nil
}

func (s *stubRequestStore) UpdateForTransition(_ context.Context, id string, apply func(*models.Request) error) (*models.Request, error) {
	if s.txErr != nil {
		return nil, s.txErr
	}
	req, ok := s.requests[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *req
	if err := apply(&cp); err != nil {
		return nil, err
	}
	cp.UpdatedAt = time.Now().UTC()
	s.requests[id] = &cp
	out := cp
	return &out, nil
}

type stubDirectory struct {
	actors map[string]*models.Actor
}

func (s *stubDirectory) GetActor(_ context.Context, id string) (*models.Actor, error) {
	actor, ok := s.actors[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *actor
	return &cp, nil
}

func (s *stubDirectory) ListActiveByRole(_ context.Context, role models.Role) ([]models.Actor, error) {
	var out []models.Actor
	for _, a := range s.actors {
		if a.Role == role && a.Active {
			out = append(out, *a)
		}
	}
	return out, nil
}

type auditEntry struct {
	actorID   string
	requestID string
	action    string
}

type stubAudit struct {
	entries []auditEntry
}

func (s *stubAudit) Record(_ context.Context, actorID, requestID, action string, _ map[string]interface{}) {
	s.entries = append(s.entries, auditEntry{actorID: actorID, requestID: requestID, action: action})
}

type sentNotification struct {
	addressees []string
	subject    string
}

type stubNotifier struct {
	sent []sentNotification
}

func (s *stubNotifier) Notify(_ context.Context, addressees []string, subject, _ string) {
	s.sent = append(s.sent, sentNotification{addressees: addressees, subject: subject})
}

type workflowFixture struct {
	svc    *WorkflowService
	store  *stubRequestStore
	audit  *stubAudit
	sender *stubNotifier
}

func strPtr(s string) *string { return &s }

func newWorkflowFixture() *workflowFixture {
	directory := &stubDirectory{actors: map[string]*models.Actor{
		"rep-1":   {ID: "rep-1", Role: models.RoleFieldRep, SupervisingDirectorID: strPtr("dir-1"), Active: true},
		"rep-2":   {ID: "rep-2", Role: models.RoleFieldRep, Active: true},
		"dir-1":   {ID: "dir-1", Role: models.RoleDirector, Active: true},
		"dir-2":   {ID: "dir-2", Role: models.RoleDirector, Active: true},
		"fin-1":   {ID: "fin-1", Role: models.RoleFinanceValidator, Active: true},
		"dg-1":    {ID: "dg-1", Role: models.RoleGeneralDirection, Active: true},
		"admin-1": {ID: "admin-1", Role: models.RoleAdministrator, Active: true},
		"ghost-1": {ID: "ghost-1", Role: models.RoleFieldRep, SupervisingDirectorID: strPtr("dir-1"), Active: false},
	}}
	store := &stubRequestStore{requests: map[string]*models.Request{}}
	audit := &stubAudit{}
	sender := &stubNotifier{}
	svc := NewWorkflowService(store, directory, audit, sender, zap.NewNop())
	return &workflowFixture{svc: svc, store: store, audit: audit, sender: sender}
}

func (f *workflowFixture) seed(req *models.Request) *models.Request {
	if req.Amount.IsZero() {
		req.Amount = decimal.NewFromInt(1200)
	}
	if req.Purpose == "" {
		req.Purpose = "regional sales event"
	}
	if req.Kind == "" {
		req.Kind = models.KindStandard
	}
	if req.State == "" {
		req.State = models.StateDraft
	}
	f.store.requests[req.ID] = req
	return req
}

func (f *workflowFixture) current(t *testing.T, id string) *models.Request {
	t.Helper()
	req, ok := f.store.requests[id]
	require.True(t, ok)
	return req
}

func TestSubmitFieldRepRoutesToDirector(t *testing.T) {
	f := newWorkflowFixture()
	f.seed(&models.Request{ID: "req-1", CreatorID: "rep-1", CreatorRole: models.RoleFieldRep})

	resp, err := f.svc.Submit(context.Background(), "req-1", "rep-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatePendingDirector, resp.State)
	assert.Equal(t, []string{"dir-1"}, resp.Addressees)

	stored := f.current(t, "req-1")
	assert.Equal(t, models.StatePendingDirector, stored.State)
	require.NotNil(t, stored.SubmittedAt)
	assert.False(t, stored.SlotFilled(models.StageDirector))

	require.Len(t, f.audit.entries, 1)
	assert.Equal(t, models.AuditActionRequestSubmit, f.audit.entries[0].action)
	require.Len(t, f.sender.sent, 1)
	assert.Equal(t, []string{"dir-1"}, f.sender.sent[0].addressees)
}

func TestSubmitDirectorSelfValidates(t *testing.T) {
	f := newWorkflowFixture()
	f.seed(&models.Request{ID: "req-1", CreatorID: "dir-1", CreatorRole: models.RoleDirector})

	resp, err := f.svc.Submit(context.Background(), "req-1", "dir-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatePendingFinance, resp.State)
	assert.ElementsMatch(t, []string{"fin-1", "dg-1", "admin-1"}, resp.Addressees)

	stored := f.current(t, "req-1")
	slot := stored.Slot(models.StageDirector)
	require.True(t, slot.Filled())
	assert.Equal(t, "dir-1", *slot.ValidatorID)
	assert.Equal(t, SelfValidationComment, *slot.Comment)
}

func TestSubmitDirectToFinanceSkipsDirectorStage(t *testing.T) {
	f := newWorkflowFixture()
	f.seed(&models.Request{ID: "req-1", CreatorID: "rep-1", CreatorRole: models.RoleFieldRep, Kind: models.KindDirectToFinance})

	resp, err := f.svc.Submit(context.Background(), "req-1", "rep-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatePendingFinance, resp.State)
	assert.False(t, f.current(t, "req-1").SlotFilled(models.StageDirector))
}

func TestSubmitFieldRepWithoutDirectorFails(t *testing.T) {
	f := newWorkflowFixture()
	f.seed(&models.Request{ID: "req-1", CreatorID: "rep-2", CreatorRole: models.RoleFieldRep})

	_, err := f.svc.Submit(context.Background(), "req-1", "rep-2")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNoSupervisingDirector))
	assert.Equal(t, models.StateDraft, f.current(t, "req-1").State)
}

func TestSubmitGuards(t *testing.T) {
	f := newWorkflowFixture()
	f.seed(&models.Request{ID: "req-1", CreatorID: "rep-1", CreatorRole: models.RoleFieldRep})

	t.Run("only the creator may submit", func(t *testing.T) {
		_, err := f.svc.Submit(context.Background(), "req-1", "dir-1")
		assert.True(t, appErrors.Is(err, appErrors.ErrNotOwner))
	})

	t.Run("double submit conflicts", func(t *testing.T) {
		_, err := f.svc.Submit(context.Background(), "req-1", "rep-1")
		require.NoError(t, err)
		_, err = f.svc.Submit(context.Background(), "req-1", "rep-1")
		assert.True(t, appErrors.Is(err, appErrors.ErrAlreadySubmitted))
	})

	t.Run("inactive actor is refused", func(t *testing.T) {
		f := newWorkflowFixture()
		f.seed(&models.Request{ID: "req-2", CreatorID: "ghost-1", CreatorRole: models.RoleFieldRep})
		_, err := f.svc.Submit(context.Background(), "req-2", "ghost-1")
		assert.True(t, appErrors.Is(err, appErrors.ErrActorInactive))
	})

	t.Run("unknown request", func(t *testing.T) {
		_, err := f.svc.Submit(context.Background(), "missing", "rep-1")
		assert.True(t, appErrors.Is(err, appErrors.ErrRequestNotFound))
	})

	t.Run("unknown actor", func(t *testing.T) {
		_, err := f.svc.Submit(context.Background(), "req-1", "nobody")
		assert.True(t, appErrors.Is(err, appErrors.ErrActorNotFound))
	})
}

func TestValidateDirectorStageAdvancesToFinance(t *testing.T) {
	f := newWorkflowFixture()
	f.seed(&models.Request{ID: "req-1", CreatorID: "rep-1", CreatorRole: models.RoleFieldRep, State: models.StatePendingDirector})

	resp, err := f.svc.Validate(context.Background(), "req-1", "dir-1", "looks reasonable")
	require.NoError(t, err)
	assert.Equal(t, models.StatePendingFinance, resp.State)

	slot := f.current(t, "req-1").Slot(models.StageDirector)
	require.True(t, slot.Filled())
	assert.Equal(t, "dir-1", *slot.ValidatorID)
	assert.Equal(t, "looks reasonable", *slot.Comment)
}

func TestValidateDirectorStageAuthorization(t *testing.T) {
	f := newWorkflowFixture()
	f.seed(&models.Request{ID: "req-1", CreatorID: "rep-1", CreatorRole: models.RoleFieldRep, State: models.StatePendingDirector})

	cases := []struct {
		name    string
		actorID string
	}{
		{"finance validator cannot act at the director stage", "fin-1"},
		{"an unrelated director cannot validate", "dir-2"},
		{"the creator cannot validate their own director stage", "rep-1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Validate(context.Background(), "req-1", tc.actorID, "")
			assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
		})
	}
}

func TestFinanceStageApprovesInEitherOrder(t *testing.T) {
	orders := [][2]string{{"fin-1", "dg-1"}, {"dg-1", "fin-1"}}
	for _, order := range orders {
		t.Run(order[0]+" then "+order[1], func(t *testing.T) {
			f := newWorkflowFixture()
			f.seed(&models.Request{ID: "req-1", CreatorID: "rep-1", CreatorRole: models.RoleFieldRep, State: models.StatePendingFinance})

			first, err := f.svc.Validate(context.Background(), "req-1", order[0], "")
			require.NoError(t, err)
			assert.Equal(t, models.StatePendingFinance, first.State)

			second, err := f.svc.Validate(context.Background(), "req-1", order[1], "")
			require.NoError(t, err)
			assert.Equal(t, models.StateApproved, second.State)

			stored := f.current(t, "req-1")
			assert.True(t, stored.FinanceStageComplete())
		})
	}
}

func TestValidateSameRoleTwiceConflicts(t *testing.T) {
	f := newWorkflowFixture()
	f.seed(&models.Request{ID: "req-1", CreatorID: "rep-1", CreatorRole: models.RoleFieldRep, State: models.StatePendingFinance})

	_, err := f.svc.Validate(context.Background(), "req-1", "fin-1", "")
	require.NoError(t, err)
	_, err = f.svc.Validate(context.Background(), "req-1", "fin-1", "")
	assert.True(t, appErrors.Is(err, appErrors.ErrAlreadyValidated))
}

func TestAdministratorFillsFinanceSlotFirst(t *testing.T) {
	f := newWorkflowFixture()
	f.seed(&models.Request{ID: "req-1", CreatorID: "rep-1", CreatorRole: models.RoleFieldRep, State: models.StatePendingFinance})

	first, err := f.svc.Validate(context.Background(), "req-1", "admin-1", "")
	require.NoError(t, err)
	assert.Equal(t, models.StatePendingFinance, first.State)
	assert.True(t, f.current(t, "req-1").SlotFilled(models.StageFinance))
	assert.False(t, f.current(t, "req-1").SlotFilled(models.StageGeneralDirection))

	second, err := f.svc.Validate(context.Background(), "req-1", "admin-1", "")
	require.NoError(t, err)
	assert.Equal(t, models.StateApproved, second.State)

	_, err = f.svc.Validate(context.Background(), "req-1", "admin-1", "")
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidState))
}

func TestValidateUsesDefaultCommentWhenEmpty(t *testing.T) {
	f := newWorkflowFixture()
	f.seed(&models.Request{ID: "req-1", CreatorID: "rep-1", CreatorRole: models.RoleFieldRep, State: models.StatePendingFinance})

	_, err := f.svc.Validate(context.Background(), "req-1", "fin-1", "   ")
	require.NoError(t, err)

	slot := f.current(t, "req-1").Slot(models.StageFinance)
	require.True(t, slot.Filled())
	assert.Equal(t, defaultValidationComments[models.StageFinance], *slot.Comment)
}

func TestRejectRequiresComment(t *testing.T) {
	f := newWorkflowFixture()
	f.seed(&models.Request{ID: "req-1", CreatorID: "rep-1", CreatorRole: models.RoleFieldRep, State: models.StatePendingFinance})

	_, err := f.svc.Reject(context.Background(), "req-1", "fin-1", "  ")
	assert.True(t, appErrors.Is(err, appErrors.ErrRejectionCommentRequired))
	assert.Equal(t, models.StatePendingFinance, f.current(t, "req-1").State)
}

func TestRejectRecordsSlotAndTerminates(t *testing.T) {
	f := newWorkflowFixture()
	f.seed(&models.Request{ID: "req-1", CreatorID: "rep-1", CreatorRole: models.RoleFieldRep, State: models.StatePendingDirector})

	resp, err := f.svc.Reject(context.Background(), "req-1", "dir-1", "budget exhausted for Q3")
	require.NoError(t, err)
	assert.Equal(t, models.StateRejected, resp.State)

	stored := f.current(t, "req-1")
	slot := stored.Slot(models.StageDirector)
	require.True(t, slot.Filled())
	assert.Equal(t, "budget exhausted for Q3", *slot.Comment)

	_, err = f.svc.Validate(context.Background(), "req-1", "fin-1", "")
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidState))

	require.NotEmpty(t, f.sender.sent)
	assert.Equal(t, []string{"rep-1"}, f.sender.sent[len(f.sender.sent)-1].addressees)
}

func TestRejectAtFinanceStageFillsActingRoleSlot(t *testing.T) {
	f := newWorkflowFixture()
	f.seed(&models.Request{ID: "req-1", CreatorID: "rep-1", CreatorRole: models.RoleFieldRep, State: models.StatePendingFinance})

	_, err := f.svc.Validate(context.Background(), "req-1", "fin-1", "")
	require.NoError(t, err)

	_, err = f.svc.Reject(context.Background(), "req-1", "dg-1", "scope too broad")
	require.NoError(t, err)

	stored := f.current(t, "req-1")
	assert.Equal(t, models.StateRejected, stored.State)
	assert.Equal(t, "scope too broad", *stored.Slot(models.StageGeneralDirection).Comment)
	// the earlier finance validation remains on record
	require.True(t, stored.SlotFilled(models.StageFinance))
	assert.Equal(t, "fin-1", *stored.Slot(models.StageFinance).ValidatorID)
}

func TestRecallReturnsToDraftKeepingSlots(t *testing.T) {
	f := newWorkflowFixture()
	f.seed(&models.Request{ID: "req-1", CreatorID: "rep-1", CreatorRole: models.RoleFieldRep, State: models.StatePendingDirector})

	_, err := f.svc.Validate(context.Background(), "req-1", "dir-1", "")
	require.NoError(t, err)

	require.NoError(t, f.svc.Recall(context.Background(), "req-1", "rep-1", "amount needs revising"))

	stored := f.current(t, "req-1")
	assert.Equal(t, models.StateDraft, stored.State)
	require.NotNil(t, stored.RecallReason)
	assert.Equal(t, "amount needs revising", *stored.RecallReason)
	assert.True(t, stored.SlotFilled(models.StageDirector))
}

func TestResubmitAfterRecallSkipsValidatedStage(t *testing.T) {
	f := newWorkflowFixture()
	f.seed(&models.Request{ID: "req-1", CreatorID: "rep-1", CreatorRole: models.RoleFieldRep, State: models.StatePendingDirector})

	_, err := f.svc.Validate(context.Background(), "req-1", "dir-1", "")
	require.NoError(t, err)
	require.NoError(t, f.svc.Recall(context.Background(), "req-1", "rep-1", "typo in purpose"))

	resp, err := f.svc.Submit(context.Background(), "req-1", "rep-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatePendingFinance, resp.State)
	assert.Nil(t, f.current(t, "req-1").RecallReason)
}

func TestRecallGuards(t *testing.T) {
	f := newWorkflowFixture()
	f.seed(&models.Request{ID: "req-1", CreatorID: "rep-1", CreatorRole: models.RoleFieldRep, State: models.StatePendingDirector})
	f.seed(&models.Request{ID: "req-2", CreatorID: "rep-1", CreatorRole: models.RoleFieldRep, State: models.StateApproved})

	t.Run("only the creator may recall", func(t *testing.T) {
		err := f.svc.Recall(context.Background(), "req-1", "dir-1", "")
		assert.True(t, appErrors.Is(err, appErrors.ErrNotOwner))
	})

	t.Run("terminal states cannot be recalled", func(t *testing.T) {
		err := f.svc.Recall(context.Background(), "req-2", "rep-1", "")
		assert.True(t, appErrors.Is(err, appErrors.ErrInvalidState))
	})
}

func TestCanValidate(t *testing.T) {
	f := newWorkflowFixture()
	f.seed(&models.Request{ID: "req-1", CreatorID: "rep-1", CreatorRole: models.RoleFieldRep, State: models.StatePendingDirector})
	f.seed(&models.Request{ID: "req-2", CreatorID: "rep-1", CreatorRole: models.RoleFieldRep, State: models.StatePendingFinance})

	cases := []struct {
		name      string
		requestID string
		actorID   string
		want      bool
	}{
		{"supervising director at director stage", "req-1", "dir-1", true},
		{"unrelated director at director stage", "req-1", "dir-2", false},
		{"finance validator at director stage", "req-1", "fin-1", false},
		{"finance validator at finance stage", "req-2", "fin-1", true},
		{"general direction at finance stage", "req-2", "dg-1", true},
		{"administrator at finance stage", "req-2", "admin-1", true},
		{"field rep never validates", "req-2", "rep-1", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := f.svc.CanValidate(context.Background(), tc.requestID, tc.actorID)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	t.Run("a role with its slot already filled gets false", func(t *testing.T) {
		_, err := f.svc.Validate(context.Background(), "req-2", "fin-1", "")
		require.NoError(t, err)
		got, err := f.svc.CanValidate(context.Background(), "req-2", "fin-1")
		require.NoError(t, err)
		assert.False(t, got)
	})
}

func TestStoreFailuresSurfaceAsRetryable(t *testing.T) {
	f := newWorkflowFixture()
	f.seed(&models.Request{ID: "req-1", CreatorID: "rep-1", CreatorRole: models.RoleFieldRep})
	f.store.txErr = errors.New("connection reset")

	_, err := f.svc.Submit(context.Background(), "req-1", "rep-1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrStoreUnavailable))
}
