package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mlefebvre/budget-approval-api/internal/dto"
	"github.com/mlefebvre/budget-approval-api/internal/models"
	appErrors "github.com/mlefebvre/budget-approval-api/pkg/errors"
	"github.com/mlefebvre/budget-approval-api/pkg/export"
	"github.com/mlefebvre/budget-approval-api/pkg/response"
)

type requestManager interface {
	Create(ctx context.Context, actorID string, input dto.CreateRequestRequest) (*dto.RequestDetail, error)
	Get(ctx context.Context, actorID, requestID string) (*dto.RequestDetail, error)
	List(ctx context.Context, actorID string, query dto.RequestQuery) ([]models.Request, error)
}

type workflowEngine interface {
	Submit(ctx context.Context, requestID, actorID string) (*dto.SubmitResponse, error)
	Validate(ctx context.Context, requestID, actorID, comment string) (*dto.TransitionResponse, error)
	Reject(ctx context.Context, requestID, actorID, comment string) (*dto.TransitionResponse, error)
	Recall(ctx context.Context, requestID, actorID, reason string) error
	CanValidate(ctx context.Context, requestID, actorID string) (bool, error)
}

type auditTrail interface {
	Trail(ctx context.Context, requestID string) ([]models.AuditLog, error)
}

type receiptRenderer interface {
	Render(data export.Dataset, title string, summary []string) ([]byte, error)
}

// RequestHandler exposes the spending request API.
type RequestHandler struct {
	requests requestManager
	engine   workflowEngine
	audit    auditTrail
	receipts receiptRenderer
	logger   *zap.Logger
}

// NewRequestHandler constructs the handler. A nil receipts renderer disables
// the receipt endpoint.
func NewRequestHandler(requests requestManager, engine workflowEngine, audit auditTrail, receipts receiptRenderer, logger *zap.Logger) *RequestHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RequestHandler{
		requests: requests,
		engine:   engine,
		audit:    audit,
		receipts: receipts,
		logger:   logger,
	}
}

// Create opens a new draft.
func (h *RequestHandler) Create(c *gin.Context) {
	claims, ok := claimsFrom(c)
	if !ok {
		return
	}

	var input dto.CreateRequestRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}

	detail, err := h.requests.Create(c.Request.Context(), claims.ActorID, input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, detail)
}

// Get returns one request with its validation slots.
func (h *RequestHandler) Get(c *gin.Context) {
	claims, ok := claimsFrom(c)
	if !ok {
		return
	}

	detail, err := h.requests.Get(c.Request.Context(), claims.ActorID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// List returns the requests visible to the actor.
func (h *RequestHandler) List(c *gin.Context) {
	claims, ok := claimsFrom(c)
	if !ok {
		return
	}

	query := parseRequestQuery(c)
	requests, err := h.requests.List(c.Request.Context(), claims.ActorID, query)
	if err != nil {
		response.Error(c, err)
		return
	}

	pagination := &models.Pagination{
		Page:       query.Page,
		PageSize:   query.Limit,
		TotalCount: len(requests),
	}
	response.JSON(c, http.StatusOK, requests, pagination)
}

// Submit pushes a draft into the approval chain.
func (h *RequestHandler) Submit(c *gin.Context) {
	claims, ok := claimsFrom(c)
	if !ok {
		return
	}

	resp, err := h.engine.Submit(c.Request.Context(), c.Param("id"), claims.ActorID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}

// Validate records the acting role's approval.
func (h *RequestHandler) Validate(c *gin.Context) {
	claims, ok := claimsFrom(c)
	if !ok {
		return
	}

	var input dto.ValidateRequestRequest
	if err := c.ShouldBindJSON(&input); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}

	resp, err := h.engine.Validate(c.Request.Context(), c.Param("id"), claims.ActorID, input.Comment)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}

// Reject terminates the request with a mandatory reason.
func (h *RequestHandler) Reject(c *gin.Context) {
	claims, ok := claimsFrom(c)
	if !ok {
		return
	}

	var input dto.RejectRequestRequest
	if err := c.ShouldBindJSON(&input); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}

	resp, err := h.engine.Reject(c.Request.Context(), c.Param("id"), claims.ActorID, input.Comment)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}

// Recall pulls a pending request back to draft.
func (h *RequestHandler) Recall(c *gin.Context) {
	claims, ok := claimsFrom(c)
	if !ok {
		return
	}

	var input dto.RecallRequestRequest
	if err := c.ShouldBindJSON(&input); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}

	if err := h.engine.Recall(c.Request.Context(), c.Param("id"), claims.ActorID, input.Reason); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// CanValidate answers the UI gating question without mutating anything.
func (h *RequestHandler) CanValidate(c *gin.Context) {
	claims, ok := claimsFrom(c)
	if !ok {
		return
	}

	can, err := h.engine.CanValidate(c.Request.Context(), c.Param("id"), claims.ActorID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.CanValidateResponse{CanValidate: can}, nil)
}

// Receipt renders the approval trail as a PDF document.
func (h *RequestHandler) Receipt(c *gin.Context) {
	claims, ok := claimsFrom(c)
	if !ok {
		return
	}
	if h.receipts == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "receipts are disabled"))
		return
	}

	ctx := c.Request.Context()
	detail, err := h.requests.Get(ctx, claims.ActorID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	summary := receiptSummary(detail.Request)
	if h.audit != nil {
		trail, err := h.audit.Trail(ctx, detail.Request.ID)
		if err != nil {
			h.logger.Warn("audit trail unavailable for receipt", zap.String("request_id", detail.Request.ID), zap.Error(err))
		} else {
			for _, event := range trail {
				actor := ""
				if event.ActorID != nil {
					actor = " by " + *event.ActorID
				}
				summary = append(summary, fmt.Sprintf("%s %s%s", event.CreatedAt.Format("2006-01-02 15:04"), event.Action, actor))
			}
		}
	}

	pdf, err := h.receipts.Render(receiptDataset(detail.Request), "Approval receipt", summary)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "receipt rendering failed"))
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="request-%s.pdf"`, detail.Request.ID))
	c.Data(http.StatusOK, "application/pdf", pdf)
}

func receiptSummary(req *models.Request) []string {
	lines := []string{
		fmt.Sprintf("Request: %s", req.ID),
		fmt.Sprintf("Purpose: %s", req.Purpose),
		fmt.Sprintf("Amount: %s", req.Amount.StringFixed(2)),
		fmt.Sprintf("Kind: %s", req.Kind),
		fmt.Sprintf("State: %s", req.State),
	}
	if req.SubmittedAt != nil {
		lines = append(lines, fmt.Sprintf("Submitted: %s", req.SubmittedAt.Format("2006-01-02 15:04")))
	}
	return lines
}

func receiptDataset(req *models.Request) export.Dataset {
	headers := []string{"Stage", "Validator", "Validated at", "Comment"}
	stages := []models.ValidationStage{models.StageDirector, models.StageFinance, models.StageGeneralDirection}

	rows := make([]map[string]string, 0, len(stages))
	for _, stage := range stages {
		slot := req.Slot(stage)
		row := map[string]string{"Stage": string(stage)}
		if slot.Filled() {
			row["Validator"] = *slot.ValidatorID
			if slot.ValidatedAt != nil {
				row["Validated at"] = slot.ValidatedAt.Format("2006-01-02 15:04")
			}
			if slot.Comment != nil {
				row["Comment"] = *slot.Comment
			}
		}
		rows = append(rows, row)
	}
	return export.Dataset{Headers: headers, Rows: rows}
}

func parseRequestQuery(c *gin.Context) dto.RequestQuery {
	query := dto.RequestQuery{Page: 1, Limit: 50}

	if raw := c.Query("state"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			trimmed := strings.TrimSpace(part)
			if trimmed != "" {
				query.States = append(query.States, models.RequestState(strings.ToUpper(trimmed)))
			}
		}
	}
	if raw := c.Query("kind"); raw != "" {
		query.Kind = models.RequestKind(strings.ToUpper(strings.TrimSpace(raw)))
	}
	if raw := c.Query("page"); raw != "" {
		if page, err := strconv.Atoi(raw); err == nil && page > 0 {
			query.Page = page
		}
	}
	if raw := c.Query("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil && limit > 0 {
			query.Limit = limit
		}
	}
	return query
}
