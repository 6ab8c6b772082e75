package handler

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	apptransition "github.com/itam/backend/internal/application/transition"
	"github.com/itam/backend/internal/domain/shared"
	"github.com/itam/backend/internal/domain/transition"
	"github.com/itam/backend/internal/infrastructure/logger"
	"github.com/itam/backend/internal/infrastructure/storage"
	"github.com/itam/backend/internal/interfaces/http/dto"
	"github.com/itam/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// TransitionsPath is where the transition routes are mounted
const TransitionsPath = "/api/v1/assets/transitions"

// TransitionService runs transition requests
type TransitionService interface {
	Prepare(ctx context.Context, req apptransition.PrepareRequest) (*apptransition.Validation, error)
	Submit(ctx context.Context, req apptransition.SubmitRequest) (*apptransition.SubmitResult, error)
}

// HistoryReader reads transition history
type HistoryReader interface {
	List(ctx context.Context, f apptransition.HistoryFilter) (*shared.Paginated[transition.TransitionHistory], error)
	Get(ctx context.Context, id uuid.UUID) (*transition.TransitionHistory, error)
	Report(ctx context.Context, id uuid.UUID) (*apptransition.ReportFile, error)
}

// ReportPresigner hands out temporary download URLs for archived reports
type ReportPresigner interface {
	DownloadURL(ctx context.Context, location string) (string, time.Time, error)
}

// ReportPathResolver maps an archived report location to a local file
type ReportPathResolver interface {
	Path(location string) (string, error)
}

// TransitionHandler handles the asset transition endpoints
type TransitionHandler struct {
	BaseHandler
	transitions TransitionService
	history     HistoryReader
	presigner   ReportPresigner
	localFiles  ReportPathResolver
}

// TransitionHandlerOption configures a TransitionHandler
type TransitionHandlerOption func(*TransitionHandler)

// WithReportPresigner serves s3:// archived reports through presigned URLs
func WithReportPresigner(p ReportPresigner) TransitionHandlerOption {
	return func(h *TransitionHandler) {
		h.presigner = p
	}
}

// WithLocalReportArchive serves file:// archived reports from disk
func WithLocalReportArchive(r ReportPathResolver) TransitionHandlerOption {
	return func(h *TransitionHandler) {
		h.localFiles = r
	}
}

// NewTransitionHandler creates a new TransitionHandler
func NewTransitionHandler(transitions TransitionService, history HistoryReader, opts ...TransitionHandlerOption) *TransitionHandler {
	h := &TransitionHandler{
		transitions: transitions,
		history:     history,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Prepare godoc
// @Summary      Check a transition
// @Description  Runs the precondition checks of a transition on the selected assets and describes the form to show
// @Tags         transitions
// @Produce      json
// @Param        transition_type query string true "release-asset, return-asset or loan-asset"
// @Param        select query []string true "Asset IDs" collectionFormat(multi)
// @Success      200 {object} APIResponse[TransitionPrepareResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /assets/transitions [get]
func (h *TransitionHandler) Prepare(c *gin.Context) {
	assetIDs, ok := h.selectedAssets(c)
	if !ok {
		return
	}

	v, err := h.transitions.Prepare(c.Request.Context(), apptransition.PrepareRequest{
		TransitionType: c.Query("transition_type"),
		AssetIDs:       assetIDs,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if !v.Ready() {
		c.JSON(http.StatusUnprocessableEntity, dto.NewRejectionResponse(
			"Transition cannot be performed", getRequestID(c), v.Errors, v.FieldErrors))
		return
	}

	h.Success(c, toPrepareResponse(v))
}

// Submit godoc
// @Summary      Perform a transition
// @Description  Validates the form and runs the transition on the selected assets in one transaction
// @Tags         transitions
// @Accept       json
// @Produce      json
// @Param        transition_type query string true "release-asset, return-asset or loan-asset"
// @Param        select query []string true "Asset IDs" collectionFormat(multi)
// @Param        Idempotency-Key header string false "Client chosen key guarding against double submits"
// @Param        request body TransitionSubmitRequest false "Transition form"
// @Success      200 {object} APIResponse[TransitionSubmitResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /assets/transitions [post]
func (h *TransitionHandler) Submit(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	assetIDs, ok := h.selectedAssets(c)
	if !ok {
		return
	}

	var req TransitionSubmitRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			middleware.HandleBindingError(c, err)
			return
		}
	}

	ctx := c.Request.Context()
	result, err := h.transitions.Submit(ctx, apptransition.SubmitRequest{
		TransitionType: c.Query("transition_type"),
		AssetIDs:       assetIDs,
		LoggedUserID:   userID,
		Form: apptransition.TransitionForm{
			UserID:      req.UserID,
			WarehouseID: req.WarehouseID,
		},
	})
	if err != nil {
		var domainErr *shared.DomainError
		if errors.As(err, &domainErr) {
			h.HandleError(c, err)
			return
		}
		logger.L(ctx).Error("Transition failed",
			zap.String("transition_type", c.Query("transition_type")),
			zap.Int("assets", len(assetIDs)),
			zap.Error(err))
		h.ErrorWithCode(c, dto.ErrCodeTransitionFailed, "Transition failed")
		return
	}
	if !result.Succeeded() {
		c.JSON(http.StatusUnprocessableEntity, dto.NewRejectionResponse(
			apptransition.MsgCorrectErrors, getRequestID(c), result.Messages, result.Validation.FieldErrors))
		return
	}

	h.Success(c, toSubmitResponse(result))
}

// ListHistory godoc
// @Summary      List transition history
// @Description  Lists performed transitions, newest first
// @Tags         transitions
// @Produce      json
// @Param        transition_id query string false "Transition ID"
// @Param        asset_id query string false "Asset ID"
// @Param        logged_user_id query string false "User who performed the transition"
// @Param        affected_user_id query string false "User the assets were given to or taken from"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Param        order_dir query string false "asc or desc" default(desc)
// @Success      200 {object} APIResponse[[]TransitionHistoryResponse]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /assets/transitions/history [get]
func (h *TransitionHandler) ListHistory(c *gin.Context) {
	var q HistoryListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		middleware.HandleBindingError(c, err)
		return
	}

	page, err := h.history.List(c.Request.Context(), q.toFilter())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	items := make([]TransitionHistoryResponse, len(page.Items))
	for i := range page.Items {
		items[i] = toHistoryResponse(&page.Items[i])
	}
	h.SuccessWithMeta(c, items, page.Total, page.Page, page.PageSize)
}

// GetHistory godoc
// @Summary      Get a transition history record
// @Tags         transitions
// @Produce      json
// @Param        id path string true "History ID"
// @Success      200 {object} APIResponse[TransitionHistoryResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /assets/transitions/history/{id} [get]
func (h *TransitionHandler) GetHistory(c *gin.Context) {
	id, ok := h.historyID(c)
	if !ok {
		return
	}

	record, err := h.history.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toHistoryResponse(record))
}

// DownloadReport godoc
// @Summary      Download the report of a transition
// @Description  Redirects to the archived report or sends the generated file
// @Tags         transitions
// @Produce      application/pdf
// @Param        id path string true "History ID"
// @Success      200 {file} binary
// @Success      302
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /assets/transitions/history/{id}/report [get]
func (h *TransitionHandler) DownloadReport(c *gin.Context) {
	id, ok := h.historyID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	report, err := h.history.Report(ctx, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	if !report.Archived {
		h.sendFile(c, report.Location, report.FileName)
		return
	}

	switch {
	case strings.HasPrefix(report.Location, storage.S3Scheme) && h.presigner != nil:
		url, _, err := h.presigner.DownloadURL(ctx, report.Location)
		if err != nil {
			logger.L(ctx).Error("Failed to presign report download",
				zap.String("history_id", id.String()),
				zap.Error(err))
			h.InternalError(c, "Report download is unavailable")
			return
		}
		c.Redirect(http.StatusFound, url)
	case strings.HasPrefix(report.Location, storage.FileScheme) && h.localFiles != nil:
		path, err := h.localFiles.Path(report.Location)
		if err != nil {
			logger.L(ctx).Error("Invalid archived report location",
				zap.String("history_id", id.String()),
				zap.Error(err))
			h.InternalError(c, "Report download is unavailable")
			return
		}
		h.sendFile(c, path, report.FileName)
	default:
		h.ErrorWithCode(c, dto.ErrCodeNoReport, "Report archive is not available")
	}
}

func (h *TransitionHandler) sendFile(c *gin.Context, path, fileName string) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		h.ErrorWithCode(c, dto.ErrCodeNoReport, "Report file is no longer available")
		return
	}
	c.FileAttachment(path, fileName)
}

// selectedAssets reads the select query parameter. Both repeated parameters
// and comma separated lists are accepted.
func (h *TransitionHandler) selectedAssets(c *gin.Context) ([]uuid.UUID, bool) {
	var ids []uuid.UUID
	for _, raw := range c.QueryArray("select") {
		for part := range strings.SplitSeq(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := uuid.Parse(part)
			if err != nil {
				h.BadRequest(c, "Invalid asset id: "+part)
				return nil, false
			}
			ids = append(ids, id)
		}
	}
	return ids, true
}

func (h *TransitionHandler) historyID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid history id")
		return uuid.Nil, false
	}
	return id, true
}

func reportLink(historyID uuid.UUID) string {
	return TransitionsPath + "/history/" + historyID.String() + "/report"
}
