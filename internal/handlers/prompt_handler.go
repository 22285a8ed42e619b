package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dadok-care/survey-engine/internal/client"
	"github.com/dadok-care/survey-engine/internal/identity"
	"github.com/dadok-care/survey-engine/internal/services"
	"github.com/dadok-care/survey-engine/internal/utils"
	"github.com/gin-gonic/gin"
)

// PromptHandler exposes the survey prompt engine to the thin UI clients
// (extension content script, result viewer). It owns no survey logic; it
// resolves identity, delegates, and translates engine errors to responses.
type PromptHandler struct {
	BaseHandler
	promptService services.PromptService
	exportService services.ExportService
	identities    *identity.Chain
}

func NewPromptHandler(
	promptService services.PromptService,
	exportService services.ExportService,
	identities *identity.Chain,
	logger utils.Logger,
) *PromptHandler {
	return &PromptHandler{
		BaseHandler:   NewBaseHandler(logger),
		promptService: promptService,
		exportService: exportService,
		identities:    identities,
	}
}

// resolveUserID walks the identity fallback chain: the X-USER-ID header
// first, then token-based providers, then the configured default. An empty
// result is passed through; the backend client applies its own final
// fallback so the UI is never blocked on identity.
func (h *PromptHandler) resolveUserID(c *gin.Context) string {
	if userID := strings.TrimSpace(c.GetHeader("X-USER-ID")); userID != "" {
		return userID
	}

	ctx := c.Request.Context()
	if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		ctx = identity.WithToken(ctx, strings.TrimPrefix(auth, "Bearer "))
	}

	userID, err := h.identities.Resolve(ctx)
	if err != nil {
		if !errors.Is(err, identity.ErrNoIdentity) {
			h.LogError(c, err, "identity resolution failed")
		}
		return ""
	}
	return userID
}

// GetNextQuestion returns the question the UI should prompt with next.
func (h *PromptHandler) GetNextQuestion(c *gin.Context) {
	h.LogRequest(c, "Selecting next question")

	userID := h.resolveUserID(c)

	result, err := h.promptService.NextQuestion(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, services.ErrNoQuestions) {
			c.JSON(http.StatusOK, SuccessResponse{
				Message: "no questions available right now",
				Data:    services.NextQuestionResult{},
			})
			return
		}
		h.respondEngineError(c, err, "Failed to load next question")
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Data: result})
}

// SubmitAnswer records one answer.
func (h *PromptHandler) SubmitAnswer(c *gin.Context) {
	h.LogRequest(c, "Submitting answer")

	var req services.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	userID := h.resolveUserID(c)

	result, err := h.promptService.Submit(c.Request.Context(), userID, &req)
	if err != nil {
		h.respondEngineError(c, err, "Failed to submit answer")
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: result.Message, Data: result})
}

// GetProgress returns the session progress snapshot.
func (h *PromptHandler) GetProgress(c *gin.Context) {
	userID := h.resolveUserID(c)
	c.JSON(http.StatusOK, SuccessResponse{Data: h.promptService.Progress(userID)})
}

// ResetSurvey clears the caller's answered-question registry and starts a
// fresh session.
func (h *PromptHandler) ResetSurvey(c *gin.Context) {
	h.LogRequest(c, "Resetting survey")

	userID := h.resolveUserID(c)
	if err := h.promptService.ResetSurvey(c.Request.Context(), userID); err != nil {
		h.respondEngineError(c, err, "Failed to reset survey")
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "survey reset"})
}

// ExportHistory streams the caller's answer history in the requested format.
func (h *PromptHandler) ExportHistory(c *gin.Context) {
	h.LogRequest(c, "Exporting answer history")

	format, err := services.ParseExportFormat(c.Query("format"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid export format",
			Details: err.Error(),
		})
		return
	}

	userID := h.resolveUserID(c)

	data, err := h.exportService.ExportHistory(c.Request.Context(), userID, format)
	if err != nil {
		h.respondEngineError(c, err, "Failed to export answer history")
		return
	}

	filename := fmt.Sprintf("answer-history-%s.%s", time.Now().Format("2006-01-02"), format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, format.ContentType(), data)
}

// respondEngineError translates the engine's error taxonomy into HTTP
// responses. Raw transport errors never reach the client; each class keeps
// a distinct status so the UI can offer the right affordance.
func (h *PromptHandler) respondEngineError(c *gin.Context, err error, message string) {
	h.LogError(c, err, message)

	switch {
	case services.IsValidation(err):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: err.Error(),
			Code:    "validation_error",
		})

	case errors.Is(err, services.ErrSubmissionInFlight):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: err.Error(),
			Code:    "submission_in_flight",
		})

	case client.IsUnreachable(err):
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Message: err.Error(),
			Code:    "server_unreachable",
		})

	case client.IsNotFound(err):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: err.Error(),
			Code:    "not_found",
		})

	case client.IsBadRequest(err):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: err.Error(),
			Code:    "bad_request",
		})

	case client.IsParseError(err):
		c.JSON(http.StatusBadGateway, ErrorResponse{
			Message: err.Error(),
			Code:    "malformed_response",
		})

	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: message,
			Details: err.Error(),
		})
	}
}
