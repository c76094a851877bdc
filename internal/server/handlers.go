package server

import (
	"errors"
	"io"
	"net/http"
	"sort"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Skufu/NutriPredict/internal/assessment"
	"github.com/Skufu/NutriPredict/internal/contract"
	"github.com/Skufu/NutriPredict/internal/prediction"
	"github.com/Skufu/NutriPredict/internal/screening"
	"github.com/Skufu/NutriPredict/internal/session"
)

type handlers struct {
	sessions *session.Manager
	audit    AssessmentLister
	logger   *zap.Logger
}

type createSessionRequest struct {
	ContractVersion contract.Version `json:"contract_version"`
}

func (h *handlers) createSession(c *gin.Context) {
	var req createSessionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
			return
		}
	}

	s, err := h.sessions.Create(req.ContractVersion)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, s.Snapshot())
}

func (h *handlers) getSession(c *gin.Context) {
	s, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.Snapshot())
}

// updateProfile applies {"field": value, ...}. Fields are applied in sorted
// order, all or nothing.
func (h *handlers) updateProfile(c *gin.Context) {
	s, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}

	var body map[string]float64
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	names := make([]string, 0, len(body))
	for name := range body {
		names = append(names, name)
	}
	sort.Strings(names)

	changes := make([]session.Change, 0, len(names))
	for _, name := range names {
		field, err := assessment.ParseField(name)
		if err != nil {
			h.fail(c, err)
			return
		}
		changes = append(changes, session.Change{Field: field, Value: body[name]})
	}

	if err := s.Update(changes); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.Snapshot())
}

func (h *handlers) predict(c *gin.Context) {
	s, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}

	if _, err := s.Submit(c.Request.Context()); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.Snapshot())
}

func (h *handlers) endSession(c *gin.Context) {
	if err := h.sessions.End(c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) listAssessments(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return
	}

	records, err := h.audit.ListSession(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"assessments": records})
}

// mockPredict answers like the hosted model so the pipeline can run without
// it.
func (h *handlers) mockPredict(c *gin.Context) {
	var req screening.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	if problems := req.Validate(); len(problems) > 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   "validation_failed",
			"details": problems,
		})
		return
	}

	c.JSON(http.StatusOK, screening.Evaluate(req))
}

func (h *handlers) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
	case errors.Is(err, session.ErrTooManySessions):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "too many active sessions"})
	case errors.Is(err, session.ErrEnded):
		c.JSON(http.StatusGone, gin.H{"error": "session ended"})
	case errors.Is(err, session.ErrSuperseded):
		c.JSON(http.StatusConflict, gin.H{"error": "superseded by a newer submission"})
	case errors.Is(err, prediction.ErrUnreachable):
		c.JSON(http.StatusBadGateway, gin.H{"error": prediction.UnreachableMessage})
	case errors.Is(err, assessment.ErrUnknownField),
		errors.Is(err, assessment.ErrInvalidValue),
		errors.Is(err, session.ErrFieldNotExposed),
		errors.Is(err, contract.ErrUnknownVersion):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
