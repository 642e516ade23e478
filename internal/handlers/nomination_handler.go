package handlers

import (
	"database/sql"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/excellence-awards/nomination-flow/internal/interfaces"
	"github.com/excellence-awards/nomination-flow/internal/models"
	"github.com/excellence-awards/nomination-flow/internal/payment"
	"github.com/excellence-awards/nomination-flow/internal/service"
	"github.com/excellence-awards/nomination-flow/internal/telemetry"
)

type NominationHandler struct {
	coord   *service.Coordinator
	journal interfaces.FlowJournal
}

func NewNominationHandler(coord *service.Coordinator, journal interfaces.FlowJournal) *NominationHandler {
	return &NominationHandler{coord: coord, journal: journal}
}

type submitRequest struct {
	models.NominationForm
	Session string `json:"session"`
}

func (h *NominationHandler) SubmitNomination(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		telemetry.Logger.Error("Error decoding nomination form", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	session := req.Session
	if session == "" {
		session = uuid.NewString()
	}

	result, err := h.coord.SubmitNomination(c.Request.Context(), session, req.NominationForm)
	if err != nil {
		respondFlowError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"nominationId": result.NominationID,
		"session":      result.Session,
		"state":        result.State,
	})
}

// BeginCheckout answers with the auto-submitting redirect page; returning it
// to the browser is the navigation to the hosted payment page.
func (h *NominationHandler) BeginCheckout(c *gin.Context) {
	nominationID := c.Param("id")
	session := c.Query("session")

	ps, err := h.coord.BeginCheckout(c.Request.Context(), session, nominationID)
	if err != nil {
		respondFlowError(c, err)
		return
	}

	page, err := payment.BuildRedirectPage(ps)
	if err != nil {
		telemetry.Logger.Error("Error rendering redirect page",
			zap.String("nomination_id", nominationID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to render payment redirect"})
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
}

func (h *NominationHandler) GetFlowState(c *gin.Context) {
	if h.journal == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "flow state journal not configured"})
		return
	}

	nominationID := c.Param("id")

	info, err := h.journal.GetByNominationID(c.Request.Context(), nominationID)
	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"error": "Nomination flow state not found"})
		return
	}

	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch flow state"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"nomination_id":  nominationID,
		"state":          info.State,
		"previous_state": info.PreviousState,
		"decision":       info.Decision,
		"created_at":     info.CreatedAt,
		"updated_at":     info.UpdatedAt,
	})
}

func respondFlowError(c *gin.Context, err error) {
	kind := models.ErrKind(err)
	switch kind {
	case models.KindValidation:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": kind})
	case models.KindNetwork, models.KindInvalidResponse, models.KindServer:
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "kind": kind})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
