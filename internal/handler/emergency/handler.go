// Package emergency exposes emergency filing and dispatch over HTTP.
package emergency

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/semcare/triage-api/internal/emergency"
	"github.com/semcare/triage-api/internal/handler"
	"github.com/semcare/triage-api/internal/middleware"
	"github.com/semcare/triage-api/internal/model"
	"github.com/semcare/triage-api/internal/repository"
	apperrors "github.com/semcare/triage-api/pkg/errors"
	"github.com/semcare/triage-api/pkg/logger"
)

type Handler struct {
	coordinator *emergency.Coordinator
	outboxRepo  repository.OutboxRepository
	logger      *logger.Logger
}

func NewHandler(coordinator *emergency.Coordinator, outboxRepo repository.OutboxRepository, logger *logger.Logger) *Handler {
	return &Handler{
		coordinator: coordinator,
		outboxRepo:  outboxRepo,
		logger:      logger,
	}
}

type fileRequestBody struct {
	PatientID string   `json:"patient_id"`
	Location  string   `json:"location" binding:"required"`
	Symptoms  []string `json:"symptoms"`
}

type assignBody struct {
	ETAMinutes int `json:"eta_minutes" binding:"min=0"`
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, auth *middleware.AuthMiddleware) {
	emergencies := r.Group("/emergencies")
	{
		emergencies.POST("", h.FileRequest)

		dispatch := emergencies.Group("")
		dispatch.Use(auth.RequireRoles(model.RoleAmbulance, model.RoleHospital, model.RoleAdmin))
		{
			dispatch.GET("", h.List)
			dispatch.POST("/:id/assign", h.Assign)
			dispatch.POST("/:id/advance", h.Advance)
			dispatch.GET("/:id/summary", h.PatientSummary)
		}

		emergencies.GET("/:id", h.Get)
	}
}

// FileRequest creates a pending emergency. Patients always file for
// themselves; licensed roles and admin may file on behalf of a patient.
func (h *Handler) FileRequest(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.Failure("no authenticated actor"))
		return
	}

	var body fileRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, handler.Failure(err.Error()))
		return
	}

	patientID := body.PatientID
	if actor.Role == model.RolePatient {
		patientID = actor.SubjectPatientID
	}

	req, err := h.coordinator.FileRequest(c.Request.Context(), patientID, body.Location, body.Symptoms)
	if err != nil {
		c.Error(err)
		return
	}

	h.enqueueEvent(c, model.EventEmergencyCreated, req)
	c.JSON(http.StatusCreated, handler.Success(req))
}

func (h *Handler) List(c *gin.Context) {
	c.JSON(http.StatusOK, handler.Success(h.coordinator.List(c.Request.Context())))
}

func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.Failure("invalid request id"))
		return
	}

	req, err := h.coordinator.Get(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	actor, _ := middleware.ActorFrom(c)
	if actor.Role == model.RolePatient && actor.SubjectPatientID != req.PatientID {
		c.Error(apperrors.Unauthorized("patients may only view their own emergencies"))
		return
	}

	c.JSON(http.StatusOK, handler.Success(req))
}

func (h *Handler) Assign(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.Failure("invalid request id"))
		return
	}

	var body assignBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, handler.Failure(err.Error()))
		return
	}

	req, err := h.coordinator.Assign(c.Request.Context(), id, body.ETAMinutes)
	if err != nil {
		c.Error(err)
		return
	}

	h.enqueueEvent(c, model.EventEmergencyAssigned, req)
	c.JSON(http.StatusOK, handler.Success(req))
}

func (h *Handler) Advance(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.Failure("invalid request id"))
		return
	}

	req, err := h.coordinator.Advance(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	h.enqueueEvent(c, model.EventEmergencyAdvanced, req)
	c.JSON(http.StatusOK, handler.Success(req))
}

// PatientSummary serves the dispatched crew's clinical overview of the
// request's patient, gated by the ledger's access policy.
func (h *Handler) PatientSummary(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.Failure("no authenticated actor"))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.Failure("invalid request id"))
		return
	}

	summary, err := h.coordinator.PatientSummary(c.Request.Context(), actor, id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.Success(summary))
}

func (h *Handler) enqueueEvent(c *gin.Context, eventType string, req *model.EmergencyRequest) {
	if h.outboxRepo == nil {
		return
	}

	payload, err := json.Marshal(map[string]interface{}{
		"request_id":   req.ID,
		"patient_id":   req.PatientID,
		"triage_level": req.TriageLevel,
		"status":       req.Status,
	})
	if err != nil {
		h.logger.Error(err, "failed to marshal event payload", "event_type", eventType)
		return
	}
	if err := h.outboxRepo.Create(c.Request.Context(), &model.OutboxEvent{
		EventType: eventType,
		Payload:   payload,
	}); err != nil {
		h.logger.Error(err, "failed to enqueue event", "event_type", eventType)
	}
}
