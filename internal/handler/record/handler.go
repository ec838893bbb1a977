// Package record exposes the medical record ledger over HTTP.
package record

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/semcare/triage-api/internal/handler"
	"github.com/semcare/triage-api/internal/middleware"
	"github.com/semcare/triage-api/internal/model"
	"github.com/semcare/triage-api/internal/repository"
	"github.com/semcare/triage-api/internal/service/audit"
	apperrors "github.com/semcare/triage-api/pkg/errors"
	"github.com/semcare/triage-api/pkg/logger"
)

// Ledger is the record store surface the handler consumes.
type Ledger interface {
	Append(ctx context.Context, actor model.Actor, patientID string, draft *model.RecordDraft) (*model.MedicalRecord, error)
	History(ctx context.Context, actor model.Actor, patientID string) ([]*model.MedicalRecord, error)
	VerifyChain(ctx context.Context, patientID string) (bool, error)
}

type Handler struct {
	ledger     Ledger
	outboxRepo repository.OutboxRepository
	auditSvc   *audit.Service
	logger     *logger.Logger
}

func NewHandler(ledger Ledger, outboxRepo repository.OutboxRepository, auditSvc *audit.Service, logger *logger.Logger) *Handler {
	return &Handler{
		ledger:     ledger,
		outboxRepo: outboxRepo,
		auditSvc:   auditSvc,
		logger:     logger,
	}
}

// RegisterRoutes attaches the authenticated record endpoints.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	patients := r.Group("/patients")
	{
		patients.POST("/:id/records", h.AppendRecord)
		patients.GET("/:id/records", h.History)
		patients.GET("/:id/access-log", h.AccessLog)
	}
}

// RegisterPublicRoutes attaches the endpoints that need no actor. Chain
// verification reveals only consistent or inconsistent.
func (h *Handler) RegisterPublicRoutes(r *gin.RouterGroup) {
	r.GET("/patients/:id/chain/verify", h.VerifyChain)
}

func (h *Handler) AppendRecord(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.Failure("no authenticated actor"))
		return
	}

	var draft model.RecordDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		c.JSON(http.StatusBadRequest, handler.Failure(err.Error()))
		return
	}

	patientID := c.Param("id")
	rec, err := h.ledger.Append(c.Request.Context(), actor, patientID, &draft)
	if err != nil {
		c.Error(err)
		return
	}

	h.enqueueEvent(c, model.EventRecordAppended, map[string]interface{}{
		"record_id":  rec.ID,
		"patient_id": rec.PatientID,
		"sequence":   rec.Sequence,
	})

	c.JSON(http.StatusCreated, handler.Success(rec))
}

func (h *Handler) History(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.Failure("no authenticated actor"))
		return
	}

	records, err := h.ledger.History(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.Success(records))
}

func (h *Handler) VerifyChain(c *gin.Context) {
	valid, err := h.ledger.VerifyChain(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.Success(gin.H{"valid": valid}))
}

// AccessLog lists recent access trail entries for a patient chain.
func (h *Handler) AccessLog(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok || actor.Role != model.RoleAdmin {
		c.Error(apperrors.Unauthorized("access trail is admin only"))
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	logs, err := h.auditSvc.History(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		c.Error(apperrors.Internal(err))
		return
	}

	c.JSON(http.StatusOK, handler.Success(logs))
}

func (h *Handler) enqueueEvent(c *gin.Context, eventType string, payload map[string]interface{}) {
	if h.outboxRepo == nil {
		return
	}

	body, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error(err, "failed to marshal event payload", "event_type", eventType)
		return
	}
	if err := h.outboxRepo.Create(c.Request.Context(), &model.OutboxEvent{
		EventType: eventType,
		Payload:   body,
	}); err != nil {
		h.logger.Error(err, "failed to enqueue event", "event_type", eventType)
	}
}
