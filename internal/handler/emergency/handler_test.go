package emergency_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semcare/triage-api/internal/emergency"
	emergencyhandler "github.com/semcare/triage-api/internal/handler/emergency"
	"github.com/semcare/triage-api/internal/hasher"
	"github.com/semcare/triage-api/internal/ledger"
	"github.com/semcare/triage-api/internal/middleware"
	"github.com/semcare/triage-api/internal/model"
	"github.com/semcare/triage-api/internal/policy"
	"github.com/semcare/triage-api/pkg/logger"
)

const testSecret = "test-secret"

type memOutbox struct {
	events []*model.OutboxEvent
}

func (m *memOutbox) Create(_ context.Context, event *model.OutboxEvent) error {
	m.events = append(m.events, event)
	return nil
}

func (m *memOutbox) GetPendingEvents(context.Context, int) ([]*model.OutboxEvent, error) {
	return nil, nil
}
func (m *memOutbox) MarkProcessed(context.Context, uuid.UUID) error      { return nil }
func (m *memOutbox) MarkFailed(context.Context, uuid.UUID, string) error { return nil }
func (m *memOutbox) DeleteProcessedBefore(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func signToken(t *testing.T, subject string, role model.Role, licenseID, patientID string) string {
	t.Helper()

	claims := middleware.ActorClaims{
		Role:      string(role),
		LicenseID: licenseID,
		PatientID: patientID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}

	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return raw
}

type testEnv struct {
	router *gin.Engine
	ledger *ledger.Ledger
	outbox *memOutbox
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logger.NewLogger(&logger.Config{Output: io.Discard})
	led := ledger.New(hasher.New(), policy.New())
	coordinator := emergency.NewCoordinator(led)
	outbox := &memOutbox{}
	h := emergencyhandler.NewHandler(coordinator, outbox, log)
	auth := middleware.NewAuthMiddleware(testSecret)

	router := gin.New()
	router.Use(middleware.ErrorHandler())

	api := router.Group("/api/v1")
	protected := api.Group("")
	protected.Use(auth.Authenticate())
	h.RegisterRoutes(protected, auth)

	return &testEnv{router: router, ledger: led, outbox: outbox}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var parsed map[string]interface{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &parsed))
	}
	return w, parsed
}

func TestFileEmergencyClassifiesAndPinsPatient(t *testing.T) {
	env := newTestEnv(t)
	token := signToken(t, "u1", model.RolePatient, "", "p1")

	// A patient always files for themselves, whatever the body claims.
	w, resp := env.do(t, http.MethodPost, "/api/v1/emergencies", token, gin.H{
		"patient_id": "someone-else",
		"location":   "Av. Reforma 100",
		"symptoms":   []string{"dolor en el pecho"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "p1", data["patient_id"])
	assert.Equal(t, "red", data["triage_level"])
	assert.Equal(t, "pending", data["status"])

	require.Len(t, env.outbox.events, 1)
	assert.Equal(t, model.EventEmergencyCreated, env.outbox.events[0].EventType)
}

func TestFileEmergencyRequiresLocation(t *testing.T) {
	env := newTestEnv(t)
	token := signToken(t, "u1", model.RolePatient, "", "p1")

	w, _ := env.do(t, http.MethodPost, "/api/v1/emergencies", token, gin.H{
		"symptoms": []string{"fever"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDispatchEndpointsRequireLicensedRole(t *testing.T) {
	env := newTestEnv(t)

	w, _ := env.do(t, http.MethodGet, "/api/v1/emergencies", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	patientToken := signToken(t, "u1", model.RolePatient, "", "p1")
	w, _ = env.do(t, http.MethodGet, "/api/v1/emergencies", patientToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	hospitalToken := signToken(t, "h1", model.RoleHospital, "DR12345", "")
	w, _ = env.do(t, http.MethodGet, "/api/v1/emergencies", hospitalToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestEmergencyLifecycleOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	hospitalToken := signToken(t, "h1", model.RoleHospital, "DR12345", "")

	w, resp := env.do(t, http.MethodPost, "/api/v1/emergencies", hospitalToken, gin.H{
		"patient_id": "p1",
		"location":   "Calle 5 de Mayo",
		"symptoms":   []string{"fractura"},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	id := resp["data"].(map[string]interface{})["id"].(string)

	w, resp = env.do(t, http.MethodPost, "/api/v1/emergencies/"+id+"/assign", hospitalToken, gin.H{
		"eta_minutes": 12,
	})
	require.Equal(t, http.StatusOK, w.Code)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "assigned", data["status"])
	assert.Equal(t, float64(12), data["estimated_arrival_minutes"])

	w, resp = env.do(t, http.MethodPost, "/api/v1/emergencies/"+id+"/advance", hospitalToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "inProgress", resp["data"].(map[string]interface{})["status"])

	w, resp = env.do(t, http.MethodPost, "/api/v1/emergencies/"+id+"/advance", hospitalToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "completed", resp["data"].(map[string]interface{})["status"])

	// Completed is terminal.
	w, _ = env.do(t, http.MethodPost, "/api/v1/emergencies/"+id+"/advance", hospitalToken, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	assert.Len(t, env.outbox.events, 4)
}

func TestAssignRejectsUnknownRequest(t *testing.T) {
	env := newTestEnv(t)
	hospitalToken := signToken(t, "h1", model.RoleHospital, "DR12345", "")

	w, _ := env.do(t, http.MethodPost, "/api/v1/emergencies/"+uuid.NewString()+"/assign", hospitalToken, gin.H{
		"eta_minutes": 5,
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPatientSummaryForDispatchedCrew(t *testing.T) {
	env := newTestEnv(t)

	hospital := model.Actor{ID: "h1", Role: model.RoleHospital, LicenseID: "DR12345"}
	_, err := env.ledger.Append(context.Background(), hospital, "p1", &model.RecordDraft{
		Medications:      []string{"insulin"},
		BloodType:        "O+",
		MedicalSignature: "DR12345",
	})
	require.NoError(t, err)

	hospitalToken := signToken(t, "h1", model.RoleHospital, "DR12345", "")
	w, resp := env.do(t, http.MethodPost, "/api/v1/emergencies", hospitalToken, gin.H{
		"patient_id": "p1",
		"location":   "Av. Juárez 8",
		"symptoms":   []string{"mareo"},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	id := resp["data"].(map[string]interface{})["id"].(string)

	w, resp = env.do(t, http.MethodGet, "/api/v1/emergencies/"+id+"/summary", hospitalToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "O+", data["blood_type"])
	assert.Equal(t, float64(1), data["records"])
}

func TestGetLimitsPatientToOwnEmergency(t *testing.T) {
	env := newTestEnv(t)
	hospitalToken := signToken(t, "h1", model.RoleHospital, "DR12345", "")

	w, resp := env.do(t, http.MethodPost, "/api/v1/emergencies", hospitalToken, gin.H{
		"patient_id": "p2",
		"location":   "Col. Centro",
		"symptoms":   []string{"fiebre"},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	id := resp["data"].(map[string]interface{})["id"].(string)

	otherPatient := signToken(t, "u1", model.RolePatient, "", "p1")
	w, _ = env.do(t, http.MethodGet, "/api/v1/emergencies/"+id, otherPatient, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	owner := signToken(t, "u2", model.RolePatient, "", "p2")
	w, _ = env.do(t, http.MethodGet, "/api/v1/emergencies/"+id, owner, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
