package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tesseract-hub/kwentura-service/internal/events"
	"github.com/tesseract-hub/kwentura-service/internal/identity"
	"github.com/tesseract-hub/kwentura-service/internal/middleware"
	"github.com/tesseract-hub/kwentura-service/internal/redis"
	"github.com/tesseract-hub/kwentura-service/internal/repository"
	"github.com/tesseract-hub/kwentura-service/internal/services"
	"github.com/tesseract-hub/kwentura-service/internal/storage"
)

type testServer struct {
	router   *gin.Engine
	mem      *repository.MemoryStore
	bus      *events.LocalBus
	identity *identity.MemoryStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	mem := repository.NewMemoryStore()
	bus := events.NewLocalBus(logger)
	store := repository.NewObservedStore(mem, bus, logger)
	ids := identity.NewMemoryStore()
	blobs := storage.NewMemoryStore("kwentura-test")

	accounts := repository.NewAccountRepository(store)
	stories := repository.NewStoryRepository(store)
	auditRepo := repository.NewAuditRepository(store)
	guard := services.NewAdminGuard(accounts, logger)

	lifecycle := services.NewLifecycleService(accounts, repository.NewPendingTeacherRepository(store), stories, ids, guard,
		redis.NewLocalLocker(), services.LifecycleConfig{LockTTL: time.Second, LockWait: 50 * time.Millisecond}, logger)
	audit := services.NewAuditService(auditRepo, accounts, guard, logger)
	content := services.NewContentService(nil, nil, blobs, repository.NewSettingsRepository(store), stories, logger)

	bus.Subscribe("audit", audit.HandleChange)
	require.NoError(t, bus.Start(context.Background()))
	t.Cleanup(func() { bus.Close() })

	callables := NewCallableHandlers(logger)
	callables.RegisterLifecycle(lifecycle)
	callables.RegisterAudit(audit)
	callables.RegisterContent(content)

	router := gin.New()
	router.Use(middleware.FirebaseAuth(ids, logger))
	router.POST("/callable/:name", callables.Invoke)

	return &testServer{router: router, mem: mem, bus: bus, identity: ids}
}

func (s *testServer) call(t *testing.T, name, token string, body string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/callable/"+name, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return w.Code, out
}

func (s *testServer) seedAdmin(t *testing.T, uid string) string {
	t.Helper()
	require.NoError(t, s.mem.Set(context.Background(), "admins/"+uid, map[string]interface{}{"role": "admin", "firstName": "Admin", "lastName": uid}))
	s.identity.AddUser(&identity.User{UID: uid, Claims: map[string]interface{}{"role": "admin"}})
	return s.identity.IssueToken(uid)
}

func errorStatus(t *testing.T, body map[string]interface{}) string {
	t.Helper()
	e, ok := body["error"].(map[string]interface{})
	require.True(t, ok, "body has no error member: %v", body)
	status, _ := e["status"].(string)
	return status
}

func TestApproveTeacherOverHTTP(t *testing.T) {
	s := newTestServer(t)
	token := s.seedAdmin(t, "A")
	require.NoError(t, s.mem.Set(context.Background(), "pendingTeachers/T1", map[string]interface{}{"uid": "U1", "firstName": "Ana"}))
	s.identity.AddUser(&identity.User{UID: "U1"})

	code, body := s.call(t, "approveTeacher", token, `{"data":{"teacherId":"T1","teacherUid":"U1"}}`)
	require.Equal(t, http.StatusOK, code, body)
	result := body["result"].(map[string]interface{})
	assert.Equal(t, "success", result["status"])
	assert.Equal(t, "Teacher approved successfully.", result["message"])

	s.bus.Wait()
	logs, err := s.mem.List(context.Background(), "admin_logs")
	require.NoError(t, err)
	require.NotEmpty(t, logs)
	for _, l := range logs {
		assert.Equal(t, "A", l.Data["adminId"], "trigger entries carry the caller")
	}

	code, body = s.call(t, "approveTeacher", token, `{"data":{"teacherId":"T1","teacherUid":"U1"}}`)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "NOT_FOUND", errorStatus(t, body))
}

func TestCallableErrorEnvelope(t *testing.T) {
	s := newTestServer(t)
	adminToken := s.seedAdmin(t, "A")
	s.identity.AddUser(&identity.User{UID: "S1"})
	studentToken := s.identity.IssueToken("S1")

	tests := []struct {
		name       string
		callable   string
		token      string
		body       string
		wantCode   int
		wantStatus string
	}{
		{"no caller", "approveTeacher", "", `{"data":{"teacherId":"T1","teacherUid":"U1"}}`, http.StatusUnauthorized, "UNAUTHENTICATED"},
		{"not an admin", "approveTeacher", studentToken, `{"data":{"teacherId":"T1","teacherUid":"U1"}}`, http.StatusForbidden, "PERMISSION_DENIED"},
		{"missing fields", "deleteUserAccount", adminToken, `{"data":{"uid":"X"}}`, http.StatusBadRequest, "INVALID_ARGUMENT"},
		{"null data", "approveTeacher", adminToken, `{"data":null}`, http.StatusBadRequest, "INVALID_ARGUMENT"},
		{"malformed data", "approveTeacher", adminToken, `{"data":"oops"}`, http.StatusBadRequest, "INVALID_ARGUMENT"},
		{"malformed body", "approveTeacher", adminToken, `not json`, http.StatusBadRequest, "INVALID_ARGUMENT"},
		{"unknown callable", "dropDatabase", adminToken, `{"data":{}}`, http.StatusNotFound, "NOT_FOUND"},
		{"ai not configured", "generateSynopsis", studentToken, `{"data":{"text":"story"}}`, http.StatusBadRequest, "FAILED_PRECONDITION"},
		{"ui log without caller", "logAdminUiAction", "", `{"data":{"actionType":"VIEW","collectionName":"stories","documentId":"X"}}`, http.StatusUnauthorized, "UNAUTHENTICATED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := s.call(t, tt.callable, tt.token, tt.body)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantStatus, errorStatus(t, body))
		})
	}
}

func TestLogAdminUiActionOverHTTP(t *testing.T) {
	s := newTestServer(t)
	s.identity.AddUser(&identity.User{UID: "A"})
	token := s.identity.IssueToken("A")

	code, body := s.call(t, "logAdminUiAction", token, `{"data":{"actionType":"VIEW_STORY","collectionName":"stories","documentId":"X"}}`)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, map[string]interface{}{"success": true}, body["result"])

	s.bus.Wait()
	logs, err := s.mem.List(context.Background(), "admin_logs")
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "VIEW_STORY", logs[0].Data["actionType"])
	assert.Equal(t, "A", logs[0].Data["adminId"])
}

func TestStatusForKind(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, StatusForKind(services.KindUnauthenticated))
	assert.Equal(t, http.StatusForbidden, StatusForKind(services.KindPermissionDenied))
	assert.Equal(t, http.StatusBadRequest, StatusForKind(services.KindInvalidArgument))
	assert.Equal(t, http.StatusNotFound, StatusForKind(services.KindNotFound))
	assert.Equal(t, http.StatusBadRequest, StatusForKind(services.KindFailedPrecondition))
	assert.Equal(t, http.StatusInternalServerError, StatusForKind(services.KindInternal))
}

func TestHealthHandlers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	healthy := NewHealthHandlers(map[string]ReadinessCheck{
		"documents": func(ctx context.Context) error { return nil },
	})
	failing := NewHealthHandlers(map[string]ReadinessCheck{
		"redis": func(ctx context.Context) error { return errors.New("connection refused") },
	})

	router := gin.New()
	router.GET("/health", healthy.Health)
	router.GET("/ready", healthy.Ready)
	router.GET("/ready-failing", failing.Ready)

	for path, want := range map[string]int{
		"/health":        http.StatusOK,
		"/ready":         http.StatusOK,
		"/ready-failing": http.StatusServiceUnavailable,
	} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, want, w.Code, path)
	}
}
