package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/tesseract-hub/kwentura-service/internal/metrics"
	"github.com/tesseract-hub/kwentura-service/internal/middleware"
	"github.com/tesseract-hub/kwentura-service/internal/services"
)

// callableFunc runs one named operation. data is the raw "data" member of the
// request envelope and may be empty.
type callableFunc func(ctx context.Context, callerUID string, data json.RawMessage) (interface{}, error)

// callableEnvelope is the request body of every callable
type callableEnvelope struct {
	Data json.RawMessage `json:"data"`
}

// CallableHandlers serves POST /callable/:name using the callable wire
// envelope: {"data":...} in, {"result":...} or {"error":{...}} out
type CallableHandlers struct {
	operations map[string]callableFunc
	logger     *logrus.Logger
}

// NewCallableHandlers creates an empty dispatcher
func NewCallableHandlers(logger *logrus.Logger) *CallableHandlers {
	return &CallableHandlers{
		operations: make(map[string]callableFunc),
		logger:     logger,
	}
}

func (h *CallableHandlers) register(name string, fn callableFunc) {
	h.operations[name] = fn
}

// Operations returns the registered operation names, sorted
func (h *CallableHandlers) Operations() []string {
	names := make([]string, 0, len(h.operations))
	for name := range h.operations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Invoke dispatches to the named operation
// POST /callable/:name
func (h *CallableHandlers) Invoke(c *gin.Context) {
	name := c.Param("name")
	op, ok := h.operations[name]
	if !ok {
		metrics.CallableRequests.WithLabelValues("unknown", string(services.KindNotFound)).Inc()
		h.writeError(c, name, services.NewNotFoundError("Unknown callable: "+name))
		return
	}

	var envelope callableEnvelope
	if err := c.ShouldBindJSON(&envelope); err != nil && !errors.Is(err, io.EOF) {
		metrics.CallableRequests.WithLabelValues(name, string(services.KindInvalidArgument)).Inc()
		h.writeError(c, name, services.NewInvalidArgumentError("Request body must be a JSON object with a data field."))
		return
	}

	start := time.Now()
	result, err := op(c.Request.Context(), middleware.CallerUID(c), envelope.Data)
	metrics.CallableDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.CallableRequests.WithLabelValues(name, string(services.KindOf(err))).Inc()
		h.writeError(c, name, err)
		return
	}
	metrics.CallableRequests.WithLabelValues(name, "ok").Inc()
	c.JSON(http.StatusOK, gin.H{"result": result})
}

func (h *CallableHandlers) writeError(c *gin.Context, operation string, err error) {
	kind := services.KindOf(err)
	message := "Internal error"
	if svcErr, ok := services.IsServiceError(err); ok {
		message = svcErr.Message
	}

	log := h.logger.WithError(err).WithFields(logrus.Fields{
		"operation":  operation,
		"status":     kind,
		"caller_uid": middleware.CallerUID(c),
	})
	if kind == services.KindInternal {
		_ = c.Error(err)
		log.Error("Callable failed")
	} else {
		log.Debug("Callable rejected")
	}

	c.JSON(StatusForKind(kind), gin.H{
		"error": gin.H{
			"status":  kind,
			"message": message,
		},
	})
}

// StatusForKind maps an error kind to its HTTP status
func StatusForKind(kind services.ErrorKind) int {
	switch kind {
	case services.KindUnauthenticated:
		return http.StatusUnauthorized
	case services.KindPermissionDenied:
		return http.StatusForbidden
	case services.KindInvalidArgument, services.KindFailedPrecondition:
		return http.StatusBadRequest
	case services.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// decodeData unmarshals the envelope data into dst. Missing or null data
// leaves dst zero so the operation reports the missing fields.
func decodeData(data json.RawMessage, dst interface{}) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(trimmed, dst); err != nil {
		return services.NewInvalidArgumentError("Invalid request data: " + err.Error())
	}
	return nil
}
