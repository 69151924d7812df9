package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tesseract-hub/kwentura-service/internal/events"
	"github.com/tesseract-hub/kwentura-service/internal/metrics"
	"github.com/tesseract-hub/kwentura-service/internal/models"
	"github.com/tesseract-hub/kwentura-service/internal/repository"
)

// unknownName is recorded when no display name can be resolved
const unknownName = "N/A"

const maxAdminLogs = 500

// AuditService appends admin_logs entries, automatically from the change
// stream and explicitly from the admin console
type AuditService struct {
	audit    *repository.AuditRepository
	accounts *repository.AccountRepository
	guard    *AdminGuard
	logger   *logrus.Logger
	now      func() time.Time
}

// NewAuditService creates a new audit service
func NewAuditService(audit *repository.AuditRepository, accounts *repository.AccountRepository, guard *AdminGuard, logger *logrus.Logger) *AuditService {
	return &AuditService{
		audit:    audit,
		accounts: accounts,
		guard:    guard,
		logger:   logger,
		now:      time.Now,
	}
}

// HandleChange records one entry per top-level document write. Failures are
// logged and swallowed; the original write has already been committed.
func (s *AuditService) HandleChange(ctx context.Context, event *events.ChangeEvent) error {
	if event.Collection == models.CollectionAdminLogs || !event.IsTopLevel() {
		return nil
	}

	entry := &models.AdminLogEntry{
		Timestamp:          s.now(),
		CollectionName:     event.Collection,
		DocumentID:         event.DocumentID,
		EventType:          models.AuditEventType(event.Type()),
		AdminID:            event.ActorUID,
		TargetUserFullName: unknownName,
	}
	if entry.AdminID == "" {
		entry.AdminID = models.SystemActor
	}
	if models.IsUserCollection(event.Collection) {
		entry.TargetUserID = event.DocumentID
		data := event.After
		if data == nil {
			data = event.Before
		}
		if name := fullName(models.NameFields(event.Collection, data)); name != "" {
			entry.TargetUserFullName = name
		}
	}

	if _, err := s.audit.Append(ctx, entry); err != nil {
		metrics.AuditEntries.WithLabelValues("trigger", "error").Inc()
		s.logger.WithError(err).WithFields(logrus.Fields{
			"collection":  event.Collection,
			"document_id": event.DocumentID,
			"event_type":  entry.EventType,
		}).Error("Failed to write admin log entry")
		return nil
	}
	metrics.AuditEntries.WithLabelValues("trigger", "ok").Inc()
	return nil
}

// LogAdminUIAction records an action taken in the admin console. Unlike the
// trigger path its failure is returned to the caller.
func (s *AuditService) LogAdminUIAction(ctx context.Context, callerUID string, req models.LogAdminUIActionRequest) (*models.SuccessResponse, error) {
	if err := RequireCaller(callerUID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.ActionType) == "" || strings.TrimSpace(req.CollectionName) == "" || strings.TrimSpace(req.DocumentID) == "" {
		return nil, NewInvalidArgumentError("actionType, collectionName and documentId are required.")
	}

	name := strings.TrimSpace(req.TargetUserFullName)
	if name == "" && models.IsUserCollection(req.CollectionName) {
		resolved, err := s.resolveName(ctx, req)
		if err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"collection":  req.CollectionName,
				"document_id": req.DocumentID,
			}).Error("Failed to resolve target user name")
			return nil, NewInternalError("failed to resolve target user", err)
		}
		name = resolved
	}
	if name == "" {
		name = unknownName
	}

	entry := &models.AdminLogEntry{
		Timestamp:          s.now(),
		CollectionName:     req.CollectionName,
		DocumentID:         req.DocumentID,
		ActionType:         req.ActionType,
		AdminID:            callerUID,
		TargetUserID:       req.TargetUserID,
		TargetUserFullName: name,
	}
	if _, err := s.audit.Append(ctx, entry); err != nil {
		metrics.AuditEntries.WithLabelValues("ui", "error").Inc()
		s.logger.WithError(err).WithFields(logrus.Fields{
			"action_type": req.ActionType,
			"admin_uid":   callerUID,
		}).Error("Failed to write admin log entry")
		return nil, NewInternalError("failed to write admin log", err)
	}
	metrics.AuditEntries.WithLabelValues("ui", "ok").Inc()
	return &models.SuccessResponse{Success: true}, nil
}

// ListAdminLogs returns the newest entries for display in the admin console
func (s *AuditService) ListAdminLogs(ctx context.Context, callerUID string, req models.ListAdminLogsRequest) (*models.AdminLogsResponse, error) {
	if _, err := s.guard.RequireAdmin(ctx, callerUID); err != nil {
		return nil, err
	}
	limit := req.Limit
	if limit <= 0 || limit > maxAdminLogs {
		limit = maxAdminLogs
	}
	entries, err := s.audit.List(ctx, limit)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list admin logs")
		return nil, NewInternalError("failed to list admin logs", err)
	}
	return &models.AdminLogsResponse{Entries: entries}, nil
}

func (s *AuditService) resolveName(ctx context.Context, req models.LogAdminUIActionRequest) (string, error) {
	id := req.TargetUserID
	if id == "" {
		id = req.DocumentID
	}
	if strings.Contains(id, "/") {
		return "", nil
	}
	acc, err := s.accounts.Get(ctx, req.CollectionName, id)
	if errors.Is(err, repository.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return acc.FullName(), nil
}

func fullName(first, last string) string {
	return strings.TrimSpace(first + " " + last)
}
