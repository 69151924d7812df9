package handlers

import (
	"context"
	"encoding/json"

	"github.com/tesseract-hub/kwentura-service/internal/models"
	"github.com/tesseract-hub/kwentura-service/internal/services"
)

// RegisterAudit exposes the admin console audit callables
func (h *CallableHandlers) RegisterAudit(svc *services.AuditService) {
	h.register("logAdminUiAction", func(ctx context.Context, caller string, data json.RawMessage) (interface{}, error) {
		var req models.LogAdminUIActionRequest
		if err := decodeData(data, &req); err != nil {
			return nil, err
		}
		return svc.LogAdminUIAction(ctx, caller, req)
	})

	h.register("listAdminLogs", func(ctx context.Context, caller string, data json.RawMessage) (interface{}, error) {
		var req models.ListAdminLogsRequest
		if err := decodeData(data, &req); err != nil {
			return nil, err
		}
		return svc.ListAdminLogs(ctx, caller, req)
	})
}
