package handlers

import (
	"context"
	"encoding/json"

	"github.com/tesseract-hub/kwentura-service/internal/models"
	"github.com/tesseract-hub/kwentura-service/internal/services"
)

// RegisterLifecycle exposes the account lifecycle and story deletion callables
func (h *CallableHandlers) RegisterLifecycle(svc *services.LifecycleService) {
	h.register("approveTeacher", func(ctx context.Context, caller string, data json.RawMessage) (interface{}, error) {
		var req models.ApproveTeacherRequest
		if err := decodeData(data, &req); err != nil {
			return nil, err
		}
		return svc.ApproveTeacher(ctx, caller, req)
	})

	h.register("rejectTeacher", func(ctx context.Context, caller string, data json.RawMessage) (interface{}, error) {
		var req models.ApproveTeacherRequest
		if err := decodeData(data, &req); err != nil {
			return nil, err
		}
		return svc.RejectTeacher(ctx, caller, req)
	})

	h.register("archiveAccount", func(ctx context.Context, caller string, data json.RawMessage) (interface{}, error) {
		var req models.ArchiveAccountRequest
		if err := decodeData(data, &req); err != nil {
			return nil, err
		}
		return svc.ArchiveAccount(ctx, caller, req)
	})

	h.register("unarchiveAccount", func(ctx context.Context, caller string, data json.RawMessage) (interface{}, error) {
		var req models.ArchiveAccountRequest
		if err := decodeData(data, &req); err != nil {
			return nil, err
		}
		return svc.UnarchiveAccount(ctx, caller, req)
	})

	h.register("deleteUserAccount", func(ctx context.Context, caller string, data json.RawMessage) (interface{}, error) {
		var req models.DeleteUserAccountRequest
		if err := decodeData(data, &req); err != nil {
			return nil, err
		}
		return svc.DeleteUserAccount(ctx, caller, req)
	})

	h.register("updateAdminPassword", func(ctx context.Context, caller string, data json.RawMessage) (interface{}, error) {
		var req models.UpdateAdminPasswordRequest
		if err := decodeData(data, &req); err != nil {
			return nil, err
		}
		return svc.UpdateAdminPassword(ctx, caller, req)
	})

	h.register("createUserAccount", func(ctx context.Context, caller string, data json.RawMessage) (interface{}, error) {
		var req models.CreateUserAccountRequest
		if err := decodeData(data, &req); err != nil {
			return nil, err
		}
		return svc.CreateUserAccount(ctx, caller, req)
	})

	h.register("listAccounts", func(ctx context.Context, caller string, data json.RawMessage) (interface{}, error) {
		var req models.ListAccountsRequest
		if err := decodeData(data, &req); err != nil {
			return nil, err
		}
		return svc.ListAccounts(ctx, caller, req)
	})

	h.register("deleteStory", func(ctx context.Context, caller string, data json.RawMessage) (interface{}, error) {
		var req models.DeleteStoryRequest
		if err := decodeData(data, &req); err != nil {
			return nil, err
		}
		return svc.DeleteStory(ctx, caller, req)
	})
}
