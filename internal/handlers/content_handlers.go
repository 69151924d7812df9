package handlers

import (
	"context"
	"encoding/json"

	"github.com/tesseract-hub/kwentura-service/internal/models"
	"github.com/tesseract-hub/kwentura-service/internal/services"
)

// RegisterContent exposes the AI reading material callables
func (h *CallableHandlers) RegisterContent(svc *services.ContentService) {
	h.register("generateSynopsis", func(ctx context.Context, caller string, data json.RawMessage) (interface{}, error) {
		var req models.GenerateTextRequest
		if err := decodeData(data, &req); err != nil {
			return nil, err
		}
		return svc.GenerateSynopsis(ctx, caller, req)
	})

	h.register("generateMoralQuiz", func(ctx context.Context, caller string, data json.RawMessage) (interface{}, error) {
		var req models.GenerateTextRequest
		if err := decodeData(data, &req); err != nil {
			return nil, err
		}
		return svc.GenerateMoralQuiz(ctx, caller, req)
	})

	h.register("generateComprehensionQuestions", func(ctx context.Context, caller string, data json.RawMessage) (interface{}, error) {
		var req models.GenerateTextRequest
		if err := decodeData(data, &req); err != nil {
			return nil, err
		}
		return svc.GenerateComprehensionQuestions(ctx, caller, req)
	})

	h.register("synthesizeSpeech", func(ctx context.Context, caller string, data json.RawMessage) (interface{}, error) {
		var req models.SynthesizeSpeechRequest
		if err := decodeData(data, &req); err != nil {
			return nil, err
		}
		return svc.SynthesizeSpeech(ctx, caller, req)
	})
}
