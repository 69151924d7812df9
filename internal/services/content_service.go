package services

import (
	"bytes"
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/tesseract-hub/kwentura-service/internal/ai"
	"github.com/tesseract-hub/kwentura-service/internal/metrics"
	"github.com/tesseract-hub/kwentura-service/internal/models"
	"github.com/tesseract-hub/kwentura-service/internal/repository"
	"github.com/tesseract-hub/kwentura-service/internal/storage"
)

// ContentService generates reading material from story text. The generator
// and synthesizer are nil when the service is not configured for them.
type ContentService struct {
	generator ai.TextGenerator
	speech    ai.SpeechSynthesizer
	blobs     storage.BlobStore
	settings  *repository.SettingsRepository
	stories   *repository.StoryRepository
	logger    *logrus.Logger
}

// NewContentService creates a new content service
func NewContentService(
	generator ai.TextGenerator,
	speech ai.SpeechSynthesizer,
	blobs storage.BlobStore,
	settings *repository.SettingsRepository,
	stories *repository.StoryRepository,
	logger *logrus.Logger,
) *ContentService {
	return &ContentService{
		generator: generator,
		speech:    speech,
		blobs:     blobs,
		settings:  settings,
		stories:   stories,
		logger:    logger,
	}
}

func (s *ContentService) prepare(callerUID, text string) error {
	if err := RequireCaller(callerUID); err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return NewInvalidArgumentError("text is required.")
	}
	if s.generator == nil {
		return NewFailedPreconditionError("AI generation is not configured.")
	}
	return nil
}

func (s *ContentService) generate(ctx context.Context, operation, prompt string) (string, error) {
	out, err := s.generator.Generate(ctx, prompt)
	metrics.AIRequests.WithLabelValues(operation, metrics.Result(err)).Inc()
	if err != nil {
		s.logger.WithError(err).WithField("operation", operation).Error("AI generation failed")
		return "", NewInternalError("AI generation failed", err)
	}
	return out, nil
}

// GenerateSynopsis summarises story text. When storyId is given the result is
// also saved on the story as generatedSynopsis.
func (s *ContentService) GenerateSynopsis(ctx context.Context, callerUID string, req models.GenerateTextRequest) (*models.SynopsisResponse, error) {
	if err := s.prepare(callerUID, req.Text); err != nil {
		return nil, err
	}

	synopsis, err := s.generate(ctx, "generateSynopsis", ai.SynopsisPrompt(req.Text))
	if err != nil {
		return nil, err
	}

	if req.StoryID != "" && validID(req.StoryID) {
		err := s.stories.UpdateFields(ctx, req.StoryID, map[string]interface{}{"generatedSynopsis": synopsis})
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			s.logger.WithError(err).WithField("story_id", req.StoryID).Warn("Failed to save generated synopsis")
		}
	}
	return &models.SynopsisResponse{Synopsis: synopsis}, nil
}

// GenerateMoralQuiz extracts the moral lesson and builds a quiz around it
func (s *ContentService) GenerateMoralQuiz(ctx context.Context, callerUID string, req models.GenerateTextRequest) (*models.MoralQuizResponse, error) {
	if err := s.prepare(callerUID, req.Text); err != nil {
		return nil, err
	}

	raw, err := s.generate(ctx, "generateMoralQuiz", ai.MoralQuizPrompt(req.Text))
	if err != nil {
		return nil, err
	}
	quiz, err := ai.ParseMoralQuiz(raw)
	if err != nil {
		s.logger.WithError(err).Warn("Moral quiz output rejected")
		return nil, NewInternalError("AI returned an invalid quiz", err)
	}
	return &models.MoralQuizResponse{Quiz: quiz}, nil
}

// GenerateComprehensionQuestions builds multiple choice reading questions
func (s *ContentService) GenerateComprehensionQuestions(ctx context.Context, callerUID string, req models.GenerateTextRequest) (*models.QuestionsResponse, error) {
	if err := s.prepare(callerUID, req.Text); err != nil {
		return nil, err
	}

	raw, err := s.generate(ctx, "generateComprehensionQuestions", ai.ComprehensionPrompt(req.Text))
	if err != nil {
		return nil, err
	}
	questions, err := ai.ParseQuestions(raw)
	if err != nil {
		s.logger.WithError(err).Warn("Comprehension questions output rejected")
		return nil, NewInternalError("AI returned invalid questions", err)
	}
	return &models.QuestionsResponse{Questions: questions}, nil
}

// SynthesizeSpeech renders text to tts/{fileName}.mp3 and returns its public URL
func (s *ContentService) SynthesizeSpeech(ctx context.Context, callerUID string, req models.SynthesizeSpeechRequest) (*models.SpeechResponse, error) {
	if err := RequireCaller(callerUID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Text) == "" || strings.TrimSpace(req.FileName) == "" {
		return nil, NewInvalidArgumentError("text and fileName are required.")
	}
	if strings.ContainsAny(req.FileName, `/\`) || strings.Contains(req.FileName, "..") {
		return nil, NewInvalidArgumentError("fileName must not contain path separators.")
	}
	if s.speech == nil {
		return nil, NewFailedPreconditionError("Speech synthesis is not configured.")
	}

	log := s.logger.WithField("file_name", req.FileName)

	voice, err := s.settings.TTSConfig(ctx)
	if err != nil {
		log.WithError(err).Error("Failed to read voice settings")
		return nil, NewInternalError("failed to read voice settings", err)
	}

	audio, err := s.speech.Synthesize(ctx, req.Text, voice)
	metrics.AIRequests.WithLabelValues("synthesizeSpeech", metrics.Result(err)).Inc()
	if err != nil {
		log.WithError(err).Error("Speech synthesis failed")
		return nil, NewInternalError("speech synthesis failed", err)
	}

	path := models.TTSObjectPath(req.FileName)
	if err := s.blobs.Upload(ctx, path, "audio/mpeg", bytes.NewReader(audio)); err != nil {
		log.WithError(err).Error("Failed to upload synthesized audio")
		return nil, NewInternalError("failed to store audio", err)
	}
	if err := s.blobs.MakePublic(ctx, path); err != nil {
		log.WithError(err).Error("Failed to make audio public")
		return nil, NewInternalError("failed to publish audio", err)
	}

	return &models.SpeechResponse{AudioURL: s.blobs.PublicURL(path)}, nil
}
