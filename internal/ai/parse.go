package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tesseract-hub/kwentura-service/internal/models"
)

// ErrInvalidOutput is returned when model output does not match the expected shape
var ErrInvalidOutput = errors.New("invalid model output")

// ExtractJSON strips an optional markdown code fence around a JSON payload
func ExtractJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if nl := strings.Index(s, "\n"); nl >= 0 {
			// drop the language tag line, e.g. ```json
			s = s[nl+1:]
		}
		if end := strings.LastIndex(s, "```"); end >= 0 {
			s = s[:end]
		}
	}
	return strings.TrimSpace(s)
}

// ParseMoralQuiz decodes and validates a moral quiz
func ParseMoralQuiz(raw string) (*models.MoralQuiz, error) {
	var quiz models.MoralQuiz
	if err := json.Unmarshal([]byte(ExtractJSON(raw)), &quiz); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOutput, err)
	}
	quiz.MoralLesson = strings.TrimSpace(quiz.MoralLesson)
	if quiz.MoralLesson == "" {
		return nil, fmt.Errorf("%w: missing moralLesson", ErrInvalidOutput)
	}
	if err := validateQuestions(quiz.Questions); err != nil {
		return nil, err
	}
	return &quiz, nil
}

// ParseQuestions decodes and validates a question list
func ParseQuestions(raw string) ([]models.QuizQuestion, error) {
	payload := ExtractJSON(raw)

	var questions []models.QuizQuestion
	if err := json.Unmarshal([]byte(payload), &questions); err != nil {
		// Some responses wrap the list in an object
		var wrapped struct {
			Questions []models.QuizQuestion `json:"questions"`
		}
		if werr := json.Unmarshal([]byte(payload), &wrapped); werr != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidOutput, err)
		}
		questions = wrapped.Questions
	}
	if err := validateQuestions(questions); err != nil {
		return nil, err
	}
	return questions, nil
}

func validateQuestions(questions []models.QuizQuestion) error {
	if len(questions) == 0 {
		return fmt.Errorf("%w: no questions", ErrInvalidOutput)
	}
	for i, q := range questions {
		if strings.TrimSpace(q.Question) == "" {
			return fmt.Errorf("%w: question %d is empty", ErrInvalidOutput, i+1)
		}
		if len(q.Choices) < 2 {
			return fmt.Errorf("%w: question %d has fewer than two choices", ErrInvalidOutput, i+1)
		}
		found := false
		for _, c := range q.Choices {
			if c == q.Answer {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%w: question %d answer is not one of its choices", ErrInvalidOutput, i+1)
		}
	}
	return nil
}
