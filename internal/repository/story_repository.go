package repository

import (
	"context"

	"github.com/tesseract-hub/kwentura-service/internal/models"
)

// StoryRepository covers stories and the documents that reference them
type StoryRepository struct {
	store DocumentStore
}

// NewStoryRepository creates a new story repository
func NewStoryRepository(store DocumentStore) *StoryRepository {
	return &StoryRepository{store: store}
}

// StoryPath returns the document path of a story
func StoryPath(storyID string) string {
	return DocPath(models.CollectionStories, storyID)
}

// Get returns a story
func (r *StoryRepository) Get(ctx context.Context, storyID string) (*models.Story, error) {
	doc, err := r.store.Get(ctx, StoryPath(storyID))
	if err != nil {
		return nil, err
	}
	story := &models.Story{
		ID:                storyID,
		Title:             models.StringField(doc.Data, "title"),
		Category:          models.StringField(doc.Data, "category"),
		PdfURL:            models.StringField(doc.Data, "pdfUrl"),
		GeneratedSynopsis: models.StringField(doc.Data, "generatedSynopsis"),
	}
	if pages, ok := doc.Data["pageImages"].([]interface{}); ok {
		for _, p := range pages {
			if s, ok := p.(string); ok {
				story.PageImages = append(story.PageImages, s)
			}
		}
	}
	return story, nil
}

// Delete removes the story document. Subcollections are left for the cascade.
func (r *StoryRepository) Delete(ctx context.Context, storyID string) error {
	return r.store.Delete(ctx, StoryPath(storyID))
}

// Subcollections lists the collections nested under a story path
func (r *StoryRepository) Subcollections(ctx context.Context, storyID string) ([]string, error) {
	return r.store.ListSubcollections(ctx, StoryPath(storyID))
}

// SubcollectionDocuments lists the documents of one story subcollection
func (r *StoryRepository) SubcollectionDocuments(ctx context.Context, storyID, subcollection string) ([]*Document, error) {
	return r.store.List(ctx, DocPath(StoryPath(storyID), subcollection))
}

// DeleteDocument removes a document by full path
func (r *StoryRepository) DeleteDocument(ctx context.Context, path string) error {
	return r.store.Delete(ctx, path)
}

// StudentIDs lists every student document ID
func (r *StoryRepository) StudentIDs(ctx context.Context) ([]string, error) {
	docs, err := r.store.List(ctx, models.CollectionStudents)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		ids = append(ids, doc.ID)
	}
	return ids, nil
}

// QuizScoresForStory returns a student's quizScores referencing the story
func (r *StoryRepository) QuizScoresForStory(ctx context.Context, studentID, storyID string) ([]*Document, error) {
	return r.store.Query(ctx,
		DocPath(models.CollectionStudents, studentID, models.SubcollectionQuizScores),
		Filter{Field: models.FieldStoryID, Op: "==", Value: storyID},
	)
}

// UpdateFields merges fields into the story document
func (r *StoryRepository) UpdateFields(ctx context.Context, storyID string, fields map[string]interface{}) error {
	return r.store.Update(ctx, StoryPath(storyID), fields)
}
