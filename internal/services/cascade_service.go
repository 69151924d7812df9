package services

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/tesseract-hub/kwentura-service/internal/events"
	"github.com/tesseract-hub/kwentura-service/internal/metrics"
	"github.com/tesseract-hub/kwentura-service/internal/models"
	"github.com/tesseract-hub/kwentura-service/internal/repository"
	"github.com/tesseract-hub/kwentura-service/internal/storage"
)

// CascadeReport summarises one cascade run
type CascadeReport struct {
	StoryID           string `json:"storyId"`
	BlobsDeleted      int    `json:"blobsDeleted"`
	DocumentsDeleted  int    `json:"documentsDeleted"`
	QuizScoresDeleted int    `json:"quizScoresDeleted"`
	Failures          int    `json:"failures"`
}

// CascadeService removes the blobs, subcollection documents and quiz scores
// a deleted story leaves behind. Every work item is independent: a failure is
// logged and counted, never allowed to stop its siblings.
type CascadeService struct {
	stories     *repository.StoryRepository
	blobs       storage.BlobStore
	concurrency int
	logger      *logrus.Logger
}

// NewCascadeService creates a new cascade service
func NewCascadeService(stories *repository.StoryRepository, blobs storage.BlobStore, concurrency int, logger *logrus.Logger) *CascadeService {
	return &CascadeService{
		stories:     stories,
		blobs:       blobs,
		concurrency: concurrency,
		logger:      logger,
	}
}

// HandleChange runs the cascade for top-level story deletions. It returns an
// error when any item failed so a durable bus can redeliver; every phase is
// safe to repeat.
func (s *CascadeService) HandleChange(ctx context.Context, event *events.ChangeEvent) error {
	if event.Collection != models.CollectionStories || !event.IsTopLevel() || event.Type() != events.ChangeDelete {
		return nil
	}
	report := s.Run(ctx, event.DocumentID)
	if report.Failures > 0 {
		return fmt.Errorf("story %s cascade finished with %d failures", event.DocumentID, report.Failures)
	}
	return nil
}

// Run performs the three cleanup phases for storyID
func (s *CascadeService) Run(ctx context.Context, storyID string) *CascadeReport {
	report := &CascadeReport{StoryID: storyID}
	log := s.logger.WithField("story_id", storyID)

	s.deleteBlobs(ctx, storyID, report, log)
	s.deleteSubcollections(ctx, storyID, report, log)
	s.deleteQuizScores(ctx, storyID, report, log)

	log.WithFields(logrus.Fields{
		"blobs_deleted":       report.BlobsDeleted,
		"documents_deleted":   report.DocumentsDeleted,
		"quiz_scores_deleted": report.QuizScoresDeleted,
		"failures":            report.Failures,
	}).Info("Story cascade completed")
	return report
}

func (s *CascadeService) deleteBlobs(ctx context.Context, storyID string, report *CascadeReport, log *logrus.Entry) {
	var deleted int64
	prefixes := models.StoryBlobPrefixes(storyID)
	tasks := make([]Task, 0, len(prefixes))
	for _, prefix := range prefixes {
		prefix := prefix
		tasks = append(tasks, Task{Name: prefix, Run: func(ctx context.Context) error {
			n, err := s.blobs.DeletePrefix(ctx, prefix)
			atomic.AddInt64(&deleted, int64(n))
			return err
		}})
	}

	failed := FailedResults(RunBatch(ctx, s.concurrency, tasks))
	for _, f := range failed {
		log.WithError(f.Err).WithField("prefix", f.Name).Error("Failed to delete story files")
	}
	report.BlobsDeleted = int(deleted)
	report.Failures += len(failed)
	metrics.CascadeItems.WithLabelValues("blobs", "ok").Add(float64(deleted))
	metrics.CascadeItems.WithLabelValues("blobs", "error").Add(float64(len(failed)))
}

func (s *CascadeService) deleteSubcollections(ctx context.Context, storyID string, report *CascadeReport, log *logrus.Entry) {
	subs, err := s.stories.Subcollections(ctx, storyID)
	if err != nil {
		log.WithError(err).Error("Failed to list story subcollections")
		report.Failures++
		metrics.CascadeItems.WithLabelValues("subcollections", "error").Inc()
		return
	}

	var deleted int64
	tasks := make([]Task, 0, len(subs))
	for _, sub := range subs {
		sub := sub
		tasks = append(tasks, Task{Name: sub, Run: func(ctx context.Context) error {
			docs, err := s.stories.SubcollectionDocuments(ctx, storyID, sub)
			if err != nil {
				return err
			}
			n, err := s.deleteDocuments(ctx, docs)
			atomic.AddInt64(&deleted, int64(n))
			return err
		}})
	}

	failed := FailedResults(RunBatch(ctx, s.concurrency, tasks))
	for _, f := range failed {
		log.WithError(f.Err).WithField("subcollection", f.Name).Error("Failed to clear story subcollection")
	}
	report.DocumentsDeleted = int(deleted)
	report.Failures += len(failed)
	metrics.CascadeItems.WithLabelValues("subcollections", "ok").Add(float64(deleted))
	metrics.CascadeItems.WithLabelValues("subcollections", "error").Add(float64(len(failed)))
}

func (s *CascadeService) deleteQuizScores(ctx context.Context, storyID string, report *CascadeReport, log *logrus.Entry) {
	studentIDs, err := s.stories.StudentIDs(ctx)
	if err != nil {
		log.WithError(err).Error("Failed to list students for quiz score cleanup")
		report.Failures++
		metrics.CascadeItems.WithLabelValues("quiz_scores", "error").Inc()
		return
	}

	var deleted int64
	tasks := make([]Task, 0, len(studentIDs))
	for _, studentID := range studentIDs {
		studentID := studentID
		tasks = append(tasks, Task{Name: studentID, Run: func(ctx context.Context) error {
			docs, err := s.stories.QuizScoresForStory(ctx, studentID, storyID)
			if err != nil {
				return err
			}
			n, err := s.deleteDocuments(ctx, docs)
			atomic.AddInt64(&deleted, int64(n))
			return err
		}})
	}

	failed := FailedResults(RunBatch(ctx, s.concurrency, tasks))
	for _, f := range failed {
		log.WithError(f.Err).WithField("student_id", f.Name).Error("Failed to delete quiz scores")
	}
	report.QuizScoresDeleted = int(deleted)
	report.Failures += len(failed)
	metrics.CascadeItems.WithLabelValues("quiz_scores", "ok").Add(float64(deleted))
	metrics.CascadeItems.WithLabelValues("quiz_scores", "error").Add(float64(len(failed)))
}

// deleteDocuments deletes docs concurrently and returns the first failure
func (s *CascadeService) deleteDocuments(ctx context.Context, docs []*repository.Document) (int, error) {
	tasks := make([]Task, 0, len(docs))
	for _, doc := range docs {
		path := doc.Path
		tasks = append(tasks, Task{Name: path, Run: func(ctx context.Context) error {
			return s.stories.DeleteDocument(ctx, path)
		}})
	}

	results := RunBatch(ctx, s.concurrency, tasks)
	failed := FailedResults(results)
	deleted := len(results) - len(failed)
	if len(failed) > 0 {
		return deleted, fmt.Errorf("%d of %d deletes failed, first %s: %w", len(failed), len(results), failed[0].Name, failed[0].Err)
	}
	return deleted, nil
}
