package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tesseract-hub/kwentura-service/internal/metrics"
	"github.com/tesseract-hub/kwentura-service/internal/models"
	"github.com/tesseract-hub/kwentura-service/internal/repository"
)

// activityWindow is a lastLogin range ending at the run time
type activityWindow struct {
	name string
	from time.Time
}

// RetentionService computes daily, weekly and monthly active users
type RetentionService struct {
	accounts    *repository.AccountRepository
	retention   *repository.RetentionRepository
	location    *time.Location
	concurrency int
	logger      *logrus.Logger
	now         func() time.Time
}

// NewRetentionService creates a new retention service. Day boundaries are
// computed in location.
func NewRetentionService(accounts *repository.AccountRepository, retention *repository.RetentionRepository, location *time.Location, concurrency int, logger *logrus.Logger) *RetentionService {
	if location == nil {
		location = time.UTC
	}
	return &RetentionService{
		accounts:    accounts,
		retention:   retention,
		location:    location,
		concurrency: concurrency,
		logger:      logger,
		now:         time.Now,
	}
}

// Aggregate counts distinct active account IDs per window and appends one
// snapshot. A collection whose query fails contributes nothing to that window.
func (s *RetentionService) Aggregate(ctx context.Context) (*models.RetentionSnapshot, error) {
	now := s.now().In(s.location)
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.location)

	windows := []activityWindow{
		{name: "daily", from: startOfDay},
		{name: "weekly", from: now.AddDate(0, 0, -7)},
		{name: "monthly", from: now.AddDate(0, 0, -30)},
	}

	counts := make(map[string]int, len(windows))
	for _, w := range windows {
		counts[w.name] = s.countActive(ctx, w, now)
	}

	snapshot := &models.RetentionSnapshot{
		Date:               now.Format("2006-01-02"),
		Timestamp:          now,
		DailyActiveUsers:   counts["daily"],
		WeeklyActiveUsers:  counts["weekly"],
		MonthlyActiveUsers: counts["monthly"],
	}
	if _, err := s.retention.Append(ctx, snapshot); err != nil {
		s.logger.WithError(err).Error("Failed to write retention snapshot")
		return nil, fmt.Errorf("failed to write retention snapshot: %w", err)
	}

	for window, n := range counts {
		metrics.ActiveUsers.WithLabelValues(window).Set(float64(n))
	}
	s.logger.WithFields(logrus.Fields{
		"date":    snapshot.Date,
		"daily":   snapshot.DailyActiveUsers,
		"weekly":  snapshot.WeeklyActiveUsers,
		"monthly": snapshot.MonthlyActiveUsers,
	}).Info("Retention snapshot written")
	return snapshot, nil
}

func (s *RetentionService) countActive(ctx context.Context, w activityWindow, to time.Time) int {
	var mu sync.Mutex
	unique := make(map[string]struct{})

	tasks := make([]Task, 0, len(models.UserCollections))
	for _, collection := range models.UserCollections {
		collection := collection
		tasks = append(tasks, Task{Name: collection, Run: func(ctx context.Context) error {
			ids, err := s.accounts.ActiveBetween(ctx, collection, w.from, to)
			if err != nil {
				return err
			}
			mu.Lock()
			for _, id := range ids {
				unique[id] = struct{}{}
			}
			mu.Unlock()
			return nil
		}})
	}

	for _, f := range FailedResults(RunBatch(ctx, s.concurrency, tasks)) {
		s.logger.WithError(f.Err).WithFields(logrus.Fields{
			"collection": f.Name,
			"window":     w.name,
		}).Error("Failed to query active users, counting as zero")
	}
	return len(unique)
}
