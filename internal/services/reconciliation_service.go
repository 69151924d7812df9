package services

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/tesseract-hub/kwentura-service/internal/identity"
	"github.com/tesseract-hub/kwentura-service/internal/metrics"
	"github.com/tesseract-hub/kwentura-service/internal/models"
	"github.com/tesseract-hub/kwentura-service/internal/repository"
)

// OrphanProfile is an account document with no identity user behind it
type OrphanProfile struct {
	Collection string `json:"collection"`
	ID         string `json:"id"`
}

// OrphanClaim is an identity user whose role claim has no matching profile
type OrphanClaim struct {
	UID        string `json:"uid"`
	Role       string `json:"role"`
	Collection string `json:"collection"`
}

// ReconcileReport lists drift between the identity and document stores
type ReconcileReport struct {
	CheckedUsers            int             `json:"checkedUsers"`
	CheckedProfiles         int             `json:"checkedProfiles"`
	ClaimsWithoutProfile    []OrphanClaim   `json:"claimsWithoutProfile"`
	ProfilesWithoutIdentity []OrphanProfile `json:"profilesWithoutIdentity"`
}

// ReconciliationService detects records left behind by partially failed
// multi-store flows. It only reports and never mutates.
type ReconciliationService struct {
	accounts    *repository.AccountRepository
	identity    identity.Store
	concurrency int
	logger      *logrus.Logger
}

// NewReconciliationService creates a new reconciliation service
func NewReconciliationService(accounts *repository.AccountRepository, identityStore identity.Store, concurrency int, logger *logrus.Logger) *ReconciliationService {
	return &ReconciliationService{
		accounts:    accounts,
		identity:    identityStore,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Run compares identity users with account documents
func (s *ReconciliationService) Run(ctx context.Context) (*ReconcileReport, error) {
	users, err := s.identity.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list identity users: %w", err)
	}

	report := &ReconcileReport{CheckedUsers: len(users)}
	uids := make(map[string]struct{}, len(users))
	var mu sync.Mutex

	tasks := make([]Task, 0, len(users))
	for _, u := range users {
		uids[u.UID] = struct{}{}
		role := models.NormalizeRole(u.RoleClaim())
		collection, ok := models.CollectionForRole(role)
		if !ok {
			continue
		}
		uid := u.UID
		tasks = append(tasks, Task{Name: uid, Run: func(ctx context.Context) error {
			exists, err := s.accounts.Exists(ctx, collection, uid)
			if err != nil {
				return err
			}
			if !exists {
				mu.Lock()
				report.ClaimsWithoutProfile = append(report.ClaimsWithoutProfile, OrphanClaim{UID: uid, Role: string(role), Collection: collection})
				mu.Unlock()
			}
			return nil
		}})
	}
	for _, f := range FailedResults(RunBatch(ctx, s.concurrency, tasks)) {
		s.logger.WithError(f.Err).WithField("uid", f.Name).Warn("Failed to check profile for identity user")
	}

	sort.Slice(report.ClaimsWithoutProfile, func(i, j int) bool {
		return report.ClaimsWithoutProfile[i].UID < report.ClaimsWithoutProfile[j].UID
	})

	for _, collection := range models.UserCollections {
		ids, err := s.accounts.ListIDs(ctx, collection)
		if err != nil {
			s.logger.WithError(err).WithField("collection", collection).Warn("Failed to list profiles for reconciliation")
			continue
		}
		report.CheckedProfiles += len(ids)
		for _, id := range ids {
			if _, ok := uids[id]; !ok {
				report.ProfilesWithoutIdentity = append(report.ProfilesWithoutIdentity, OrphanProfile{Collection: collection, ID: id})
			}
		}
	}

	for _, o := range report.ClaimsWithoutProfile {
		s.logger.WithFields(logrus.Fields{
			"uid":        o.UID,
			"role":       o.Role,
			"collection": o.Collection,
		}).Warn("Identity user has a role claim but no profile")
	}
	for _, o := range report.ProfilesWithoutIdentity {
		s.logger.WithFields(logrus.Fields{
			"id":         o.ID,
			"collection": o.Collection,
		}).Warn("Profile has no identity user")
	}

	metrics.ReconcileOrphans.WithLabelValues("claim_without_profile").Set(float64(len(report.ClaimsWithoutProfile)))
	metrics.ReconcileOrphans.WithLabelValues("profile_without_identity").Set(float64(len(report.ProfilesWithoutIdentity)))

	s.logger.WithFields(logrus.Fields{
		"checked_users":             report.CheckedUsers,
		"checked_profiles":          report.CheckedProfiles,
		"claims_without_profile":    len(report.ClaimsWithoutProfile),
		"profiles_without_identity": len(report.ProfilesWithoutIdentity),
	}).Info("Reconciliation completed")
	return report, nil
}
