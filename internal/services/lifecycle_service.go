package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tesseract-hub/kwentura-service/internal/identity"
	"github.com/tesseract-hub/kwentura-service/internal/models"
	"github.com/tesseract-hub/kwentura-service/internal/redis"
	"github.com/tesseract-hub/kwentura-service/internal/repository"
)

const minPasswordLength = 6

// LifecycleConfig tunes the pending-teacher lock
type LifecycleConfig struct {
	LockTTL  time.Duration
	LockWait time.Duration
}

// LifecycleService drives account state transitions across the identity
// store and the document store. None of the multi-store flows are
// transactional; each documents which step runs first.
type LifecycleService struct {
	accounts *repository.AccountRepository
	pending  *repository.PendingTeacherRepository
	stories  *repository.StoryRepository
	identity identity.Store
	guard    *AdminGuard
	locker   redis.Locker
	config   LifecycleConfig
	logger   *logrus.Logger
	now      func() time.Time
}

// NewLifecycleService creates a new lifecycle service
func NewLifecycleService(
	accounts *repository.AccountRepository,
	pending *repository.PendingTeacherRepository,
	stories *repository.StoryRepository,
	identityStore identity.Store,
	guard *AdminGuard,
	locker redis.Locker,
	config LifecycleConfig,
	logger *logrus.Logger,
) *LifecycleService {
	if config.LockTTL <= 0 {
		config.LockTTL = 30 * time.Second
	}
	if config.LockWait <= 0 {
		config.LockWait = 5 * time.Second
	}
	return &LifecycleService{
		accounts: accounts,
		pending:  pending,
		stories:  stories,
		identity: identityStore,
		guard:    guard,
		locker:   locker,
		config:   config,
		logger:   logger,
		now:      time.Now,
	}
}

func pendingLockKey(teacherID string) string {
	return "pending_teacher:" + teacherID
}

func (s *LifecycleService) lockPending(ctx context.Context, teacherID string) (func(), error) {
	release, err := s.locker.Acquire(ctx, pendingLockKey(teacherID), s.config.LockTTL, s.config.LockWait)
	if errors.Is(err, redis.ErrLockNotAcquired) {
		return nil, NewFailedPreconditionError("Another admin is processing this registration. Try again shortly.")
	}
	if err != nil {
		s.logger.WithError(err).WithField("teacher_id", teacherID).Error("Failed to acquire pending teacher lock")
		return nil, NewInternalError("failed to acquire lock", err)
	}
	return release, nil
}

// validID rejects empty IDs and IDs that would address a nested path
func validID(id string) bool {
	return strings.TrimSpace(id) != "" && !strings.Contains(id, "/")
}

func validateTeacherRequest(req models.ApproveTeacherRequest) error {
	if !validID(req.TeacherID) || !validID(req.TeacherUID) {
		return NewInvalidArgumentError("teacherId and teacherUid are required.")
	}
	return nil
}

func validateAccountCollection(name string) error {
	if !models.IsUserCollection(name) {
		return NewInvalidArgumentError(fmt.Sprintf("collectionName must be one of %s.", strings.Join(models.UserCollections, ", ")))
	}
	return nil
}

// ApproveTeacher promotes a pending registration to a teacher account.
// Order: role claim, then profile copy, then pending delete. A failure after
// the claim leaves a claimed user without a profile for reconciliation to report.
func (s *LifecycleService) ApproveTeacher(ctx context.Context, callerUID string, req models.ApproveTeacherRequest) (*models.StatusResponse, error) {
	if _, err := s.guard.RequireAdmin(ctx, callerUID); err != nil {
		return nil, err
	}
	if err := validateTeacherRequest(req); err != nil {
		return nil, err
	}

	release, err := s.lockPending(ctx, req.TeacherID)
	if err != nil {
		return nil, err
	}
	defer release()

	log := s.logger.WithFields(logrus.Fields{
		"operation":   "approveTeacher",
		"teacher_id":  req.TeacherID,
		"teacher_uid": req.TeacherUID,
		"admin_uid":   callerUID,
	})

	pending, err := s.pending.Get(ctx, req.TeacherID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NewNotFoundError("Pending teacher not found.")
	}
	if err != nil {
		log.WithError(err).Error("Failed to read pending teacher")
		return nil, NewInternalError("failed to read pending teacher", err)
	}

	if err := s.identity.SetRoleClaim(ctx, req.TeacherUID, string(models.RoleTeacher)); err != nil {
		log.WithError(err).Error("Failed to set teacher role claim")
		return nil, NewInternalError("failed to set role claim", err)
	}

	if err := s.accounts.Create(ctx, models.CollectionTeachers, req.TeacherUID, pending.Data); err != nil {
		log.WithError(err).Error("Role claim set but teacher profile copy failed")
		return nil, NewInternalError("failed to create teacher profile", err)
	}

	if err := s.pending.Delete(ctx, req.TeacherID); err != nil {
		log.WithError(err).Error("Failed to delete pending teacher")
		return nil, NewInternalError("failed to delete pending teacher", err)
	}

	log.Info("Teacher approved")
	return &models.StatusResponse{Status: "success", Message: "Teacher approved successfully."}, nil
}

// RejectTeacher removes a pending registration and its identity user.
// Order: identity user first, so a crash leaves only an orphan pending document.
func (s *LifecycleService) RejectTeacher(ctx context.Context, callerUID string, req models.ApproveTeacherRequest) (*models.StatusResponse, error) {
	if _, err := s.guard.RequireAdmin(ctx, callerUID); err != nil {
		return nil, err
	}
	if err := validateTeacherRequest(req); err != nil {
		return nil, err
	}

	release, err := s.lockPending(ctx, req.TeacherID)
	if err != nil {
		return nil, err
	}
	defer release()

	log := s.logger.WithFields(logrus.Fields{
		"operation":   "rejectTeacher",
		"teacher_id":  req.TeacherID,
		"teacher_uid": req.TeacherUID,
		"admin_uid":   callerUID,
	})

	if _, err := s.pending.Get(ctx, req.TeacherID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewNotFoundError("Pending teacher not found.")
		}
		log.WithError(err).Error("Failed to read pending teacher")
		return nil, NewInternalError("failed to read pending teacher", err)
	}

	if err := s.identity.DeleteUser(ctx, req.TeacherUID); err != nil {
		if !errors.Is(err, identity.ErrUserNotFound) {
			log.WithError(err).Error("Failed to delete identity user")
			return nil, NewInternalError("failed to delete user", err)
		}
		log.Warn("Identity user already absent, removing pending registration")
	}

	if err := s.pending.Delete(ctx, req.TeacherID); err != nil {
		log.WithError(err).Error("Identity user deleted but pending teacher remains")
		return nil, NewInternalError("failed to delete pending teacher", err)
	}

	log.Info("Teacher rejected")
	return &models.StatusResponse{Status: "success", Message: "Teacher rejected and removed successfully."}, nil
}

// ArchiveAccount soft-deletes an account
func (s *LifecycleService) ArchiveAccount(ctx context.Context, callerUID string, req models.ArchiveAccountRequest) (*models.SuccessResponse, error) {
	return s.setArchived(ctx, callerUID, req, true)
}

// UnarchiveAccount restores an archived account
func (s *LifecycleService) UnarchiveAccount(ctx context.Context, callerUID string, req models.ArchiveAccountRequest) (*models.SuccessResponse, error) {
	return s.setArchived(ctx, callerUID, req, false)
}

func (s *LifecycleService) setArchived(ctx context.Context, callerUID string, req models.ArchiveAccountRequest, archived bool) (*models.SuccessResponse, error) {
	if _, err := s.guard.RequireAdmin(ctx, callerUID); err != nil {
		return nil, err
	}
	if !validID(req.AccountID) {
		return nil, NewInvalidArgumentError("accountId and collectionName are required.")
	}
	if err := validateAccountCollection(req.CollectionName); err != nil {
		return nil, err
	}

	err := s.accounts.SetArchived(ctx, req.CollectionName, req.AccountID, archived, s.now())
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NewNotFoundError("Account not found.")
	}
	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"account_id": req.AccountID,
			"collection": req.CollectionName,
			"archived":   archived,
		}).Error("Failed to update archive state")
		return nil, NewInternalError("failed to update account", err)
	}
	return &models.SuccessResponse{Success: true}, nil
}

// DeleteUserAccount permanently removes an account.
// Order: profile document first, then identity user.
func (s *LifecycleService) DeleteUserAccount(ctx context.Context, callerUID string, req models.DeleteUserAccountRequest) (*models.SuccessResponse, error) {
	if _, err := s.guard.RequireAdmin(ctx, callerUID); err != nil {
		return nil, err
	}
	if !validID(req.UID) || !validID(req.DocumentID) || strings.TrimSpace(req.CollectionName) == "" {
		return nil, NewInvalidArgumentError("uid, collectionName and documentId are required.")
	}
	if err := validateAccountCollection(req.CollectionName); err != nil {
		return nil, err
	}

	log := s.logger.WithFields(logrus.Fields{
		"operation":   "deleteUserAccount",
		"uid":         req.UID,
		"collection":  req.CollectionName,
		"document_id": req.DocumentID,
		"admin_uid":   callerUID,
	})

	if err := s.accounts.Delete(ctx, req.CollectionName, req.DocumentID); err != nil {
		log.WithError(err).Error("Failed to delete account document")
		return nil, NewInternalError("failed to delete user account", err)
	}

	if err := s.identity.DeleteUser(ctx, req.UID); err != nil {
		if !errors.Is(err, identity.ErrUserNotFound) {
			log.WithError(err).Error("Account document deleted but identity user remains")
			return nil, NewInternalError("failed to delete user account", err)
		}
		log.Warn("Identity user already absent")
	}

	log.Info("User account deleted")
	return &models.SuccessResponse{Success: true, Message: "User account deleted successfully."}, nil
}

// UpdateAdminPassword sets a new password on any identity user
func (s *LifecycleService) UpdateAdminPassword(ctx context.Context, callerUID string, req models.UpdateAdminPasswordRequest) (*models.SuccessResponse, error) {
	if _, err := s.guard.RequireAdmin(ctx, callerUID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.UID) == "" || req.NewPassword == "" {
		return nil, NewInvalidArgumentError("uid and newPassword are required.")
	}
	if len(req.NewPassword) < minPasswordLength {
		return nil, NewInvalidArgumentError(fmt.Sprintf("newPassword must be at least %d characters.", minPasswordLength))
	}

	if err := s.identity.UpdatePassword(ctx, req.UID, req.NewPassword); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"uid":       req.UID,
			"admin_uid": callerUID,
		}).Error("Failed to update password")
		return nil, NewInternalError("failed to update password", err)
	}
	return &models.SuccessResponse{Success: true}, nil
}

// CreateUserAccount creates an identity user and its profile.
// Order: identity user and claim first, then profile; a profile failure leaves
// an identity user without a profile for reconciliation to report.
func (s *LifecycleService) CreateUserAccount(ctx context.Context, callerUID string, req models.CreateUserAccountRequest) (*models.SuccessResponse, error) {
	if _, err := s.guard.RequireAdmin(ctx, callerUID); err != nil {
		return nil, err
	}
	req.Email = strings.TrimSpace(req.Email)
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	if req.Email == "" || req.Password == "" || req.Role == "" || req.FirstName == "" || req.LastName == "" {
		return nil, NewInvalidArgumentError("email, password, role, firstName and lastName are required.")
	}
	if !strings.Contains(req.Email, "@") {
		return nil, NewInvalidArgumentError("email is invalid.")
	}
	if len(req.Password) < minPasswordLength {
		return nil, NewInvalidArgumentError(fmt.Sprintf("password must be at least %d characters.", minPasswordLength))
	}

	role := models.NormalizeRole(req.Role)
	collection, ok := models.CollectionForRole(role)
	if !ok {
		return nil, NewInvalidArgumentError("role must be admin, superAdmin, teacher or student.")
	}

	log := s.logger.WithFields(logrus.Fields{
		"operation":  "createUserAccount",
		"role":       role,
		"collection": collection,
		"admin_uid":  callerUID,
	})

	uid, err := s.identity.CreateUser(ctx, identity.NewUser{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.FirstName + " " + req.LastName,
	})
	if err != nil {
		log.WithError(err).Error("Failed to create identity user")
		return nil, NewInternalError("failed to create user", err)
	}
	log = log.WithField("uid", uid)

	if err := s.identity.SetRoleClaim(ctx, uid, string(role)); err != nil {
		log.WithError(err).Error("Identity user created but role claim failed")
		return nil, NewInternalError("failed to set role claim", err)
	}

	now := s.now()
	data := map[string]interface{}{
		models.FieldRole:       string(role),
		models.FieldEmail:      req.Email,
		models.FieldIsArchived: false,
		models.FieldCreatedAt:  now,
		models.FieldUpdatedAt:  now,
	}
	if collection == models.CollectionStudents {
		data[models.FieldStudentFirstName] = req.FirstName
		data[models.FieldStudentLastName] = req.LastName
	} else {
		data[models.FieldFirstName] = req.FirstName
		data[models.FieldLastName] = req.LastName
	}
	if req.SchoolID != "" {
		data[models.FieldSchoolID] = req.SchoolID
	}
	if req.ContactNumber != "" {
		data[models.FieldContactNumber] = req.ContactNumber
	}

	if err := s.accounts.Create(ctx, collection, uid, data); err != nil {
		log.WithError(err).Error("Identity user created but profile write failed")
		return nil, NewInternalError("failed to create user profile", err)
	}

	log.Info("User account created")
	return &models.SuccessResponse{Success: true, UID: uid}, nil
}

// ListAccounts returns the profiles of one account collection
func (s *LifecycleService) ListAccounts(ctx context.Context, callerUID string, req models.ListAccountsRequest) (*models.AccountsResponse, error) {
	if _, err := s.guard.RequireAdmin(ctx, callerUID); err != nil {
		return nil, err
	}
	if err := validateAccountCollection(req.CollectionName); err != nil {
		return nil, err
	}

	accounts, err := s.accounts.List(ctx, req.CollectionName, req.IncludeArchived)
	if err != nil {
		s.logger.WithError(err).WithField("collection", req.CollectionName).Error("Failed to list accounts")
		return nil, NewInternalError("failed to list accounts", err)
	}
	return &models.AccountsResponse{Accounts: accounts}, nil
}

// DeleteStory deletes a story document. Dependent data is removed by the
// cascade subscribed to the change stream.
func (s *LifecycleService) DeleteStory(ctx context.Context, callerUID string, req models.DeleteStoryRequest) (*models.SuccessResponse, error) {
	if _, err := s.guard.RequireAdmin(ctx, callerUID); err != nil {
		return nil, err
	}
	if !validID(req.StoryID) {
		return nil, NewInvalidArgumentError("storyId is required.")
	}

	if err := s.stories.Delete(ctx, req.StoryID); err != nil {
		s.logger.WithError(err).WithField("story_id", req.StoryID).Error("Failed to delete story")
		return nil, NewInternalError("failed to delete story", err)
	}
	return &models.SuccessResponse{Success: true, Message: "Story deleted. Related files and records are being cleaned up."}, nil
}
