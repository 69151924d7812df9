package services

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/tesseract-hub/kwentura-service/internal/events"
	"github.com/tesseract-hub/kwentura-service/internal/identity"
	"github.com/tesseract-hub/kwentura-service/internal/models"
	"github.com/tesseract-hub/kwentura-service/internal/redis"
	"github.com/tesseract-hub/kwentura-service/internal/repository"
	"github.com/tesseract-hub/kwentura-service/internal/storage"
)

// fixture wires every service on in-memory stores. Seed through mem to
// bypass the change stream; service calls go through the observed store.
type fixture struct {
	mem      *repository.MemoryStore
	store    *repository.ObservedStore
	bus      *events.LocalBus
	identity *identity.MemoryStore
	blobs    *storage.MemoryStore
	locker   *redis.LocalLocker

	accounts *repository.AccountRepository
	pending  *repository.PendingTeacherRepository
	stories  *repository.StoryRepository
	auditLog *repository.AuditRepository

	guard     *AdminGuard
	lifecycle *LifecycleService
	cascade   *CascadeService
	audit     *AuditService
	retention *RetentionService
	recon     *ReconciliationService
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := testLogger()

	f := &fixture{
		mem:      repository.NewMemoryStore(),
		bus:      events.NewLocalBus(logger),
		identity: identity.NewMemoryStore(),
		blobs:    storage.NewMemoryStore("kwentura-test"),
		locker:   redis.NewLocalLocker(),
	}
	f.store = repository.NewObservedStore(f.mem, f.bus, logger)

	f.accounts = repository.NewAccountRepository(f.store)
	f.pending = repository.NewPendingTeacherRepository(f.store)
	f.stories = repository.NewStoryRepository(f.store)
	f.auditLog = repository.NewAuditRepository(f.store)

	f.guard = NewAdminGuard(f.accounts, logger)
	f.lifecycle = NewLifecycleService(f.accounts, f.pending, f.stories, f.identity, f.guard, f.locker,
		LifecycleConfig{LockTTL: time.Second, LockWait: 50 * time.Millisecond}, logger)
	f.cascade = NewCascadeService(f.stories, f.blobs, 4, logger)
	f.audit = NewAuditService(f.auditLog, f.accounts, f.guard, logger)
	f.retention = NewRetentionService(f.accounts, repository.NewRetentionRepository(f.store), time.UTC, 4, logger)
	f.recon = NewReconciliationService(f.accounts, f.identity, 4, logger)

	f.bus.Subscribe("audit", f.audit.HandleChange)
	f.bus.Subscribe("cascade", f.cascade.HandleChange)
	require.NoError(t, f.bus.Start(context.Background()))
	t.Cleanup(func() { f.bus.Close() })
	return f
}

func (f *fixture) seed(t *testing.T, path string, data map[string]interface{}) {
	t.Helper()
	require.NoError(t, f.mem.Set(context.Background(), path, data))
}

func (f *fixture) seedAdmin(t *testing.T, uid, role string) {
	t.Helper()
	f.seed(t, "admins/"+uid, map[string]interface{}{
		models.FieldRole:      role,
		models.FieldFirstName: "Admin",
		models.FieldLastName:  uid,
	})
	f.identity.AddUser(&identity.User{UID: uid, Claims: map[string]interface{}{"role": role}})
}

func (f *fixture) exists(t *testing.T, path string) bool {
	t.Helper()
	_, err := f.mem.Get(context.Background(), path)
	if err == repository.ErrNotFound {
		return false
	}
	require.NoError(t, err)
	return true
}

func (f *fixture) adminLogs(t *testing.T) []*models.AdminLogEntry {
	t.Helper()
	f.bus.Wait()
	entries, err := f.auditLog.List(context.Background(), 0)
	require.NoError(t, err)
	return entries
}

func requireKind(t *testing.T, err error, kind ErrorKind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, KindOf(err), err.Error())
}
