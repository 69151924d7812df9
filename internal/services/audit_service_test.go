package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tesseract-hub/kwentura-service/internal/events"
	"github.com/tesseract-hub/kwentura-service/internal/models"
)

func TestAuditTriggerRecordsWrites(t *testing.T) {
	f := newFixture(t)
	ctx := events.WithActor(context.Background(), "A")

	require.NoError(t, f.store.Set(ctx, "students/S1", map[string]interface{}{
		models.FieldStudentFirstName: "Juan",
		models.FieldStudentLastName:  "Dela Cruz",
	}))
	f.bus.Wait()
	require.NoError(t, f.store.Update(ctx, "students/S1", map[string]interface{}{models.FieldIsArchived: true}))
	f.bus.Wait()
	require.NoError(t, f.store.Delete(context.Background(), "students/S1"))

	entries := f.adminLogs(t)
	require.Len(t, entries, 3)

	byType := map[models.AuditEventType]*models.AdminLogEntry{}
	for _, e := range entries {
		byType[e.EventType] = e
	}
	require.Contains(t, byType, models.EventCreate)
	require.Contains(t, byType, models.EventUpdate)
	require.Contains(t, byType, models.EventDelete)

	create := byType[models.EventCreate]
	assert.Equal(t, "students", create.CollectionName)
	assert.Equal(t, "S1", create.DocumentID)
	assert.Equal(t, "A", create.AdminID)
	assert.Equal(t, "Juan Dela Cruz", create.TargetUserFullName)

	del := byType[models.EventDelete]
	assert.Equal(t, models.SystemActor, del.AdminID, "no caller falls back to system")
	assert.Equal(t, "Juan Dela Cruz", del.TargetUserFullName, "delete reads the before snapshot")
}

func TestAuditTriggerNameFallbacks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.store.Set(ctx, "teachers/U1", map[string]interface{}{
		models.FieldFirstName: "Ana",
		models.FieldLastName:  "Cruz",
		// student fields must be ignored outside students
		models.FieldStudentFirstName: "Wrong",
	}))
	require.NoError(t, f.store.Set(ctx, "stories/X", map[string]interface{}{"title": "Alamat"}))

	entries := f.adminLogs(t)
	require.Len(t, entries, 2)
	names := map[string]string{}
	for _, e := range entries {
		names[e.CollectionName] = e.TargetUserFullName
	}
	assert.Equal(t, "Ana Cruz", names["teachers"])
	assert.Equal(t, "N/A", names["stories"])
}

func TestAuditTriggerSkipsLogsAndNestedDocuments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.store.Add(ctx, "admin_logs", map[string]interface{}{"adminId": "x"})
	require.NoError(t, err)
	require.NoError(t, f.store.Set(ctx, "students/S1/quizScores/q1", map[string]interface{}{"storyId": "X"}))

	assert.Len(t, f.adminLogs(t), 1, "only the manual entry exists")
}

func TestAuditTriggerSwallowsFailures(t *testing.T) {
	f := newFixture(t)
	f.mem.SetFault(func(op, path string) error {
		if op == "add" && path == "admin_logs" {
			return errors.New("quota")
		}
		return nil
	})
	err := f.audit.HandleChange(context.Background(), &events.ChangeEvent{
		Collection: "teachers", DocumentID: "U1", Path: "teachers/U1", After: map[string]interface{}{},
	})
	assert.NoError(t, err)
}

func TestLogAdminUIAction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "teachers/U1", map[string]interface{}{models.FieldFirstName: "Ana", models.FieldLastName: "Cruz"})

	resp, err := f.audit.LogAdminUIAction(ctx, "caller-1", models.LogAdminUIActionRequest{
		ActionType:     "VIEW_PROFILE",
		CollectionName: "teachers",
		DocumentID:     "U1",
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)

	entries := f.adminLogs(t)
	require.Len(t, entries, 1)
	assert.Equal(t, "caller-1", entries[0].AdminID)
	assert.Equal(t, "VIEW_PROFILE", entries[0].ActionType)
	assert.Equal(t, "Ana Cruz", entries[0].TargetUserFullName)
	assert.Empty(t, entries[0].EventType)
}

func TestLogAdminUIActionUsesSuppliedName(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.audit.LogAdminUIAction(ctx, "caller-1", models.LogAdminUIActionRequest{
		ActionType:         "EXPORT",
		CollectionName:     "students",
		DocumentID:         "S9",
		TargetUserID:       "S9",
		TargetUserFullName: "Maria Clara",
	})
	require.NoError(t, err)

	_, err = f.audit.LogAdminUIAction(ctx, "caller-1", models.LogAdminUIActionRequest{
		ActionType:     "VIEW",
		CollectionName: "students",
		DocumentID:     "missing",
	})
	require.NoError(t, err)

	entries := f.adminLogs(t)
	require.Len(t, entries, 2)
	names := []string{entries[0].TargetUserFullName, entries[1].TargetUserFullName}
	assert.ElementsMatch(t, []string{"Maria Clara", "N/A"}, names)
}

func TestLogAdminUIActionErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.audit.LogAdminUIAction(ctx, "", models.LogAdminUIActionRequest{ActionType: "a", CollectionName: "b", DocumentID: "c"})
	requireKind(t, err, KindUnauthenticated)

	_, err = f.audit.LogAdminUIAction(ctx, "caller", models.LogAdminUIActionRequest{ActionType: "a", CollectionName: "b"})
	requireKind(t, err, KindInvalidArgument)

	f.mem.SetFault(func(op, path string) error {
		if op == "add" {
			return errors.New("quota")
		}
		return nil
	})
	_, err = f.audit.LogAdminUIAction(ctx, "caller", models.LogAdminUIActionRequest{ActionType: "a", CollectionName: "stories", DocumentID: "c"})
	requireKind(t, err, KindInternal)
}

func TestListAdminLogs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedAdmin(t, "A", "admin")
	for i := 0; i < 3; i++ {
		_, err := f.audit.LogAdminUIAction(ctx, "A", models.LogAdminUIActionRequest{ActionType: "VIEW", CollectionName: "stories", DocumentID: "X"})
		require.NoError(t, err)
	}
	f.bus.Wait()

	resp, err := f.audit.ListAdminLogs(ctx, "A", models.ListAdminLogsRequest{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, resp.Entries, 2)

	_, err = f.audit.ListAdminLogs(ctx, "someone", models.ListAdminLogsRequest{})
	requireKind(t, err, KindPermissionDenied)
}
