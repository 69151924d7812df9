package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeRole(t *testing.T) {
	tests := []struct {
		raw  string
		want Role
	}{
		{"admin", RoleAdmin},
		{"Admin", RoleAdmin},
		{"superAdmin", RoleSuperAdmin},
		{"superadmin", RoleSuperAdmin},
		{"super_admin", RoleSuperAdmin},
		{" teacher ", RoleTeacher},
		{"student", RoleStudent},
		{"", RoleUser},
		{"principal", RoleUser},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeRole(tt.raw))
		})
	}
}

func TestRoleIsAdmin(t *testing.T) {
	assert.True(t, RoleAdmin.IsAdmin())
	assert.True(t, RoleSuperAdmin.IsAdmin())
	assert.False(t, RoleTeacher.IsAdmin())
	assert.False(t, RoleUser.IsAdmin())
}

func TestAccountFromData_StudentNames(t *testing.T) {
	login := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	acc := AccountFromData(CollectionStudents, "s1", map[string]interface{}{
		"studentFirstName": "Juan",
		"studentLastName":  "Dela Cruz",
		"firstName":        "ignored",
		"role":             "student",
		"isArchived":       true,
		"lastLogin":        login,
	})

	assert.Equal(t, "Juan Dela Cruz", acc.FullName())
	assert.Equal(t, RoleStudent, acc.Role)
	assert.True(t, acc.IsArchived)
	if assert.NotNil(t, acc.LastLogin) {
		assert.True(t, acc.LastLogin.Equal(login))
	}
}

func TestAccountFromData_TeacherNames(t *testing.T) {
	acc := AccountFromData(CollectionTeachers, "t1", map[string]interface{}{
		"firstName": "Ana",
		"lastName":  "Cruz",
	})
	assert.Equal(t, "Ana Cruz", acc.FullName())
	assert.Equal(t, RoleUser, acc.Role)
}

func TestCollectionForRole(t *testing.T) {
	c, ok := CollectionForRole(RoleSuperAdmin)
	assert.True(t, ok)
	assert.Equal(t, CollectionAdmins, c)

	_, ok = CollectionForRole(RoleUser)
	assert.False(t, ok)
}

func TestStoryBlobPrefixes(t *testing.T) {
	assert.Equal(t, []string{
		"stories/abc",
		"story_pdfs/abc",
		"story_pages/abc/",
		"story_tts/abc/",
		"assessment_images/abc/",
		"assessment_audio/abc/",
	}, StoryBlobPrefixes("abc"))
}

func TestPublicObjectURL(t *testing.T) {
	assert.Equal(t, "https://storage.googleapis.com/kwentura.appspot.com/tts/intro.mp3",
		PublicObjectURL("kwentura.appspot.com", TTSObjectPath("intro")))
}
