package models

import (
	"strings"
	"time"
)

// Collection names in the document store
const (
	CollectionAdmins          = "admins"
	CollectionTeachers        = "teachers"
	CollectionStudents        = "students"
	CollectionPendingTeachers = "pendingTeachers"
	CollectionStories         = "stories"
	CollectionAdminLogs       = "admin_logs"
	CollectionRetentionRates  = "retention_rates"
	CollectionStoryEngagement = "story_engagement"
	CollectionTTSConfig       = "tts_config"
	SubcollectionQuizScores   = "quizScores"
)

// UserCollections are the three account collections, each keyed by identity UID
var UserCollections = []string{CollectionAdmins, CollectionTeachers, CollectionStudents}

// IsUserCollection reports whether name is one of the account collections
func IsUserCollection(name string) bool {
	for _, c := range UserCollections {
		if c == name {
			return true
		}
	}
	return false
}

// Role is the canonical role of an account
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "superAdmin"
	RoleTeacher    Role = "teacher"
	RoleStudent    Role = "student"
	RoleUser       Role = "user"
)

// NormalizeRole maps any stored role spelling to its canonical form.
// Unknown or empty values map to RoleUser.
func NormalizeRole(raw string) Role {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "admin":
		return RoleAdmin
	case "superadmin", "super_admin", "super-admin":
		return RoleSuperAdmin
	case "teacher":
		return RoleTeacher
	case "student":
		return RoleStudent
	default:
		return RoleUser
	}
}

// IsAdmin reports whether the role may run admin operations
func (r Role) IsAdmin() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// CollectionForRole returns the account collection that stores profiles for the role
func CollectionForRole(r Role) (string, bool) {
	switch r {
	case RoleAdmin, RoleSuperAdmin:
		return CollectionAdmins, true
	case RoleTeacher:
		return CollectionTeachers, true
	case RoleStudent:
		return CollectionStudents, true
	default:
		return "", false
	}
}

// Account document field names
const (
	FieldRole             = "role"
	FieldEmail            = "email"
	FieldFirstName        = "firstName"
	FieldLastName         = "lastName"
	FieldStudentFirstName = "studentFirstName"
	FieldStudentLastName  = "studentLastName"
	FieldContactNumber    = "contactNumber"
	FieldSchoolID         = "schoolId"
	FieldIsArchived       = "isArchived"
	FieldActiveSessionID  = "activeSessionId"
	FieldLastLogin        = "lastLogin"
	FieldCreatedAt        = "createdAt"
	FieldUpdatedAt        = "updatedAt"
	FieldArchivedAt       = "archivedAt"
	FieldUnarchivedAt     = "unarchivedAt"
)

// Account is a user profile stored in admins, teachers or students.
// ID equals the identity store UID.
type Account struct {
	ID              string     `json:"id"`
	Collection      string     `json:"collectionName"`
	Role            Role       `json:"role"`
	FirstName       string     `json:"firstName"`
	LastName        string     `json:"lastName"`
	Email           string     `json:"email,omitempty"`
	ContactNumber   string     `json:"contactNumber,omitempty"`
	SchoolID        string     `json:"schoolId,omitempty"`
	IsArchived      bool       `json:"isArchived"`
	ActiveSessionID string     `json:"activeSessionId,omitempty"`
	LastLogin       *time.Time `json:"lastLogin,omitempty"`
	CreatedAt       *time.Time `json:"createdAt,omitempty"`
	UpdatedAt       *time.Time `json:"updatedAt,omitempty"`
	ArchivedAt      *time.Time `json:"archivedAt,omitempty"`
	UnarchivedAt    *time.Time `json:"unarchivedAt,omitempty"`
}

// FullName joins first and last name
func (a *Account) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// AccountFromData builds an Account from raw document data. Students carry
// studentFirstName/studentLastName, everyone else firstName/lastName.
func AccountFromData(collection, id string, data map[string]interface{}) *Account {
	acc := &Account{
		ID:              id,
		Collection:      collection,
		Role:            NormalizeRole(StringField(data, FieldRole)),
		Email:           StringField(data, FieldEmail),
		ContactNumber:   StringField(data, FieldContactNumber),
		SchoolID:        StringField(data, FieldSchoolID),
		IsArchived:      BoolField(data, FieldIsArchived),
		ActiveSessionID: StringField(data, FieldActiveSessionID),
		LastLogin:       TimeField(data, FieldLastLogin),
		CreatedAt:       TimeField(data, FieldCreatedAt),
		UpdatedAt:       TimeField(data, FieldUpdatedAt),
		ArchivedAt:      TimeField(data, FieldArchivedAt),
		UnarchivedAt:    TimeField(data, FieldUnarchivedAt),
	}
	acc.FirstName, acc.LastName = NameFields(collection, data)
	return acc
}

// NameFields returns the first and last name using the collection's field naming
func NameFields(collection string, data map[string]interface{}) (string, string) {
	if collection == CollectionStudents {
		return StringField(data, FieldStudentFirstName), StringField(data, FieldStudentLastName)
	}
	return StringField(data, FieldFirstName), StringField(data, FieldLastName)
}

// StringField reads a string value, returning "" when absent or not a string
func StringField(data map[string]interface{}, key string) string {
	if data == nil {
		return ""
	}
	if s, ok := data[key].(string); ok {
		return s
	}
	return ""
}

// BoolField reads a bool value, returning false when absent
func BoolField(data map[string]interface{}, key string) bool {
	if data == nil {
		return false
	}
	b, _ := data[key].(bool)
	return b
}

// TimeField reads a timestamp value
func TimeField(data map[string]interface{}, key string) *time.Time {
	if data == nil {
		return nil
	}
	switch v := data[key].(type) {
	case time.Time:
		return &v
	case *time.Time:
		return v
	}
	return nil
}
