package models

// ApproveTeacherRequest is the payload of approveTeacher and rejectTeacher
type ApproveTeacherRequest struct {
	TeacherID  string `json:"teacherId"`
	TeacherUID string `json:"teacherUid"`
}

// ArchiveAccountRequest is the payload of archiveAccount and unarchiveAccount
type ArchiveAccountRequest struct {
	AccountID      string `json:"accountId"`
	CollectionName string `json:"collectionName"`
}

// DeleteUserAccountRequest is the payload of deleteUserAccount
type DeleteUserAccountRequest struct {
	UID            string `json:"uid"`
	CollectionName string `json:"collectionName"`
	DocumentID     string `json:"documentId"`
}

// UpdateAdminPasswordRequest is the payload of updateAdminPassword
type UpdateAdminPasswordRequest struct {
	UID         string `json:"uid"`
	NewPassword string `json:"newPassword"`
}

// CreateUserAccountRequest is the payload of createUserAccount
type CreateUserAccountRequest struct {
	Email         string `json:"email"`
	Password      string `json:"password"`
	Role          string `json:"role"`
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	SchoolID      string `json:"schoolId,omitempty"`
	ContactNumber string `json:"contactNumber,omitempty"`
}

// ListAccountsRequest is the payload of listAccounts
type ListAccountsRequest struct {
	CollectionName  string `json:"collectionName"`
	IncludeArchived bool   `json:"includeArchived"`
}

// DeleteStoryRequest is the payload of deleteStory
type DeleteStoryRequest struct {
	StoryID string `json:"storyId"`
}

// LogAdminUIActionRequest is the payload of logAdminUiAction
type LogAdminUIActionRequest struct {
	ActionType         string `json:"actionType"`
	CollectionName     string `json:"collectionName"`
	DocumentID         string `json:"documentId"`
	TargetUserID       string `json:"targetUserId,omitempty"`
	TargetUserFullName string `json:"targetUserFullName,omitempty"`
}

// GenerateTextRequest is the payload of the text generation callables
type GenerateTextRequest struct {
	Text    string `json:"text"`
	StoryID string `json:"storyId,omitempty"`
}

// SynthesizeSpeechRequest is the payload of synthesizeSpeech
type SynthesizeSpeechRequest struct {
	Text     string `json:"text"`
	FileName string `json:"fileName"`
}

// StatusResponse is returned by approveTeacher and rejectTeacher
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// SuccessResponse is the {success:true} shape with optional fields
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	UID     string `json:"uid,omitempty"`
}

// AccountsResponse is returned by listAccounts
type AccountsResponse struct {
	Accounts []*Account `json:"accounts"`
}

// SynopsisResponse is returned by generateSynopsis
type SynopsisResponse struct {
	Synopsis string `json:"synopsis"`
}

// MoralQuizResponse is returned by generateMoralQuiz
type MoralQuizResponse struct {
	Quiz *MoralQuiz `json:"quiz"`
}

// QuestionsResponse is returned by generateComprehensionQuestions
type QuestionsResponse struct {
	Questions []QuizQuestion `json:"questions"`
}

// SpeechResponse is returned by synthesizeSpeech
type SpeechResponse struct {
	AudioURL string `json:"audioUrl"`
}

// ListAdminLogsRequest is the payload of listAdminLogs
type ListAdminLogsRequest struct {
	Limit int `json:"limit"`
}

// AdminLogsResponse is returned by listAdminLogs
type AdminLogsResponse struct {
	Entries []*AdminLogEntry `json:"entries"`
}
