package models

// PendingTeacher is a self-registered teacher awaiting admin approval.
// Approval copies Data verbatim into teachers/{UID}.
type PendingTeacher struct {
	ID   string                 `json:"id"`
	UID  string                 `json:"uid"`
	Data map[string]interface{} `json:"data"`
}
