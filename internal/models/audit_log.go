package models

import "time"

// AuditEventType classifies a document write
type AuditEventType string

const (
	EventCreate AuditEventType = "create"
	EventUpdate AuditEventType = "update"
	EventDelete AuditEventType = "delete"
)

// SystemActor is recorded when a write carries no caller identity
const SystemActor = "system"

// AdminLogEntry is an append-only record in admin_logs.
// Trigger entries carry EventType, explicit UI entries carry ActionType.
type AdminLogEntry struct {
	ID                 string         `json:"id,omitempty"`
	Timestamp          time.Time      `json:"timestamp"`
	CollectionName     string         `json:"collectionName"`
	DocumentID         string         `json:"documentId"`
	EventType          AuditEventType `json:"eventType,omitempty"`
	ActionType         string         `json:"actionType,omitempty"`
	AdminID            string         `json:"adminId"`
	TargetUserID       string         `json:"targetUserId,omitempty"`
	TargetUserFullName string         `json:"targetUserFullName"`
}

// ToData converts the entry into document fields
func (e *AdminLogEntry) ToData() map[string]interface{} {
	data := map[string]interface{}{
		"timestamp":          e.Timestamp,
		"collectionName":     e.CollectionName,
		"documentId":         e.DocumentID,
		"adminId":            e.AdminID,
		"targetUserFullName": e.TargetUserFullName,
	}
	if e.EventType != "" {
		data["eventType"] = string(e.EventType)
	}
	if e.ActionType != "" {
		data["actionType"] = e.ActionType
	}
	if e.TargetUserID != "" {
		data["targetUserId"] = e.TargetUserID
	}
	return data
}

// AdminLogEntryFromData builds an entry from stored fields
func AdminLogEntryFromData(id string, data map[string]interface{}) *AdminLogEntry {
	entry := &AdminLogEntry{
		ID:                 id,
		CollectionName:     StringField(data, "collectionName"),
		DocumentID:         StringField(data, "documentId"),
		EventType:          AuditEventType(StringField(data, "eventType")),
		ActionType:         StringField(data, "actionType"),
		AdminID:            StringField(data, "adminId"),
		TargetUserID:       StringField(data, "targetUserId"),
		TargetUserFullName: StringField(data, "targetUserFullName"),
	}
	if ts := TimeField(data, "timestamp"); ts != nil {
		entry.Timestamp = *ts
	}
	return entry
}
