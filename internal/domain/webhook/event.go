// Package webhook describes the signed notifications the gateway sends when
// Odoo records change.
package webhook

import (
	"encoding/json"
	"strconv"
	"time"
)

// EventType is the kind of change being notified. Record events carry the
// ORM operation name receivers dispatch on.
type EventType string

const (
	EventCreated            EventType = "create"
	EventUpdated            EventType = "write"
	EventDeleted            EventType = "unlink"
	EventDatabaseReady      EventType = "database_ready"
	EventDatabaseDuplicated EventType = "database_duplicated"
)

// ModuleModel is the model named by the database ready notification
const ModuleModel = "ir.module.module"

// IsSystem reports whether the event is about a database rather than a record
func (t EventType) IsSystem() bool {
	return t == EventDatabaseReady || t == EventDatabaseDuplicated
}

// TimestampLayout renders UTC timestamps with microseconds and a Z suffix
const TimestampLayout = "2006-01-02T15:04:05.000000Z"

// Event is one notification
type Event struct {
	Type           EventType
	Model          string
	RecordID       int
	UserID         int
	Database       string
	OrganizationID string
	Timestamp      time.Time
	// Extra carries system event fields, merged into the payload
	Extra map[string]any
}

// NewRecordEvent builds a created/updated/deleted event
func NewRecordEvent(t EventType, model string, recordID, userID int, db string) Event {
	return Event{
		Type:      t,
		Model:     model,
		RecordID:  recordID,
		UserID:    userID,
		Database:  db,
		Timestamp: time.Now().UTC(),
	}
}

// NewSystemEvent builds a database-level event. The ready notification
// names the module model with record id 0.
func NewSystemEvent(t EventType, db string, extra map[string]any) Event {
	e := Event{
		Type:      t,
		Database:  db,
		Timestamp: time.Now().UTC(),
		Extra:     extra,
	}
	if t == EventDatabaseReady {
		e.Model = ModuleModel
	}
	return e
}

// Endpoint returns the receiver path for the event, false when the model
// does not notify.
func (e Event) Endpoint() (string, bool) {
	switch e.Type {
	case EventDatabaseReady:
		return "/webhooks/odoo/database-ready", true
	case EventDatabaseDuplicated:
		return "/webhooks/odoo/database-duplicated", true
	}
	return EndpointFor(e.Model)
}

// Key identifies the subject of the event, used as the message key on the
// event stream.
func (e Event) Key() string {
	if e.Type.IsSystem() {
		return string(e.Type) + ":" + e.Database
	}
	return e.Model + ":" + strconv.Itoa(e.RecordID)
}

// Payload serializes the event. Keys are emitted in sorted order so the
// signature is stable. Record events carry event, model, record_id,
// organization_id, user_id and timestamp. System events carry the database
// instead of the user, plus any extra fields.
func (e Event) Payload() ([]byte, error) {
	body := make(map[string]any, 6+len(e.Extra))
	for k, v := range e.Extra {
		body[k] = v
	}
	body["event"] = string(e.Type)
	body["organization_id"] = e.OrganizationID
	body["timestamp"] = e.Timestamp.UTC().Format(TimestampLayout)
	if e.Model != "" {
		body["model"] = e.Model
		body["record_id"] = e.RecordID
	}
	if e.Type.IsSystem() {
		body["database"] = e.Database
	} else {
		body["user_id"] = strconv.Itoa(e.UserID)
	}
	return json.Marshal(body)
}
