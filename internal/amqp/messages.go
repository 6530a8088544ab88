package amqp

import (
	"encoding/json"
	"time"
)

// Message kinds carried on the sync queue.
const (
	KindSync   = "sync"
	KindDelete = "delete"
)

// SessionSyncMessage is the lightweight message for replaying a charge
// session to the remote store. It carries only the ID, the worker fetches
// the full session from the local database.
type SessionSyncMessage struct {
	Kind      string    `json:"kind"`
	ID        int64     `json:"id"`
	Attempts  int64     `json:"attempts"`
	RemoteRef string    `json:"remote_ref,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewSessionSyncMessage creates an upsert message for a local session.
func NewSessionSyncMessage(id, attempts int64) *SessionSyncMessage {
	return &SessionSyncMessage{
		Kind:      KindSync,
		ID:        id,
		Attempts:  attempts,
		Timestamp: time.Now(),
	}
}

// NewSessionDeleteMessage creates a delete message for a session already
// replayed to the remote store.
func NewSessionDeleteMessage(id int64, remoteRef string) *SessionSyncMessage {
	return &SessionSyncMessage{
		Kind:      KindDelete,
		ID:        id,
		RemoteRef: remoteRef,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *SessionSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// SessionSyncMessageFromJSON creates a message from JSON bytes
func SessionSyncMessageFromJSON(data []byte) (*SessionSyncMessage, error) {
	var msg SessionSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
