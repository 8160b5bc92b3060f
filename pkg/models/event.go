package models

import "time"

// RecordSavedEvent is published after a record has been written
type RecordSavedEvent struct {
	RecordID string     `json:"record_id"`
	Kind     RecordKind `json:"kind"`
	SavedAt  time.Time  `json:"saved_at"`
}
