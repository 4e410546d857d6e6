package model

import "time"

// ProgressEntry awards points to one participant for one completed session.
// Exactly one entry exists per (SessionID, UserID).
type ProgressEntry struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	SessionID int64     `json:"session_id"`
	Kind      SkillKind `json:"kind"` // teach - для учителя, learn - для ученика
	Points    int       `json:"points"`
	CreatedAt time.Time `json:"created_at"`
}
