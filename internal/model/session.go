package model

import "time"

type SessionStatus string

const (
	SessionStatusRequested  SessionStatus = "requested"   // ожидает подтверждения учителя
	SessionStatusConfirmed  SessionStatus = "confirmed"   // подтверждено учителем
	SessionStatusInProgress SessionStatus = "in_progress" // код старта подтверждён учеником
	SessionStatusCompleted  SessionStatus = "completed"   // завершено, очки начислены
	SessionStatusCancelled  SessionStatus = "cancelled"   // отменено или просрочено
)

// ActiveSessionStatuses are the statuses that block a time window.
var ActiveSessionStatuses = []SessionStatus{
	SessionStatusRequested,
	SessionStatusConfirmed,
	SessionStatusInProgress,
}

// IsActive checks if the status still occupies the participants' calendars
func (s SessionStatus) IsActive() bool {
	for _, a := range ActiveSessionStatuses {
		if s == a {
			return true
		}
	}
	return false
}

// IsTerminal checks if no further transition is possible
func (s SessionStatus) IsTerminal() bool {
	return s == SessionStatusCompleted || s == SessionStatusCancelled
}

// Session is a booked one-to-one tutoring session between a teacher and a student.
type Session struct {
	ID             int64         `json:"id"`
	TeacherID      int64         `json:"teacher_id"`
	StudentID      int64         `json:"student_id"`
	SkillID        int64         `json:"skill_id"`
	ScheduledStart time.Time     `json:"scheduled_start"`
	ScheduledEnd   time.Time     `json:"scheduled_end"`
	Status         SessionStatus `json:"status"`
	StartCode      *string       `json:"-"`
	CodeExpiresAt  *time.Time    `json:"code_expires_at"`
	ActualStart    *time.Time    `json:"actual_start"`
	ActualEnd      *time.Time    `json:"actual_end"`
	Version        int64         `json:"version"` // растёт на каждом переходе, защищает от двойной отправки
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// IsParticipant checks if the user is the teacher or the student of the session
func (s *Session) IsParticipant(userID int64) bool {
	return s.TeacherID == userID || s.StudentID == userID
}

// Counterpart returns the other participant's id.
func (s *Session) Counterpart(userID int64) int64 {
	if s.TeacherID == userID {
		return s.StudentID
	}
	return s.TeacherID
}

// HasValidCode checks if a start code was issued and has not expired at now
func (s *Session) HasValidCode(now time.Time) bool {
	if s.StartCode == nil || s.CodeExpiresAt == nil {
		return false
	}
	return now.Before(*s.CodeExpiresAt)
}

// EffectiveWindow returns the actual start/end when stamped, the scheduled ones otherwise.
func (s *Session) EffectiveWindow() (time.Time, time.Time) {
	start, end := s.ScheduledStart, s.ScheduledEnd
	if s.ActualStart != nil {
		start = *s.ActualStart
	}
	if s.ActualEnd != nil {
		end = *s.ActualEnd
	}
	return start, end
}

// SessionList groups a user's sessions by the role they play in them.
type SessionList struct {
	Teaching []*Session `json:"teaching"`
	Learning []*Session `json:"learning"`
}
