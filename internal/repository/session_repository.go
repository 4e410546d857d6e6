package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/skillswap/internal/model"
	"github.com/Freeeeeet/skillswap/internal/repository/base"
	"github.com/jackc/pgx/v5"
)

const sessionColumns = `id, teacher_id, student_id, skill_id, scheduled_start, scheduled_end, status,
	start_code, code_expires_at, actual_start, actual_end, version, created_at, updated_at`

type SessionRepository struct {
	*base.Repository
}

func NewSessionRepository(b *base.Repository) *SessionRepository {
	return &SessionRepository{Repository: b}
}

// Create создаёт новую сессию
func (r *SessionRepository) Create(ctx context.Context, session *model.Session) error {
	query := `
		INSERT INTO sessions (teacher_id, student_id, skill_id, scheduled_start, scheduled_end, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, version, created_at, updated_at
	`

	err := r.QueryRow(
		ctx, query,
		session.TeacherID,
		session.StudentID,
		session.SkillID,
		session.ScheduledStart,
		session.ScheduledEnd,
		session.Status,
	).Scan(&session.ID, &session.Version, &session.CreatedAt, &session.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	return nil
}

// GetByID получает сессию по ID
func (r *SessionRepository) GetByID(ctx context.Context, id int64) (*model.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`

	session, err := scanSession(r.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get session by id: %w", err)
	}

	return session, nil
}

// ListByTeacher получает все сессии, где пользователь учитель
func (r *SessionRepository) ListByTeacher(ctx context.Context, teacherID int64) ([]*model.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE teacher_id = $1 ORDER BY scheduled_start DESC`
	return r.list(ctx, "list sessions by teacher", query, teacherID)
}

// ListByStudent получает все сессии, где пользователь ученик
func (r *SessionRepository) ListByStudent(ctx context.Context, studentID int64) ([]*model.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE student_id = $1 ORDER BY scheduled_start DESC`
	return r.list(ctx, "list sessions by student", query, studentID)
}

// ActiveForTeacher получает активные сессии учителя, пересекающиеся с [start, end)
func (r *SessionRepository) ActiveForTeacher(ctx context.Context, teacherID int64, start, end time.Time) ([]*model.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE teacher_id = $1
		  AND status = ANY($2)
		  AND scheduled_start < $4
		  AND scheduled_end > $3
		ORDER BY scheduled_start
	`
	return r.list(ctx, "list active sessions by teacher", query, teacherID, activeStatuses(), start, end)
}

// ActiveForParticipant получает активные сессии, где пользователь учитель или ученик,
// пересекающиеся с [start, end)
func (r *SessionRepository) ActiveForParticipant(ctx context.Context, userID int64, start, end time.Time) ([]*model.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE (teacher_id = $1 OR student_id = $1)
		  AND status = ANY($2)
		  AND scheduled_start < $4
		  AND scheduled_end > $3
		ORDER BY scheduled_start
	`
	return r.list(ctx, "list active sessions by participant", query, userID, activeStatuses(), start, end)
}

// Update сохраняет изменённую сессию, если её версия не изменилась с момента чтения.
// Возвращает false, если сессию успел изменить другой запрос.
func (r *SessionRepository) Update(ctx context.Context, session *model.Session, expectedVersion int64) (bool, error) {
	query := `
		UPDATE sessions
		SET status = $1, start_code = $2, code_expires_at = $3, actual_start = $4, actual_end = $5,
		    version = version + 1, updated_at = NOW()
		WHERE id = $6 AND version = $7
		RETURNING version, updated_at
	`

	err := r.QueryRow(
		ctx, query,
		session.Status,
		session.StartCode,
		session.CodeExpiresAt,
		session.ActualStart,
		session.ActualEnd,
		session.ID,
		expectedVersion,
	).Scan(&session.Version, &session.UpdatedAt)

	if err != nil {
		if base.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("update session: %w", err)
	}

	return true, nil
}

// CancelStale отменяет запрошенные и подтверждённые сессии, время начала которых прошло
func (r *SessionRepository) CancelStale(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE sessions
		SET status = 'cancelled', version = version + 1, updated_at = NOW()
		WHERE status IN ('requested', 'confirmed')
		  AND scheduled_start < $1
	`

	affected, err := r.ExecAffected(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("cancel stale sessions: %w", err)
	}

	return affected, nil
}

func (r *SessionRepository) list(ctx context.Context, op, query string, args ...any) ([]*model.Session, error) {
	rows, err := r.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var sessions []*model.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return sessions, nil
}

func activeStatuses() []string {
	statuses := make([]string, 0, len(model.ActiveSessionStatuses))
	for _, s := range model.ActiveSessionStatuses {
		statuses = append(statuses, string(s))
	}
	return statuses
}

func scanSession(row pgx.Row) (*model.Session, error) {
	var s model.Session
	err := row.Scan(
		&s.ID,
		&s.TeacherID,
		&s.StudentID,
		&s.SkillID,
		&s.ScheduledStart,
		&s.ScheduledEnd,
		&s.Status,
		&s.StartCode,
		&s.CodeExpiresAt,
		&s.ActualStart,
		&s.ActualEnd,
		&s.Version,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
