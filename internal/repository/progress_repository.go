package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/skillswap/internal/model"
	"github.com/Freeeeeet/skillswap/internal/repository/base"
)

type ProgressRepository struct {
	*base.Repository
}

func NewProgressRepository(b *base.Repository) *ProgressRepository {
	return &ProgressRepository{Repository: b}
}

// CountBySession возвращает количество записей прогресса по сессии
func (r *ProgressRepository) CountBySession(ctx context.Context, sessionID int64) (int, error) {
	var count int
	err := r.QueryRow(ctx, `SELECT COUNT(*) FROM progress_entries WHERE session_id = $1`, sessionID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count progress entries: %w", err)
	}
	return count, nil
}

// Insert добавляет запись прогресса. Повторная запись для той же пары
// (сессия, пользователь) игнорируется, тогда возвращается false.
func (r *ProgressRepository) Insert(ctx context.Context, entry *model.ProgressEntry) (bool, error) {
	query := `
		INSERT INTO progress_entries (user_id, session_id, kind, points)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (session_id, user_id) DO NOTHING
		RETURNING id, created_at
	`

	err := r.QueryRow(ctx, query, entry.UserID, entry.SessionID, entry.Kind, entry.Points).
		Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		if base.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("insert progress entry: %w", err)
	}

	return true, nil
}

// ListByUser получает историю начислений пользователя
func (r *ProgressRepository) ListByUser(ctx context.Context, userID int64) ([]*model.ProgressEntry, error) {
	query := `
		SELECT id, user_id, session_id, kind, points, created_at
		FROM progress_entries
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list progress entries: %w", err)
	}
	defer rows.Close()

	var entries []*model.ProgressEntry
	for rows.Next() {
		var e model.ProgressEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.SessionID, &e.Kind, &e.Points, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan progress entry: %w", err)
		}
		entries = append(entries, &e)
	}

	return entries, rows.Err()
}
