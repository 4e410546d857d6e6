package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/skillswap/internal/model"
	"github.com/Freeeeeet/skillswap/internal/repository/base"
)

type RatingRepository struct {
	*base.Repository
}

func NewRatingRepository(b *base.Repository) *RatingRepository {
	return &RatingRepository{Repository: b}
}

// Create сохраняет оценку. Возвращает false, если оценщик уже оценил эту сессию.
func (r *RatingRepository) Create(ctx context.Context, rating *model.Rating) (bool, error) {
	query := `
		INSERT INTO ratings (session_id, rater_id, ratee_id, communication, skill, attitude, punctuality)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (session_id, rater_id) DO NOTHING
		RETURNING id, created_at
	`

	err := r.QueryRow(
		ctx, query,
		rating.SessionID,
		rating.RaterID,
		rating.RateeID,
		rating.Communication,
		rating.Skill,
		rating.Attitude,
		rating.Punctuality,
	).Scan(&rating.ID, &rating.CreatedAt)

	if err != nil {
		if base.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("create rating: %w", err)
	}

	return true, nil
}

// ListBySession получает все оценки сессии
func (r *RatingRepository) ListBySession(ctx context.Context, sessionID int64) ([]*model.Rating, error) {
	query := `
		SELECT id, session_id, rater_id, ratee_id, communication, skill, attitude, punctuality, created_at
		FROM ratings
		WHERE session_id = $1
		ORDER BY id
	`

	rows, err := r.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list ratings by session: %w", err)
	}
	defer rows.Close()

	var ratings []*model.Rating
	for rows.Next() {
		var rating model.Rating
		err := rows.Scan(
			&rating.ID,
			&rating.SessionID,
			&rating.RaterID,
			&rating.RateeID,
			&rating.Communication,
			&rating.Skill,
			&rating.Attitude,
			&rating.Punctuality,
			&rating.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan rating: %w", err)
		}
		ratings = append(ratings, &rating)
	}

	return ratings, rows.Err()
}

// SummariesForRatees агрегирует полученные оценки по каждому пользователю.
// Пользователи без оценок в результат не попадают.
func (r *RatingRepository) SummariesForRatees(ctx context.Context, rateeIDs []int64) (map[int64]model.RatingSummary, error) {
	query := `
		SELECT ratee_id, COUNT(*), SUM((communication + skill + attitude + punctuality) / 4.0)::float8
		FROM ratings
		WHERE ratee_id = ANY($1)
		GROUP BY ratee_id
	`

	rows, err := r.Query(ctx, query, rateeIDs)
	if err != nil {
		return nil, fmt.Errorf("summarize ratings: %w", err)
	}
	defer rows.Close()

	result := make(map[int64]model.RatingSummary, len(rateeIDs))
	for rows.Next() {
		var id int64
		var summary model.RatingSummary
		if err := rows.Scan(&id, &summary.Count, &summary.SumOfAverages); err != nil {
			return nil, fmt.Errorf("scan rating summary: %w", err)
		}
		result[id] = summary
	}

	return result, rows.Err()
}
