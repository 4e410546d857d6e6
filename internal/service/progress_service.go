package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/Freeeeeet/skillswap/internal/metrics"
	"github.com/Freeeeeet/skillswap/internal/model"
	"go.uber.org/zap"
)

// CompletionKind путь, которым сессия пришла в completed
type CompletionKind string

const (
	CompletionEnded  CompletionKind = "end"      // учитель завершил сессию после кода старта
	CompletionMarked CompletionKind = "complete" // участник отметил подтверждённую сессию без кода
)

// CompletionEvent единственная точка входа начисления очков
type CompletionEvent struct {
	Kind    CompletionKind
	Session *model.Session
}

// ProgressSummary сумма очков пользователя
type ProgressSummary struct {
	UserID      int64 `json:"user_id"`
	TeachPoints int   `json:"teach_points"`
	LearnPoints int   `json:"learn_points"`
	Sessions    int   `json:"sessions"`
}

// Total возвращает все очки пользователя
func (p ProgressSummary) Total() int {
	return p.TeachPoints + p.LearnPoints
}

type ProgressService struct {
	stores  Stores
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewProgressService(stores Stores, m *metrics.Metrics, logger *zap.Logger) *ProgressService {
	return &ProgressService{
		stores:  stores,
		metrics: m,
		logger:  logger,
	}
}

// RecordCompletion начисляет очки обоим участникам завершённой сессии.
// Повторный вызов для той же сессии ничего не делает и возвращает 0.
func (s *ProgressService) RecordCompletion(ctx context.Context, event CompletionEvent) (int, error) {
	session := event.Session
	if session == nil || session.Status != model.SessionStatusCompleted {
		return 0, conflictf("points are awarded only for completed sessions")
	}

	var points int
	err := s.stores.Tx.WithinTx(ctx, func(ctx context.Context) error {
		existing, err := s.stores.Progress.CountBySession(ctx, session.ID)
		if err != nil {
			return fmt.Errorf("count progress entries: %w", err)
		}
		if existing > 0 {
			return nil
		}

		ratings, err := s.stores.Ratings.ListBySession(ctx, session.ID)
		if err != nil {
			return fmt.Errorf("list session ratings: %w", err)
		}

		start, end := session.EffectiveWindow()
		awarded := CalculatePoints(end.Sub(start), RatingAverage(ratings))

		entries := []*model.ProgressEntry{
			{UserID: session.TeacherID, SessionID: session.ID, Kind: model.SkillKindTeach, Points: awarded},
			{UserID: session.StudentID, SessionID: session.ID, Kind: model.SkillKindLearn, Points: awarded},
		}
		for _, entry := range entries {
			inserted, err := s.stores.Progress.Insert(ctx, entry)
			if err != nil {
				return fmt.Errorf("insert progress entry: %w", err)
			}
			if inserted {
				s.metrics.PointsAwarded(awarded)
			}
		}

		points = awarded
		return nil
	})
	if err != nil {
		return 0, err
	}

	if points == 0 {
		s.logger.Warn("Progress already recorded for session",
			zap.Int64("session_id", session.ID),
			zap.String("completion", string(event.Kind)),
		)
		return 0, nil
	}

	s.logger.Info("Points awarded",
		zap.Int64("session_id", session.ID),
		zap.Int64("teacher_id", session.TeacherID),
		zap.Int64("student_id", session.StudentID),
		zap.String("completion", string(event.Kind)),
		zap.Int("points", points),
	)

	return points, nil
}

// ListProgress возвращает записи об очках пользователя
func (s *ProgressService) ListProgress(ctx context.Context, userID int64) ([]*model.ProgressEntry, error) {
	entries, err := s.stores.Progress.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	return entries, nil
}

// Summary суммирует очки пользователя по ролям
func (s *ProgressService) Summary(ctx context.Context, userID int64) (*ProgressSummary, error) {
	entries, err := s.ListProgress(ctx, userID)
	if err != nil {
		return nil, err
	}

	summary := &ProgressSummary{UserID: userID, Sessions: len(entries)}
	for _, e := range entries {
		switch e.Kind {
		case model.SkillKindTeach:
			summary.TeachPoints += e.Points
		case model.SkillKindLearn:
			summary.LearnPoints += e.Points
		}
	}

	return summary, nil
}

// CalculatePoints = max(1, round(часы*10) + round(средняя оценка*2))
func CalculatePoints(duration time.Duration, ratingAverage float64) int {
	hours := max(0, duration.Hours())
	points := int(math.Round(hours*10) + math.Round(ratingAverage*2))
	return max(1, points)
}

// RatingAverage среднее по оценкам сессии; 0, если оценок нет
func RatingAverage(ratings []*model.Rating) float64 {
	if len(ratings) == 0 {
		return 0
	}

	var sum float64
	for _, r := range ratings {
		sum += r.Average()
	}
	return sum / float64(len(ratings))
}
