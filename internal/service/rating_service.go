package service

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/skillswap/internal/metrics"
	"github.com/Freeeeeet/skillswap/internal/model"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// RatingInput четыре измерения оценки, каждое от 1 до 5
type RatingInput struct {
	Communication int `json:"communication"`
	Skill         int `json:"skill"`
	Attitude      int `json:"attitude"`
	Punctuality   int `json:"punctuality"`
}

type RatingService struct {
	stores Stores
	notify dispatcher
	logger *zap.Logger
}

func NewRatingService(stores Stores, notifier Notifier, m *metrics.Metrics, logger *zap.Logger) *RatingService {
	return &RatingService{
		stores: stores,
		notify: dispatcher{sink: notifier, metrics: m, logger: logger},
		logger: logger,
	}
}

// RateSession сохраняет оценку второго участника завершённой сессии
func (s *RatingService) RateSession(ctx context.Context, sessionID, raterID int64, in RatingInput) (_ *model.Rating, err error) {
	ctx, span := startSpan(ctx, "RatingService.RateSession",
		attribute.Int64("session_id", sessionID), attribute.Int64("rater_id", raterID))
	defer func() { endSpan(span, err) }()

	if err := validateRating(in); err != nil {
		return nil, err
	}

	session, err := s.stores.Sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if session == nil {
		return nil, notFound("session")
	}
	if !session.IsParticipant(raterID) {
		return nil, forbidden("only participants can rate a session")
	}
	if session.Status != model.SessionStatusCompleted {
		return nil, conflictf("cannot rate a %s session", session.Status)
	}

	rating := &model.Rating{
		SessionID:     sessionID,
		RaterID:       raterID,
		RateeID:       session.Counterpart(raterID),
		Communication: in.Communication,
		Skill:         in.Skill,
		Attitude:      in.Attitude,
		Punctuality:   in.Punctuality,
	}

	created, err := s.stores.Ratings.Create(ctx, rating)
	if err != nil {
		return nil, fmt.Errorf("create rating: %w", err)
	}
	if !created {
		return nil, conflictf("session already rated by this user")
	}

	s.logger.Info("Session rated",
		zap.Int64("session_id", sessionID),
		zap.Int64("rater_id", raterID),
		zap.Int64("ratee_id", rating.RateeID),
		zap.Float64("average", rating.Average()),
	)

	s.notify.send(ctx, rating.RateeID, "New rating",
		fmt.Sprintf("You received a rating of %.1f for a recent session.", rating.Average()))

	return rating, nil
}

// Reputation возвращает сводку оценок, полученных пользователем
func (s *RatingService) Reputation(ctx context.Context, userID int64) (model.RatingSummary, error) {
	summaries, err := s.stores.Ratings.SummariesForRatees(ctx, []int64{userID})
	if err != nil {
		return model.RatingSummary{}, fmt.Errorf("get rating summary: %w", err)
	}
	return summaries[userID], nil
}

func validateRating(in RatingInput) error {
	r := model.Rating{
		Communication: in.Communication,
		Skill:         in.Skill,
		Attitude:      in.Attitude,
		Punctuality:   in.Punctuality,
	}
	for i, v := range r.Dimensions() {
		if v < model.MinRatingValue || v > model.MaxRatingValue {
			return validationf("%s must be between %d and %d",
				model.RatingDimensionNames[i], model.MinRatingValue, model.MaxRatingValue)
		}
	}
	return nil
}
