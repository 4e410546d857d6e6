package service

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/skillswap/internal/model"
	"github.com/Freeeeeet/skillswap/internal/ratelimit"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type ContactService struct {
	stores  Stores
	limiter RateLimiter
	logger  *zap.Logger
}

func NewContactService(stores Stores, limiter RateLimiter, logger *zap.Logger) *ContactService {
	return &ContactService{
		stores:  stores,
		limiter: limiter,
		logger:  logger,
	}
}

// RevealContact возвращает лучший внешний канал связи с пользователем.
// Частота ограничена для каждой пары (кто смотрит, кого смотрят).
func (s *ContactService) RevealContact(ctx context.Context, actorID, peerID int64) (_ model.ContactChannel, err error) {
	ctx, span := startSpan(ctx, "ContactService.RevealContact",
		attribute.Int64("actor_id", actorID), attribute.Int64("peer_id", peerID))
	defer func() { endSpan(span, err) }()

	none := model.ContactChannel{Kind: model.ContactKindNone}

	if actorID == peerID {
		return none, validationf("cannot reveal your own contact")
	}

	actor, err := s.stores.Users.GetByID(ctx, actorID)
	if err != nil {
		return none, fmt.Errorf("get actor: %w", err)
	}
	if actor == nil {
		return none, notFound("user")
	}

	peer, err := s.stores.Users.GetByID(ctx, peerID)
	if err != nil {
		return none, fmt.Errorf("get peer: %w", err)
	}
	if peer == nil {
		return none, notFound("user")
	}
	if !peer.IsPublic && !actor.Role.IsPrivileged() {
		return none, forbidden("profile is not public")
	}

	allowed, err := s.limiter.Allow(ctx, ratelimit.Key("contact", actorID, peerID))
	if err != nil {
		return none, fmt.Errorf("check contact limit: %w", err)
	}
	if !allowed {
		s.logger.Info("Contact reveal throttled",
			zap.Int64("actor_id", actorID),
			zap.Int64("peer_id", peerID),
		)
		return none, &Error{Kind: KindRateLimited, Reason: "too many contact requests, try again later"}
	}

	return model.BestContact(peer), nil
}
