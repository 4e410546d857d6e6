package app

import (
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/Freeeeeet/skillswap/internal/config"
	"github.com/Freeeeeet/skillswap/internal/metrics"
	"github.com/Freeeeeet/skillswap/internal/repository"
	"github.com/Freeeeeet/skillswap/internal/repository/base"
	"github.com/Freeeeeet/skillswap/internal/service"
)

// Core набор сервисов ядра, которые отдаются внешним адаптерам
type Core struct {
	Users        *service.UserService
	Availability *service.AvailabilityService
	Matches      *service.MatchService
	Bookings     *service.BookingService
	Sessions     *service.SessionService
	Progress     *service.ProgressService
	Ratings      *service.RatingService
	Contacts     *service.ContactService
}

// NewStores собирает postgres-хранилища поверх пула. Репозиторий пользователей
// возвращается отдельно: он же справочник для каналов уведомлений.
func NewStores(pool *pgxpool.Pool) (service.Stores, *repository.UserRepository) {
	b := base.NewRepository(pool)
	users := repository.NewUserRepository(b)

	return service.Stores{
		Users:        users,
		Skills:       repository.NewSkillRepository(b),
		Availability: repository.NewAvailabilityRepository(b),
		Sessions:     repository.NewSessionRepository(b),
		Ratings:      repository.NewRatingRepository(b),
		Progress:     repository.NewProgressRepository(b),
		Tx:           base.NewTxManager(pool),
	}, users
}

// NewCore связывает сервисы между собой
func NewCore(
	stores service.Stores,
	cfg *config.Config,
	notifier service.Notifier,
	limiter service.RateLimiter,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Core {
	loc := cfg.Location()
	progress := service.NewProgressService(stores, m, logger)

	core := &Core{
		Users:        service.NewUserService(stores, logger),
		Availability: service.NewAvailabilityService(stores, logger),
		Matches:      service.NewMatchService(stores, cfg.MatchDefaultLimit, cfg.MatchMaxLimit, m, logger),
		Bookings:     service.NewBookingService(stores, notifier, m, loc, logger),
		Sessions:     service.NewSessionService(stores, progress, notifier, m, loc, logger),
		Progress:     progress,
		Ratings:      service.NewRatingService(stores, notifier, m, logger),
		Contacts:     service.NewContactService(stores, limiter, logger),
	}

	logger.Info("Core services ready",
		zap.String("timezone", loc.String()),
		zap.Int("match_limit", cfg.MatchDefaultLimit),
		zap.Duration("start_code_ttl", service.StartCodeTTL),
		zap.Duration("sweep_interval", cfg.SweepInterval),
		zap.Duration("contact_window", cfg.ContactWindow),
	)
	return core
}

// ShutdownTimeout время на корректную остановку фоновых задач
const ShutdownTimeout = 10 * time.Second
