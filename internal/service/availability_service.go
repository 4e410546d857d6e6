package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/Freeeeeet/skillswap/internal/model"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type AvailabilityService struct {
	stores Stores
	logger *zap.Logger
}

func NewAvailabilityService(stores Stores, logger *zap.Logger) *AvailabilityService {
	return &AvailabilityService{
		stores: stores,
		logger: logger,
	}
}

// SaveAvailability заменяет весь недельный набор слотов пользователя
func (s *AvailabilityService) SaveAvailability(ctx context.Context, userID int64, slots []model.AvailabilitySlot) (_ []model.AvailabilitySlot, err error) {
	ctx, span := startSpan(ctx, "AvailabilityService.SaveAvailability",
		attribute.Int64("user_id", userID), attribute.Int("slots", len(slots)))
	defer func() { endSpan(span, err) }()

	user, err := s.stores.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, notFound("user")
	}

	normalized := make([]model.AvailabilitySlot, len(slots))
	for i, slot := range slots {
		slot.ID = 0
		slot.UserID = userID
		normalized[i] = slot
	}

	if err := ValidateSlots(normalized); err != nil {
		return nil, err
	}
	sortSlots(normalized)

	// блокировка по пользователю: иначе два параллельных сохранения склеивают наборы
	err = s.stores.Tx.WithinLockedTx(ctx, []int64{userID}, func(ctx context.Context) error {
		return s.stores.Availability.ReplaceForUser(ctx, userID, normalized)
	})
	if err != nil {
		return nil, fmt.Errorf("replace availability: %w", err)
	}

	s.logger.Info("Availability saved",
		zap.Int64("user_id", userID),
		zap.Int("slots", len(normalized)),
	)

	return normalized, nil
}

// GetAvailability возвращает слоты пользователя по дням и времени начала
func (s *AvailabilityService) GetAvailability(ctx context.Context, userID int64) ([]model.AvailabilitySlot, error) {
	slots, err := s.stores.Availability.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get availability: %w", err)
	}
	sortSlots(slots)
	return slots, nil
}

// ValidateSlots проверяет границы каждого слота и отсутствие пересечений в один день
func ValidateSlots(slots []model.AvailabilitySlot) error {
	for i, slot := range slots {
		if slot.DayOfWeek < 0 || slot.DayOfWeek > 6 {
			return validationf("slot %d: day of week must be between 0 and 6", i)
		}
		if slot.StartMinute < 0 || slot.EndMinute > model.MinutesPerDay {
			return validationf("slot %d: time must be within the day", i)
		}
		if slot.StartMinute >= slot.EndMinute {
			return validationf("slot %d: start must be before end", i)
		}
	}

	for i := range slots {
		for j := i + 1; j < len(slots); j++ {
			if SlotsOverlap(slots[i], slots[j]) {
				return validationf("slots %s and %s overlap", slots[i], slots[j])
			}
		}
	}

	return nil
}

func sortSlots(slots []model.AvailabilitySlot) {
	sort.Slice(slots, func(i, j int) bool {
		if slots[i].DayOfWeek != slots[j].DayOfWeek {
			return slots[i].DayOfWeek < slots[j].DayOfWeek
		}
		return slots[i].StartMinute < slots[j].StartMinute
	})
}
