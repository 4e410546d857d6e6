package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/skillswap/internal/model"
	"github.com/Freeeeeet/skillswap/internal/repository/base"
	"github.com/jackc/pgx/v5"
)

// AvailabilityRepository управляет недельными слотами доступности
type AvailabilityRepository struct {
	*base.Repository
}

// NewAvailabilityRepository создаёт новый репозиторий
func NewAvailabilityRepository(b *base.Repository) *AvailabilityRepository {
	return &AvailabilityRepository{Repository: b}
}

// GetByUserID получает все слоты пользователя, отсортированные по дню и началу
func (r *AvailabilityRepository) GetByUserID(ctx context.Context, userID int64) ([]model.AvailabilitySlot, error) {
	slots, err := r.GetByUserIDs(ctx, []int64{userID})
	if err != nil {
		return nil, err
	}
	return slots[userID], nil
}

// GetByUserIDs получает слоты сразу для нескольких пользователей
func (r *AvailabilityRepository) GetByUserIDs(ctx context.Context, userIDs []int64) (map[int64][]model.AvailabilitySlot, error) {
	query := `
		SELECT id, user_id, day_of_week, start_minute, end_minute
		FROM availability_slots
		WHERE user_id = ANY($1)
		ORDER BY user_id, day_of_week, start_minute
	`

	rows, err := r.Query(ctx, query, userIDs)
	if err != nil {
		return nil, fmt.Errorf("get availability slots: %w", err)
	}
	defer rows.Close()

	result := make(map[int64][]model.AvailabilitySlot, len(userIDs))
	for rows.Next() {
		var slot model.AvailabilitySlot
		err := rows.Scan(
			&slot.ID,
			&slot.UserID,
			&slot.DayOfWeek,
			&slot.StartMinute,
			&slot.EndMinute,
		)
		if err != nil {
			return nil, fmt.Errorf("scan availability slot: %w", err)
		}
		result[slot.UserID] = append(result[slot.UserID], slot)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate availability slots: %w", err)
	}

	return result, nil
}

// ReplaceForUser заменяет весь набор слотов пользователя.
// Должен вызываться внутри транзакции с блокировкой пользователя (TxManager.WithinLockedTx).
func (r *AvailabilityRepository) ReplaceForUser(ctx context.Context, userID int64, slots []model.AvailabilitySlot) error {
	if _, err := r.ExecAffected(ctx, `DELETE FROM availability_slots WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete availability slots: %w", err)
	}

	if len(slots) == 0 {
		return nil
	}

	rows := make([][]any, 0, len(slots))
	for _, s := range slots {
		rows = append(rows, []any{userID, s.DayOfWeek, s.StartMinute, s.EndMinute})
	}

	_, err := r.Conn(ctx).CopyFrom(
		ctx,
		pgx.Identifier{"availability_slots"},
		[]string{"user_id", "day_of_week", "start_minute", "end_minute"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("insert availability slots: %w", err)
	}

	return nil
}
