package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/skillswap/internal/model"
	"github.com/Freeeeeet/skillswap/internal/repository/base"
)

type SkillRepository struct {
	*base.Repository
}

func NewSkillRepository(b *base.Repository) *SkillRepository {
	return &SkillRepository{Repository: b}
}

// Create создаёт новый навык. Возвращает created=false, если навык с таким именем уже есть.
func (r *SkillRepository) Create(ctx context.Context, skill *model.Skill) (bool, error) {
	query := `
		INSERT INTO skills (name)
		VALUES ($1)
		RETURNING id, created_at
	`

	err := r.QueryRow(ctx, query, skill.Name).Scan(&skill.ID, &skill.CreatedAt)
	if err != nil {
		if base.IsUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("create skill: %w", err)
	}

	return true, nil
}

// GetByID получает навык по ID
func (r *SkillRepository) GetByID(ctx context.Context, id int64) (*model.Skill, error) {
	query := `SELECT id, name, created_at FROM skills WHERE id = $1`

	var skill model.Skill
	err := r.QueryRow(ctx, query, id).Scan(&skill.ID, &skill.Name, &skill.CreatedAt)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get skill by id: %w", err)
	}

	return &skill, nil
}

// GetByName ищет навык по имени без учёта регистра
func (r *SkillRepository) GetByName(ctx context.Context, name string) (*model.Skill, error) {
	query := `SELECT id, name, created_at FROM skills WHERE LOWER(name) = LOWER($1)`

	var skill model.Skill
	err := r.QueryRow(ctx, query, name).Scan(&skill.ID, &skill.Name, &skill.CreatedAt)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get skill by name: %w", err)
	}

	return &skill, nil
}

// UpsertAssociation добавляет навык пользователю или обновляет уровень
func (r *SkillRepository) UpsertAssociation(ctx context.Context, a model.SkillAssociation) error {
	query := `
		INSERT INTO user_skills (user_id, skill_id, kind, level)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, skill_id, kind) DO UPDATE SET level = EXCLUDED.level
	`

	if _, err := r.ExecAffected(ctx, query, a.UserID, a.SkillID, a.Kind, a.Level); err != nil {
		return fmt.Errorf("upsert user skill: %w", err)
	}

	return nil
}

// DeleteAssociation удаляет навык пользователя
func (r *SkillRepository) DeleteAssociation(ctx context.Context, userID, skillID int64, kind model.SkillKind) (bool, error) {
	query := `DELETE FROM user_skills WHERE user_id = $1 AND skill_id = $2 AND kind = $3`

	affected, err := r.ExecAffected(ctx, query, userID, skillID, kind)
	if err != nil {
		return false, fmt.Errorf("delete user skill: %w", err)
	}

	return affected > 0, nil
}
