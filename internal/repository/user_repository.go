package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/skillswap/internal/model"
	"github.com/Freeeeeet/skillswap/internal/repository/base"
	"github.com/jackc/pgx/v5"
)

const userColumns = `id, name, email, whatsapp, telegram_chat_id, location, is_public, role, created_at`

type UserRepository struct {
	*base.Repository
}

func NewUserRepository(b *base.Repository) *UserRepository {
	return &UserRepository{Repository: b}
}

// Create создаёт нового пользователя
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (name, email, whatsapp, telegram_chat_id, location, is_public, role)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`

	err := r.QueryRow(
		ctx, query,
		user.Name,
		user.Email,
		user.WhatsApp,
		user.TelegramChatID,
		user.Location,
		user.IsPublic,
		user.Role,
	).Scan(&user.ID, &user.CreatedAt)

	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	return nil
}

// GetByID получает пользователя по ID вместе с навыками
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}

	skills, err := r.skillsFor(ctx, []int64{user.ID})
	if err != nil {
		return nil, err
	}
	user.Skills = skills[user.ID]

	return user, nil
}

// Update обновляет профиль пользователя
func (r *UserRepository) Update(ctx context.Context, user *model.User) error {
	query := `
		UPDATE users
		SET name = $1, email = $2, whatsapp = $3, telegram_chat_id = $4, location = $5, is_public = $6, role = $7
		WHERE id = $8
	`

	affected, err := r.ExecAffected(
		ctx, query,
		user.Name,
		user.Email,
		user.WhatsApp,
		user.TelegramChatID,
		user.Location,
		user.IsPublic,
		user.Role,
		user.ID,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	if affected == 0 {
		return fmt.Errorf("user not found")
	}

	return nil
}

// FindCandidates возвращает публичных непривилегированных пользователей,
// которые учат хотя бы одному навыку из learnIDs или хотят выучить хотя бы один из teachIDs
func (r *UserRepository) FindCandidates(ctx context.Context, userID int64, teachIDs, learnIDs []int64) ([]*model.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users u
		WHERE u.id <> $1
		  AND u.is_public
		  AND u.role NOT IN ('admin', 'moderator')
		  AND EXISTS (
			SELECT 1 FROM user_skills us
			WHERE us.user_id = u.id
			  AND ((us.kind = 'teach' AND us.skill_id = ANY($2))
			    OR (us.kind = 'learn' AND us.skill_id = ANY($3)))
		  )
		ORDER BY u.id
	`

	rows, err := r.Query(ctx, query, userID, learnIDs, teachIDs)
	if err != nil {
		return nil, fmt.Errorf("find candidates: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	var ids []int64
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		users = append(users, user)
		ids = append(ids, user.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidates: %w", err)
	}

	if len(ids) == 0 {
		return users, nil
	}

	skills, err := r.skillsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		u.Skills = skills[u.ID]
	}

	return users, nil
}

func (r *UserRepository) skillsFor(ctx context.Context, userIDs []int64) (map[int64][]model.SkillAssociation, error) {
	query := `
		SELECT user_id, skill_id, kind, level
		FROM user_skills
		WHERE user_id = ANY($1)
		ORDER BY user_id, skill_id, kind
	`

	rows, err := r.Query(ctx, query, userIDs)
	if err != nil {
		return nil, fmt.Errorf("get user skills: %w", err)
	}
	defer rows.Close()

	result := make(map[int64][]model.SkillAssociation, len(userIDs))
	for rows.Next() {
		var a model.SkillAssociation
		if err := rows.Scan(&a.UserID, &a.SkillID, &a.Kind, &a.Level); err != nil {
			return nil, fmt.Errorf("scan user skill: %w", err)
		}
		result[a.UserID] = append(result[a.UserID], a)
	}

	return result, rows.Err()
}

func scanUser(row pgx.Row) (*model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.WhatsApp,
		&user.TelegramChatID,
		&user.Location,
		&user.IsPublic,
		&user.Role,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}
