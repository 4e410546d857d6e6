package service

import (
	"context"
	"time"

	"github.com/Freeeeeet/skillswap/internal/model"
)

// UserRepository каталог пользователей. GetByID возвращает nil, nil, если пользователя нет.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
	FindCandidates(ctx context.Context, userID int64, teachIDs, learnIDs []int64) ([]*model.User, error)
}

type SkillRepository interface {
	Create(ctx context.Context, skill *model.Skill) (bool, error)
	GetByID(ctx context.Context, id int64) (*model.Skill, error)
	GetByName(ctx context.Context, name string) (*model.Skill, error)
	UpsertAssociation(ctx context.Context, a model.SkillAssociation) error
	DeleteAssociation(ctx context.Context, userID, skillID int64, kind model.SkillKind) (bool, error)
}

type AvailabilityRepository interface {
	GetByUserID(ctx context.Context, userID int64) ([]model.AvailabilitySlot, error)
	GetByUserIDs(ctx context.Context, userIDs []int64) (map[int64][]model.AvailabilitySlot, error)
	ReplaceForUser(ctx context.Context, userID int64, slots []model.AvailabilitySlot) error
}

type SessionRepository interface {
	Create(ctx context.Context, session *model.Session) error
	GetByID(ctx context.Context, id int64) (*model.Session, error)
	ListByTeacher(ctx context.Context, teacherID int64) ([]*model.Session, error)
	ListByStudent(ctx context.Context, studentID int64) ([]*model.Session, error)
	ActiveForTeacher(ctx context.Context, teacherID int64, start, end time.Time) ([]*model.Session, error)
	ActiveForParticipant(ctx context.Context, userID int64, start, end time.Time) ([]*model.Session, error)
	Update(ctx context.Context, session *model.Session, expectedVersion int64) (bool, error)
	CancelStale(ctx context.Context, now time.Time) (int64, error)
}

type RatingRepository interface {
	Create(ctx context.Context, rating *model.Rating) (bool, error)
	ListBySession(ctx context.Context, sessionID int64) ([]*model.Rating, error)
	SummariesForRatees(ctx context.Context, rateeIDs []int64) (map[int64]model.RatingSummary, error)
}

type ProgressRepository interface {
	CountBySession(ctx context.Context, sessionID int64) (int, error)
	Insert(ctx context.Context, entry *model.ProgressEntry) (bool, error)
	ListByUser(ctx context.Context, userID int64) ([]*model.ProgressEntry, error)
}

// Transactor выполняет функцию атомарно. WithinLockedTx дополнительно
// сериализует все вызовы, у которых есть общий ключ.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
	WithinLockedTx(ctx context.Context, keys []int64, fn func(ctx context.Context) error) error
}

// Notifier канал уведомлений пользователей
type Notifier interface {
	Notify(ctx context.Context, userID int64, title, message string) error
}

// RateLimiter ограничитель частоты с ключом
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Stores набор хранилищ, общий для всех сервисов
type Stores struct {
	Users        UserRepository
	Skills       SkillRepository
	Availability AvailabilityRepository
	Sessions     SessionRepository
	Ratings      RatingRepository
	Progress     ProgressRepository
	Tx           Transactor
}
