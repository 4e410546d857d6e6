package model

import "time"

// Role is a user's platform role.
type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// IsPrivileged reports whether the role belongs to staff accounts that never take part in matching.
func (r Role) IsPrivileged() bool {
	return r == RoleModerator || r == RoleAdmin
}

// Valid checks the role against the known set
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleModerator, RoleAdmin:
		return true
	}
	return false
}

// User is a member of the exchange: a potential teacher, learner or both.
type User struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	WhatsApp       string    `json:"whatsapp"`
	TelegramChatID *int64    `json:"telegram_chat_id"` // nil - уведомления в Telegram не отправляются
	Location       string    `json:"location"`
	IsPublic       bool      `json:"is_public"`
	Role           Role      `json:"role"`
	CreatedAt      time.Time `json:"created_at"`

	// Заполняется репозиторием при загрузке, не колонка users
	Skills []SkillAssociation `json:"skills,omitempty"`
}

// SkillIDs returns the ids of skills the user associates with the given kind.
func (u *User) SkillIDs(kind SkillKind) map[int64]struct{} {
	ids := make(map[int64]struct{})
	for _, s := range u.Skills {
		if s.Kind == kind {
			ids[s.SkillID] = struct{}{}
		}
	}
	return ids
}
