package model

import "time"

type Skill struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type SkillKind string

const (
	SkillKindTeach SkillKind = "teach" // пользователь может научить
	SkillKindLearn SkillKind = "learn" // пользователь хочет научиться
)

func (k SkillKind) Valid() bool {
	return k == SkillKindTeach || k == SkillKindLearn
}

type SkillLevel string

const (
	SkillLevelBeginner     SkillLevel = "beginner"
	SkillLevelIntermediate SkillLevel = "intermediate"
	SkillLevelAdvanced     SkillLevel = "advanced"
)

func (l SkillLevel) Valid() bool {
	switch l {
	case SkillLevelBeginner, SkillLevelIntermediate, SkillLevelAdvanced:
		return true
	}
	return false
}

// SkillAssociation links a user to a skill they teach or want to learn.
// (UserID, SkillID, Kind) is unique.
type SkillAssociation struct {
	UserID  int64      `json:"user_id"`
	SkillID int64      `json:"skill_id"`
	Kind    SkillKind  `json:"kind"`
	Level   SkillLevel `json:"level"`
}
