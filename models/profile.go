package models

import "time"

const (
	LevelInicial     = "Inicial"
	LevelEmergente   = "Emergente"
	LevelProgresando = "Progresando"
)

// SkillProfile is the per-learner progress derived from every check cycle.
type SkillProfile struct {
	UserID        string    `bson:"_id" json:"userId"`
	Level         string    `bson:"level" json:"level"`
	Streak        int       `bson:"streak" json:"streak"`
	LastActive    string    `bson:"lastActive,omitempty" json:"lastActive,omitempty"`
	KnownWords    []string  `bson:"knownWords" json:"knownWords"`
	PracticeAreas []string  `bson:"practiceAreas" json:"practiceAreas"`
	UpdatedAt     time.Time `bson:"updatedAt" json:"updatedAt"`
}

func NewSkillProfile(userID string) *SkillProfile {
	return &SkillProfile{
		UserID:        userID,
		Level:         LevelInicial,
		KnownWords:    []string{},
		PracticeAreas: []string{},
	}
}

// Clone returns a copy that shares no slices with p.
func (p *SkillProfile) Clone() *SkillProfile {
	c := *p
	c.KnownWords = append([]string{}, p.KnownWords...)
	c.PracticeAreas = append([]string{}, p.PracticeAreas...)
	return &c
}
