package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"profeamigo/db"
	"profeamigo/internal/revision"
	"profeamigo/models"
)

var day = time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

func categorySpan(category string) revision.Span {
	return revision.Span{Offset: 0, Length: 1, Message: "m", Category: category}
}

func TestApplyCycleFirstActivity(t *testing.T) {
	p := models.NewSkillProfile("u1")
	ApplyCycle(p, "Yo tengo un perro grande y bonito", nil, day)

	assert.Equal(t, 1, p.Streak)
	assert.Equal(t, "2026-03-10", p.LastActive)
	assert.Equal(t, models.LevelProgresando, p.Level)
	assert.Equal(t, []string{"tengo", "perro", "grande", "bonito"}, p.KnownWords)
	assert.Empty(t, p.PracticeAreas)
}

func TestApplyCycleStreak(t *testing.T) {
	tests := []struct {
		name       string
		lastActive string
		streak     int
		want       int
	}{
		{"same day", "2026-03-10", 4, 4},
		{"next day", "2026-03-09", 2, 3},
		{"gap", "2026-03-06", 5, 1},
		{"corrupt date", "ayer", 5, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := models.NewSkillProfile("u1")
			p.LastActive = tt.lastActive
			p.Streak = tt.streak
			ApplyCycle(p, "hola", nil, day)
			assert.Equal(t, tt.want, p.Streak)
			assert.Equal(t, "2026-03-10", p.LastActive)
		})
	}
}

func TestLevelFor(t *testing.T) {
	assert.Equal(t, models.LevelInicial, levelFor(1, 5))
	assert.Equal(t, models.LevelEmergente, levelFor(1, 20))
	assert.Equal(t, models.LevelProgresando, levelFor(0, 6))
	assert.Equal(t, models.LevelEmergente, levelFor(0, 5))
	assert.Equal(t, models.LevelInicial, levelFor(0, 3))
}

func TestPracticeAreas(t *testing.T) {
	areas := practiceAreas([]revision.Span{
		categorySpan("TYPOS"),
		categorySpan("MISSPELLING"),
		categorySpan("CASING"),
		categorySpan("PUNCTUATION"),
		categorySpan("GRAMMAR"),
	})
	assert.Equal(t, []string{"Ortografía", "Mayúsculas", "Puntuación"}, areas)

	assert.Equal(t, "Espacios", PracticeArea("WHITESPACE"))
	assert.Equal(t, "Gramática", PracticeArea("syntax"))
	assert.Equal(t, "Otros", PracticeArea("STYLE"))
	assert.Equal(t, "Ortografía", PracticeArea("CONFUSED_WORDS"))
}

func TestApplyCycleWithErrorsKeepsKnownWords(t *testing.T) {
	p := models.NewSkillProfile("u1")
	p.KnownWords = []string{"casa"}
	ApplyCycle(p, "El perro come", []revision.Span{categorySpan("TYPOS")}, day)

	assert.Equal(t, []string{"casa"}, p.KnownWords)
	assert.Equal(t, []string{"Ortografía"}, p.PracticeAreas)
}

func TestApplyCycleCapsKnownWords(t *testing.T) {
	p := models.NewSkillProfile("u1")
	for i := 0; i < MaxKnownWords-1; i++ {
		p.KnownWords = append(p.KnownWords, fmt.Sprintf("w%d", i))
	}
	ApplyCycle(p, "gato perro casa sol", nil, day)

	assert.Len(t, p.KnownWords, MaxKnownWords)
	assert.Equal(t, "gato", p.KnownWords[MaxKnownWords-1])
}

func TestApplyCycleSkipsDuplicateWords(t *testing.T) {
	p := models.NewSkillProfile("u1")
	p.KnownWords = []string{"gato"}
	ApplyCycle(p, "gato Gato perro", nil, day)
	assert.Equal(t, []string{"gato", "perro"}, p.KnownWords)
}

func TestProfileServiceUpdate(t *testing.T) {
	store := db.NewMemoryProfileStore()
	svc := NewProfileService(store)
	now := day
	svc.now = func() time.Time { return now }
	ctx := context.Background()

	p, err := svc.Update(ctx, "u1", "Mi casa es grande", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Streak)

	now = day.Add(24 * time.Hour)
	p, err = svc.Update(ctx, "u1", "Mi casa es grande", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Streak)

	stored, err := svc.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Streak)
	assert.Equal(t, now, stored.UpdatedAt)
}

func TestProfileServiceUpdateRejectsMissingInput(t *testing.T) {
	svc := NewProfileService(db.NewMemoryProfileStore())
	_, err := svc.Update(context.Background(), "", "hola", nil)
	assert.Error(t, err)
	_, err = svc.Update(context.Background(), "u1", "  ", nil)
	assert.Error(t, err)
}

func TestRenderProfile(t *testing.T) {
	p := models.NewSkillProfile("u1")
	p.Level = models.LevelEmergente
	p.Streak = 2
	out := RenderProfile(p)
	assert.Contains(t, out, `<strong id="user-level">Emergente</strong>`)
	assert.Contains(t, out, `<strong id="streak-count">2</strong>`)
	assert.NotContains(t, out, "badge")

	p.Streak = StreakBadgeDays
	p.PracticeAreas = []string{"Ortografía", "Mayúsculas"}
	out = RenderProfile(p)
	assert.Contains(t, out, "Racha: 3 días!")
	assert.Contains(t, out, "Ortografía, Mayúsculas")
}
