package services

import (
	"context"
	"fmt"
	"html"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"profeamigo/db"
	"profeamigo/internal/revision"
	"profeamigo/models"
	"profeamigo/utils"
)

const (
	MaxKnownWords    = 50
	MaxPracticeAreas = 3
	StreakBadgeDays  = 3

	dayLayout = "2006-01-02"
)

// ProfileService updates learner skill profiles after every check cycle.
type ProfileService struct {
	store db.ProfileStore
	now   func() time.Time
	mu    sync.Mutex
}

func NewProfileService(store db.ProfileStore) *ProfileService {
	return &ProfileService{store: store, now: time.Now}
}

func (s *ProfileService) Get(ctx context.Context, userID string) (*models.SkillProfile, error) {
	return s.store.Load(ctx, userID)
}

// Update applies one successful cycle to the user's profile and stores it.
func (s *ProfileService) Update(ctx context.Context, userID, text string, errs []revision.Span) (*models.SkillProfile, error) {
	if userID == "" {
		return nil, errors.New("missing user id")
	}
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("no text to update profile")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	profile, err := s.store.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	ApplyCycle(profile, text, errs, now)
	profile.UpdatedAt = now
	if err := s.store.Save(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// ApplyCycle updates streak, level, practice areas and known words of p.
func ApplyCycle(p *models.SkillProfile, text string, errs []revision.Span, now time.Time) {
	today := now.UTC().Format(dayLayout)
	switch {
	case p.LastActive == "":
		p.Streak = 1
	case p.LastActive != today:
		last, err := time.Parse(dayLayout, p.LastActive)
		if err != nil {
			p.Streak = 1
			break
		}
		current, _ := time.Parse(dayLayout, today)
		days := int(math.Ceil(math.Abs(current.Sub(last).Hours()) / 24))
		if days == 1 {
			p.Streak++
		} else if days > 1 {
			p.Streak = 1
		}
	}
	p.LastActive = today

	words := utils.WordCount(text)
	p.Level = levelFor(len(errs), words)

	p.PracticeAreas = practiceAreas(errs)

	if len(errs) == 0 {
		known := make(map[string]bool, len(p.KnownWords))
		for _, w := range p.KnownWords {
			known[w] = true
		}
		for _, w := range utils.LetterWords(text, 3, 7) {
			if len(p.KnownWords) >= MaxKnownWords {
				break
			}
			if !known[w] {
				known[w] = true
				p.KnownWords = append(p.KnownWords, w)
			}
		}
	}
}

func levelFor(errorCount, words int) string {
	rate := float64(errorCount) / float64(words)
	switch {
	case rate < 0.03 && words > 5:
		return models.LevelProgresando
	case rate < 0.10 && words > 3:
		return models.LevelEmergente
	default:
		return models.LevelInicial
	}
}

func practiceAreas(errs []revision.Span) []string {
	areas := []string{}
	seen := map[string]bool{}
	for _, e := range errs {
		area := PracticeArea(e.Category)
		if seen[area] {
			continue
		}
		seen[area] = true
		areas = append(areas, area)
		if len(areas) == MaxPracticeAreas {
			break
		}
	}
	return areas
}

// PracticeArea maps a checker category to the skill the learner should practice.
func PracticeArea(category string) string {
	c := strings.ToUpper(category)
	switch {
	case strings.Contains(c, "SPELL"), strings.Contains(c, "TYPO"), strings.Contains(c, "CONFUSED"):
		return "Ortografía"
	case strings.Contains(c, "CASING"):
		return "Mayúsculas"
	case strings.Contains(c, "WHITE"):
		return "Espacios"
	case strings.Contains(c, "PUNCT"):
		return "Puntuación"
	case strings.Contains(c, "GRAMMAR"), strings.Contains(c, "SYNTAX"):
		return "Gramática"
	default:
		return "Otros"
	}
}

// RenderProfile is the progress panel markup: level, streak, practice areas
// and the streak badge from three days on.
func RenderProfile(p *models.SkillProfile) string {
	var b strings.Builder
	b.WriteString(`<div class="progress-panel">`)
	fmt.Fprintf(&b, `<p>Nivel: <strong id="user-level">%s</strong></p>`, html.EscapeString(p.Level))
	fmt.Fprintf(&b, `<p>Racha: <strong id="streak-count">%d</strong></p>`, p.Streak)
	if len(p.PracticeAreas) > 0 {
		fmt.Fprintf(&b, `<p class="practice-areas">Practicar: <strong>%s</strong></p>`, html.EscapeString(strings.Join(p.PracticeAreas, ", ")))
	}
	if p.Streak >= StreakBadgeDays {
		fmt.Fprintf(&b, `<span class="badge">Racha: %d días!</span>`, p.Streak)
	}
	b.WriteString(`</div>`)
	return b.String()
}
