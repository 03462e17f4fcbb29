package services

import (
	"fmt"
	"html"
	"math/rand"
	"strings"

	"profeamigo/utils"
)

const (
	MaxExerciseText = 1500

	fragmentLong  = 80
	fragmentShort = 60
	vowels        = "aeiou"
)

// FillBlank asks for the missing letter of a word taken from the text.
type FillBlank struct {
	Prompt string `json:"prompt"`
	Answer string `json:"answer"`
}

// VowelHunt asks how many times a vowel appears in a fragment of the text.
type VowelHunt struct {
	Vowel    string `json:"vowel"`
	Fragment string `json:"fragment"`
	Count    int    `json:"count"`
}

type ExerciseSet struct {
	Fill  FillBlank `json:"fill"`
	Vowel VowelHunt `json:"vowel"`
}

var defaultExercises = ExerciseSet{
	Fill:  FillBlank{Prompt: "c_sa", Answer: "casa"},
	Vowel: VowelHunt{Vowel: "a", Fragment: "La casa es azul.", Count: 3},
}

// BuildExercises creates the practice items for text. rng picks the word and
// the vowel, so a seeded source gives a reproducible set.
func BuildExercises(text string, rng *rand.Rand) ExerciseSet {
	set := defaultExercises
	if r := []rune(text); len(r) > MaxExerciseText {
		text = string(r[:MaxExerciseText])
	}
	if strings.TrimSpace(text) == "" {
		return set
	}

	if words := uniqueWords(utils.LetterWords(text, 3, 7)); len(words) > 0 {
		set.Fill = fillBlank(words[rng.Intn(len(words))])
	}

	vowel := rune(vowels[rng.Intn(len(vowels))])
	fragment := sentenceFragment(text)
	if fragment == "" {
		fragment = "El sol brilla"
	}
	set.Vowel = VowelHunt{
		Vowel:    string(vowel),
		Fragment: fragment,
		Count:    utils.CountLetter(fragment, vowel),
	}
	return set
}

func uniqueWords(words []string) []string {
	seen := make(map[string]bool, len(words))
	out := words[:0]
	for _, w := range words {
		if !seen[w] {
			seen[w] = true
			out = append(out, w)
		}
	}
	return out
}

// fillBlank hides the middle letter of word.
func fillBlank(word string) FillBlank {
	r := []rune(word)
	i := len(r) / 2
	if i == 0 {
		i = 1
	}
	return FillBlank{Prompt: string(r[:i]) + "_" + string(r[i+1:]), Answer: word}
}

// sentenceFragment prefers the first full sentence inside the first 80
// characters, otherwise about 60 characters cut at a word boundary.
func sentenceFragment(text string) string {
	r := []rune(text)
	frag := r[:min(len(r), fragmentLong)]
	if p := lastIndex(frag, '.'); p > 10 && p < len(frag)-1 {
		return strings.TrimSpace(string(frag[:p+1]))
	}

	short := []rune(strings.TrimSpace(string(r[:min(len(r), fragmentShort)])))
	if len(r) > fragmentShort && r[fragmentShort] != ' ' {
		if s := lastIndex(short, ' '); s > 0 {
			short = short[:s]
		}
	}
	out := string(short)
	if len(r) > len(short) {
		out += "..."
	}
	return out
}

func lastIndex(r []rune, target rune) int {
	for i := len(r) - 1; i >= 0; i-- {
		if r[i] == target {
			return i
		}
	}
	return -1
}

// RenderExercises turns a set into the practice panel markup.
func RenderExercises(set ExerciseSet) string {
	return fmt.Sprintf(`<div class="exercises"><h3>¡A Practicar!</h3>`+
		`<div class="exercise"><h4>Completar:</h4><p>%s</p><details><summary>R</summary><p>%s</p></details></div>`+
		`<div class="exercise"><h4>Buscar:</h4><p>¿'%s' en "%s"?</p><details><summary>R</summary><p>%d</p></details></div>`+
		`</div>`,
		html.EscapeString(set.Fill.Prompt), html.EscapeString(set.Fill.Answer),
		html.EscapeString(set.Vowel.Vowel), html.EscapeString(set.Vowel.Fragment), set.Vowel.Count)
}
