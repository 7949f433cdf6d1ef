package models

import (
	"errors"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Difficulty is the quiz difficulty a badge track belongs to.
type Difficulty string

const (
	DifficultyEasy      Difficulty = "easy"
	DifficultyAverage   Difficulty = "average"
	DifficultyDifficult Difficulty = "difficult"
)

// Difficulties lists every badge track in display order.
var Difficulties = []Difficulty{DifficultyEasy, DifficultyAverage, DifficultyDifficult}

var ErrUnknownDifficulty = errors.New("unknown difficulty")

// ParseDifficulty accepts "easy", "Easy", " AVERAGE " and so on.
func ParseDifficulty(s string) (Difficulty, error) {
	d := Difficulty(strings.ToLower(strings.TrimSpace(s)))
	if !d.Valid() {
		return "", ErrUnknownDifficulty
	}
	return d, nil
}

func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyAverage, DifficultyDifficult:
		return true
	}
	return false
}

// Label returns the title-cased name shown to players, e.g. "Easy".
func (d Difficulty) Label() string {
	return cases.Title(language.English).String(string(d))
}

func (d Difficulty) String() string {
	return string(d)
}

// ResultSource says which game mode produced a qualifying result.
type ResultSource string

const (
	SourceChallenge ResultSource = "challenge" // perfect challenge score
	SourceBattle    ResultSource = "battle"    // battle win
)

func ParseResultSource(s string) (ResultSource, error) {
	switch src := ResultSource(strings.ToLower(strings.TrimSpace(s))); src {
	case SourceChallenge, SourceBattle:
		return src, nil
	case "":
		return SourceChallenge, nil
	}
	return "", errors.New("unknown result source")
}
