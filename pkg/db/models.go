package db

import (
	"strconv"
	"time"

	"github.com/japaniel/kotoba/pkg/quiz"
)

// Flashcard is one stored deck item.
type Flashcard struct {
	ID       int64
	Module   quiz.ModuleID
	Kanji    string
	Hiragana string
	Katakana string
	Romaji   string
	English  []string
	// Class is the conjugation class for verb and adjective cards.
	Class string
}

// Item returns the card as the quiz engine sees it.
func (f Flashcard) Item() quiz.FlashcardItem {
	return quiz.FlashcardItem{
		ID:       strconv.FormatInt(f.ID, 10),
		Module:   f.Module,
		Kanji:    f.Kanji,
		Hiragana: f.Hiragana,
		Katakana: f.Katakana,
		Romaji:   f.Romaji,
		English:  f.English,
	}
}

// Source is a provenance record for where a card's word was seen.
type Source struct {
	ID         int64
	SourceType string
	Title      string
	Author     string
	Website    string
	URL        string
	Meta       string
	AddedAt    time.Time
}

// Attempt is one graded answer.
type Attempt struct {
	ID          string
	SessionID   string
	FlashcardID int64
	Modes       []quiz.InputMode
	Correct     int
	Total       int
	Feedback    quiz.FeedbackColor
	AnsweredAt  time.Time
}

// ModuleStats summarizes attempts for one module.
type ModuleStats struct {
	Module   quiz.ModuleID
	Cards    int
	Attempts int
	Correct  int
	Total    int
}

// Accuracy is the share of correct mode answers, 0 with no attempts.
func (s ModuleStats) Accuracy() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Correct) / float64(s.Total)
}
