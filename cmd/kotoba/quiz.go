package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/google/uuid"

	"github.com/japaniel/kotoba/pkg/db"
	"github.com/japaniel/kotoba/pkg/debounce"
	"github.com/japaniel/kotoba/pkg/kana"
	"github.com/japaniel/kotoba/pkg/keystroke"
	"github.com/japaniel/kotoba/pkg/quiz"
	"github.com/japaniel/kotoba/pkg/selector"
)

// session is one run of quiz or drill: the engine, the answer source and the
// running score.
type session struct {
	a       *app
	id      string
	norm    *quiz.Normalizer
	v       *quiz.Validator
	pref    quiz.OutputPreference
	in      *bufio.Scanner
	correct int
	total   int
}

func (a *app) newSession(alternates bool) *session {
	pref := a.settings.Preference()
	norm := quiz.NewNormalizer(kana.New(), quiz.WithCache(512))
	opts := []quiz.ValidatorOption{quiz.WithOutputPreference(pref)}
	if alternates {
		opts = append(opts, quiz.WithAlternateScripts())
	}
	return &session{
		a:    a,
		id:   uuid.NewString(),
		norm: norm,
		v:    quiz.NewValidator(quiz.NewMatcher(norm), opts...),
		pref: pref,
		in:   bufio.NewScanner(a.stdin),
	}
}

// ask prompts for one answer in mode. Japanese answers go through a keystroke
// field so romaji is converted the way it is while typing. ok is false once
// input is exhausted.
func (s *session) ask(label string, mode quiz.InputMode) (answer string, ok bool) {
	fmt.Fprintf(s.a.stdout, "%s> ", label)
	if !s.in.Scan() {
		return "", false
	}
	line := s.in.Text()
	switch mode {
	case quiz.ModeHiragana, quiz.ModeKatakana, quiz.ModeKanji:
		f := keystroke.NewField(s.norm, mode, s.pref, debounce.DefaultDelay)
		defer f.Close()
		f.Insert(line)
		return f.Commit(), true
	}
	return line, true
}

func (s *session) record(cardID int64, modes []quiz.InputMode, correct, total int, fb quiz.FeedbackColor) {
	s.correct += correct
	s.total += total
	_, err := db.RecordAttempt(s.a.conn, db.Attempt{
		SessionID:   s.id,
		FlashcardID: cardID,
		Modes:       modes,
		Correct:     correct,
		Total:       total,
		Feedback:    fb,
	})
	if err != nil {
		s.a.log.Warn().Err(err).Int64("flashcard", cardID).Msg("failed to record attempt")
	}
}

func parseModes(list string) (map[quiz.InputMode]bool, error) {
	out := make(map[quiz.InputMode]bool)
	for _, part := range strings.Split(list, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		m, err := quiz.ParseMode(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		out[m] = true
	}
	return out, nil
}

// pickCards returns up to n cards, shuffled unless inOrder.
func pickCards(cards []db.Flashcard, n int, inOrder bool) []db.Flashcard {
	if !inOrder {
		rand.Shuffle(len(cards), func(i, j int) { cards[i], cards[j] = cards[j], cards[i] })
	}
	if n > 0 && len(cards) > n {
		cards = cards[:n]
	}
	return cards
}

// promptMode picks the script the card is shown in, weighted by the
// configured proportions. Scripts being answered and scripts the card lacks
// are left out; when nothing is left the first script the card has is used.
func promptMode(p selector.Proportions, item quiz.FlashcardItem, answering []quiz.InputMode, rng func() float64) quiz.InputMode {
	usable := func(m quiz.InputMode) bool {
		for _, a := range answering {
			if a == m {
				return false
			}
		}
		return item.Field(m) != ""
	}

	var candidates selector.Proportions
	for _, w := range p {
		if usable(quiz.InputMode(w.Mode)) {
			candidates = append(candidates, w)
		}
	}
	if mode, err := selector.Select(candidates, rng); err == nil {
		return quiz.InputMode(mode)
	}
	for _, m := range promptOrder {
		if usable(m) {
			return m
		}
	}
	for _, m := range promptOrder {
		if item.Field(m) != "" {
			return m
		}
	}
	return quiz.ModeEnglish
}

var promptOrder = []quiz.InputMode{quiz.ModeKanji, quiz.ModeKatakana, quiz.ModeHiragana, quiz.ModeEnglish, quiz.ModeRomaji}

func runQuiz(ctx context.Context, a *app, fs *flag.FlagSet, args []string) error {
	module := fs.String("module", "", "Module to study (default from settings)")
	modesFlag := fs.String("modes", "", "Comma separated answer modes (default from settings)")
	n := fs.Int("n", 10, "Number of cards")
	inOrder := fs.Bool("in-order", false, "Ask cards in deck order")
	alternates := fs.Bool("alternates", false, "Accept a single Japanese answer in any script the card has")
	if err := a.parse(fs, args); err != nil {
		return err
	}
	if *module != "" {
		a.settings.Module = quiz.ModuleID(*module)
	}
	if *modesFlag != "" {
		modes, err := parseModes(*modesFlag)
		if err != nil {
			return err
		}
		a.settings.Modes = modes
	}
	modes := a.settings.EnabledModes()
	if len(modes) == 0 {
		return quiz.ErrNoModes
	}

	conn, err := a.openDB()
	if err != nil {
		return err
	}
	defer conn.Close()
	a.conn = conn

	cards, err := db.ListFlashcards(conn, a.settings.Module, 0)
	if err != nil {
		return fmt.Errorf("list cards: %w", err)
	}
	if len(cards) == 0 {
		fmt.Fprintf(a.stdout, "No cards in module %s yet. Add some with kotoba build.\n", a.settings.Module)
		return nil
	}

	s := a.newSession(*alternates)
Cards:
	for _, card := range pickCards(cards, *n, *inOrder) {
		if ctx.Err() != nil {
			break
		}
		item := card.Item()
		shown := promptMode(a.settings.Proportions, item, modes, a.rng)
		fmt.Fprintf(a.stdout, "\n%s  (%s)\n", item.Field(shown), shown)

		answers := make(map[quiz.InputMode]string, len(modes))
		for _, m := range modes {
			answer, ok := s.ask(string(m), m)
			if !ok {
				break Cards
			}
			answers[m] = answer
		}

		res, err := s.v.Validate(answers, item, modes)
		if errors.Is(err, quiz.ErrEmptyItem) {
			a.log.Debug().Int64("flashcard", card.ID).Msg("skipping empty card")
			continue
		}
		if err != nil {
			return err
		}
		a.showResult(res, item, modes)
		correct, total := quiz.Score(res.Results)
		s.record(card.ID, modes, correct, total, res.Feedback)
	}

	a.showScore(s.correct, s.total)
	return nil
}

func runDrill(ctx context.Context, a *app, fs *flag.FlagSet, args []string) error {
	module := fs.String("module", string(quiz.ModuleVerbs), "verbs or adjectives")
	n := fs.Int("n", 5, "Number of words")
	inOrder := fs.Bool("in-order", false, "Ask words in deck order")
	withKanji := fs.Bool("kanji", false, "Also ask each form written with kanji")
	if err := a.parse(fs, args); err != nil {
		return err
	}
	if c, ok := quiz.CapabilityOf(quiz.ModuleID(*module)); !ok || !c.IsConjugationModule {
		return fmt.Errorf("module %q has no conjugations", *module)
	}

	conn, err := a.openDB()
	if err != nil {
		return err
	}
	defer conn.Close()
	a.conn = conn

	cards, err := db.ListFlashcards(conn, quiz.ModuleID(*module), 0)
	if err != nil {
		return fmt.Errorf("list cards: %w", err)
	}
	if len(cards) == 0 {
		fmt.Fprintf(a.stdout, "No cards in module %s yet. Add some with kotoba build.\n", *module)
		return nil
	}

	s := a.newSession(false)
Words:
	for _, card := range pickCards(cards, *n, *inOrder) {
		if ctx.Err() != nil {
			break
		}
		table, err := db.GetConjugations(conn, card.ID)
		if err != nil {
			return fmt.Errorf("load conjugations: %w", err)
		}
		if len(table) == 0 {
			continue
		}

		modes := []quiz.InputMode{quiz.ModeHiragana}
		if *withKanji && card.Kanji != "" {
			modes = append(modes, quiz.ModeKanji)
		}
		word := card.Kanji
		if word == "" {
			word = card.Hiragana
		}
		fmt.Fprintf(a.stdout, "\n%s  %s\n", word, strings.Join(card.English, ", "))

		answers := make(map[quiz.ConjugationForm]map[quiz.InputMode]string)
		expected := make(map[quiz.ConjugationForm]map[quiz.InputMode]string)
		for _, form := range quiz.AllForms {
			cell, ok := table[form]
			if !ok {
				continue
			}
			answers[form] = make(map[quiz.InputMode]string)
			expected[form] = make(map[quiz.InputMode]string)
			for _, m := range modes {
				if cell[m] == "" {
					continue
				}
				answer, ok := s.ask(fmt.Sprintf("%s %s", form, m), m)
				if !ok {
					break Words
				}
				answers[form][m] = answer
				expected[form][m] = cell[m]
			}
		}

		cells := s.v.ValidateConjugations(answers, expected)
		a.showConjugations(cells, expected)
		correct, total := quiz.Tally(cells)
		s.record(card.ID, modes, correct, total, feedbackOf(correct, total))
	}

	a.showScore(s.correct, s.total)
	return nil
}

func feedbackOf(correct, total int) quiz.FeedbackColor {
	switch {
	case total > 0 && correct == total:
		return quiz.FeedbackCorrect
	case correct > 0:
		return quiz.FeedbackPartial
	}
	return quiz.FeedbackIncorrect
}
