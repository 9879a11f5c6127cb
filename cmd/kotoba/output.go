package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/gookit/color"
	"github.com/k0kubun/pp"
	"github.com/tidwall/pretty"

	"github.com/japaniel/kotoba/pkg/db"
	"github.com/japaniel/kotoba/pkg/kana"
	"github.com/japaniel/kotoba/pkg/quiz"
	"github.com/japaniel/kotoba/pkg/script"
)

// almost is the similarity above which a wrong answer gets a hint.
const almost = 0.85

var feedbackStyle = map[quiz.FeedbackColor]color.Color{
	quiz.FeedbackCorrect:   color.Green,
	quiz.FeedbackPartial:   color.Yellow,
	quiz.FeedbackIncorrect: color.Red,
}

var feedbackText = map[quiz.FeedbackColor]string{
	quiz.FeedbackCorrect:   "Correct!",
	quiz.FeedbackPartial:   "Partly correct",
	quiz.FeedbackIncorrect: "Incorrect",
}

// printJSON writes v as indented, and on a terminal colored, JSON.
func (a *app) printJSON(v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	out := pretty.Pretty(b)
	if a.stdout == os.Stdout && color.SupportColor() {
		out = pretty.Color(out, nil)
	}
	_, err = a.stdout.Write(out)
	return err
}

func (a *app) dump(v interface{}) {
	if a.debug {
		pp.Fprintln(a.stderr, v)
	}
}

func mark(ok bool) string {
	if ok {
		return color.Green.Sprint("✓")
	}
	return color.Red.Sprint("✗")
}

func (a *app) showResult(res quiz.ValidationResult, item quiz.FlashcardItem, modes []quiz.InputMode) {
	a.dump(res)
	if a.json {
		if err := a.printJSON(res); err != nil {
			a.log.Warn().Err(err).Msg("failed to encode result")
		}
		return
	}

	for i, m := range modes {
		line := fmt.Sprintf("  %s %-9s %s", mark(res.Results[i]), m, res.Converted[i])
		if !res.Results[i] {
			line += "  → " + strings.Join(item.Expected(m), " / ")
			if res.Similarity[i] >= almost {
				line += color.Yellow.Sprint("  (almost)")
			}
		}
		fmt.Fprintln(a.stdout, line)
	}
	if res.MatchedType != "" && res.MatchedType != modes[0] {
		fmt.Fprintf(a.stdout, "  matched the %s spelling\n", res.MatchedType)
	}
	fmt.Fprintln(a.stdout, feedbackStyle[res.Feedback].Sprint(feedbackText[res.Feedback]))
}

func (a *app) showConjugations(cells []quiz.ConjugationCell, expected map[quiz.ConjugationForm]map[quiz.InputMode]string) {
	a.dump(cells)
	if a.json {
		if err := a.printJSON(cells); err != nil {
			a.log.Warn().Err(err).Msg("failed to encode cells")
		}
		return
	}

	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	for _, c := range cells {
		want := ""
		if !c.IsMatch {
			want = "→ " + expected[c.Form][c.Mode]
		}
		answer := c.Converted
		if c.Empty {
			answer = "-"
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\t%s\n", mark(c.IsMatch), c.Form, c.Mode, answer, want)
	}
	tw.Flush()
	correct, total := quiz.Tally(cells)
	fb := feedbackOf(correct, total)
	fmt.Fprintln(a.stdout, feedbackStyle[fb].Sprintf("%d/%d forms", correct, total))
}

func (a *app) showScore(correct, total int) {
	if a.json {
		return
	}
	fmt.Fprintf(a.stdout, "\nScore: %d/%d\n", correct, total)
}

func runStats(ctx context.Context, a *app, fs *flag.FlagSet, args []string) error {
	if err := a.parse(fs, args); err != nil {
		return err
	}
	conn, err := a.openDB()
	if err != nil {
		return err
	}
	defer conn.Close()

	stats, err := db.Stats(conn)
	if err != nil {
		return fmt.Errorf("load stats: %w", err)
	}
	a.dump(stats)
	if a.json {
		type row struct {
			Module   quiz.ModuleID `json:"module"`
			Cards    int           `json:"cards"`
			Attempts int           `json:"attempts"`
			Accuracy float64       `json:"accuracy"`
		}
		rows := make([]row, len(stats))
		for i, s := range stats {
			rows[i] = row{s.Module, s.Cards, s.Attempts, s.Accuracy()}
		}
		return a.printJSON(rows)
	}

	if len(stats) == 0 {
		fmt.Fprintln(a.stdout, "The deck is empty.")
		return nil
	}
	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MODULE\tCARDS\tATTEMPTS\tACCURACY")
	for _, s := range stats {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%.0f%%\n", s.Module, s.Cards, s.Attempts, 100*s.Accuracy())
	}
	return tw.Flush()
}

// conversion is the output of the convert command for one input.
type conversion struct {
	Input    string `json:"input"`
	Script   string `json:"script"`
	Hiragana string `json:"hiragana"`
	Katakana string `json:"katakana"`
	Romaji   string `json:"romaji"`
}

func convert(tr *kana.Transliterator, norm *quiz.Normalizer, s string) conversion {
	hira := script.ToHiragana(norm.NormalizeField(s, quiz.ModeHiragana, quiz.OutputHiragana))
	return conversion{
		Input:    s,
		Script:   script.Classify(s).String(),
		Hiragana: hira,
		Katakana: script.ToKatakana(hira),
		Romaji:   tr.ToRomaji(hira),
	}
}

func runConvert(ctx context.Context, a *app, fs *flag.FlagSet, args []string) error {
	to := fs.String("to", "", "Print only this script: hiragana, katakana or romaji")
	if err := fs.Parse(args); err != nil {
		return err
	}
	a.setupLogging()
	if fs.NArg() == 0 {
		return fmt.Errorf("nothing to convert")
	}

	tr := kana.New()
	norm := quiz.NewNormalizer(tr)
	var out []conversion
	for _, arg := range fs.Args() {
		out = append(out, convert(tr, norm, arg))
	}
	a.dump(out)
	if a.json {
		return a.printJSON(out)
	}

	for _, c := range out {
		switch *to {
		case "":
			fmt.Fprintf(a.stdout, "%s\t%s\t%s\t%s\n", c.Input, c.Hiragana, c.Katakana, c.Romaji)
		case "hiragana":
			fmt.Fprintln(a.stdout, c.Hiragana)
		case "katakana":
			fmt.Fprintln(a.stdout, c.Katakana)
		case "romaji":
			fmt.Fprintln(a.stdout, c.Romaji)
		default:
			return fmt.Errorf("unknown script %q", *to)
		}
	}
	return nil
}
