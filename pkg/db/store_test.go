package db

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	_ "github.com/mattn/go-sqlite3"

	"github.com/japaniel/kotoba/pkg/quiz"
)

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	// Ensure single connection to avoid separate in-memory DBs per connection.
	db.SetMaxOpenConns(1)
	if err := InitDB(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

var neko = Flashcard{
	Module:   quiz.ModuleVocabulary,
	Kanji:    "猫",
	Hiragana: "ねこ",
	Romaji:   "neko",
	English:  []string{"cat"},
}

func TestCreateOrGetFlashcard(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	id1, err := CreateOrGetFlashcard(db, neko)
	if err != nil {
		t.Fatalf("create flashcard: %v", err)
	}
	bare := neko
	bare.English = nil
	bare.Romaji = ""
	id2, err := CreateOrGetFlashcard(db, bare)
	if err != nil {
		t.Fatalf("get flashcard: %v", err)
	}
	if id1 != id2 {
		t.Fatalf("expected same id, got %d and %d", id1, id2)
	}

	got, err := GetFlashcard(db, id1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	want := neko
	want.ID = id1
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("GetFlashcard() mismatch (-want +got):\n%s", diff)
	}

	item := got.Item()
	if item.Kanji != "猫" || item.English[0] != "cat" || item.ID == "" {
		t.Errorf("unexpected item %+v", item)
	}
}

func TestCreateOrGetFlashcardRejectsEmpty(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	if _, err := CreateOrGetFlashcard(db, Flashcard{Module: quiz.ModuleVocabulary, English: []string{"x"}}); err == nil {
		t.Fatal("expected error for card without kanji or kana")
	}
	if _, err := CreateOrGetFlashcard(db, Flashcard{Hiragana: "ねこ"}); err == nil {
		t.Fatal("expected error for card without module")
	}
}

func TestGetFlashcardNotFound(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	_, err := GetFlashcard(db, 42)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListFlashcards(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	cards := []Flashcard{
		neko,
		{Module: quiz.ModuleVerbs, Kanji: "食べる", Hiragana: "たべる", Class: "ichidan"},
		{Module: quiz.ModuleKatakana, Katakana: "テレビ", English: []string{"television", "TV"}},
	}
	for _, c := range cards {
		if _, err := CreateOrGetFlashcard(db, c); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	all, err := ListFlashcards(db, "", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 cards, got %d", len(all))
	}

	verbs, err := ListFlashcards(db, quiz.ModuleVerbs, 10)
	if err != nil {
		t.Fatalf("list verbs: %v", err)
	}
	if len(verbs) != 1 || verbs[0].Class != "ichidan" {
		t.Fatalf("unexpected verbs %+v", verbs)
	}

	limited, err := ListFlashcards(db, "", 2)
	if err != nil {
		t.Fatalf("list limited: %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("expected 2 cards, got %d", len(limited))
	}

	missing, err := ListFlashcardsMissingEnglish(db)
	if err != nil {
		t.Fatalf("missing: %v", err)
	}
	if len(missing) != 1 || missing[0].Kanji != "食べる" {
		t.Fatalf("unexpected missing %+v", missing)
	}
	if err := UpdateFlashcardEnglish(db, missing[0].ID, []string{"to eat"}); err != nil {
		t.Fatalf("update english: %v", err)
	}
	missing, _ = ListFlashcardsMissingEnglish(db)
	if len(missing) != 0 {
		t.Fatalf("expected no cards missing english, got %d", len(missing))
	}
}

func TestConjugations(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	id, err := CreateOrGetFlashcard(db, Flashcard{Module: quiz.ModuleVerbs, Kanji: "食べる", Hiragana: "たべる"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	table := map[quiz.ConjugationForm]map[quiz.InputMode]string{
		quiz.FormPlain:    {quiz.ModeHiragana: "たべる", quiz.ModeRomaji: "taberu"},
		quiz.FormNegative: {quiz.ModeHiragana: "たべない", quiz.ModeRomaji: "tabenai"},
	}
	if err := ReplaceConjugations(db, id, table); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if err := ReplaceConjugations(db, id, table); err != nil {
		t.Fatalf("replace again: %v", err)
	}
	got, err := GetConjugations(db, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if diff := cmp.Diff(table, got); diff != "" {
		t.Errorf("GetConjugations() mismatch (-want +got):\n%s", diff)
	}
}

func TestCreateOrGetSource(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	id1, err := CreateOrGetSource(db, "website_article", "", "", "example.com", "https://example.com/a", "")
	if err != nil {
		t.Fatalf("create source: %v", err)
	}
	id2, err := CreateOrGetSource(db, "website_article", "", "", "example.com", "https://example.com/a", "")
	if err != nil {
		t.Fatalf("get source: %v", err)
	}
	if id1 != id2 {
		t.Fatalf("expected same source id, got %d and %d", id1, id2)
	}
}

func TestLinkAndQuery(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	fID, err := CreateOrGetFlashcard(db, neko)
	if err != nil {
		t.Fatalf("create flashcard: %v", err)
	}
	sID, err := CreateOrGetSource(db, "website_article", "", "", "example.com", "https://example.com/b", "")
	if err != nil {
		t.Fatalf("create source: %v", err)
	}
	if err := LinkFlashcardToSource(db, fID, sID, "この猫は可愛い。", 1); err != nil {
		t.Fatalf("link: %v", err)
	}
	// Link again to test occurrence_count increment via upsert
	if err := LinkFlashcardToSource(db, fID, sID, "", 2); err != nil {
		t.Fatalf("link 2: %v", err)
	}
	var cnt int
	err = db.QueryRow(`SELECT occurrence_count FROM flashcard_sources WHERE flashcard_id = ? AND source_id = ?`, fID, sID).Scan(&cnt)
	if err != nil {
		t.Fatalf("query count: %v", err)
	}
	if cnt != 3 {
		t.Fatalf("expected occurrence_count=3, got %d", cnt)
	}

	example, err := GetExampleSentence(db, fID)
	if err != nil {
		t.Fatalf("example: %v", err)
	}
	if example != "この猫は可愛い。" {
		t.Fatalf("expected example sentence to survive empty relink, got %q", example)
	}

	cards, err := GetFlashcardsBySource(db, sID)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(cards) != 1 || cards[0].Kanji != "猫" {
		t.Fatalf("unexpected cards %+v", cards)
	}

	if err := LinkFlashcardToSource(db, fID, sID, "", 0); err == nil {
		t.Fatal("expected error for zero increment")
	}
}

func TestSourceProgress(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	sID, err := CreateOrGetSource(db, "file", "Doc", "", "", "", "")
	if err != nil {
		t.Fatalf("create source: %v", err)
	}
	if got, _ := GetSourceProgress(db, sID); got != -1 {
		t.Fatalf("expected fresh progress -1, got %d", got)
	}
	if err := UpdateSourceProgress(db, sID, 7); err != nil {
		t.Fatalf("update: %v", err)
	}
	if got, _ := GetSourceProgress(db, sID); got != 7 {
		t.Fatalf("expected progress 7, got %d", got)
	}
}

func TestAttemptsAndStats(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	fID, err := CreateOrGetFlashcard(db, neko)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := CreateOrGetFlashcard(db, Flashcard{Module: quiz.ModuleVerbs, Hiragana: "する"}); err != nil {
		t.Fatalf("create verb: %v", err)
	}

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	id, err := RecordAttempt(db, Attempt{
		FlashcardID: fID,
		SessionID:   "s1",
		Modes:       []quiz.InputMode{quiz.ModeHiragana, quiz.ModeEnglish},
		Correct:     1,
		Total:       2,
		Feedback:    quiz.FeedbackPartial,
		AnsweredAt:  at,
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if len(id) != 36 {
		t.Fatalf("expected a uuid id, got %q", id)
	}
	if _, err := RecordAttempt(db, Attempt{FlashcardID: fID, Modes: []quiz.InputMode{quiz.ModeEnglish}, Correct: 1, Total: 1, Feedback: quiz.FeedbackCorrect}); err != nil {
		t.Fatalf("record 2: %v", err)
	}

	attempts, err := ListAttempts(db, fID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(attempts) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(attempts))
	}
	last := attempts[1]
	if last.ID != id || last.Feedback != quiz.FeedbackPartial || len(last.Modes) != 2 || !last.AnsweredAt.Equal(at) {
		t.Fatalf("unexpected attempt %+v", last)
	}

	stats, err := Stats(db)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	want := []ModuleStats{
		{Module: quiz.ModuleVerbs, Cards: 1},
		{Module: quiz.ModuleVocabulary, Cards: 1, Attempts: 2, Correct: 2, Total: 3},
	}
	if diff := cmp.Diff(want, stats); diff != "" {
		t.Errorf("Stats() mismatch (-want +got):\n%s", diff)
	}
	if acc := stats[1].Accuracy(); acc < 0.66 || acc > 0.67 {
		t.Errorf("unexpected accuracy %v", acc)
	}
	if stats[0].Accuracy() != 0 {
		t.Errorf("expected zero accuracy without attempts")
	}
}

func TestCreateOrGetFlashcardConcurrency(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	const n = 8
	ids := make(chan int64, n)
	for i := 0; i < n; i++ {
		go func() {
			id, err := CreateOrGetFlashcard(db, neko)
			if err != nil {
				t.Errorf("create or get flashcard: %v", err)
				ids <- 0
				return
			}
			ids <- id
		}()
	}
	var first int64
	for i := 0; i < n; i++ {
		id := <-ids
		if id == 0 {
			t.Fatalf("error in goroutine")
		}
		if i == 0 {
			first = id
		}
		if id != first {
			t.Fatalf("expected same id, got %d and %d", first, id)
		}
	}
	var cnt int
	if err := db.QueryRow(`SELECT COUNT(*) FROM flashcards WHERE kanji = ?`, "猫").Scan(&cnt); err != nil {
		t.Fatalf("count: %v", err)
	}
	if cnt != 1 {
		t.Fatalf("expected 1 flashcard row, got %d", cnt)
	}
}

func TestCreateOrGetSourceConcurrency(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	const n = 8
	ids := make(chan int64, n)
	for i := 0; i < n; i++ {
		go func() {
			id, err := CreateOrGetSource(db, "website_article", "Title", "Author", "example.com", "https://example.com/c", "")
			if err != nil {
				t.Errorf("create or get source: %v", err)
				ids <- 0
				return
			}
			ids <- id
		}()
	}
	var first int64
	for i := 0; i < n; i++ {
		id := <-ids
		if id == 0 {
			t.Fatalf("error in goroutine")
		}
		if i == 0 {
			first = id
		}
		if id != first {
			t.Fatalf("expected same id, got %d and %d", first, id)
		}
	}
	var cnt int
	if err := db.QueryRow(`SELECT COUNT(*) FROM sources WHERE url = ?`, "https://example.com/c").Scan(&cnt); err != nil {
		t.Fatalf("count: %v", err)
	}
	if cnt != 1 {
		t.Fatalf("expected 1 source row, got %d", cnt)
	}
}
