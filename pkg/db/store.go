package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/japaniel/kotoba/pkg/quiz"
)

// DBExecutor is an interface that allows methods to accept either *sql.DB or *sql.Tx
type DBExecutor interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// ErrNotFound is returned when a looked up row does not exist.
var ErrNotFound = errors.New("db: not found")

// isUniqueConstraintErr returns true when the error indicates a unique/constraint violation
func isUniqueConstraintErr(err error) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "unique") || strings.Contains(s, "constraint failed")
}

func encodeEnglish(english []string) (string, error) {
	if len(english) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(english)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeEnglish(s string) ([]string, error) {
	if s == "" || s == "[]" {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, fmt.Errorf("decode english %q: %w", s, err)
	}
	return out, nil
}

// CreateOrGetFlashcard returns the id of the card with the same module and
// written forms, inserting it when missing. Non-empty romaji, English and
// class values of f replace stored ones.
func CreateOrGetFlashcard(db DBExecutor, f Flashcard) (int64, error) {
	if strings.TrimSpace(f.Kanji+f.Hiragana+f.Katakana) == "" {
		return 0, fmt.Errorf("flashcard needs a kanji or kana form")
	}
	if f.Module == "" {
		return 0, fmt.Errorf("flashcard module must be non-empty")
	}
	english, err := encodeEnglish(f.English)
	if err != nil {
		return 0, err
	}

	var id int64
	query := `INSERT INTO flashcards (module, kanji, hiragana, katakana, romaji, english, class)
			  VALUES (?, ?, ?, ?, ?, ?, ?)
			  ON CONFLICT(module, kanji, hiragana, katakana)
			  DO UPDATE SET
			    romaji = COALESCE(NULLIF(excluded.romaji, ''), flashcards.romaji),
				english = CASE WHEN excluded.english = '[]' THEN flashcards.english ELSE excluded.english END,
				class = COALESCE(NULLIF(excluded.class, ''), flashcards.class)
			  RETURNING id`
	err = db.QueryRow(query, string(f.Module), strings.TrimSpace(f.Kanji), strings.TrimSpace(f.Hiragana),
		strings.TrimSpace(f.Katakana), f.Romaji, english, f.Class).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert flashcard: %w", err)
	}
	return id, nil
}

const flashcardColumns = `f.id, f.module, f.kanji, f.hiragana, f.katakana, f.romaji, f.english, f.class`

func scanFlashcard(scan func(dest ...interface{}) error) (Flashcard, error) {
	var f Flashcard
	var module, english string
	if err := scan(&f.ID, &module, &f.Kanji, &f.Hiragana, &f.Katakana, &f.Romaji, &english, &f.Class); err != nil {
		return Flashcard{}, err
	}
	f.Module = quiz.ModuleID(module)
	en, err := decodeEnglish(english)
	if err != nil {
		return Flashcard{}, err
	}
	f.English = en
	return f, nil
}

// GetFlashcard returns the card with id.
func GetFlashcard(db DBExecutor, id int64) (Flashcard, error) {
	row := db.QueryRow(`SELECT `+flashcardColumns+` FROM flashcards f WHERE f.id = ?`, id)
	f, err := scanFlashcard(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return Flashcard{}, fmt.Errorf("flashcard %d: %w", id, ErrNotFound)
	}
	return f, err
}

func queryFlashcards(db DBExecutor, query string, args ...interface{}) ([]Flashcard, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Flashcard
	for rows.Next() {
		f, err := scanFlashcard(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListFlashcards returns the cards of module, or every card when module is
// empty, oldest first. A limit <= 0 means no limit.
func ListFlashcards(db DBExecutor, module quiz.ModuleID, limit int) ([]Flashcard, error) {
	if limit <= 0 {
		limit = -1
	}
	return queryFlashcards(db, `SELECT `+flashcardColumns+` FROM flashcards f
		WHERE ? = '' OR f.module = ? ORDER BY f.id LIMIT ?`, string(module), string(module), limit)
}

// ListFlashcardsMissingEnglish returns cards that have no translation yet.
func ListFlashcardsMissingEnglish(db DBExecutor) ([]Flashcard, error) {
	return queryFlashcards(db, `SELECT `+flashcardColumns+` FROM flashcards f WHERE f.english = '[]' ORDER BY f.id`)
}

// GetFlashcardsBySource returns the cards linked to a source.
func GetFlashcardsBySource(db DBExecutor, sourceID int64) ([]Flashcard, error) {
	return queryFlashcards(db, `SELECT `+flashcardColumns+` FROM flashcards f
		JOIN flashcard_sources fs ON fs.flashcard_id = f.id WHERE fs.source_id = ? ORDER BY f.id`, sourceID)
}

// UpdateFlashcardEnglish replaces the English translations of a card.
func UpdateFlashcardEnglish(db DBExecutor, id int64, english []string) error {
	if id <= 0 {
		return fmt.Errorf("flashcard id must be positive")
	}
	encoded, err := encodeEnglish(english)
	if err != nil {
		return err
	}
	_, err = db.Exec(`UPDATE flashcards SET english = ? WHERE id = ?`, encoded, id)
	return err
}

// ReplaceConjugations stores the expected surface of each (form, mode) cell
// for a card, replacing any previous table.
func ReplaceConjugations(db DBExecutor, id int64, table map[quiz.ConjugationForm]map[quiz.InputMode]string) error {
	if _, err := db.Exec(`DELETE FROM conjugations WHERE flashcard_id = ?`, id); err != nil {
		return fmt.Errorf("clear conjugations: %w", err)
	}
	for form, cells := range table {
		for mode, value := range cells {
			if _, err := db.Exec(`INSERT INTO conjugations (flashcard_id, form, mode, value) VALUES (?, ?, ?, ?)`,
				id, string(form), string(mode), value); err != nil {
				return fmt.Errorf("insert conjugation %s/%s: %w", form, mode, err)
			}
		}
	}
	return nil
}

// GetConjugations returns the stored conjugation table of a card.
func GetConjugations(db DBExecutor, id int64) (map[quiz.ConjugationForm]map[quiz.InputMode]string, error) {
	rows, err := db.Query(`SELECT form, mode, value FROM conjugations WHERE flashcard_id = ?`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[quiz.ConjugationForm]map[quiz.InputMode]string{}
	for rows.Next() {
		var form, mode, value string
		if err := rows.Scan(&form, &mode, &value); err != nil {
			return nil, err
		}
		f := quiz.ConjugationForm(form)
		if out[f] == nil {
			out[f] = map[quiz.InputMode]string{}
		}
		out[f][quiz.InputMode(mode)] = value
	}
	return out, rows.Err()
}

// CreateOrGetSource returns existing source id or inserts a new source and returns its id.
func CreateOrGetSource(db DBExecutor, sourceType, title, author, website, url, meta string) (int64, error) {
	trimmedSourceType := strings.TrimSpace(sourceType)
	if trimmedSourceType == "" {
		return 0, fmt.Errorf("sourceType must be non-empty")
	}

	const maxRetries = 3

	var id int64
	for attempt := 0; attempt < maxRetries; attempt++ {
		err := db.QueryRow(
			`SELECT id FROM sources WHERE IFNULL(url, '') = ? AND IFNULL(title, '') = ? AND IFNULL(author, '') = ?`,
			url, title, author,
		).Scan(&id)
		if err == nil {
			return id, nil
		}
		if err != sql.ErrNoRows {
			return 0, err
		}

		res, err := db.Exec(
			`INSERT INTO sources (source_type, title, author, website, url, meta) VALUES (?, ?, ?, ?, ?, ?)`,
			trimmedSourceType, title, author, website, url, meta,
		)
		if err != nil {
			// a concurrent insert of the same source won; select it again
			if isUniqueConstraintErr(err) {
				continue
			}
			return 0, err
		}
		return res.LastInsertId()
	}
	return 0, fmt.Errorf("could not create or get source after %d retries", maxRetries)
}

func getOrCreateSentence(db DBExecutor, text string) (int64, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0, nil
	}
	if _, err := db.Exec(`INSERT OR IGNORE INTO sentences (text) VALUES (?)`, trimmed); err != nil {
		return 0, err
	}
	var id int64
	if err := db.QueryRow(`SELECT id FROM sentences WHERE text = ?`, trimmed).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// LinkFlashcardToSource records that a card's word occurred incrementAmount
// times in a source, keeping the latest example sentence.
func LinkFlashcardToSource(db DBExecutor, flashcardID, sourceID int64, example string, incrementAmount int) error {
	if flashcardID <= 0 {
		return fmt.Errorf("flashcardID must be positive")
	}
	if sourceID <= 0 {
		return fmt.Errorf("sourceID must be positive")
	}
	if incrementAmount < 1 {
		return fmt.Errorf("incrementAmount must be positive, got %d", incrementAmount)
	}

	exID, err := getOrCreateSentence(db, example)
	if err != nil {
		return fmt.Errorf("get/create example sentence: %w", err)
	}

	_, err = db.Exec(`INSERT INTO flashcard_sources (flashcard_id, source_id, example_sentence_id, occurrence_count, first_seen_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(flashcard_id, source_id) DO UPDATE SET
	  occurrence_count = flashcard_sources.occurrence_count + excluded.occurrence_count,
	  example_sentence_id = COALESCE(excluded.example_sentence_id, flashcard_sources.example_sentence_id)`,
		flashcardID, sourceID, nullableInt64(exID), incrementAmount, time.Now())
	return err
}

// GetExampleSentence returns an example sentence for a card, "" when none
// was recorded.
func GetExampleSentence(db DBExecutor, flashcardID int64) (string, error) {
	var text string
	err := db.QueryRow(`SELECT s.text FROM flashcard_sources fs JOIN sentences s ON s.id = fs.example_sentence_id
		WHERE fs.flashcard_id = ? ORDER BY fs.occurrence_count DESC LIMIT 1`, flashcardID).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return text, err
}

// nullableInt64 returns nil for 0 (meaning no sentence) else the value.
func nullableInt64(v int64) interface{} {
	if v == 0 {
		return nil
	}
	return v
}

// GetSourceProgress returns the last processed sentence index for a source,
// -1 before any sentence was processed.
func GetSourceProgress(db DBExecutor, sourceID int64) (int, error) {
	var index int
	err := db.QueryRow("SELECT last_processed_sentence FROM sources WHERE id = ?", sourceID).Scan(&index)
	if err != nil {
		return 0, err
	}
	return index, nil
}

// UpdateSourceProgress updates the last processed sentence index.
func UpdateSourceProgress(db DBExecutor, sourceID int64, index int) error {
	_, err := db.Exec("UPDATE sources SET last_processed_sentence = ? WHERE id = ?", index, sourceID)
	return err
}

// RecordAttempt stores a graded answer and returns its id. A missing id or
// time is filled in.
func RecordAttempt(db DBExecutor, a Attempt) (string, error) {
	if a.FlashcardID <= 0 {
		return "", fmt.Errorf("flashcardID must be positive")
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.AnsweredAt.IsZero() {
		a.AnsweredAt = time.Now()
	}
	modes := make([]string, len(a.Modes))
	for i, m := range a.Modes {
		modes[i] = string(m)
	}
	_, err := db.Exec(`INSERT INTO attempts (id, session_id, flashcard_id, modes, correct, total, feedback, answered_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.SessionID, a.FlashcardID, strings.Join(modes, ","), a.Correct, a.Total, a.Feedback.String(), a.AnsweredAt)
	if err != nil {
		return "", fmt.Errorf("insert attempt: %w", err)
	}
	return a.ID, nil
}

// ListAttempts returns the attempts for a card, newest first.
func ListAttempts(db DBExecutor, flashcardID int64) ([]Attempt, error) {
	rows, err := db.Query(`SELECT id, session_id, flashcard_id, modes, correct, total, feedback, answered_at
		FROM attempts WHERE flashcard_id = ? ORDER BY answered_at DESC`, flashcardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Attempt
	for rows.Next() {
		var a Attempt
		var modes, feedback string
		if err := rows.Scan(&a.ID, &a.SessionID, &a.FlashcardID, &modes, &a.Correct, &a.Total, &feedback, &a.AnsweredAt); err != nil {
			return nil, err
		}
		for _, m := range strings.Split(modes, ",") {
			if m != "" {
				a.Modes = append(a.Modes, quiz.InputMode(m))
			}
		}
		a.Feedback = parseFeedback(feedback)
		out = append(out, a)
	}
	return out, rows.Err()
}

func parseFeedback(s string) quiz.FeedbackColor {
	for _, c := range []quiz.FeedbackColor{quiz.FeedbackIncorrect, quiz.FeedbackPartial, quiz.FeedbackCorrect} {
		if c.String() == s {
			return c
		}
	}
	return quiz.FeedbackIncorrect
}

// Stats returns per-module card counts and attempt totals, by module name.
func Stats(db DBExecutor) ([]ModuleStats, error) {
	rows, err := db.Query(`SELECT f.module, COUNT(DISTINCT f.id), COUNT(a.id), IFNULL(SUM(a.correct), 0), IFNULL(SUM(a.total), 0)
		FROM flashcards f LEFT JOIN attempts a ON a.flashcard_id = f.id
		GROUP BY f.module ORDER BY f.module`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ModuleStats
	for rows.Next() {
		var s ModuleStats
		var module string
		if err := rows.Scan(&module, &s.Cards, &s.Attempts, &s.Correct, &s.Total); err != nil {
			return nil, err
		}
		s.Module = quiz.ModuleID(module)
		out = append(out, s)
	}
	return out, rows.Err()
}
