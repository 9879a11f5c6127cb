// Package ingest builds flashcards from analyzed text: each content word
// becomes a card in the module matching its kind, verbs and adjectives get
// their conjugation tables, and every card is linked to the source it was
// found in.
package ingest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/japaniel/kotoba/pkg/analyzer"
	"github.com/japaniel/kotoba/pkg/conjugate"
	"github.com/japaniel/kotoba/pkg/db"
	"github.com/japaniel/kotoba/pkg/dictionary"
	"github.com/japaniel/kotoba/pkg/kana"
	"github.com/japaniel/kotoba/pkg/quiz"
	"github.com/japaniel/kotoba/pkg/script"
)

// Logger receives ingestion progress. It is silent by default.
var Logger = zerolog.Nop()

// WorkerPoolInterface abstracts the worker pool so tests can inject failing implementations.
type WorkerPoolInterface interface {
	Start(ctx context.Context)
	Submit(Job) error
	// SubmitCtx attempts to enqueue a job but returns promptly if ctx is canceled.
	SubmitCtx(ctx context.Context, job Job) error
	Close()
}

// Ingester turns analyzed sentences into stored flashcards.
type Ingester struct {
	DB           *sql.DB
	DictImporter *dictionary.Importer
	Translit     *kana.Transliterator
	BatchSize    int
	// OnProgress is called periodically with the number of processed sentences and total sentences.
	OnProgress func(current, total int)

	Workers int

	// PoolFactory allows tests to inject custom worker pool implementations.
	PoolFactory func(workers, queue int) WorkerPoolInterface
}

// NewIngester creates a new Ingester. dict may be nil, leaving cards
// without English until the dictionary is imported.
func NewIngester(conn *sql.DB, dict *dictionary.Importer, tr *kana.Transliterator) *Ingester {
	return &Ingester{
		DB:           conn,
		DictImporter: dict,
		Translit:     tr,
		BatchSize:    50,
		Workers:      4,
	}
}

// cardData holds one card prepared from a sentence.
type cardData struct {
	Card         db.Flashcard
	Conjugations conjugate.Table
	Count        int
}

// processedSentence holds the result of processing a sentence before DB ingestion
type processedSentence struct {
	Index    int
	Sentence string
	Cards    []cardData
	Error    error
}

// Ingest builds cards from sentences using concurrent workers and batched
// writes, and returns the number of word occurrences linked. It resumes after
// the last sentence checkpointed for sourceID.
func (ig *Ingester) Ingest(ctx context.Context, sourceID int64, sentences []analyzer.Sentence) (int, error) {
	lastProcessed, err := db.GetSourceProgress(ig.DB, sourceID)
	if err != nil {
		Logger.Warn().Err(err).Int64("source", sourceID).Msg("failed to retrieve progress")
		lastProcessed = -1
	}
	if lastProcessed >= 0 {
		Logger.Info().Int("from", lastProcessed+1).Msg("resuming ingestion")
	}

	totalSentences := len(sentences)
	startIdx := lastProcessed + 1
	if startIdx >= totalSentences {
		return 0, nil
	}

	var wp WorkerPoolInterface
	if ig.PoolFactory != nil {
		wp = ig.PoolFactory(ig.Workers, ig.Workers*2)
	} else {
		wp = NewWorkerPool(ig.Workers, ig.Workers*2)
	}
	resultCh := make(chan processedSentence, ig.Workers*2)
	closedResultCh := false
	doneCh := make(chan error, 1)

	var totalLinks int64

	bw := NewBatchWriter(ig.DB, ig.BatchSize, 100*time.Millisecond)
	var batchErr error
	var batchErrMu sync.Mutex
	bw.OnError = func(e error) {
		batchErrMu.Lock()
		if batchErr == nil {
			batchErr = e
		}
		batchErrMu.Unlock()
	}

	defer func() {
		wp.Close()
		if !closedResultCh {
			close(resultCh)
		}
		_ = bw.Close()
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	wp.Start(ctx)

	persist := func(item processedSentence) WriteFunc {
		return func(ctx context.Context, tx *sql.Tx) error {
			for _, c := range item.Cards {
				id, err := db.CreateOrGetFlashcard(tx, c.Card)
				if err != nil {
					return fmt.Errorf("failed to persist card %s: %w", c.Card.Hiragana, err)
				}
				if c.Conjugations != nil {
					if err := db.ReplaceConjugations(tx, id, c.Conjugations); err != nil {
						return fmt.Errorf("failed to persist conjugations of %d: %w", id, err)
					}
				}
				if err := db.LinkFlashcardToSource(tx, id, sourceID, item.Sentence, c.Count); err != nil {
					return fmt.Errorf("failed to link card %d: %w", id, err)
				}
				atomic.AddInt64(&totalLinks, int64(c.Count))
			}
			if err := db.UpdateSourceProgress(tx, sourceID, item.Index); err != nil {
				return fmt.Errorf("failed to save progress: %w", err)
			}
			return nil
		}
	}

	// consumer: reassemble results in sentence order so checkpoints only
	// ever move past fully written sentences
	go func() {
		defer close(doneCh)
		buffer := make(map[int]processedSentence)
		nextIdx := startIdx

		drain := func() error {
			for {
				item, ok := buffer[nextIdx]
				if !ok {
					return nil
				}
				delete(buffer, nextIdx)
				if err := bw.Submit(persist(item)); err != nil {
					return err
				}
				if ig.OnProgress != nil && (nextIdx+1)%ig.BatchSize == 0 {
					ig.OnProgress(nextIdx+1, totalSentences)
				}
				nextIdx++
			}
		}

		for {
			select {
			case <-ctx.Done():
				doneCh <- ctx.Err()
				return
			default:
			}

			res, ok := <-resultCh
			if !ok {
				if err := drain(); err != nil {
					cancel()
					doneCh <- err
					return
				}
				if err := ctx.Err(); err != nil {
					doneCh <- err
					return
				}
				if ig.OnProgress != nil {
					ig.OnProgress(totalSentences, totalSentences)
				}
				doneCh <- nil
				return
			}

			if res.Error != nil {
				cancel()
				doneCh <- res.Error
				return
			}
			buffer[res.Index] = res
			if err := drain(); err != nil {
				cancel()
				doneCh <- err
				return
			}
		}
	}()

Loop:
	for i := startIdx; i < totalSentences; i++ {
		select {
		case <-ctx.Done():
			break Loop
		default:
		}

		idx := i
		sent := sentences[i]
		job := func(ctx context.Context) error {
			res := ig.processSentence(idx, sent)
			select {
			case resultCh <- res:
			case <-ctx.Done():
			}
			return nil
		}

		if err := wp.SubmitCtx(ctx, job); err != nil {
			if errors.Is(err, ctx.Err()) || err == ErrPoolClosed {
				break Loop
			}
			return 0, err
		}
	}

	// all workers have returned once Close does, so no send can race the close
	wp.Close()
	close(resultCh)
	closedResultCh = true

	consumerErr := <-doneCh
	if p, ok := wp.(*WorkerPool); ok {
		done, failed := p.Processed()
		Logger.Debug().Int64("sentences", done).Int64("failed", failed).Msg("analysis finished")
	}

	if err := bw.Close(); err != nil && consumerErr == nil && err != ErrBatchWriterClosed {
		consumerErr = err
	}

	batchErrMu.Lock()
	if batchErr != nil && consumerErr == nil {
		consumerErr = batchErr
	}
	batchErrMu.Unlock()

	return int(atomic.LoadInt64(&totalLinks)), consumerErr
}

// processSentence picks the study words of a sentence and prepares a card
// for each, counting repeats.
func (ig *Ingester) processSentence(index int, sentence analyzer.Sentence) processedSentence {
	counts := make(map[string]int)
	cards := make(map[string]*cardData)
	var order []string

	for _, t := range sentence.Tokens {
		if !t.IsStudyWord() {
			continue
		}
		key := t.BaseForm
		if _, ok := cards[key]; !ok {
			c, ok := ig.buildCard(t)
			if !ok {
				continue
			}
			cards[key] = &c
			order = append(order, key)
		}
		counts[key]++
	}

	out := make([]cardData, 0, len(order))
	for _, key := range order {
		c := cards[key]
		c.Count = counts[key]
		out = append(out, *c)
	}
	return processedSentence{Index: index, Sentence: sentence.Text, Cards: out}
}

func (ig *Ingester) buildCard(t analyzer.Token) (cardData, bool) {
	base := t.BaseForm
	reading := t.BaseReading()

	card := db.Flashcard{Module: quiz.ModuleVocabulary}
	switch script.Classify(base) {
	case script.Katakana:
		card.Module = quiz.ModuleKatakana
		card.Katakana = base
		reading = script.ToHiragana(base)
	case script.Hiragana:
		card.Hiragana = base
	case script.Kanji:
		card.Kanji = base
		card.Hiragana = reading
	default:
		return cardData{}, false
	}
	if reading == "" {
		return cardData{}, false
	}
	if ig.Translit != nil {
		card.Romaji = ig.Translit.ToRomaji(reading)
	}

	if ig.DictImporter != nil {
		card.English = ig.DictImporter.English(base, base, reading)
		if card.Katakana == "" && card.Kanji == "" {
			card.Katakana = ig.DictImporter.Katakana(base, reading)
		}
	}

	data := cardData{Card: card}
	class, ok := conjugate.ClassFromIPA(t.PrimaryPOS(), t.POSDetail(), t.ConjType)
	if !ok || ig.Translit == nil {
		return data, true
	}
	table, err := conjugate.Conjugate(ig.Translit, card.Kanji, reading, class)
	if err != nil {
		Logger.Debug().Err(err).Str("word", base).Msg("not conjugating")
		return data, true
	}
	data.Card.Class = string(class)
	data.Conjugations = table
	if class == conjugate.IAdjective || class == conjugate.NaAdjective {
		data.Card.Module = quiz.ModuleAdjectives
	} else {
		data.Card.Module = quiz.ModuleVerbs
	}
	return data, true
}
