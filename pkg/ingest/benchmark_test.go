package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/japaniel/kotoba/pkg/analyzer"
	"github.com/japaniel/kotoba/pkg/db"
	"github.com/japaniel/kotoba/pkg/kana"
)

func benchDB(b *testing.B) *sql.DB {
	b.Helper()
	conn, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		b.Fatalf("open: %v", err)
	}
	conn.SetMaxOpenConns(1)
	for _, pragma := range []string{"PRAGMA synchronous = OFF", "PRAGMA journal_mode = MEMORY"} {
		_, _ = conn.Exec(pragma)
	}
	if err := db.InitDB(conn); err != nil {
		b.Fatalf("init: %v", err)
	}
	return conn
}

// benchSentences repeats a three-card sentence n times with a unique number
// token in each.
func benchSentences(n int) []analyzer.Sentence {
	out := make([]analyzer.Sentence, n)
	for i := range out {
		num := strconv.Itoa(i)
		out[i] = analyzer.Sentence{
			Text: "猫はテストを食べる" + num,
			Tokens: []analyzer.Token{
				tokNeko,
				tokWa,
				tokTest,
				{Surface: "を", BaseForm: "を", Reading: "ヲ", POS: []string{"助詞", "格助詞", "一般", "*"}},
				tokTabe,
				{Surface: num, BaseForm: num, Reading: num, POS: []string{"名詞", "数", "*", "*"}},
			},
		}
	}
	return out
}

func benchIngest(b *testing.B, workers int, sentences []analyzer.Sentence) {
	tr := kana.New()
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		conn := benchDB(b)
		src, err := db.CreateOrGetSource(conn, "bench", fmt.Sprintf("run %d", i), "", "", "http://bench", "")
		if err != nil {
			conn.Close()
			b.Fatalf("source: %v", err)
		}
		ig := NewIngester(conn, nil, tr)
		ig.Workers = workers
		ig.BatchSize = 100
		b.StartTimer()

		_, err = ig.Ingest(context.Background(), src, sentences)

		b.StopTimer()
		conn.Close()
		if err != nil {
			b.Fatalf("ingest: %v", err)
		}
	}
}

func BenchmarkIngest(b *testing.B) {
	benchIngest(b, 4, benchSentences(1000))
}

func BenchmarkIngestWorkers(b *testing.B) {
	sentences := benchSentences(1000)
	for _, n := range []int{1, 2, 4, 8} {
		b.Run(fmt.Sprintf("workers=%d", n), func(b *testing.B) {
			benchIngest(b, n, sentences)
		})
	}
}
