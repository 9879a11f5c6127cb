package main_test

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

func TestCLI_OfflineServer(t *testing.T) {
	tmp := t.TempDir()

	body, err := os.ReadFile(filepath.Join("..", "..", "pkg", "analyzer", "testdata", "sample_article.html"))
	if err != nil {
		t.Fatalf("failed to read fixture: %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(body)
	}))
	defer srv.Close()

	// a dictionary already on disk keeps the CLI from downloading one
	dictFile := filepath.Join(tmp, "jmdict-eng-common.json")
	if err := os.WriteFile(dictFile, []byte("[]"), 0644); err != nil {
		t.Fatalf("failed to write dict placeholder: %v", err)
	}

	dbPath := filepath.Join(tmp, "kotoba.db")
	bin := filepath.Join(tmp, "kotoba.bin")

	build := exec.Command("go", "build", "-o", bin, "github.com/japaniel/kotoba/cmd/kotoba")
	build.Stdout = os.Stdout
	build.Stderr = os.Stderr
	if err := build.Run(); err != nil {
		t.Fatalf("failed to build CLI: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	cmd := exec.CommandContext(ctx, bin, "build", "-url", srv.URL,
		"-db", dbPath, "-dict", dictFile, "-config", filepath.Join(tmp, "settings.yaml"))
	cmd.Dir = tmp
	cmd.Env = append(os.Environ(), "XDG_CONFIG_HOME="+tmp, "XDG_DATA_HOME="+tmp)
	out, err := cmd.CombinedOutput()
	if ctx.Err() == context.DeadlineExceeded {
		t.Fatalf("cli timed out, output:\n%s", out)
	}
	if err != nil {
		t.Fatalf("cli failed: %v\noutput:\n%s", err, out)
	}

	outStr := string(out)
	if !strings.Contains(outStr, "Processing complete") {
		t.Fatalf("unexpected CLI output; expected success message, got:\n%s", outStr)
	}
	if !strings.Contains(outStr, "Title: 緑色の想い出") {
		t.Errorf("expected the article title in output, got:\n%s", outStr)
	}

	dbConn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	defer dbConn.Close()

	var sources, cards, verbs int
	if err := dbConn.QueryRow("SELECT COUNT(*) FROM sources").Scan(&sources); err != nil {
		t.Fatalf("db query failed: %v", err)
	}
	if sources != 1 {
		t.Fatalf("expected one source in DB, found %d", sources)
	}
	if err := dbConn.QueryRow("SELECT COUNT(*) FROM flashcards").Scan(&cards); err != nil {
		t.Fatalf("db query failed: %v", err)
	}
	if cards == 0 {
		t.Fatalf("expected cards in DB, found 0")
	}
	if err := dbConn.QueryRow("SELECT COUNT(DISTINCT flashcard_id) FROM conjugations").Scan(&verbs); err != nil {
		t.Fatalf("db query failed: %v", err)
	}
	if verbs == 0 {
		t.Errorf("expected conjugation tables for the article's verbs")
	}
}
