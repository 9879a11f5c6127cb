package dictionary

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestEnsureDictionary_LocalCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jmdict-test.json")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	// An existing file must be accepted without touching the network.
	saved := ReleaseAPI
	ReleaseAPI = "http://127.0.0.1:0/unreachable"
	defer func() { ReleaseAPI = saved }()

	if err := EnsureDictionary(context.Background(), path); err != nil {
		t.Fatalf("EnsureDictionary failed with local file: %v", err)
	}
}

func tgz(t *testing.T, name, content string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	if err := tw.WriteHeader(&tar.Header{Name: name, Mode: 0o644, Size: int64(len(content)), Typeflag: tar.TypeReg}); err != nil {
		t.Fatalf("tar header: %v", err)
	}
	if _, err := tw.Write([]byte(content)); err != nil {
		t.Fatalf("tar write: %v", err)
	}
	tw.Close()
	gz.Close()
	return buf.Bytes()
}

func TestEnsureDictionary_Download(t *testing.T) {
	archive := tgz(t, "jmdict-eng-common-3.6.1.json", dictContent)

	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/release", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			http.Error(w, "no user agent", http.StatusForbidden)
			return
		}
		fmt.Fprintf(w, `{"assets":[{"name":"jmdict-eng-3.6.1.json.tgz","browser_download_url":"%s/wrong"},{"name":"jmdict-eng-common-3.6.1.json.tgz","browser_download_url":"%s/asset"}]}`, srv.URL, srv.URL)
	})
	mux.HandleFunc("/asset", func(w http.ResponseWriter, r *http.Request) {
		w.Write(archive)
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	saved := ReleaseAPI
	ReleaseAPI = srv.URL + "/release"
	defer func() { ReleaseAPI = saved }()

	path := filepath.Join(t.TempDir(), "data", "jmdict-eng-common.json")
	if err := EnsureDictionary(context.Background(), path); err != nil {
		t.Fatalf("EnsureDictionary: %v", err)
	}
	entries, err := LoadJMdictSimplified(path)
	if err != nil {
		t.Fatalf("load downloaded dictionary: %v", err)
	}
	if len(entries) != 5 {
		t.Fatalf("expected 5 entries, got %d", len(entries))
	}
}

func TestEnsureDictionary_NoAsset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"assets":[]}`))
	}))
	defer srv.Close()

	saved := ReleaseAPI
	ReleaseAPI = srv.URL
	defer func() { ReleaseAPI = saved }()

	path := filepath.Join(t.TempDir(), "jmdict.json")
	if err := EnsureDictionary(context.Background(), path); err == nil {
		t.Fatal("expected error when release has no dictionary asset")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected no file after failed download, stat err=%v", err)
	}
}
