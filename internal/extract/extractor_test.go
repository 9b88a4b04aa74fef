package extract

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/repocrawl/internal/crawler"
	"github.com/nao1215/repocrawl/internal/model"
)

type fetcherFunc func(ctx context.Context, address string) ([]byte, error)

func (f fetcherFunc) FetchPage(ctx context.Context, address string) ([]byte, error) {
	return f(ctx, address)
}

type failingStore struct{}

func (failingStore) SaveFileStats(context.Context, *model.FileStats) error {
	return errors.New("database is locked")
}

type freshness struct {
	recent bool
	err    error
}

func (f freshness) HasRecentStats(context.Context, string, time.Duration) (bool, error) {
	return f.recent, f.err
}

// TestRawAddress tests blob to raw address mapping.
func TestRawAddress(t *testing.T) {
	t.Parallel()

	t.Run("replaces the blob segment", func(t *testing.T) {
		t.Parallel()

		got, err := RawAddress("https://github.com/o/r/blob/main/cmd/main.go")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "https://github.com/o/r/raw/main/cmd/main.go" {
			t.Errorf("unexpected address %q", got)
		}
	})

	t.Run("only the first blob segment changes", func(t *testing.T) {
		t.Parallel()

		got, err := RawAddress("https://github.com/o/r/blob/main/blob/x.go?plain=1#L3")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "https://github.com/o/r/raw/main/blob/x.go" {
			t.Errorf("unexpected address %q", got)
		}
	})

	t.Run("rejects non-blob addresses", func(t *testing.T) {
		t.Parallel()

		if _, err := RawAddress("https://github.com/o/r/tree/main/cmd"); !errors.Is(err, ErrNotBlob) {
			t.Errorf("expected ErrNotBlob, got %v", err)
		}
	})

	t.Run("rejects malformed addresses", func(t *testing.T) {
		t.Parallel()

		if _, err := RawAddress("o/r/blob/main/x.go"); !errors.Is(err, model.ErrMalformedAddress) {
			t.Errorf("expected ErrMalformedAddress, got %v", err)
		}
	})
}

// TestExtractor tests the extraction job.
func TestExtractor(t *testing.T) {
	t.Parallel()

	t.Run("fetches raw content and stores stats", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/o/r/raw/main/main.go" {
				http.NotFound(w, r)
				return
			}
			_, _ = w.Write([]byte("package main\n\nfunc main() {}\n")) //nolint:errcheck
		}))
		defer server.Close()

		fetch := fetcherFunc(func(ctx context.Context, address string) ([]byte, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, address, nil)
			if err != nil {
				return nil, err
			}
			resp, err := server.Client().Do(req)
			if err != nil {
				return nil, err
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return nil, errors.New(resp.Status)
			}
			return io.ReadAll(resp.Body)
		})

		store := NewMemoryStore()
		address := server.URL + "/o/r/blob/main/main.go"

		if err := New(fetch, store).Extract(context.Background(), address); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		all, _ := store.ListFileStats(context.Background(), "") //nolint:errcheck
		if len(all) != 1 {
			t.Fatalf("expected 1 entry, got %d", len(all))
		}
		stats := all[0]
		if stats.Address != address {
			t.Errorf("expected stats keyed by blob address, got %q", stats.Address)
		}
		if stats.Language != "Go" || stats.Lines != 3 {
			t.Errorf("unexpected stats %+v", stats)
		}
	})

	t.Run("oversized file fails instead of storing truncated stats", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(strings.Repeat("line\n", 100))) //nolint:errcheck
		}))
		defer server.Close()

		fetcher := crawler.NewHTTPFetcher(server.Client(), crawler.WithMaxBodySize(64))
		store := NewMemoryStore()

		err := New(fetcher, store).Extract(context.Background(), server.URL+"/o/r/blob/main/big.txt")
		if !errors.Is(err, crawler.ErrBodyTooLarge) {
			t.Fatalf("expected ErrBodyTooLarge, got %v", err)
		}
		if store.Len() != 0 {
			t.Errorf("expected nothing stored, got %d entries", store.Len())
		}
	})

	t.Run("extraction is idempotent", func(t *testing.T) {
		t.Parallel()

		fetch := fetcherFunc(func(context.Context, string) ([]byte, error) {
			return []byte("x\n"), nil
		})
		store := NewMemoryStore()
		e := New(fetch, store)

		for i := 0; i < 3; i++ {
			if err := e.Extract(context.Background(), "https://github.com/o/r/blob/main/x.txt"); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if store.Len() != 1 {
			t.Errorf("expected 1 entry, got %d", store.Len())
		}
	})

	t.Run("fetch failure is returned", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("remote unavailable")
		fetch := fetcherFunc(func(context.Context, string) ([]byte, error) {
			return nil, boom
		})
		store := NewMemoryStore()

		err := New(fetch, store).Extract(context.Background(), "https://github.com/o/r/blob/main/x.go")
		if !errors.Is(err, boom) {
			t.Errorf("expected fetch error, got %v", err)
		}
		if store.Len() != 0 {
			t.Error("expected nothing stored")
		}
	})

	t.Run("store failure is returned", func(t *testing.T) {
		t.Parallel()

		fetch := fetcherFunc(func(context.Context, string) ([]byte, error) {
			return []byte("x"), nil
		})

		if err := New(fetch, failingStore{}).Extract(context.Background(), "https://github.com/o/r/blob/main/x.go"); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("non-blob address fails without fetching", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		fetch := fetcherFunc(func(context.Context, string) ([]byte, error) {
			calls.Add(1)
			return nil, nil
		})

		err := New(fetch, NewMemoryStore()).Extract(context.Background(), "https://github.com/o/r/tree/main/x")
		if !errors.Is(err, ErrNotBlob) {
			t.Errorf("expected ErrNotBlob, got %v", err)
		}
		if calls.Load() != 0 {
			t.Error("expected no fetch")
		}
	})

	t.Run("custom content mapping", func(t *testing.T) {
		t.Parallel()

		var fetched string
		fetch := fetcherFunc(func(_ context.Context, address string) ([]byte, error) {
			fetched = address
			return []byte("x"), nil
		})
		mapping := func(string) (string, error) { return "https://raw.example.com/x", nil }

		if err := New(fetch, NewMemoryStore(), WithContentURL(mapping)).Extract(context.Background(), "https://github.com/o/r/blob/main/x"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if fetched != "https://raw.example.com/x" {
			t.Errorf("expected custom mapping to be used, fetched %q", fetched)
		}
	})

	t.Run("recently extracted files are skipped", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		fetch := fetcherFunc(func(context.Context, string) ([]byte, error) {
			calls.Add(1)
			return []byte("x"), nil
		})

		e := New(fetch, NewMemoryStore(), WithSkipRecent(freshness{recent: true}, time.Hour))
		if err := e.Extract(context.Background(), "https://github.com/o/r/blob/main/x"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if calls.Load() != 0 {
			t.Error("expected fresh file to be skipped")
		}

		e = New(fetch, NewMemoryStore(), WithSkipRecent(freshness{err: errors.New("locked")}, time.Hour))
		if err := e.Extract(context.Background(), "https://github.com/o/r/blob/main/x"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if calls.Load() != 1 {
			t.Error("expected extraction when freshness is unknown")
		}
	})
}

// TestMemoryStore tests prefix listing.
func TestMemoryStore(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()
	for _, addr := range []string{
		"https://github.com/o/r/blob/main/b",
		"https://github.com/o/r/blob/main/a",
		"https://github.com/x/y/blob/main/c",
	} {
		if err := store.SaveFileStats(ctx, model.NewFileStats(addr, nil)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	got, err := store.ListFileStats(ctx, "https://github.com/o/r/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].Name != "a" || got[1].Name != "b" {
		t.Errorf("unexpected listing %v", got)
	}
}
