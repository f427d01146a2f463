package view

import (
	"errors"
	"sync"
	"testing"

	"bookshelf/internal/bookclient"
	"bookshelf/pkg/domain"
)

type catalogFunc func(bookclient.Filter) ([]domain.Book, error)

func (f catalogFunc) ListBooks(filter bookclient.Filter) ([]domain.Book, error) {
	return f(filter)
}

func TestRefreshStates(t *testing.T) {
	books := []domain.Book{{ID: "b1", Title: "The Hobbit"}}
	lc := NewListController(catalogFunc(func(bookclient.Filter) ([]domain.Book, error) {
		return books, nil
	}))
	if lc.State() != ListIdle {
		t.Fatalf("initial state = %v, want ListIdle", lc.State())
	}
	lc.Refresh()
	if lc.State() != ListPopulated {
		t.Fatalf("state = %v, want ListPopulated", lc.State())
	}
	if got := lc.Books(); len(got) != 1 || got[0].ID != "b1" {
		t.Fatalf("books = %+v", got)
	}

	lc = NewListController(catalogFunc(func(bookclient.Filter) ([]domain.Book, error) {
		return nil, nil
	}))
	lc.Refresh()
	if lc.State() != ListEmpty {
		t.Fatalf("state = %v, want ListEmpty", lc.State())
	}

	fetchErr := errors.New("connection refused")
	lc = NewListController(catalogFunc(func(bookclient.Filter) ([]domain.Book, error) {
		return nil, fetchErr
	}))
	lc.Refresh()
	if lc.State() != ListFailed {
		t.Fatalf("state = %v, want ListFailed", lc.State())
	}
	if !errors.Is(lc.Err(), fetchErr) {
		t.Fatalf("err = %v, want %v", lc.Err(), fetchErr)
	}
}

func TestSetFilterPassesCriteriaThrough(t *testing.T) {
	var got bookclient.Filter
	lc := NewListController(catalogFunc(func(f bookclient.Filter) ([]domain.Book, error) {
		got = f
		return nil, nil
	}))
	lc.SetFilter(bookclient.Filter{Author: "Tolkien", Genre: "Fantasy"})
	if got.Author != "Tolkien" || got.Genre != "Fantasy" {
		t.Fatalf("filter passed = %+v", got)
	}
}

// gatedCatalog lets a test control exactly when each request resolves.
type gatedCatalog struct {
	mu      sync.Mutex
	started chan string
	gates   map[string]chan struct{}
	results map[string][]domain.Book
}

func filterKey(f bookclient.Filter) string {
	return f.Author + "|" + f.Genre
}

func (g *gatedCatalog) ListBooks(f bookclient.Filter) ([]domain.Book, error) {
	key := filterKey(f)
	g.started <- key
	g.mu.Lock()
	gate := g.gates[key]
	g.mu.Unlock()
	<-gate
	return g.results[key], nil
}

// A filter change to {author} immediately followed by {author, genre}
// before the first request resolves: the displayed list must reflect the
// genre-filtered request even when the author-only response arrives last.
func TestOverlappingFetchesLatestWins(t *testing.T) {
	authorOnly := bookclient.Filter{Author: "Tolkien"}
	authorGenre := bookclient.Filter{Author: "Tolkien", Genre: "Fantasy"}
	catalog := &gatedCatalog{
		started: make(chan string, 2),
		gates: map[string]chan struct{}{
			filterKey(authorOnly):  make(chan struct{}),
			filterKey(authorGenre): make(chan struct{}),
		},
		results: map[string][]domain.Book{
			filterKey(authorOnly):  {{ID: "b1"}, {ID: "b2"}},
			filterKey(authorGenre): {{ID: "b2"}},
		},
	}
	lc := NewListController(catalog)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		lc.SetFilter(authorOnly)
	}()
	if got := <-catalog.started; got != filterKey(authorOnly) {
		t.Fatalf("first request = %q", got)
	}
	go func() {
		defer wg.Done()
		lc.SetFilter(authorGenre)
	}()
	if got := <-catalog.started; got != filterKey(authorGenre) {
		t.Fatalf("second request = %q", got)
	}

	// Resolve out of order: newest first, stale one afterwards.
	close(catalog.gates[filterKey(authorGenre)])
	close(catalog.gates[filterKey(authorOnly)])
	wg.Wait()

	if lc.State() != ListPopulated {
		t.Fatalf("state = %v, want ListPopulated", lc.State())
	}
	got := lc.Books()
	if len(got) != 1 || got[0].ID != "b2" {
		t.Fatalf("books = %+v, want the genre-filtered result only", got)
	}
}
