package view

import (
	"sync"

	"bookshelf/internal/bookclient"
	"bookshelf/pkg/domain"
)

// ListState is the browsing screen's lifecycle state.
type ListState int

const (
	ListIdle ListState = iota
	ListLoading
	ListPopulated
	ListEmpty
	ListFailed
)

// Catalog is the slice of the backend client the list view needs.
type Catalog interface {
	ListBooks(bookclient.Filter) ([]domain.Book, error)
}

// ListController drives the book browsing screen. Every filter change
// issues a fresh fetch; in-flight requests are not cancelled, but only
// the response matching the latest issued request is applied, so an
// out-of-order stale response can never overwrite a newer one.
type ListController struct {
	catalog Catalog

	mu     sync.Mutex
	gen    uint64
	state  ListState
	filter bookclient.Filter
	books  []domain.Book
	err    error
}

// NewListController starts in ListIdle with an unfiltered view.
func NewListController(catalog Catalog) *ListController {
	return &ListController{catalog: catalog}
}

// SetFilter stores the criteria and refreshes. Not debounced: callers
// that refilter per keystroke issue one request per keystroke.
func (c *ListController) SetFilter(filter bookclient.Filter) {
	c.mu.Lock()
	c.filter = filter
	c.mu.Unlock()
	c.Refresh()
}

// Refresh fetches the list for the current filter and applies the result
// unless a newer refresh has been issued meanwhile.
func (c *ListController) Refresh() {
	c.mu.Lock()
	c.gen++
	gen := c.gen
	filter := c.filter
	c.state = ListLoading
	c.mu.Unlock()

	books, err := c.catalog.ListBooks(filter)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		// Superseded by a later refresh; drop the stale result.
		return
	}
	if err != nil {
		c.state = ListFailed
		c.err = err
		return
	}
	c.err = nil
	c.books = books
	if len(books) == 0 {
		c.state = ListEmpty
	} else {
		c.state = ListPopulated
	}
}

// State returns the current lifecycle state.
func (c *ListController) State() ListState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Books returns a copy of the displayed list.
func (c *ListController) Books() []domain.Book {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.Book, len(c.books))
	copy(out, c.books)
	return out
}

// Filter returns the active criteria.
func (c *ListController) Filter() bookclient.Filter {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filter
}

// Err returns the last fetch failure, nil outside ListFailed.
func (c *ListController) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}
