package view

import (
	"errors"
	"io"
	"log/slog"
	"sync"

	"bookshelf/internal/bookclient"
	"bookshelf/internal/session"
	"bookshelf/pkg/domain"
)

// DetailState is the book page's lifecycle state.
type DetailState int

const (
	DetailIdle DetailState = iota
	DetailLoading
	DetailLoaded
	DetailNotFound
	DetailFailed
	// DetailGone signals the book was deleted and the caller should
	// navigate away.
	DetailGone
)

// ErrNotLoaded is returned by mutations attempted outside DetailLoaded.
var ErrNotLoaded = errors.New("view: no book loaded")

// BookAPI is the slice of the backend client the detail view needs.
type BookAPI interface {
	GetBookAggregate(id string) (domain.BookAggregate, error)
	UpdateBook(id string, patch bookclient.BookPatch, image io.Reader, imageName, token string) (domain.Book, error)
	DeleteBook(id, token string) error
	CreateReview(bookID, comment string, rating int, token string) (domain.Review, error)
	UpdateReview(id, comment string, rating int, token string) (domain.Review, error)
	DeleteReview(id, token string) error
}

// DetailController drives a single book's page. Successful writes patch
// the loaded aggregate in place instead of refetching it; the average
// rating is recomputed locally from the patched review list. The book
// edit form and a review edit form are independent and may be open at
// the same time.
type DetailController struct {
	api      BookAPI
	sessions *session.Manager

	mu              sync.Mutex
	gen             uint64
	state           DetailState
	bookID          string
	agg             domain.BookAggregate
	err             error
	editingBook     bool
	editingReviewID string
}

// NewDetailController starts in DetailIdle.
func NewDetailController(api BookAPI, sessions *session.Manager) *DetailController {
	return &DetailController{api: api, sessions: sessions}
}

// Load fetches the aggregate for id. A result is dropped when a newer
// Load has been issued since, same latest-wins policy as the list view.
func (c *DetailController) Load(id string) {
	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.bookID = id
	c.state = DetailLoading
	c.editingBook = false
	c.editingReviewID = ""
	c.mu.Unlock()

	agg, err := c.api.GetBookAggregate(id)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}
	if err != nil {
		var apiErr *bookclient.APIError
		if errors.As(err, &apiErr) && apiErr.NotFound() {
			c.state = DetailNotFound
			c.err = nil
			return
		}
		c.state = DetailFailed
		c.err = err
		return
	}
	c.agg = agg
	c.err = nil
	c.state = DetailLoaded
}

// CanEditBook reports whether the viewer owns the loaded book. Advisory
// only: the backend still decides whether a mutation goes through.
func (c *DetailController) CanEditBook() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != DetailLoaded {
		return false
	}
	return domain.IsOwner(c.agg.Book.CreatedBy, c.sessions.UserID())
}

// CanEditReview reports whether the viewer owns the given review.
func (c *DetailController) CanEditReview(reviewID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != DetailLoaded {
		return false
	}
	for _, r := range c.agg.Reviews {
		if r.ID == reviewID {
			return domain.IsOwner(r.UserID, c.sessions.UserID())
		}
	}
	return false
}

// OpenBookEdit marks the book form open.
func (c *DetailController) OpenBookEdit() {
	c.mu.Lock()
	c.editingBook = true
	c.mu.Unlock()
}

// CloseBookEdit marks the book form closed.
func (c *DetailController) CloseBookEdit() {
	c.mu.Lock()
	c.editingBook = false
	c.mu.Unlock()
}

// OpenReviewEdit marks one review form open, replacing any other open
// review form. Independent of the book form.
func (c *DetailController) OpenReviewEdit(reviewID string) {
	c.mu.Lock()
	c.editingReviewID = reviewID
	c.mu.Unlock()
}

// CloseReviewEdit marks the review form closed.
func (c *DetailController) CloseReviewEdit() {
	c.mu.Lock()
	c.editingReviewID = ""
	c.mu.Unlock()
}

// SubmitReview posts a new review and appends the server's response to
// the local list.
func (c *DetailController) SubmitReview(comment string, rating int) error {
	c.mu.Lock()
	if c.state != DetailLoaded {
		c.mu.Unlock()
		return ErrNotLoaded
	}
	bookID := c.bookID
	c.mu.Unlock()

	review, err := c.api.CreateReview(bookID, comment, rating, c.sessions.Token())
	if err != nil {
		return c.mutationFailed(err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if review.UserID == "" {
		// Some backends omit the owner on the create response; fill it
		// in so ownership gating works without a refetch.
		review.UserID = c.sessions.UserID().String()
	}
	c.agg.Reviews = append(c.agg.Reviews, review)
	c.agg.AverageRating = domain.AverageRating(c.agg.Reviews)
	c.err = nil
	return nil
}

// SaveReview updates a review and replaces the matching entry in place,
// leaving sibling order untouched.
func (c *DetailController) SaveReview(reviewID, comment string, rating int) error {
	c.mu.Lock()
	if c.state != DetailLoaded {
		c.mu.Unlock()
		return ErrNotLoaded
	}
	c.mu.Unlock()

	review, err := c.api.UpdateReview(reviewID, comment, rating, c.sessions.Token())
	if err != nil {
		return c.mutationFailed(err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for i, r := range c.agg.Reviews {
		if r.ID == reviewID {
			if review.UserID == "" {
				review.UserID = r.UserID
			}
			if review.CreatedBy == "" {
				review.CreatedBy = r.CreatedBy
			}
			c.agg.Reviews[i] = review
			break
		}
	}
	c.agg.AverageRating = domain.AverageRating(c.agg.Reviews)
	if c.editingReviewID == reviewID {
		c.editingReviewID = ""
	}
	c.err = nil
	return nil
}

// RemoveReview deletes a review and filters it out of the local list.
// There is no dedicated UI slot for a delete failure, so it is logged
// as well as returned.
func (c *DetailController) RemoveReview(reviewID string) error {
	c.mu.Lock()
	if c.state != DetailLoaded {
		c.mu.Unlock()
		return ErrNotLoaded
	}
	c.mu.Unlock()

	if err := c.api.DeleteReview(reviewID, c.sessions.Token()); err != nil {
		slog.Error("delete review failed", "review_id", reviewID, "err", err)
		return c.mutationFailed(err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.agg.Reviews[:0]
	for _, r := range c.agg.Reviews {
		if r.ID != reviewID {
			kept = append(kept, r)
		}
	}
	c.agg.Reviews = kept
	c.agg.AverageRating = domain.AverageRating(c.agg.Reviews)
	if c.editingReviewID == reviewID {
		c.editingReviewID = ""
	}
	c.err = nil
	return nil
}

// SaveBook sends a partial book update and replaces the whole local book
// with the server's response.
func (c *DetailController) SaveBook(patch bookclient.BookPatch, image io.Reader, imageName string) error {
	c.mu.Lock()
	if c.state != DetailLoaded {
		c.mu.Unlock()
		return ErrNotLoaded
	}
	bookID := c.bookID
	c.mu.Unlock()

	book, err := c.api.UpdateBook(bookID, patch, image, imageName, c.sessions.Token())
	if err != nil {
		return c.mutationFailed(err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.agg.Book = book
	c.editingBook = false
	c.err = nil
	return nil
}

// RemoveBook deletes the loaded book. On success the controller enters
// DetailGone, the signal to navigate away.
func (c *DetailController) RemoveBook() error {
	c.mu.Lock()
	if c.state != DetailLoaded {
		c.mu.Unlock()
		return ErrNotLoaded
	}
	bookID := c.bookID
	c.mu.Unlock()

	if err := c.api.DeleteBook(bookID, c.sessions.Token()); err != nil {
		slog.Error("delete book failed", "book_id", bookID, "err", err)
		return c.mutationFailed(err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = DetailGone
	c.err = nil
	return nil
}

// mutationFailed records the error, clears the session on an
// authorization rejection, and hands the error back for inline display.
// A Forbidden response is a normal failure here, never a logic error.
func (c *DetailController) mutationFailed(err error) error {
	c.sessions.InvalidateOn(err)
	c.mu.Lock()
	c.err = err
	c.mu.Unlock()
	return err
}

// State returns the current lifecycle state.
func (c *DetailController) State() DetailState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Aggregate returns a copy of the loaded projection.
func (c *DetailController) Aggregate() domain.BookAggregate {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.agg
	out.Reviews = make([]domain.Review, len(c.agg.Reviews))
	copy(out.Reviews, c.agg.Reviews)
	return out
}

// EditingBook reports whether the book form is open.
func (c *DetailController) EditingBook() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.editingBook
}

// EditingReviewID returns the open review form's target, empty when none.
func (c *DetailController) EditingReviewID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.editingReviewID
}

// Err returns the last fetch or mutation failure.
func (c *DetailController) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}
