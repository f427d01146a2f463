package bookclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"bookshelf/pkg/domain"
)

// Client calls the catalog backend over HTTP for books and reviews.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// APIError represents a backend error response. A 4xx carries the
// server's message field; a 5xx carries the status text.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// ClientError reports whether the backend rejected the request (4xx).
func (e *APIError) ClientError() bool {
	return e.Status >= 400 && e.Status < 500
}

// ServerError reports whether the backend itself failed (5xx).
func (e *APIError) ServerError() bool {
	return e.Status >= 500
}

// NotFound reports a missing resource.
func (e *APIError) NotFound() bool {
	return e.Status == http.StatusNotFound
}

// Unauthorized reports an authorization rejection, the signal that a
// persisted token is dead.
func (e *APIError) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

// Filter narrows ListBooks. Empty fields are omitted from the query
// entirely rather than sent as empty strings that would over-filter.
type Filter struct {
	Author string
	Genre  string
}

// BookFields are the writable book attributes for create.
type BookFields struct {
	Title  string
	Author string
	Genre  string
}

// BookPatch updates a subset of book attributes. Nil fields are not sent,
// so the backend treats their absence as "no change".
type BookPatch struct {
	Title  *string
	Author *string
	Genre  *string
}

// NewClient constructs a catalog client. A zero timeout selects the
// default of 10 seconds.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// ListBooks fetches the catalog, optionally narrowed by author and genre.
func (c *Client) ListBooks(filter Filter) ([]domain.Book, error) {
	query := url.Values{}
	if strings.TrimSpace(filter.Author) != "" {
		query.Set("author", filter.Author)
	}
	if strings.TrimSpace(filter.Genre) != "" {
		query.Set("genre", filter.Genre)
	}
	path := c.baseURL + "/books"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	req, err := http.NewRequest(http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var books []domain.Book
	if err := c.do(req, &books); err != nil {
		return nil, err
	}
	return books, nil
}

// GetBookAggregate fetches a book with its reviews and average rating.
func (c *Client) GetBookAggregate(id string) (domain.BookAggregate, error) {
	req, err := http.NewRequest(http.MethodGet, fmt.Sprintf("%s/books/%s", c.baseURL, id), nil)
	if err != nil {
		return domain.BookAggregate{}, err
	}
	var agg domain.BookAggregate
	if err := c.do(req, &agg); err != nil {
		return domain.BookAggregate{}, err
	}
	return agg, nil
}

// CreateBook uploads a new book with its cover image as multipart form
// data. All fields and the image are required by the backend.
func (c *Client) CreateBook(fields BookFields, image io.Reader, imageName, token string) (domain.Book, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for name, value := range map[string]string{
		"title":  fields.Title,
		"author": fields.Author,
		"genre":  fields.Genre,
	} {
		if err := writer.WriteField(name, value); err != nil {
			return domain.Book{}, err
		}
	}
	part, err := writer.CreateFormFile("image", imageName)
	if err != nil {
		return domain.Book{}, err
	}
	if _, err := io.Copy(part, image); err != nil {
		return domain.Book{}, err
	}
	if err := writer.Close(); err != nil {
		return domain.Book{}, err
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/books", body)
	if err != nil {
		return domain.Book{}, err
	}
	addAuthHeader(req, token)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var book domain.Book
	if err := c.do(req, &book); err != nil {
		return domain.Book{}, err
	}
	return book, nil
}

// UpdateBook sends a partial replace. Nil patch fields and a nil image
// are omitted from the payload; the backend leaves them unchanged.
func (c *Client) UpdateBook(id string, patch BookPatch, image io.Reader, imageName, token string) (domain.Book, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for name, value := range map[string]*string{
		"title":  patch.Title,
		"author": patch.Author,
		"genre":  patch.Genre,
	} {
		if value == nil {
			continue
		}
		if err := writer.WriteField(name, *value); err != nil {
			return domain.Book{}, err
		}
	}
	if image != nil {
		part, err := writer.CreateFormFile("image", imageName)
		if err != nil {
			return domain.Book{}, err
		}
		if _, err := io.Copy(part, image); err != nil {
			return domain.Book{}, err
		}
	}
	if err := writer.Close(); err != nil {
		return domain.Book{}, err
	}

	req, err := http.NewRequest(http.MethodPut, fmt.Sprintf("%s/books/%s", c.baseURL, id), body)
	if err != nil {
		return domain.Book{}, err
	}
	addAuthHeader(req, token)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var book domain.Book
	if err := c.do(req, &book); err != nil {
		return domain.Book{}, err
	}
	return book, nil
}

// DeleteBook removes a book.
func (c *Client) DeleteBook(id, token string) error {
	req, err := http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/books/%s", c.baseURL, id), nil)
	if err != nil {
		return err
	}
	addAuthHeader(req, token)
	return c.do(req, nil)
}

// CreateReview posts a review under a book.
func (c *Client) CreateReview(bookID, comment string, rating int, token string) (domain.Review, error) {
	path := fmt.Sprintf("/books/%s/reviews", bookID)
	var review domain.Review
	if err := c.doJSON(http.MethodPost, path, token, reviewPayload{Comment: comment, Rating: rating}, &review); err != nil {
		return domain.Review{}, err
	}
	return review, nil
}

// UpdateReview replaces a review's comment and rating.
func (c *Client) UpdateReview(id, comment string, rating int, token string) (domain.Review, error) {
	path := fmt.Sprintf("/reviews/%s", id)
	var review domain.Review
	if err := c.doJSON(http.MethodPut, path, token, reviewPayload{Comment: comment, Rating: rating}, &review); err != nil {
		return domain.Review{}, err
	}
	return review, nil
}

// DeleteReview removes a review.
func (c *Client) DeleteReview(id, token string) error {
	path := fmt.Sprintf("/reviews/%s", id)
	return c.doJSON(http.MethodDelete, path, token, nil, nil)
}

func (c *Client) doJSON(method, path, token string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	addAuthHeader(req, token)
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	requestID := uuid.NewString()
	req.Header.Set("X-Request-Id", requestID)
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Debug("backend_request",
			"method", req.Method,
			"path", req.URL.Path,
			"err", err,
			"request_id", requestID,
		)
		return err
	}
	defer resp.Body.Close()
	slog.Debug("backend_request",
		"method", req.Method,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
		"request_id", requestID,
	)
	if resp.StatusCode >= 400 {
		var errResp struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		msg := errResp.Message
		if msg == "" {
			msg = resp.Status
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func addAuthHeader(req *http.Request, token string) {
	if strings.TrimSpace(token) == "" {
		return
	}
	req.Header.Set("Authorization", "Bearer "+token)
}

type reviewPayload struct {
	Comment string `json:"comment"`
	Rating  int    `json:"rating"`
}
