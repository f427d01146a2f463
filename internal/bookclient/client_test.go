package bookclient

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"bookshelf/pkg/domain"
)

func TestListBooksOmitsAbsentFilterFields(t *testing.T) {
	var gotQuery map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		_ = json.NewEncoder(w).Encode([]domain.Book{{ID: "b1", Title: "The Hobbit"}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 0)
	books, err := c.ListBooks(Filter{Author: "Tolkien"})
	if err != nil {
		t.Fatalf("list books: %v", err)
	}
	if len(books) != 1 || books[0].ID != "b1" {
		t.Fatalf("books = %+v, want one entry b1", books)
	}
	if got := gotQuery["author"]; len(got) != 1 || got[0] != "Tolkien" {
		t.Fatalf("author query = %v, want [Tolkien]", got)
	}
	if _, present := gotQuery["genre"]; present {
		t.Fatalf("empty genre must be omitted from the query, got %v", gotQuery)
	}

	// No filter at all: no query string either.
	if _, err := c.ListBooks(Filter{}); err != nil {
		t.Fatalf("unfiltered list: %v", err)
	}
	if len(gotQuery) != 0 {
		t.Fatalf("unfiltered list sent query %v, want none", gotQuery)
	}
}

func TestGetBookAggregate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/books/b1" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{
			"book": {"_id":"b1","title":"The Hobbit","author":"Tolkien","genre":"Fantasy","imageUrl":"/img/b1.jpg","createdBy":"u1"},
			"reviews": [{"_id":"r1","comment":"Great","rating":5,"createdBy":"frodo","userId":"u2"}],
			"averageRating": 5.0
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 0)
	agg, err := c.GetBookAggregate("b1")
	if err != nil {
		t.Fatalf("get aggregate: %v", err)
	}
	if agg.Book.Title != "The Hobbit" || agg.Book.CreatedBy != "u1" {
		t.Fatalf("book = %+v", agg.Book)
	}
	if len(agg.Reviews) != 1 || agg.Reviews[0].UserID != "u2" {
		t.Fatalf("reviews = %+v", agg.Reviews)
	}
	if agg.AverageRating == nil || *agg.AverageRating != 5.0 {
		t.Fatalf("averageRating = %v, want 5.0", agg.AverageRating)
	}
}

func TestGetBookAggregateNullAverage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"book":{"_id":"b1"},"reviews":[],"averageRating":null}`))
	}))
	defer srv.Close()

	agg, err := NewClient(srv.URL, 0).GetBookAggregate("b1")
	if err != nil {
		t.Fatalf("get aggregate: %v", err)
	}
	if agg.AverageRating != nil {
		t.Fatalf("averageRating = %v, want nil for unrated book", *agg.AverageRating)
	}
}

func TestCreateBookMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/books" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("authorization = %q, want Bearer tok", got)
		}
		if got := r.Header.Get("X-Request-Id"); got == "" {
			t.Errorf("missing X-Request-Id header")
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if got := r.FormValue("title"); got != "The Hobbit" {
			t.Errorf("title = %q", got)
		}
		file, header, err := r.FormFile("image")
		if err != nil {
			t.Errorf("image part: %v", err)
		} else {
			file.Close()
			if header.Filename != "cover.jpg" {
				t.Errorf("image filename = %q", header.Filename)
			}
		}
		_ = json.NewEncoder(w).Encode(domain.Book{ID: "b1", Title: "The Hobbit", CreatedBy: "u1"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 0)
	book, err := c.CreateBook(
		BookFields{Title: "The Hobbit", Author: "Tolkien", Genre: "Fantasy"},
		strings.NewReader("jpeg-bytes"), "cover.jpg", "tok",
	)
	if err != nil {
		t.Fatalf("create book: %v", err)
	}
	if book.ID != "b1" {
		t.Fatalf("created book = %+v", book)
	}
}

func TestUpdateBookPartialOmitsUnsetFields(t *testing.T) {
	title := "New Title"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/books/b1" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if got := r.FormValue("title"); got != title {
			t.Errorf("title = %q", got)
		}
		if _, present := r.MultipartForm.Value["author"]; present {
			t.Errorf("unset author must not be sent")
		}
		if _, present := r.MultipartForm.File["image"]; present {
			t.Errorf("absent image must not be sent")
		}
		_ = json.NewEncoder(w).Encode(domain.Book{ID: "b1", Title: title, ImageURL: "/img/old.jpg"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 0)
	book, err := c.UpdateBook("b1", BookPatch{Title: &title}, nil, "", "tok")
	if err != nil {
		t.Fatalf("update book: %v", err)
	}
	if book.ImageURL != "/img/old.jpg" {
		t.Fatalf("imageUrl = %q, want unchanged /img/old.jpg", book.ImageURL)
	}
}

func TestReviewRoutes(t *testing.T) {
	var gotRequests []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRequests = append(gotRequests, r.Method+" "+r.URL.Path)
		switch r.Method {
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		default:
			var payload struct {
				Comment string `json:"comment"`
				Rating  int    `json:"rating"`
			}
			if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
				t.Errorf("decode payload: %v", err)
			}
			_ = json.NewEncoder(w).Encode(domain.Review{ID: "r1", Comment: payload.Comment, Rating: payload.Rating, UserID: "u1"})
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 0)
	if _, err := c.CreateReview("b1", "Great read", 5, "tok"); err != nil {
		t.Fatalf("create review: %v", err)
	}
	if _, err := c.UpdateReview("r1", "Even better", 4, "tok"); err != nil {
		t.Fatalf("update review: %v", err)
	}
	if err := c.DeleteReview("r1", "tok"); err != nil {
		t.Fatalf("delete review: %v", err)
	}
	want := []string{
		"POST /books/b1/reviews",
		"PUT /reviews/r1",
		"DELETE /reviews/r1",
	}
	if len(gotRequests) != len(want) {
		t.Fatalf("requests = %v, want %v", gotRequests, want)
	}
	for i := range want {
		if gotRequests[i] != want[i] {
			t.Fatalf("request[%d] = %q, want %q", i, gotRequests[i], want[i])
		}
	}
}

func TestErrorTaxonomy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/books/bad":
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"message": "title is required"})
		case "/books/forbidden":
			w.WriteHeader(http.StatusForbidden)
			_ = json.NewEncoder(w).Encode(map[string]string{"message": "not your book"})
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 0)

	_, err := c.GetBookAggregate("bad")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || !apiErr.ClientError() || apiErr.Message != "title is required" {
		t.Fatalf("4xx error = %v, want client error with server message", err)
	}

	_, err = c.GetBookAggregate("forbidden")
	if !errors.As(err, &apiErr) || !apiErr.Unauthorized() {
		t.Fatalf("403 error = %v, want Unauthorized()", err)
	}

	_, err = c.GetBookAggregate("boom")
	if !errors.As(err, &apiErr) || !apiErr.ServerError() {
		t.Fatalf("5xx error = %v, want server error", err)
	}
	if apiErr.Message == "" {
		t.Fatalf("5xx error should carry the status text")
	}

	// Transport failure: no APIError at all.
	srv.Close()
	_, err = c.GetBookAggregate("b1")
	if err == nil || errors.As(err, &apiErr) {
		t.Fatalf("network failure = %v, want non-API error", err)
	}
}

func TestNoTokenStillAttempted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Errorf("empty token must not produce an Authorization header")
		}
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "auth required"})
	}))
	defer srv.Close()

	// The call is issued and fails server-side instead of being
	// short-circuited client-side.
	err := NewClient(srv.URL, 0).DeleteBook("b1", "")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
		t.Fatalf("err = %v, want 401 APIError", err)
	}
}
