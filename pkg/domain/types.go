package domain

// Book is a catalog entry as returned by the backend.
type Book struct {
	ID        string `json:"_id"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	Genre     string `json:"genre"`
	ImageURL  string `json:"imageUrl"`
	CreatedBy string `json:"createdBy"`
}

// Review belongs to a book through the aggregate it was fetched with.
// CreatedBy carries the reviewer's display name and may be empty.
type Review struct {
	ID        string `json:"_id"`
	Comment   string `json:"comment"`
	Rating    int    `json:"rating"`
	CreatedBy string `json:"createdBy,omitempty"`
	UserID    string `json:"userId"`
}

// BookAggregate is the detail-view projection of a book with its reviews,
// assembled by the backend and never persisted client-side.
// AverageRating is nil when the book has no ratings yet.
type BookAggregate struct {
	Book          Book     `json:"book"`
	Reviews       []Review `json:"reviews"`
	AverageRating *float64 `json:"averageRating"`
}

// Identity is what the auth endpoints return about the signed-in user.
type Identity struct {
	UserID   string `json:"_id"`
	Username string `json:"username"`
}

// AverageRating computes the mean rating of reviews, nil when there are
// none. Keeps the displayed average in step with a locally patched review
// list without refetching the aggregate.
func AverageRating(reviews []Review) *float64 {
	if len(reviews) == 0 {
		return nil
	}
	sum := 0
	for _, r := range reviews {
		sum += r.Rating
	}
	avg := float64(sum) / float64(len(reviews))
	return &avg
}
