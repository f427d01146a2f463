package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"

	"bookshelf/internal/authclient"
	"bookshelf/internal/bookclient"
	"bookshelf/internal/config"
	"bookshelf/internal/session"
	"bookshelf/internal/util"
	"bookshelf/internal/view"
)

const usage = `usage: bookshelf <command> [flags]

commands:
  login          -email -password
  signup         -username -email -password
  logout
  whoami
  list           [-author] [-genre]
  show           <book-id>
  add-book       -title -author -genre -image <path>
  update-book    <book-id> [-title] [-author] [-genre] [-image <path>]
  delete-book    <book-id>
  review         <book-id> -comment -rating
  update-review  <book-id> <review-id> -comment -rating
  delete-review  <book-id> <review-id>
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load(os.Getenv("BOOKSHELF_CONFIG"))
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	timeout, err := config.ParseRequestTimeout(cfg.RequestTimeout)
	if err != nil {
		log.Fatalf("failed to parse request timeout: %v", err)
	}

	util.InitLogger(cfg.LogLevel)
	slog.Debug("bookshelf starting", "run_id", util.NewID(), "backend", cfg.BaseURL)

	store, err := openSessionStore(cfg)
	if err != nil {
		log.Fatalf("failed to open session store: %v", err)
	}
	sessions := session.NewManager(store)
	if err := sessions.Restore(); err != nil {
		log.Fatalf("failed to restore session: %v", err)
	}

	app := &cli{
		cfg:      cfg,
		sessions: sessions,
		auth:     authclient.NewClient(cfg.BaseURL, timeout),
		books:    bookclient.NewClient(cfg.BaseURL, timeout),
	}
	if err := app.run(os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "bookshelf: %v\n", err)
		os.Exit(1)
	}
}

func openSessionStore(cfg config.FileConfig) (session.Store, error) {
	switch cfg.SessionBackend {
	case config.BackendSQLite:
		return session.NewSQLiteStore(filepath.Join(cfg.DataDir, "session.db"))
	case config.BackendRedis:
		return session.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword), nil
	default:
		return session.NewFileStore(cfg.DataDir)
	}
}

type cli struct {
	cfg      config.FileConfig
	sessions *session.Manager
	auth     *authclient.Client
	books    *bookclient.Client
}

func (c *cli) run(command string, args []string) error {
	switch command {
	case "login":
		return c.login(args)
	case "signup":
		return c.signup(args)
	case "logout":
		return c.sessions.Logout()
	case "whoami":
		return c.whoami()
	case "list":
		return c.list(args)
	case "show":
		return c.show(args)
	case "add-book":
		return c.addBook(args)
	case "update-book":
		return c.updateBook(args)
	case "delete-book":
		return c.deleteBook(args)
	case "review":
		return c.review(args)
	case "update-review":
		return c.updateReview(args)
	case "delete-review":
		return c.deleteReview(args)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

func (c *cli) login(args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	fs.Parse(args)

	identity, token, err := c.auth.Login(*email, *password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	if err := c.sessions.Login(identity, token); err != nil {
		return err
	}
	fmt.Printf("logged in as %s\n", identity.Username)
	return nil
}

func (c *cli) signup(args []string) error {
	fs := flag.NewFlagSet("signup", flag.ExitOnError)
	username := fs.String("username", "", "display name")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	fs.Parse(args)

	identity, token, err := c.auth.SignUp(*username, *email, *password)
	if err != nil {
		return fmt.Errorf("signup failed: %w", err)
	}
	if err := c.sessions.Login(identity, token); err != nil {
		return err
	}
	fmt.Printf("signed up as %s\n", identity.Username)
	return nil
}

func (c *cli) whoami() error {
	cur := c.sessions.Current()
	if !cur.Authenticated() {
		fmt.Println("not logged in")
		return nil
	}
	fmt.Printf("%s (%s)\n", cur.Username, cur.UserID)
	if claims, ok := c.sessions.Claims(); ok && !claims.ExpiresAt.IsZero() {
		fmt.Printf("token expires %s\n", claims.ExpiresAt.Local())
	}
	return nil
}

func (c *cli) list(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	author := fs.String("author", "", "filter by author")
	genre := fs.String("genre", "", "filter by genre")
	fs.Parse(args)

	lc := view.NewListController(c.books)
	lc.SetFilter(bookclient.Filter{Author: *author, Genre: *genre})
	switch lc.State() {
	case view.ListFailed:
		return fmt.Errorf("fetch books: %w", lc.Err())
	case view.ListEmpty:
		fmt.Println("No books found.")
	default:
		for _, b := range lc.Books() {
			fmt.Printf("%s  %s — %s [%s]\n", b.ID, b.Title, b.Author, b.Genre)
		}
	}
	return nil
}

func (c *cli) show(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("show: book id required")
	}
	dc := view.NewDetailController(c.books, c.sessions)
	dc.Load(args[0])
	return c.render(dc)
}

func (c *cli) render(dc *view.DetailController) error {
	switch dc.State() {
	case view.DetailNotFound:
		fmt.Println("Book not found")
		return nil
	case view.DetailFailed:
		return fmt.Errorf("fetch book: %w", dc.Err())
	case view.DetailGone:
		fmt.Println("Book deleted.")
		return nil
	}
	agg := dc.Aggregate()
	fmt.Printf("%s by %s [%s]\n", agg.Book.Title, agg.Book.Author, agg.Book.Genre)
	if agg.Book.ImageURL != "" {
		fmt.Printf("cover: %s\n", agg.Book.ImageURL)
	}
	if agg.AverageRating != nil {
		fmt.Printf("average rating: %.1f / 5.0\n", *agg.AverageRating)
	} else {
		fmt.Println("average rating: no ratings yet")
	}
	if dc.CanEditBook() {
		fmt.Println("(you own this book)")
	}
	for _, r := range agg.Reviews {
		by := r.CreatedBy
		if by == "" {
			by = "Anonymous"
		}
		owned := ""
		if dc.CanEditReview(r.ID) {
			owned = " (yours)"
		}
		fmt.Printf("  %s  %d/5 %q — %s%s\n", r.ID, r.Rating, r.Comment, by, owned)
	}
	return nil
}

func (c *cli) addBook(args []string) error {
	fs := flag.NewFlagSet("add-book", flag.ExitOnError)
	title := fs.String("title", "", "book title")
	author := fs.String("author", "", "book author")
	genre := fs.String("genre", "", "book genre")
	imagePath := fs.String("image", "", "cover image path")
	fs.Parse(args)

	if *title == "" || *author == "" || *genre == "" || *imagePath == "" {
		return fmt.Errorf("add-book: title, author, genre, and image are required")
	}
	img, err := os.Open(*imagePath)
	if err != nil {
		return err
	}
	defer img.Close()

	book, err := c.books.CreateBook(
		bookclient.BookFields{Title: *title, Author: *author, Genre: *genre},
		img, filepath.Base(*imagePath), c.sessions.Token(),
	)
	if err != nil {
		c.sessions.InvalidateOn(err)
		return fmt.Errorf("add book: %w", err)
	}
	fmt.Printf("added %s (%s)\n", book.Title, book.ID)
	return nil
}

func (c *cli) updateBook(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("update-book: book id required")
	}
	fs := flag.NewFlagSet("update-book", flag.ExitOnError)
	title := fs.String("title", "", "new title")
	author := fs.String("author", "", "new author")
	genre := fs.String("genre", "", "new genre")
	imagePath := fs.String("image", "", "new cover image path")
	fs.Parse(args[1:])

	var patch bookclient.BookPatch
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "title":
			patch.Title = title
		case "author":
			patch.Author = author
		case "genre":
			patch.Genre = genre
		}
	})

	dc := view.NewDetailController(c.books, c.sessions)
	dc.Load(args[0])
	if dc.State() != view.DetailLoaded {
		return c.render(dc)
	}

	var image io.Reader
	imageName := ""
	if *imagePath != "" {
		f, err := os.Open(*imagePath)
		if err != nil {
			return err
		}
		defer f.Close()
		image = f
		imageName = filepath.Base(*imagePath)
	}
	if err := dc.SaveBook(patch, image, imageName); err != nil {
		return fmt.Errorf("update book: %w", err)
	}
	return c.render(dc)
}

func (c *cli) deleteBook(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("delete-book: book id required")
	}
	dc := view.NewDetailController(c.books, c.sessions)
	dc.Load(args[0])
	if dc.State() != view.DetailLoaded {
		return c.render(dc)
	}
	if err := dc.RemoveBook(); err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	return c.render(dc)
}

func (c *cli) review(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("review: book id required")
	}
	fs := flag.NewFlagSet("review", flag.ExitOnError)
	comment := fs.String("comment", "", "review text")
	rating := fs.Int("rating", 0, "rating 1-5")
	fs.Parse(args[1:])

	if *rating < 1 || *rating > 5 {
		return fmt.Errorf("review: rating must be between 1 and 5")
	}
	dc := view.NewDetailController(c.books, c.sessions)
	dc.Load(args[0])
	if dc.State() != view.DetailLoaded {
		return c.render(dc)
	}
	if err := dc.SubmitReview(*comment, *rating); err != nil {
		return fmt.Errorf("submit review: %w", err)
	}
	return c.render(dc)
}

func (c *cli) updateReview(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("update-review: book id and review id required")
	}
	fs := flag.NewFlagSet("update-review", flag.ExitOnError)
	comment := fs.String("comment", "", "review text")
	rating := fs.Int("rating", 0, "rating 1-5")
	fs.Parse(args[2:])

	if *rating < 1 || *rating > 5 {
		return fmt.Errorf("update-review: rating must be between 1 and 5")
	}
	dc := view.NewDetailController(c.books, c.sessions)
	dc.Load(args[0])
	if dc.State() != view.DetailLoaded {
		return c.render(dc)
	}
	if err := dc.SaveReview(args[1], *comment, *rating); err != nil {
		return fmt.Errorf("update review: %w", err)
	}
	return c.render(dc)
}

func (c *cli) deleteReview(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("delete-review: book id and review id required")
	}
	dc := view.NewDetailController(c.books, c.sessions)
	dc.Load(args[0])
	if dc.State() != view.DetailLoaded {
		return c.render(dc)
	}
	if err := dc.RemoveReview(args[1]); err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	return c.render(dc)
}
