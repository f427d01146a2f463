package authclient

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"bookshelf/pkg/domain"
)

// Client calls the backend's auth endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// APIError represents an auth error response, typically a 401 with the
// server's message for bad credentials.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// ClientError reports whether the request was rejected (4xx).
func (e *APIError) ClientError() bool {
	return e.Status >= 400 && e.Status < 500
}

// ServerError reports whether the backend itself failed (5xx).
func (e *APIError) ServerError() bool {
	return e.Status >= 500
}

// NewClient constructs an auth client. A zero timeout selects the
// default of 5 seconds.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Login exchanges credentials for an identity and bearer token.
func (c *Client) Login(email, password string) (domain.Identity, string, error) {
	payload := map[string]string{"email": email, "password": password}
	var resp authResponse
	if err := c.doJSON(http.MethodPost, "/auth/login", payload, &resp); err != nil {
		return domain.Identity{}, "", err
	}
	return domain.Identity{UserID: resp.UserID, Username: resp.Username}, resp.Token, nil
}

// SignUp registers a new account and returns its identity and token.
func (c *Client) SignUp(username, email, password string) (domain.Identity, string, error) {
	payload := map[string]string{"username": username, "email": email, "password": password}
	var resp authResponse
	if err := c.doJSON(http.MethodPost, "/auth/signup", payload, &resp); err != nil {
		return domain.Identity{}, "", err
	}
	return domain.Identity{UserID: resp.UserID, Username: resp.Username}, resp.Token, nil
}

func (c *Client) doJSON(method, path string, payload any, out any) error {
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
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
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

type authResponse struct {
	Username string `json:"username"`
	Token    string `json:"token"`
	UserID   string `json:"_id"`
}
