package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/oklog/ulid/v2"

	"showpass/internal/metrics"
	"showpass/internal/models"
)

// TokenSource supplies the current session token. An empty string means
// the caller is anonymous and no auth header is attached.
type TokenSource interface {
	Token() string
}

// StaticToken is a TokenSource holding a fixed token (tests, scripts).
type StaticToken string

func (t StaticToken) Token() string { return string(t) }

// Attachment is binary content carried by an image-bearing request.
type Attachment struct {
	FileName    string
	ContentType string
	Data        []byte
}

// Client is a typed client for the ticketing backend. One method per
// endpoint; no business logic and no caching here. Interpreting the
// success/message envelope is the caller's job.
type Client struct {
	baseURL      string
	bypassHeader string
	bypassValue  string
	tokens       TokenSource
	httpClient   *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets a client-enforced request timeout. The default is no
// timeout; callers cancel via context instead.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithBypassHeader sets the fixed diagnostic header the tunneling proxy
// in front of the backend requires on every request.
func WithBypassHeader(name, value string) Option {
	return func(c *Client) {
		c.bypassHeader = name
		c.bypassValue = value
	}
}

// NewClient creates a client for the backend at baseURL. tokens may be
// nil for a purely anonymous client.
func NewClient(baseURL string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL:      baseURL,
		bypassHeader: "ngrok-skip-browser-warning",
		bypassValue:  "1",
		tokens:       tokens,
		httpClient:   &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Login authenticates an admin account.
func (c *Client) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	var out models.LoginResponse
	if err := c.doJSON(ctx, http.MethodPost, "/admin/login", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListUsers fetches every user account.
func (c *Client) ListUsers(ctx context.Context) (*models.UserListResponse, error) {
	var out models.UserListResponse
	if err := c.doJSON(ctx, http.MethodGet, "/user/user", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AddUser creates a user account.
func (c *Client) AddUser(ctx context.Context, req models.CreateUserRequest) (*models.UserResponse, error) {
	var out models.UserResponse
	if err := c.doJSON(ctx, http.MethodPost, "/user/user", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateUser replaces a user's editable fields.
func (c *Client) UpdateUser(ctx context.Context, id string, req models.UpdateUserRequest) (*models.UserResponse, error) {
	var out models.UserResponse
	if err := c.doJSON(ctx, http.MethodPut, "/user/user/"+id, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteUser removes a user account.
func (c *Client) DeleteUser(ctx context.Context, id string) (*models.StatusResponse, error) {
	var out models.StatusResponse
	if err := c.doJSON(ctx, http.MethodDelete, "/user/user/"+id, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AssignCard binds an NFC card id to a user.
func (c *Client) AssignCard(ctx context.Context, id, cardID string) (*models.UserResponse, error) {
	var out models.UserResponse
	req := models.AssignCardRequest{CardID: cardID}
	if err := c.doJSON(ctx, http.MethodPost, "/user/user/"+id+"/assign-card", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ToggleStatus activates or suspends a user's card.
func (c *Client) ToggleStatus(ctx context.Context, id string, active bool) (*models.UserResponse, error) {
	var out models.UserResponse
	req := models.ToggleStatusRequest{IsActive: active}
	if err := c.doJSON(ctx, http.MethodPatch, "/user/user/"+id+"/toggle-status", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RechargeWallet credits a user's wallet. The server owns the balance
// arithmetic; this only relays the amount.
func (c *Client) RechargeWallet(ctx context.Context, id string, amount float64) (*models.UserResponse, error) {
	var out models.UserResponse
	req := models.RechargeRequest{Amount: amount}
	if err := c.doJSON(ctx, http.MethodPost, "/user/user/"+id+"/recharge-wallet", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UserByCard looks up the user a scanned NFC card belongs to.
func (c *Client) UserByCard(ctx context.Context, cardID string) (*models.UserResponse, error) {
	var out models.UserResponse
	if err := c.doJSON(ctx, http.MethodGet, "/user/card/"+cardID, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListShows fetches every show.
func (c *Client) ListShows(ctx context.Context) (*models.ShowListResponse, error) {
	var out models.ShowListResponse
	if err := c.doJSON(ctx, http.MethodGet, "/show", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AddShow creates a show. Show writes always go out as multipart form
// data because they may carry an image; att may be nil.
func (c *Client) AddShow(ctx context.Context, fields models.ShowFields, att *Attachment) (*models.ShowResponse, error) {
	var out models.ShowResponse
	if err := c.doMultipart(ctx, http.MethodPost, "/show", fields, att, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateShow replaces a show's fields; att may be nil to keep the
// existing image.
func (c *Client) UpdateShow(ctx context.Context, id string, fields models.ShowFields, att *Attachment) (*models.ShowResponse, error) {
	var out models.ShowResponse
	if err := c.doMultipart(ctx, http.MethodPut, "/show/"+id, fields, att, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteShow removes a show.
func (c *Client) DeleteShow(ctx context.Context, id string) (*models.StatusResponse, error) {
	var out models.StatusResponse
	if err := c.doJSON(ctx, http.MethodDelete, "/show/"+id, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ActiveShows fetches the shows currently on sale. Anonymous-allowed:
// the end-user kiosk flow calls this before any login.
func (c *Client) ActiveShows(ctx context.Context) (*models.ShowListResponse, error) {
	var out models.ShowListResponse
	if err := c.doJSON(ctx, http.MethodGet, "/usershow/show/active", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Purchase buys tickets against a user's wallet. Sufficient balance and
// inventory are decided server-side.
func (c *Client) Purchase(ctx context.Context, req models.PurchaseRequest) (*models.StatusResponse, error) {
	var out models.StatusResponse
	if err := c.doJSON(ctx, http.MethodPost, "/usershow/purchase", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// doJSON sends a JSON request (or bare request when body is nil) and
// decodes the response envelope into out.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, path, out)
}

// doMultipart sends show fields as multipart form data, appending the
// image part only when an attachment is present.
func (c *Client) doMultipart(ctx context.Context, method, path string, fields models.ShowFields, att *Attachment, out interface{}) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	w.WriteField("name", fields.Name)
	w.WriteField("description", fields.Description)
	w.WriteField("price", strconv.FormatFloat(fields.Price, 'f', -1, 64))
	w.WriteField("isActive", strconv.FormatBool(fields.IsActive))

	if att != nil {
		part, err := w.CreateFormFile("image", att.FileName)
		if err != nil {
			return err
		}
		if _, err := part.Write(att.Data); err != nil {
			return err
		}
	}
	if err := w.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return c.send(req, path, out)
}

// send attaches the standing headers, executes the request, and decodes
// the body. Failure classes: transport errors come back as-is, failure
// statuses as *ServerError (with the server's message when decodable),
// unexpected shapes as *DecodeError.
func (c *Client) send(req *http.Request, endpoint string, out interface{}) error {
	req.Header.Set(c.bypassHeader, c.bypassValue)
	req.Header.Set("X-Request-Id", ulid.Make().String())
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("auth-token", token)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.APIRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.APIRequestsTotal.WithLabelValues(endpoint, "transport_error").Inc()
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.APIRequestsTotal.WithLabelValues(endpoint, "transport_error").Inc()
		return err
	}

	if resp.StatusCode >= http.StatusBadRequest {
		metrics.APIRequestsTotal.WithLabelValues(endpoint, "server_error").Inc()
		serr := &ServerError{StatusCode: resp.StatusCode}
		var envelope models.StatusResponse
		if jsonErr := json.Unmarshal(raw, &envelope); jsonErr == nil && envelope.Message != "" {
			serr.Message = envelope.Message
		}
		// Decode the typed envelope too so callers still see the body
		json.Unmarshal(raw, out)
		return serr
	}

	if err := json.Unmarshal(raw, out); err != nil {
		metrics.APIRequestsTotal.WithLabelValues(endpoint, "decode_error").Inc()
		return &DecodeError{Endpoint: endpoint, Err: fmt.Errorf("%w (body %q)", err, truncate(raw, 120))}
	}

	metrics.APIRequestsTotal.WithLabelValues(endpoint, "ok").Inc()
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
