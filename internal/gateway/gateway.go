// Package gateway is the single data-access surface shells build on.
// It composes the session manager and the API client, keeps the
// in-memory user and show lists, and reduces every command to a
// uniform Result. List state is only ever set from server-confirmed
// payloads; there are no optimistic updates.
package gateway

import (
	"context"
	"errors"
	"sync"

	"showpass/internal/api"
	"showpass/internal/models"
	"showpass/internal/notify"
	"showpass/internal/session"
)

// Result is the envelope every command resolves to. A failed command
// always carries a human-readable Message; the gateway never lets an
// error escape its boundary.
type Result struct {
	Success bool
	Message string
}

// Gateway orchestrates session + API client + caches.
type Gateway struct {
	sessions *session.Manager
	client   *api.Client
	notifier notify.Notifier

	mu    sync.RWMutex
	users []models.User
	shows []models.Show
}

// New wires a gateway. notifier may be nil to discard notifications.
func New(sessions *session.Manager, client *api.Client, notifier notify.Notifier) *Gateway {
	if notifier == nil {
		notifier = notify.LogNotifier{}
	}
	return &Gateway{sessions: sessions, client: client, notifier: notifier}
}

// Start restores the persisted session and, when one is found, eagerly
// populates both lists once. Call exactly once at startup.
func (g *Gateway) Start(ctx context.Context) {
	g.sessions.Restore(ctx)
	if g.sessions.Principal() != nil {
		g.RefreshUsers(ctx)
		g.RefreshShows(ctx)
	}
}

// Ready reports whether the session restore has completed. Until then
// authenticated commands are refused.
func (g *Gateway) Ready() bool {
	return !g.sessions.Restoring()
}

// Principal returns the signed-in identity, or nil when anonymous.
func (g *Gateway) Principal() *models.Principal {
	return g.sessions.Principal()
}

// SignIn authenticates and, on success, eagerly populates both lists.
func (g *Gateway) SignIn(ctx context.Context, email, password string) Result {
	if blocked := g.requireReady(); blocked != nil {
		return *blocked
	}
	ok, msg := g.sessions.SignIn(ctx, models.LoginRequest{Email: email, Password: password})
	g.notifier.Notify(msg)
	if !ok {
		return Result{Success: false, Message: msg}
	}
	g.RefreshUsers(ctx)
	g.RefreshShows(ctx)
	return Result{Success: true, Message: msg}
}

// SignOut ends the session and drops both lists; no data stays visible
// after logout. Idempotent.
func (g *Gateway) SignOut(ctx context.Context) {
	g.sessions.SignOut(ctx)
	g.mu.Lock()
	g.users = nil
	g.shows = nil
	g.mu.Unlock()
}

// Users returns a copy of the cached user list.
func (g *Gateway) Users() []models.User {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]models.User, len(g.users))
	copy(out, g.users)
	return out
}

// Shows returns a copy of the cached show list.
func (g *Gateway) Shows() []models.Show {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]models.Show, len(g.shows))
	copy(out, g.shows)
	return out
}

// RefreshUsers refetches the user list.
func (g *Gateway) RefreshUsers(ctx context.Context) Result {
	if blocked := g.requireReady(); blocked != nil {
		return *blocked
	}
	resp, err := g.client.ListUsers(ctx)
	if err != nil {
		return Result{Success: false, Message: messageFrom(err, "Could not load users")}
	}
	if !resp.Success {
		return Result{Success: false, Message: failMessage(resp.Message, "Could not load users")}
	}
	g.mu.Lock()
	g.users = resp.Users
	g.mu.Unlock()
	return Result{Success: true}
}

// RefreshShows refetches the show list.
func (g *Gateway) RefreshShows(ctx context.Context) Result {
	if blocked := g.requireReady(); blocked != nil {
		return *blocked
	}
	resp, err := g.client.ListShows(ctx)
	if err != nil {
		return Result{Success: false, Message: messageFrom(err, "Could not load shows")}
	}
	if !resp.Success {
		return Result{Success: false, Message: failMessage(resp.Message, "Could not load shows")}
	}
	g.mu.Lock()
	g.shows = resp.Shows
	g.mu.Unlock()
	return Result{Success: true}
}

// AddUser creates a user; the server's copy is appended to the list.
func (g *Gateway) AddUser(ctx context.Context, req models.CreateUserRequest) Result {
	if blocked := g.requireReady(); blocked != nil {
		return *blocked
	}
	resp, err := g.client.AddUser(ctx, req)
	if r := g.checkUserResp(resp, err, "Add user failed"); !r.Success {
		return r
	}
	g.mu.Lock()
	g.users = append(g.users, *resp.User)
	g.mu.Unlock()
	return g.ok("User added successfully")
}

// UpdateUser replaces a user's fields; the list entry is replaced with
// the server's copy.
func (g *Gateway) UpdateUser(ctx context.Context, id string, req models.UpdateUserRequest) Result {
	if blocked := g.requireReady(); blocked != nil {
		return *blocked
	}
	resp, err := g.client.UpdateUser(ctx, id, req)
	if r := g.checkUserResp(resp, err, "Update user failed"); !r.Success {
		return r
	}
	g.replaceUser(*resp.User)
	return g.ok("User updated successfully")
}

// DeleteUser removes a user and drops it from the list.
func (g *Gateway) DeleteUser(ctx context.Context, id string) Result {
	if blocked := g.requireReady(); blocked != nil {
		return *blocked
	}
	resp, err := g.client.DeleteUser(ctx, id)
	if err != nil {
		return g.fail(messageFrom(err, "Delete user failed"))
	}
	if !resp.Success {
		return g.fail(failMessage(resp.Message, "Delete user failed"))
	}
	g.mu.Lock()
	kept := g.users[:0]
	for _, u := range g.users {
		if u.ID != id {
			kept = append(kept, u)
		}
	}
	g.users = kept
	g.mu.Unlock()
	return g.ok("User deleted successfully")
}

// AssignCard binds a scanned NFC card to a user.
func (g *Gateway) AssignCard(ctx context.Context, id, cardID string) Result {
	if blocked := g.requireReady(); blocked != nil {
		return *blocked
	}
	resp, err := g.client.AssignCard(ctx, id, cardID)
	if r := g.checkUserResp(resp, err, "Assign card failed"); !r.Success {
		return r
	}
	g.replaceUser(*resp.User)
	return g.ok("Card assigned successfully")
}

// ToggleStatus activates or suspends a user's card. The server phrases
// the outcome, so its message is surfaced verbatim.
func (g *Gateway) ToggleStatus(ctx context.Context, id string, active bool) Result {
	if blocked := g.requireReady(); blocked != nil {
		return *blocked
	}
	resp, err := g.client.ToggleStatus(ctx, id, active)
	if r := g.checkUserResp(resp, err, "Toggle status failed"); !r.Success {
		return r
	}
	g.replaceUser(*resp.User)
	return g.ok(failMessage(resp.Message, "Status updated"))
}

// RechargeWallet credits a wallet; the server's message (which carries
// the new balance) is surfaced verbatim.
func (g *Gateway) RechargeWallet(ctx context.Context, id string, amount float64) Result {
	if blocked := g.requireReady(); blocked != nil {
		return *blocked
	}
	resp, err := g.client.RechargeWallet(ctx, id, amount)
	if r := g.checkUserResp(resp, err, "Recharge failed"); !r.Success {
		return r
	}
	g.replaceUser(*resp.User)
	return g.ok(failMessage(resp.Message, "Wallet recharged"))
}

// AddShow creates a show; fields always go out as multipart, the image
// part only when att is non-nil.
func (g *Gateway) AddShow(ctx context.Context, fields models.ShowFields, att *api.Attachment) Result {
	if blocked := g.requireReady(); blocked != nil {
		return *blocked
	}
	resp, err := g.client.AddShow(ctx, fields, att)
	if r := g.checkShowResp(resp, err, "Add show failed"); !r.Success {
		return r
	}
	g.mu.Lock()
	g.shows = append(g.shows, *resp.Show)
	g.mu.Unlock()
	return g.ok("Show added successfully")
}

// UpdateShow replaces a show's fields; existing image is kept when att
// is nil.
func (g *Gateway) UpdateShow(ctx context.Context, id string, fields models.ShowFields, att *api.Attachment) Result {
	if blocked := g.requireReady(); blocked != nil {
		return *blocked
	}
	resp, err := g.client.UpdateShow(ctx, id, fields, att)
	if r := g.checkShowResp(resp, err, "Update show failed"); !r.Success {
		return r
	}
	g.replaceShow(*resp.Show)
	return g.ok("Show updated successfully")
}

// DeleteShow removes a show and drops it from the list.
func (g *Gateway) DeleteShow(ctx context.Context, id string) Result {
	if blocked := g.requireReady(); blocked != nil {
		return *blocked
	}
	resp, err := g.client.DeleteShow(ctx, id)
	if err != nil {
		return g.fail(messageFrom(err, "Delete show failed"))
	}
	if !resp.Success {
		return g.fail(failMessage(resp.Message, "Delete show failed"))
	}
	g.mu.Lock()
	kept := g.shows[:0]
	for _, sh := range g.shows {
		if sh.ID != id {
			kept = append(kept, sh)
		}
	}
	g.shows = kept
	g.mu.Unlock()
	return g.ok("Show deleted")
}

// LookupUserByCard resolves a scanned card to a user profile. Returns
// nil when no user matches or anything goes wrong; the kiosk flow just
// shows "card not recognized" either way.
func (g *Gateway) LookupUserByCard(ctx context.Context, cardID string) *models.User {
	resp, err := g.client.UserByCard(ctx, cardID)
	if err != nil || !resp.Success || resp.User == nil {
		return nil
	}
	return resp.User
}

// ListActiveShows populates the show list with only the shows
// currently on sale. Anonymous-allowed; the kiosk flow runs before any
// login.
func (g *Gateway) ListActiveShows(ctx context.Context) Result {
	resp, err := g.client.ActiveShows(ctx)
	if err != nil {
		return Result{Success: false, Message: messageFrom(err, "Could not load shows")}
	}
	if !resp.Success {
		return Result{Success: false, Message: failMessage(resp.Message, "Could not load shows")}
	}
	g.mu.Lock()
	g.shows = resp.Shows
	g.mu.Unlock()
	return Result{Success: true}
}

// PurchaseTickets relays a purchase; the server alone decides balance
// and availability. Local lists are untouched either way.
func (g *Gateway) PurchaseTickets(ctx context.Context, userID, showID string, quantity int) Result {
	resp, err := g.client.Purchase(ctx, models.PurchaseRequest{
		UserID:   userID,
		ShowID:   showID,
		Quantity: quantity,
	})
	if err != nil {
		return g.fail(messageFrom(err, "Purchase failed"))
	}
	if !resp.Success {
		return g.fail(failMessage(resp.Message, "Purchase failed"))
	}
	return g.ok(failMessage(resp.Message, "Tickets purchased"))
}

func (g *Gateway) requireReady() *Result {
	if g.sessions.Restoring() {
		return &Result{Success: false, Message: "Session is still loading"}
	}
	return nil
}

// checkUserResp reduces the three failure classes of a single-user
// call to a notified Result; Success true means resp.User is usable.
func (g *Gateway) checkUserResp(resp *models.UserResponse, err error, fallback string) Result {
	if err != nil {
		return g.fail(messageFrom(err, fallback))
	}
	if !resp.Success || resp.User == nil {
		return g.fail(failMessage(resp.Message, fallback))
	}
	return Result{Success: true}
}

func (g *Gateway) checkShowResp(resp *models.ShowResponse, err error, fallback string) Result {
	if err != nil {
		return g.fail(messageFrom(err, fallback))
	}
	if !resp.Success || resp.Show == nil {
		return g.fail(failMessage(resp.Message, fallback))
	}
	return Result{Success: true}
}

func (g *Gateway) replaceUser(u models.User) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := range g.users {
		if g.users[i].ID == u.ID {
			g.users[i] = u
			return
		}
	}
}

func (g *Gateway) replaceShow(sh models.Show) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := range g.shows {
		if g.shows[i].ID == sh.ID {
			g.shows[i] = sh
			return
		}
	}
}

func (g *Gateway) ok(msg string) Result {
	g.notifier.Notify(msg)
	return Result{Success: true, Message: msg}
}

func (g *Gateway) fail(msg string) Result {
	g.notifier.Notify(msg)
	return Result{Success: false, Message: msg}
}

// messageFrom extracts the most useful message an error carries: the
// server's own wording when it replied, otherwise the fallback.
func messageFrom(err error, fallback string) string {
	var serr *api.ServerError
	if errors.As(err, &serr) && serr.Message != "" {
		return serr.Message
	}
	return fallback
}

func failMessage(msg, fallback string) string {
	if msg != "" {
		return msg
	}
	return fallback
}
