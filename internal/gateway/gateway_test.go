package gateway_test

import (
	"context"
	"path/filepath"
	"testing"

	"showpass/internal/api"
	"showpass/internal/api/apitest"
	"showpass/internal/gateway"
	"showpass/internal/models"
	"showpass/internal/notify"
	"showpass/internal/session"
	"showpass/internal/store"
)

type fixture struct {
	srv      *apitest.Server
	gw       *gateway.Gateway
	notices  *notify.ChannelNotifier
	sessions *session.Manager
	creds    store.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	srv := apitest.New()
	t.Cleanup(srv.Close)

	creds := store.NewFileStore(filepath.Join(t.TempDir(), "session.json"))
	sessions := session.NewManager(creds)
	client := api.NewClient(srv.URL(), sessions)
	sessions.SetLoginClient(client)

	notices := notify.NewChannelNotifier(64)
	gw := gateway.New(sessions, client, notices)
	gw.Start(context.Background())
	return &fixture{srv: srv, gw: gw, notices: notices, sessions: sessions, creds: creds}
}

func (f *fixture) signIn(t *testing.T) {
	t.Helper()
	if res := f.gw.SignIn(context.Background(), "a@b.com", "secret"); !res.Success {
		t.Fatalf("SignIn() failed: %s", res.Message)
	}
}

func (f *fixture) drainNotices() []string {
	var out []string
	for {
		select {
		case msg := <-f.notices.C:
			out = append(out, msg)
		default:
			return out
		}
	}
}

func TestSignInPopulatesLists(t *testing.T) {
	f := newFixture(t)
	f.srv.SeedUser(models.User{Name: "Bo", Phone: "1"})
	f.srv.SeedShow(models.Show{Name: "Dune", Price: 250, IsActive: true})

	f.signIn(t)

	if got := len(f.gw.Users()); got != 1 {
		t.Fatalf("users cached = %d, want 1", got)
	}
	if got := len(f.gw.Shows()); got != 1 {
		t.Fatalf("shows cached = %d, want 1", got)
	}
}

func TestSignInFailure(t *testing.T) {
	f := newFixture(t)
	res := f.gw.SignIn(context.Background(), "a@b.com", "wrong")
	if res.Success {
		t.Fatal("bad password must fail")
	}
	if res.Message != "Invalid email or password" {
		t.Fatalf("message = %q", res.Message)
	}
	if f.gw.Principal() != nil {
		t.Fatal("session must stay anonymous after failed sign-in")
	}
}

func TestSignOutClearsEverything(t *testing.T) {
	f := newFixture(t)
	f.srv.SeedUser(models.User{Name: "Bo", Phone: "1"})
	f.signIn(t)

	f.gw.SignOut(context.Background())

	if len(f.gw.Users()) != 0 || len(f.gw.Shows()) != 0 {
		t.Fatal("no data may stay visible after logout")
	}
	if f.gw.Principal() != nil {
		t.Fatal("principal must be gone after logout")
	}
	if _, _, err := f.creds.Load(context.Background()); err == nil {
		t.Fatal("persisted token must be gone after logout")
	}

	// Idempotent
	f.gw.SignOut(context.Background())
	if len(f.gw.Users()) != 0 || f.gw.Principal() != nil {
		t.Fatal("second SignOut() must end in the same state")
	}
}

func TestAddUserAppendsServerCopy(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)

	before := len(f.gw.Users())
	res := f.gw.AddUser(context.Background(), models.CreateUserRequest{Name: "Bo", Phone: "123"})
	if !res.Success {
		t.Fatalf("AddUser() failed: %s", res.Message)
	}
	users := f.gw.Users()
	if len(users) != before+1 {
		t.Fatalf("list grew by %d, want 1", len(users)-before)
	}
	added := users[len(users)-1]
	if added.ID == "" {
		t.Fatal("cached record must be the server copy, with its id")
	}
}

func TestAddUserFailureLeavesListUntouched(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)

	before := f.gw.Users()
	res := f.gw.AddUser(context.Background(), models.CreateUserRequest{Name: "", Phone: ""})
	if res.Success {
		t.Fatal("AddUser() without required fields must fail")
	}
	if res.Message == "" {
		t.Fatal("failure must carry a message")
	}
	if len(f.gw.Users()) != len(before) {
		t.Fatal("failed command must not mutate the list")
	}
}

func TestUpdateUserReplacesById(t *testing.T) {
	f := newFixture(t)
	id := f.srv.SeedUser(models.User{Name: "Bo", Phone: "1"})
	f.signIn(t)

	res := f.gw.UpdateUser(context.Background(), id, models.UpdateUserRequest{Name: "Bob", Phone: "2"})
	if !res.Success {
		t.Fatalf("UpdateUser() failed: %s", res.Message)
	}
	users := f.gw.Users()
	if len(users) != 1 {
		t.Fatalf("update must keep the list size, got %d", len(users))
	}
	if users[0].Name != "Bob" || users[0].Phone != "2" {
		t.Fatalf("record not replaced: %+v", users[0])
	}
}

func TestDeleteUserRemovesById(t *testing.T) {
	f := newFixture(t)
	id := f.srv.SeedUser(models.User{Name: "Bo", Phone: "1"})
	keep := f.srv.SeedUser(models.User{Name: "Jo", Phone: "2"})
	f.signIn(t)

	res := f.gw.DeleteUser(context.Background(), id)
	if !res.Success {
		t.Fatalf("DeleteUser() failed: %s", res.Message)
	}
	users := f.gw.Users()
	if len(users) != 1 || users[0].ID != keep {
		t.Fatalf("exactly the deleted id must go, got %+v", users)
	}

	// Deleting it again fails server-side and changes nothing
	res = f.gw.DeleteUser(context.Background(), id)
	if res.Success {
		t.Fatal("second delete must fail")
	}
	if len(f.gw.Users()) != 1 {
		t.Fatal("failed delete must not mutate the list")
	}
}

func TestAssignCardAndToggleAndRecharge(t *testing.T) {
	f := newFixture(t)
	id := f.srv.SeedUser(models.User{Name: "Bo", Phone: "1", IsActive: true})
	f.signIn(t)

	if res := f.gw.AssignCard(context.Background(), id, "card-9"); !res.Success {
		t.Fatalf("AssignCard() failed: %s", res.Message)
	}
	if got := f.gw.Users()[0].CardID; got != "card-9" {
		t.Fatalf("card not reflected in cache: %q", got)
	}

	if res := f.gw.ToggleStatus(context.Background(), id, false); !res.Success {
		t.Fatalf("ToggleStatus() failed: %s", res.Message)
	}
	if f.gw.Users()[0].IsActive {
		t.Fatal("status not reflected in cache")
	}

	res := f.gw.RechargeWallet(context.Background(), id, 500)
	if !res.Success {
		t.Fatalf("RechargeWallet() failed: %s", res.Message)
	}
	if got := f.gw.Users()[0].WalletBalance; got != 500 {
		t.Fatalf("balance = %v, want 500", got)
	}
	if res.Message == "" {
		t.Fatal("recharge must surface the server message")
	}
}

func TestShowCommands(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)

	fields := models.ShowFields{Name: "Dune", Description: "Sci-fi", Price: 250, IsActive: true}
	att := &api.Attachment{FileName: "poster.jpg", ContentType: "image/jpeg", Data: []byte("x")}
	if res := f.gw.AddShow(context.Background(), fields, att); !res.Success {
		t.Fatalf("AddShow() failed: %s", res.Message)
	}
	shows := f.gw.Shows()
	if len(shows) != 1 || shows[0].Image == "" {
		t.Fatalf("show not cached with server copy: %+v", shows)
	}
	id := shows[0].ID

	fields.Price = 300
	if res := f.gw.UpdateShow(context.Background(), id, fields, nil); !res.Success {
		t.Fatalf("UpdateShow() failed: %s", res.Message)
	}
	shows = f.gw.Shows()
	if len(shows) != 1 || shows[0].Price != 300 {
		t.Fatalf("update not reflected: %+v", shows)
	}
	if shows[0].Image == "" {
		t.Fatal("image must survive update without attachment")
	}

	if res := f.gw.DeleteShow(context.Background(), id); !res.Success {
		t.Fatalf("DeleteShow() failed: %s", res.Message)
	}
	if len(f.gw.Shows()) != 0 {
		t.Fatal("deleted show must leave the cache")
	}
}

func TestLookupUserByCard(t *testing.T) {
	f := newFixture(t)
	f.srv.SeedUser(models.User{Name: "Bo", Phone: "1", CardID: "card-1", IsActive: true})

	u := f.gw.LookupUserByCard(context.Background(), "card-1")
	if u == nil || u.Name != "Bo" {
		t.Fatalf("lookup failed: %+v", u)
	}
	if f.gw.LookupUserByCard(context.Background(), "unknown-id") != nil {
		t.Fatal("unknown card must resolve to nil")
	}
}

func TestLookupUserByCardNetworkError(t *testing.T) {
	f := newFixture(t)
	f.srv.Close()
	if f.gw.LookupUserByCard(context.Background(), "unknown-id") != nil {
		t.Fatal("network failure must resolve to nil, not an error")
	}
}

func TestListActiveShowsFiltersInactive(t *testing.T) {
	f := newFixture(t)
	f.srv.SeedShow(models.Show{Name: "On sale", Price: 100, IsActive: true})
	f.srv.SeedShow(models.Show{Name: "Closed", Price: 100, IsActive: false})

	if res := f.gw.ListActiveShows(context.Background()); !res.Success {
		t.Fatalf("ListActiveShows() failed: %s", res.Message)
	}
	shows := f.gw.Shows()
	if len(shows) != 1 || shows[0].Name != "On sale" {
		t.Fatalf("expected only the active show, got %+v", shows)
	}
}

func TestPurchaseFailureRelaysMessage(t *testing.T) {
	f := newFixture(t)
	userID := f.srv.SeedUser(models.User{Name: "Bo", Phone: "1", CardID: "c1", WalletBalance: 100, IsActive: true})
	showID := f.srv.SeedShow(models.Show{Name: "Dune", Price: 250, IsActive: true})
	f.gw.ListActiveShows(context.Background())

	before := f.gw.Shows()
	res := f.gw.PurchaseTickets(context.Background(), userID, showID, 5)
	if res.Success {
		t.Fatal("purchase beyond balance must fail")
	}
	if res.Message != "Insufficient balance" {
		t.Fatalf("message = %q, want the server's exact wording", res.Message)
	}
	if len(f.gw.Shows()) != len(before) {
		t.Fatal("failed purchase must not touch the show list")
	}
}

func TestPurchaseSuccess(t *testing.T) {
	f := newFixture(t)
	userID := f.srv.SeedUser(models.User{Name: "Bo", Phone: "1", CardID: "c1", WalletBalance: 1000, IsActive: true})
	showID := f.srv.SeedShow(models.Show{Name: "Dune", Price: 250, IsActive: true})

	res := f.gw.PurchaseTickets(context.Background(), userID, showID, 2)
	if !res.Success {
		t.Fatalf("PurchaseTickets() failed: %s", res.Message)
	}
	if got := f.srv.Users[userID].WalletBalance; got != 500 {
		t.Fatalf("server balance = %v, want 500", got)
	}
}

func TestEveryMutationNotifies(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)
	f.drainNotices()

	f.gw.AddUser(context.Background(), models.CreateUserRequest{Name: "Bo", Phone: "1"})
	f.gw.AddUser(context.Background(), models.CreateUserRequest{})
	got := f.drainNotices()
	if len(got) != 2 {
		t.Fatalf("expected one notification per outcome, got %v", got)
	}
	if got[0] != "User added successfully" {
		t.Fatalf("success notification = %q", got[0])
	}
	if got[1] == "" {
		t.Fatal("failure notification must carry the message")
	}
}

func TestAuthenticatedCommandsBlockedWhileRestoring(t *testing.T) {
	srv := apitest.New()
	t.Cleanup(srv.Close)

	creds := store.NewFileStore(filepath.Join(t.TempDir(), "session.json"))
	sessions := session.NewManager(creds)
	client := api.NewClient(srv.URL(), sessions)
	sessions.SetLoginClient(client)
	gw := gateway.New(sessions, client, nil)

	// Start has not run: the session is still restoring
	if gw.Ready() {
		t.Fatal("gateway must not be ready before Start()")
	}
	res := gw.AddUser(context.Background(), models.CreateUserRequest{Name: "Bo", Phone: "1"})
	if res.Success {
		t.Fatal("authenticated command must be refused while restoring")
	}

	gw.Start(context.Background())
	if !gw.Ready() {
		t.Fatal("gateway must be ready after Start()")
	}
}
