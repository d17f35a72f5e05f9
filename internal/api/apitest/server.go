// Package apitest provides an in-memory stand-in for the ticketing
// backend, covering every endpoint the client consumes. Tests point a
// Client at Server.URL and drive real HTTP round trips against it.
package apitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/gorilla/mux"

	"showpass/internal/models"
)

// Server is the fake backend. Exported maps hold the authoritative
// state; tests may seed or inspect them directly between requests.
type Server struct {
	mu sync.Mutex

	Users map[string]*models.User
	Shows map[string]*models.Show

	AdminEmail    string
	AdminPassword string
	AdminID       string
	AdminName     string
	Token         string

	nextID int
	srv    *httptest.Server
}

// New starts a fake backend with a single admin account
// (a@b.com / secret) and empty user/show tables.
func New() *Server {
	s := &Server{
		Users:         make(map[string]*models.User),
		Shows:         make(map[string]*models.Show),
		AdminEmail:    "a@b.com",
		AdminPassword: "secret",
		AdminID:       "admin-1",
		AdminName:     "Ann",
		Token:         "T1",
	}

	r := mux.NewRouter()
	r.HandleFunc("/api/admin/login", s.login).Methods("POST")

	authed := r.PathPrefix("/api").Subrouter()
	authed.Use(s.requireToken)
	authed.HandleFunc("/user/user", s.listUsers).Methods("GET")
	authed.HandleFunc("/user/user", s.addUser).Methods("POST")
	authed.HandleFunc("/user/user/{id}", s.updateUser).Methods("PUT")
	authed.HandleFunc("/user/user/{id}", s.deleteUser).Methods("DELETE")
	authed.HandleFunc("/user/user/{id}/assign-card", s.assignCard).Methods("POST")
	authed.HandleFunc("/user/user/{id}/toggle-status", s.toggleStatus).Methods("PATCH")
	authed.HandleFunc("/user/user/{id}/recharge-wallet", s.rechargeWallet).Methods("POST")
	authed.HandleFunc("/show", s.listShows).Methods("GET")
	authed.HandleFunc("/show", s.addShow).Methods("POST")
	authed.HandleFunc("/show/{id}", s.updateShow).Methods("PUT")
	authed.HandleFunc("/show/{id}", s.deleteShow).Methods("DELETE")

	// Kiosk flow endpoints work without a session
	r.HandleFunc("/api/user/card/{cardId}", s.userByCard).Methods("GET")
	r.HandleFunc("/api/usershow/show/active", s.activeShows).Methods("GET")
	r.HandleFunc("/api/usershow/purchase", s.purchase).Methods("POST")

	s.srv = httptest.NewServer(r)
	return s
}

// URL is the API base URL, including the /api prefix.
func (s *Server) URL() string { return s.srv.URL + "/api" }

// Close shuts the fake backend down.
func (s *Server) Close() { s.srv.Close() }

// SeedUser adds a user and returns its generated id.
func (s *Server) SeedUser(u models.User) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == "" {
		u.ID = s.genID("u")
	}
	s.Users[u.ID] = &u
	return u.ID
}

// SeedShow adds a show and returns its generated id.
func (s *Server) SeedShow(sh models.Show) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sh.ID == "" {
		sh.ID = s.genID("s")
	}
	s.Shows[sh.ID] = &sh
	return sh.ID
}

func (s *Server) genID(prefix string) string {
	s.nextID++
	return fmt.Sprintf("%s%d", prefix, s.nextID)
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("auth-token") != s.Token {
			writeJSON(w, http.StatusUnauthorized, map[string]interface{}{
				"success": false,
				"message": "Access denied",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"message": "Invalid request body",
		})
		return
	}
	if req.Email != s.AdminEmail || req.Password != s.AdminPassword {
		writeJSON(w, http.StatusUnauthorized, map[string]interface{}{
			"success": false,
			"message": "Invalid email or password",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"token":   s.Token,
		"admin":   map[string]string{"_id": s.AdminID, "name": s.AdminName},
	})
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := make([]models.User, 0, len(s.Users))
	for _, u := range s.Users {
		users = append(users, *u)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "users": users})
}

func (s *Server) addUser(w http.ResponseWriter, r *http.Request) {
	var req models.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" || req.Phone == "" {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"message": "Name and phone are required",
		})
		return
	}
	s.mu.Lock()
	u := &models.User{
		ID:       s.genID("u"),
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		IsActive: true,
	}
	s.Users[u.ID] = u
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "user": u})
}

func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req models.UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"message": "Invalid request body",
		})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.Users[id]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{
			"success": false,
			"message": "User not found",
		})
		return
	}
	u.Name, u.Email, u.Phone = req.Name, req.Email, req.Phone
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "user": u})
}

func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.Users[id]; !ok {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{
			"success": false,
			"message": "User not found",
		})
		return
	}
	delete(s.Users, id)
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "User deleted"})
}

func (s *Server) assignCard(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req models.AssignCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CardID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"message": "Card id is required",
		})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.Users {
		if u.CardID == req.CardID && u.ID != id {
			writeJSON(w, http.StatusConflict, map[string]interface{}{
				"success": false,
				"message": "Card already assigned to another user",
			})
			return
		}
	}
	u, ok := s.Users[id]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{
			"success": false,
			"message": "User not found",
		})
		return
	}
	u.CardID = req.CardID
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "user": u})
}

func (s *Server) toggleStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req models.ToggleStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"message": "Invalid request body",
		})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.Users[id]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{
			"success": false,
			"message": "User not found",
		})
		return
	}
	u.IsActive = req.IsActive
	msg := "Card activated"
	if !u.IsActive {
		msg = "Card deactivated"
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": msg, "user": u})
}

func (s *Server) rechargeWallet(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req models.RechargeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Amount <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"message": "Amount must be positive",
		})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.Users[id]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{
			"success": false,
			"message": "User not found",
		})
		return
	}
	u.WalletBalance += req.Amount
	msg := fmt.Sprintf("Wallet recharged, new balance %.2f", u.WalletBalance)
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": msg, "user": u})
}

func (s *Server) listShows(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	shows := make([]models.Show, 0, len(s.Shows))
	for _, sh := range s.Shows {
		shows = append(shows, *sh)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "shows": shows})
}

// parseShowForm reads the multipart show payload. The image part is
// optional; when present the stored image is replaced with a fake URL
// derived from the uploaded file name.
func (s *Server) parseShowForm(r *http.Request, sh *models.Show) error {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		return err
	}
	sh.Name = r.FormValue("name")
	sh.Description = r.FormValue("description")
	fmt.Sscanf(r.FormValue("price"), "%f", &sh.Price)
	sh.IsActive = r.FormValue("isActive") == "true"
	if file, header, err := r.FormFile("image"); err == nil {
		file.Close()
		sh.Image = "https://img.example/" + header.Filename
	}
	return nil
}

func (s *Server) addShow(w http.ResponseWriter, r *http.Request) {
	var sh models.Show
	if err := s.parseShowForm(r, &sh); err != nil || sh.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"message": "Show name is required",
		})
		return
	}
	s.mu.Lock()
	sh.ID = s.genID("s")
	s.Shows[sh.ID] = &sh
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "show": &sh})
}

func (s *Server) updateShow(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.Shows[id]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{
			"success": false,
			"message": "Show not found",
		})
		return
	}
	updated := *existing
	if err := s.parseShowForm(r, &updated); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"message": "Invalid form data",
		})
		return
	}
	s.Shows[id] = &updated
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "show": &updated})
}

func (s *Server) deleteShow(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.Shows[id]; !ok {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{
			"success": false,
			"message": "Show not found",
		})
		return
	}
	delete(s.Shows, id)
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Show deleted"})
}

func (s *Server) userByCard(w http.ResponseWriter, r *http.Request) {
	cardID := mux.Vars(r)["cardId"]
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.Users {
		if u.CardID == cardID {
			writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "user": u})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]interface{}{
		"success": false,
		"message": "No user for this card",
	})
}

func (s *Server) activeShows(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	shows := make([]models.Show, 0, len(s.Shows))
	for _, sh := range s.Shows {
		if sh.IsActive {
			shows = append(shows, *sh)
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "shows": shows})
}

func (s *Server) purchase(w http.ResponseWriter, r *http.Request) {
	var req models.PurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Quantity <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"message": "Invalid purchase request",
		})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.Users[req.UserID]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{
			"success": false,
			"message": "User not found",
		})
		return
	}
	sh, ok := s.Shows[req.ShowID]
	if !ok || !sh.IsActive {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{
			"success": false,
			"message": "Show not available",
		})
		return
	}
	total := sh.Price * float64(req.Quantity)
	if u.WalletBalance < total {
		writeJSON(w, http.StatusPaymentRequired, map[string]interface{}{
			"success": false,
			"message": "Insufficient balance",
		})
		return
	}
	u.WalletBalance -= total
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": fmt.Sprintf("%d ticket(s) purchased", req.Quantity),
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
