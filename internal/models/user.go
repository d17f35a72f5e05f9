package models

// User is a ticketing end-user account as the backend returns it.
// The backend keys records with Mongo-style string ids, so everything
// here mirrors its camelCase wire format.
type User struct {
	ID            string  `json:"_id"`
	Name          string  `json:"name"`
	Email         string  `json:"email,omitempty"`
	Phone         string  `json:"phone"`
	CardID        string  `json:"cardId,omitempty"`
	WalletBalance float64 `json:"walletBalance"`
	IsActive      bool    `json:"isActive"`
}

// LoginRequest represents the request body for admin login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// CreateUserRequest represents the request body for creating a user
type CreateUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone"`
}

// UpdateUserRequest represents the request body for updating a user
type UpdateUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone"`
}

// AssignCardRequest binds an NFC card id to a user account
type AssignCardRequest struct {
	CardID string `json:"cardId"`
}

// ToggleStatusRequest activates or suspends a user's card
type ToggleStatusRequest struct {
	IsActive bool `json:"isActive"`
}

// RechargeRequest tops up a user's wallet; the server owns the arithmetic
type RechargeRequest struct {
	Amount float64 `json:"amount"`
}

// PurchaseRequest buys tickets against a user's wallet balance
type PurchaseRequest struct {
	UserID   string `json:"userId"`
	ShowID   string `json:"showId"`
	Quantity int    `json:"quantity"`
}
