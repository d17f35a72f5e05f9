package models

// Role values carried by a Principal.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Principal is the authenticated identity a session holds. It is a
// denormalized view over either an admin account or an end-user account;
// which fields are populated depends on Role. Replaced wholesale on
// every change, never mutated field by field.
type Principal struct {
	ID            string  `json:"_id"`
	Name          string  `json:"name"`
	Email         string  `json:"email,omitempty"`
	Phone         string  `json:"phone,omitempty"`
	Role          string  `json:"role"`
	CardID        string  `json:"cardId,omitempty"`
	WalletBalance float64 `json:"walletBalance,omitempty"`
	IsActive      *bool   `json:"isActive,omitempty"`
}
