package models

// Every backend response carries at least Success, and a Message on
// failure. The per-endpoint envelopes below add the payload field each
// endpoint populates.

// LoginResponse is returned by POST /admin/login. The authenticated
// account arrives under "admin" (or "user" on some deployments).
type LoginResponse struct {
	Success bool       `json:"success"`
	Message string     `json:"message,omitempty"`
	Token   string     `json:"token,omitempty"`
	Admin   *Principal `json:"admin,omitempty"`
	User    *Principal `json:"user,omitempty"`
}

// UserListResponse is returned by GET /user/user.
type UserListResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Users   []User `json:"users"`
}

// UserResponse is returned by every single-user mutation.
type UserResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	User    *User  `json:"user,omitempty"`
}

// ShowListResponse is returned by GET /show and GET /usershow/show/active.
type ShowListResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Shows   []Show `json:"shows"`
}

// ShowResponse is returned by single-show mutations.
type ShowResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Show    *Show  `json:"show,omitempty"`
}

// StatusResponse is the bare envelope for deletes and purchases.
type StatusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}
