package models

// Show is a screening/event that tickets are sold against.
type Show struct {
	ID          string  `json:"_id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price"`
	IsActive    bool    `json:"isActive"`
	Image       string  `json:"image,omitempty"`
}

// ShowFields are the form fields sent when creating or updating a show.
// They always travel as multipart form data because the same request may
// carry an image; the attachment itself is separate (see api.Attachment).
type ShowFields struct {
	Name        string
	Description string
	Price       float64
	IsActive    bool
}
