package domain

import "time"

// Profile holds the shopper's contact details, kept separate from the
// credential record. Exactly one profile exists per user.
type Profile struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Avatar    *Avatar   `json:"avatar,omitempty"`
}

// Avatar is a stored profile image reference.
type Avatar struct {
	Src string `json:"src"`
	Alt string `json:"alt"`
}
