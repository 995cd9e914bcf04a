// internal/models/franchise.go
package models

type Franchise struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Municipality string `json:"municipality"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Status       string `json:"status"` // "active", "pending_activation", "suspended"
	CreatedAt    string `json:"createdAt"`
	UpdatedAt    string `json:"updatedAt"`
}
