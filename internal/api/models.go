package api

import "github.com/DonShan/GeoTask/pkg/codec"

// Task is a geo-located work item.
type Task struct {
	ID          string          `json:"id,omitempty"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Status      string          `json:"status,omitempty"`
	AssigneeID  string          `json:"assignee_id,omitempty"`
	LocationID  string          `json:"location_id,omitempty"`
	Latitude    codec.Float64   `json:"latitude"`
	Longitude   codec.Float64   `json:"longitude"`
	DueAt       codec.Timestamp `json:"due_at,omitempty"`
	CreatedAt   codec.Timestamp `json:"created_at,omitempty"`
	UpdatedAt   codec.Timestamp `json:"updated_at,omitempty"`
}

// Order is a commissioned piece of work against a task.
type Order struct {
	ID           string          `json:"id,omitempty"`
	TaskID       string          `json:"task_id"`
	ContractorID string          `json:"contractor_id,omitempty"`
	Status       string          `json:"status,omitempty"`
	Amount       codec.Float64   `json:"amount"`
	Currency     string          `json:"currency,omitempty"`
	CreatedAt    codec.Timestamp `json:"created_at,omitempty"`
	UpdatedAt    codec.Timestamp `json:"updated_at,omitempty"`
}

// Contractor is a worker who can take orders.
type Contractor struct {
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name"`
	Email     string          `json:"email,omitempty"`
	Phone     string          `json:"phone,omitempty"`
	Rating    codec.Float64   `json:"rating,omitempty"`
	AvatarURL string          `json:"avatar_url,omitempty"`
	CreatedAt codec.Timestamp `json:"created_at,omitempty"`
}

// Location is a named place tasks are pinned to.
type Location struct {
	ID        string        `json:"id,omitempty"`
	Name      string        `json:"name"`
	Address   string        `json:"address,omitempty"`
	Latitude  codec.Float64 `json:"latitude"`
	Longitude codec.Float64 `json:"longitude"`
}

// ProfileUpdate carries the mutable profile fields.
type ProfileUpdate struct {
	Name      string `json:"name,omitempty" validate:"omitempty,min=1"`
	Phone     string `json:"phone,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty" validate:"omitempty,url"`
}
