package models

import (
	"time"

	"github.com/google/uuid"
)

type Category struct {
	ID              uuid.UUID  `json:"id" db:"id"`
	ParentID        *uuid.UUID `json:"parent_id" db:"parent_id"`
	Name            string     `json:"name" db:"name"`
	Slug            string     `json:"slug" db:"slug"`
	ShowAllProducts bool       `json:"show_all_products" db:"show_all_products"`
	Position        int        `json:"position" db:"position"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}
