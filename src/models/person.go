package models

import "time"

// Person represents one tracked brokerage identity whose accounts are synchronized.
type Person struct {
	Name        string    `json:"name"`
	DisplayName string    `json:"display_name"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}
