package store

import "time"

// Instance is a provisioned backend payment instance ("canister").
type Instance struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// Token is a token symbol an instance knows about.
type Token struct {
	Symbol   string `json:"symbol"`
	IsActive bool   `json:"isActive"`
}

type EventType string

const (
	EventView    EventType = "view"
	EventConvert EventType = "convert"
)

// Event is one view or conversion reported by the embedded modal.
type Event struct {
	ModalID   string
	Type      EventType
	VisitorID string
	Device    string // desktop, tablet, mobile
	Country   string
	Referrer  string
	Token     string  // conversions only
	Amount    float64 // conversions only
	CreatedAt time.Time
}
