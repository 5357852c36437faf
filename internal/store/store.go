package store

import (
	"context"

	"github.com/ckpayment/ckmodal/internal/modal"
)

// Directory lists backend instances.
type Directory interface {
	ListInstances(ctx context.Context) ([]Instance, error)
}

// TokenLister reports the tokens a backend instance supports.
type TokenLister interface {
	ListTokens(ctx context.Context, instanceID string) ([]Token, error)
}

// ModalClient is the backend payment-modal RPC surface.
type ModalClient interface {
	List(ctx context.Context, instanceID string) ([]modal.Config, error)
	Create(ctx context.Context, instanceID string, d modal.Draft) (modal.Config, error)
	Update(ctx context.Context, instanceID, modalID string, d modal.Draft) (modal.Config, error)
	Delete(ctx context.Context, instanceID, modalID string) error
	SetActive(ctx context.Context, instanceID, modalID string, active bool) (modal.Config, error)
	Analytics(ctx context.Context, instanceID, modalID string) (modal.Analytics, error)
}

// Store is everything the local SQLite backend provides.
type Store interface {
	Directory
	TokenLister
	ModalClient

	CreateInstance(ctx context.Context, id, name string, tokens []string) (*Instance, error)
	SetToken(ctx context.Context, instanceID, symbol string, active bool) error

	// GetModal looks a modal up by id alone, for the public embed path.
	GetModal(ctx context.Context, modalID string) (modal.Config, error)
	RecordEvent(ctx context.Context, e Event) error
	ListEvents(ctx context.Context, instanceID, modalID string) ([]Event, error)

	Close() error
}
