// Package cache holds computed modal analytics between fetches.
package cache

import (
	"context"
	"time"

	"github.com/ckpayment/ckmodal/internal/modal"
)

// DefaultTTL bounds how stale cached analytics may get.
const DefaultTTL = 5 * time.Minute

// Analytics is keyed by instance and modal id. A miss is (zero, false, nil).
type Analytics interface {
	Get(ctx context.Context, instanceID, modalID string) (modal.Analytics, bool, error)
	Set(ctx context.Context, instanceID, modalID string, a modal.Analytics) error
	Delete(ctx context.Context, instanceID, modalID string) error
}

func key(instanceID, modalID string) string {
	return "ckmodal:analytics:" + instanceID + ":" + modalID
}
