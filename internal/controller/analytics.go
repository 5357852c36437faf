package controller

import (
	"context"

	"github.com/ckpayment/ckmodal/internal/modal"
)

// FetchAnalytics returns the analytics of modalID, from cache when fresh.
// Concurrent callers for the same modal share a single backend call.
func (c *Controller) FetchAnalytics(ctx context.Context, modalID string) (modal.Analytics, error) {
	return c.analytics(ctx, modalID, false)
}

// RefreshAnalytics bypasses the cache.
func (c *Controller) RefreshAnalytics(ctx context.Context, modalID string) (modal.Analytics, error) {
	return c.analytics(ctx, modalID, true)
}

func (c *Controller) analytics(ctx context.Context, modalID string, refresh bool) (modal.Analytics, error) {
	instanceID, _, err := c.lookup(modalID)
	if err != nil {
		return modal.Analytics{}, c.fail("Failed to load analytics", err)
	}

	if !refresh {
		a, ok, err := c.cache.Get(ctx, instanceID, modalID)
		if err != nil {
			c.log.WithError(err).Warn("analytics cache read failed")
		}
		if ok {
			return a, nil
		}
	}

	v, err, _ := c.flight.Do(instanceID+"/"+modalID, func() (interface{}, error) {
		// Shared by every waiting caller, so no single caller may cancel it.
		bg := context.WithoutCancel(ctx)
		a, err := c.client.Analytics(bg, instanceID, modalID)
		if err != nil {
			return modal.Analytics{}, err
		}
		if err := c.cache.Set(bg, instanceID, modalID, a); err != nil {
			c.log.WithError(err).Warn("analytics cache write failed")
		}
		return a, nil
	})
	if err != nil {
		c.log.WithError(err).WithField("modal", modalID).Warn("fetch analytics failed")
		if isNotFound(err) {
			return modal.Analytics{}, c.fail("Failed to load analytics", &modal.NotFoundError{ModalID: modalID})
		}
		return modal.Analytics{}, c.fail("Failed to load analytics", &modal.LoadError{Op: "load analytics", Err: err})
	}

	return v.(modal.Analytics), nil
}
