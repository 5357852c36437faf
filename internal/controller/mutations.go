package controller

import (
	"context"
	"fmt"

	"github.com/ckpayment/ckmodal/internal/modal"
	"github.com/ckpayment/ckmodal/internal/validate"
	"github.com/sirupsen/logrus"
)

// Create validates d and asks the backend to create it. The new modal is
// appended to the collection only after the backend confirms it.
func (c *Controller) Create(ctx context.Context, d modal.Draft) (modal.Config, error) {
	instanceID := c.InstanceID()
	if instanceID == "" {
		return modal.Config{}, c.fail("Failed to create modal", modal.ErrNoInstance)
	}

	if err := validate.Draft(d, c.SupportedTokens(ctx)); err != nil {
		return modal.Config{}, c.fail("Invalid modal configuration", err)
	}

	// The backend call finishes even if the caller gives up.
	created, err := c.client.Create(context.WithoutCancel(ctx), instanceID, d.Clone())
	if err != nil {
		c.log.WithError(err).WithField("instance", instanceID).Warn("create modal failed")
		return modal.Config{}, c.fail("Failed to create modal", &modal.SaveError{Op: "create", Err: err})
	}

	c.upsert(instanceID, created)
	c.log.WithFields(logrus.Fields{"instance": instanceID, "modal": created.ID}).Info("modal created")
	c.succeed("Modal created", fmt.Sprintf("%q is ready to embed", created.Name))
	return created.Clone(), nil
}

// Update replaces every editable field of modalID with d.
func (c *Controller) Update(ctx context.Context, modalID string, d modal.Draft) (modal.Config, error) {
	instanceID, _, err := c.lookup(modalID)
	if err != nil {
		return modal.Config{}, c.fail("Failed to update modal", err)
	}

	if err := validate.Draft(d, c.SupportedTokens(ctx)); err != nil {
		return modal.Config{}, c.fail("Invalid modal configuration", err)
	}

	release, err := c.acquire(modalID)
	if err != nil {
		return modal.Config{}, c.fail("Failed to update modal", err)
	}
	defer release()

	updated, err := c.client.Update(context.WithoutCancel(ctx), instanceID, modalID, d.Clone())
	if err != nil {
		c.log.WithError(err).WithField("modal", modalID).Warn("update modal failed")
		if isNotFound(err) {
			c.remove(instanceID, modalID)
			return modal.Config{}, c.fail("Failed to update modal", &modal.NotFoundError{ModalID: modalID})
		}
		return modal.Config{}, c.fail("Failed to update modal", &modal.SaveError{Op: "update", ModalID: modalID, Err: err})
	}

	c.upsert(instanceID, updated)
	c.log.WithField("modal", modalID).Info("modal updated")
	c.succeed("Modal updated", fmt.Sprintf("%q was saved", updated.Name))
	return updated.Clone(), nil
}

// ToggleStatus flips isActive. The collection changes only once the backend
// has confirmed the new state. Activating re-validates the theme first.
func (c *Controller) ToggleStatus(ctx context.Context, modalID string) (modal.Config, error) {
	// The current state is read under the busy guard so two toggles never
	// both aim at the same target.
	release, err := c.acquire(modalID)
	if err != nil {
		return modal.Config{}, c.fail("Failed to change modal status", err)
	}
	defer release()

	instanceID, current, err := c.lookup(modalID)
	if err != nil {
		return modal.Config{}, c.fail("Failed to change modal status", err)
	}

	target := !current.IsActive
	if target {
		if err := validate.Theme(current.Theme); err != nil {
			return modal.Config{}, c.fail("Failed to activate modal", &modal.ToggleError{ModalID: modalID, Err: err})
		}
	}

	toggled, err := c.client.SetActive(context.WithoutCancel(ctx), instanceID, modalID, target)
	if err != nil {
		c.log.WithError(err).WithField("modal", modalID).Warn("toggle modal failed")
		if isNotFound(err) {
			c.remove(instanceID, modalID)
			return modal.Config{}, c.fail("Failed to change modal status", &modal.NotFoundError{ModalID: modalID})
		}
		return modal.Config{}, c.fail("Failed to change modal status", &modal.ToggleError{ModalID: modalID, Err: err})
	}

	c.upsert(instanceID, toggled)

	state := "deactivated"
	if toggled.IsActive {
		state = "activated"
	}
	c.log.WithFields(logrus.Fields{"modal": modalID, "active": toggled.IsActive}).Info("modal status changed")
	c.succeed("Modal "+state, fmt.Sprintf("%q was %s", toggled.Name, state))
	return toggled.Clone(), nil
}

// Delete removes modalID from the backend and then from the collection. On
// a backend failure the collection is left untouched.
func (c *Controller) Delete(ctx context.Context, modalID string) error {
	release, err := c.acquire(modalID)
	if err != nil {
		return c.fail("Failed to delete modal", err)
	}
	defer release()

	instanceID, current, err := c.lookup(modalID)
	if err != nil {
		return c.fail("Failed to delete modal", err)
	}

	if err := c.client.Delete(context.WithoutCancel(ctx), instanceID, modalID); err != nil {
		c.log.WithError(err).WithField("modal", modalID).Warn("delete modal failed")
		if isNotFound(err) {
			// Already gone on the backend; drop the stale local copy too.
			c.remove(instanceID, modalID)
			return c.fail("Failed to delete modal", &modal.NotFoundError{ModalID: modalID})
		}
		return c.fail("Failed to delete modal", &modal.DeleteError{ModalID: modalID, Err: err})
	}

	c.remove(instanceID, modalID)
	if err := c.cache.Delete(context.WithoutCancel(ctx), instanceID, modalID); err != nil {
		c.log.WithError(err).Warn("failed to evict cached analytics")
	}

	c.log.WithField("modal", modalID).Info("modal deleted")
	c.succeed("Modal deleted", fmt.Sprintf("%q was deleted", current.Name))
	return nil
}
