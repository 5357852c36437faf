package controller

import (
	"context"

	"github.com/ckpayment/ckmodal/internal/modal"
	"github.com/ckpayment/ckmodal/internal/notify"
	"github.com/ckpayment/ckmodal/internal/snippets"
)

// GenerateEmbedCode derives the HTML embed snippet for modalID. It makes no
// backend call.
func (c *Controller) GenerateEmbedCode(modalID string) (string, error) {
	_, cfg, err := c.lookup(modalID)
	if err != nil {
		return "", c.fail("Failed to generate embed code", err)
	}
	return snippets.EmbedCode(cfg, c.embed), nil
}

// GenerateSnippet renders the embed for a specific framework.
func (c *Controller) GenerateSnippet(modalID string, framework snippets.Framework) ([]snippets.SnippetFile, error) {
	_, cfg, err := c.lookup(modalID)
	if err != nil {
		return nil, c.fail("Failed to generate embed code", err)
	}
	return snippets.Generate(framework, cfg, c.embed)
}

// Preview renders a stored modal for a viewport.
func (c *Controller) Preview(modalID string, viewport snippets.Viewport) (string, error) {
	_, cfg, err := c.lookup(modalID)
	if err != nil {
		return "", c.fail("Failed to render preview", err)
	}
	return snippets.RenderPreview(cfg, viewport)
}

// SupportedTokens returns the active token symbols of the current instance.
// When they cannot be fetched it notifies and falls back to the default set;
// the fallback is not cached so the next call retries.
func (c *Controller) SupportedTokens(ctx context.Context) []string {
	c.mu.RLock()
	instanceID, cached := c.instanceID, c.supported
	c.mu.RUnlock()

	if cached != nil {
		return append([]string(nil), cached...)
	}
	if c.tokens == nil || instanceID == "" {
		return append([]string(nil), c.fallback...)
	}

	tokens, err := c.tokens.ListTokens(ctx, instanceID)
	if err != nil {
		c.log.WithError(err).WithField("instance", instanceID).Warn("list tokens failed, using defaults")
		c.notifier.Notify(notify.Notification{
			Level:   notify.Info,
			Title:   "Using default tokens",
			Message: "Could not load the instance's tokens: " + (&modal.LoadError{Op: "load tokens", Err: err}).Error(),
		})
		return append([]string(nil), c.fallback...)
	}

	active := []string{}
	for _, t := range tokens {
		if t.IsActive {
			active = append(active, t.Symbol)
		}
	}

	c.mu.Lock()
	if c.instanceID == instanceID {
		c.supported = active
	}
	c.mu.Unlock()

	return append([]string(nil), active...)
}

// InvalidateTokens forgets the cached token list.
func (c *Controller) InvalidateTokens() {
	c.mu.Lock()
	c.supported = nil
	c.mu.Unlock()
}
