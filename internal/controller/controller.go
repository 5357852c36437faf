// Package controller owns the in-memory collection of modal configurations
// for one backend instance and is the only component that talks to the
// backend. Views read copies from it and route every mutation through it.
package controller

import (
	"context"
	"errors"
	"sync"

	"github.com/ckpayment/ckmodal/internal/cache"
	"github.com/ckpayment/ckmodal/internal/modal"
	"github.com/ckpayment/ckmodal/internal/notify"
	"github.com/ckpayment/ckmodal/internal/snippets"
	"github.com/ckpayment/ckmodal/internal/store"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// DefaultTokens is used when the instance's token list cannot be fetched.
var DefaultTokens = []string{"ICP", "ckBTC", "ckETH"}

type Options struct {
	InstanceID string
	Client     store.ModalClient
	Tokens     store.TokenLister
	Notifier   notify.Port
	Cache      cache.Analytics
	Logger     *logrus.Entry
	Embed      snippets.EmbedOptions
	// FallbackTokens overrides DefaultTokens.
	FallbackTokens []string
}

type Controller struct {
	client   store.ModalClient
	tokens   store.TokenLister
	notifier notify.Port
	cache    cache.Analytics
	log      *logrus.Entry
	embed    snippets.EmbedOptions
	fallback []string

	mu         sync.RWMutex
	instanceID string
	modals     []modal.Config
	loaded     bool
	lastErr    error
	busy       map[string]bool
	supported  []string

	flight singleflight.Group
}

func New(opts Options) *Controller {
	log := opts.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	log = log.WithField("component", "controller")

	notifier := opts.Notifier
	if notifier == nil {
		notifier = notify.NewLogger(log)
	}

	c := opts.Cache
	if c == nil {
		c = cache.NewMemory(cache.DefaultTTL)
	}

	fallback := opts.FallbackTokens
	if len(fallback) == 0 {
		fallback = DefaultTokens
	}

	return &Controller{
		client:     opts.Client,
		tokens:     opts.Tokens,
		notifier:   notifier,
		cache:      c,
		log:        log,
		embed:      opts.Embed,
		fallback:   append([]string(nil), fallback...),
		instanceID: opts.InstanceID,
		busy:       map[string]bool{},
	}
}

// InstanceID returns the backend instance the collection belongs to.
func (c *Controller) InstanceID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.instanceID
}

// FetchAll loads every modal of instanceID and replaces the collection. An
// empty instanceID reloads the current instance. On failure the previous
// collection and instance stay in place and a *modal.LoadError is returned.
func (c *Controller) FetchAll(ctx context.Context, instanceID string) error {
	c.mu.RLock()
	current := c.instanceID
	c.mu.RUnlock()

	if instanceID == "" {
		instanceID = current
	}
	if instanceID == "" {
		return c.fail("Failed to load modals", modal.ErrNoInstance)
	}

	list, err := c.client.List(ctx, instanceID)
	if err != nil {
		loadErr := &modal.LoadError{Op: "load modals", Err: err}
		c.mu.Lock()
		c.lastErr = loadErr
		c.mu.Unlock()
		c.log.WithError(err).WithField("instance", instanceID).Warn("fetch modals failed")
		return c.fail("Failed to load modals", loadErr)
	}

	modals := make([]modal.Config, 0, len(list))
	for _, m := range list {
		modals = append(modals, m.Clone())
	}

	c.mu.Lock()
	if instanceID != c.instanceID {
		c.supported = nil
	}
	c.instanceID = instanceID
	c.modals = modals
	c.loaded = true
	c.lastErr = nil
	c.mu.Unlock()

	c.log.WithFields(logrus.Fields{"instance": instanceID, "count": len(modals)}).Debug("modals loaded")
	return nil
}

// Modals returns a copy of the collection in backend order.
func (c *Controller) Modals() []modal.Config {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]modal.Config, len(c.modals))
	for i, m := range c.modals {
		out[i] = m.Clone()
	}
	return out
}

// Get returns a copy of one modal.
func (c *Controller) Get(modalID string) (modal.Config, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if i := c.indexLocked(modalID); i >= 0 {
		return c.modals[i].Clone(), true
	}
	return modal.Config{}, false
}

// Loaded reports whether at least one FetchAll has succeeded.
func (c *Controller) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

// LastError is the error of the most recent failed FetchAll, cleared by the
// next successful one.
func (c *Controller) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

// Busy reports whether a mutation of modalID is in flight.
func (c *Controller) Busy(modalID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.busy[modalID]
}

func (c *Controller) indexLocked(modalID string) int {
	for i := range c.modals {
		if c.modals[i].ID == modalID {
			return i
		}
	}
	return -1
}

// acquire marks modalID as having a mutation in flight.
func (c *Controller) acquire(modalID string) (release func(), err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.busy[modalID] {
		return nil, modal.ErrOperationInProgress
	}
	c.busy[modalID] = true
	return func() {
		c.mu.Lock()
		delete(c.busy, modalID)
		c.mu.Unlock()
	}, nil
}

// lookup returns the current instance and a copy of modalID.
func (c *Controller) lookup(modalID string) (string, modal.Config, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.instanceID == "" {
		return "", modal.Config{}, modal.ErrNoInstance
	}
	i := c.indexLocked(modalID)
	if i < 0 {
		return c.instanceID, modal.Config{}, &modal.NotFoundError{ModalID: modalID}
	}
	return c.instanceID, c.modals[i].Clone(), nil
}

// upsert reconciles a backend result into the collection, unless the
// collection has since switched to another instance.
func (c *Controller) upsert(instanceID string, cfg modal.Config) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if instanceID != c.instanceID {
		return
	}
	if i := c.indexLocked(cfg.ID); i >= 0 {
		c.modals[i] = cfg.Clone()
		return
	}
	c.modals = append(c.modals, cfg.Clone())
}

func (c *Controller) remove(instanceID, modalID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if instanceID != c.instanceID {
		return
	}
	if i := c.indexLocked(modalID); i >= 0 {
		c.modals = append(c.modals[:i], c.modals[i+1:]...)
	}
}

func (c *Controller) succeed(title, message string) {
	c.notifier.Notify(notify.Notification{Level: notify.Success, Title: title, Message: message})
}

// fail emits an error notification for err and returns it unchanged.
func (c *Controller) fail(title string, err error) error {
	c.notifier.Notify(notify.Notification{Level: notify.Error, Title: title, Message: err.Error()})
	return err
}

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}
