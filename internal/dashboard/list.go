package dashboard

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/ckpayment/ckmodal/internal/modal"
	"github.com/dustin/go-humanize"
)

// ErrNoPendingDelete is returned by ConfirmDelete without a prior RequestDelete.
var ErrNoPendingDelete = errors.New("no delete awaiting confirmation")

type Action string

const (
	ActionEdit      Action = "edit"
	ActionPreview   Action = "preview"
	ActionAnalytics Action = "analytics"
	ActionEmbed     Action = "embed"
	ActionToggle    Action = "toggle"
	ActionDelete    Action = "delete"
)

// ListSource is the part of the controller the list view uses.
type ListSource interface {
	InstanceID() string
	FetchAll(ctx context.Context, instanceID string) error
	Modals() []modal.Config
	FetchAnalytics(ctx context.Context, modalID string) (modal.Analytics, error)
	ToggleStatus(ctx context.Context, modalID string) (modal.Config, error)
	Delete(ctx context.Context, modalID string) error
	Busy(modalID string) bool
}

// Card is the display model of one modal in the list.
type Card struct {
	ID             string   `json:"modalId"`
	Name           string   `json:"name"`
	CompanyName    string   `json:"companyName"`
	Active         bool     `json:"isActive"`
	Status         string   `json:"status"`
	Tokens         []string `json:"tokens"`
	Views          int64    `json:"views"`
	Conversions    int64    `json:"conversions"`
	ConversionRate float64  `json:"conversionRate"`
	Updated        string   `json:"updated"`
	Busy           bool     `json:"busy"`
	Actions        []Action `json:"actions"`
}

type ListView struct {
	src ListSource
	now func() time.Time

	mu            sync.Mutex
	banner        error
	stats         map[string]modal.Analytics
	pendingDelete string
}

func NewListView(src ListSource) *ListView {
	return &ListView{src: src, now: time.Now, stats: map[string]modal.Analytics{}}
}

// Load fetches the list. On failure the last list stays visible and the
// error is kept as the banner until a later load succeeds.
func (v *ListView) Load(ctx context.Context) error {
	err := v.src.FetchAll(ctx, v.src.InstanceID())

	v.mu.Lock()
	v.banner = err
	v.mu.Unlock()
	return err
}

// Retry is the banner's retry action.
func (v *ListView) Retry(ctx context.Context) error {
	return v.Load(ctx)
}

// LoadStats fetches the summary stats shown on each card. Modals whose
// analytics fail to load show zeros.
func (v *ListView) LoadStats(ctx context.Context) {
	for _, m := range v.src.Modals() {
		a, err := v.src.FetchAnalytics(ctx, m.ID)
		if err != nil {
			continue
		}
		v.mu.Lock()
		v.stats[m.ID] = a
		v.mu.Unlock()
	}
}

// Banner returns the error message to show above the list, or "".
func (v *ListView) Banner() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.banner == nil {
		return ""
	}
	return "Could not refresh modals: " + v.banner.Error()
}

func (v *ListView) Cards() []Card {
	modals := v.src.Modals()
	now := v.now()

	v.mu.Lock()
	defer v.mu.Unlock()

	cards := make([]Card, 0, len(modals))
	for _, m := range modals {
		a := v.stats[m.ID]
		status := "Inactive"
		if m.IsActive {
			status = "Active"
		}
		cards = append(cards, Card{
			ID:             m.ID,
			Name:           m.Name,
			CompanyName:    m.CompanyName,
			Active:         m.IsActive,
			Status:         status,
			Tokens:         append([]string(nil), m.AllowedTokens...),
			Views:          a.TotalViews,
			Conversions:    a.TotalConversions,
			ConversionRate: modal.ConversionRate(a.TotalViews, a.TotalConversions),
			Updated:        humanize.RelTime(m.UpdatedAt, now, "ago", "from now"),
			Busy:           v.src.Busy(m.ID),
			Actions:        []Action{ActionEdit, ActionPreview, ActionAnalytics, ActionEmbed, ActionToggle, ActionDelete},
		})
	}
	return cards
}

// Toggle flips a modal's status through the controller.
func (v *ListView) Toggle(ctx context.Context, modalID string) error {
	_, err := v.src.ToggleStatus(ctx, modalID)
	return err
}

// RequestDelete is the first step of deleting; nothing happens until
// ConfirmDelete.
func (v *ListView) RequestDelete(modalID string) error {
	for _, m := range v.src.Modals() {
		if m.ID == modalID {
			v.mu.Lock()
			v.pendingDelete = modalID
			v.mu.Unlock()
			return nil
		}
	}
	return &modal.NotFoundError{ModalID: modalID}
}

// PendingDelete is the id awaiting confirmation, or "".
func (v *ListView) PendingDelete() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.pendingDelete
}

func (v *ListView) CancelDelete() {
	v.mu.Lock()
	v.pendingDelete = ""
	v.mu.Unlock()
}

// ConfirmDelete deletes the modal chosen by RequestDelete.
func (v *ListView) ConfirmDelete(ctx context.Context) error {
	v.mu.Lock()
	id := v.pendingDelete
	v.pendingDelete = ""
	v.mu.Unlock()

	if id == "" {
		return ErrNoPendingDelete
	}
	if err := v.src.Delete(ctx, id); err != nil {
		return err
	}

	v.mu.Lock()
	delete(v.stats, id)
	v.mu.Unlock()
	return nil
}

// Render draws the cards as a table.
func (v *ListView) Render() string {
	var buf bytes.Buffer

	if banner := v.Banner(); banner != "" {
		fmt.Fprintf(&buf, "! %s (retry to reload)\n\n", banner)
	}

	cards := v.Cards()
	if len(cards) == 0 {
		buf.WriteString("No payment modals yet.\n")
		return buf.String()
	}

	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSTATUS\tTOKENS\tVIEWS\tCONVERSIONS\tRATE\tUPDATED")
	for _, c := range cards {
		status := strings.ToUpper(c.Status)
		if c.Busy {
			status += " (saving)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			c.ID,
			c.Name,
			status,
			strings.Join(c.Tokens, ","),
			humanize.Comma(c.Views),
			humanize.Comma(c.Conversions),
			FormatPercent(c.ConversionRate),
			c.Updated,
		)
	}
	w.Flush()
	return buf.String()
}
