// Package builder is the editing model behind the modal builder: one draft
// backs both the form and the live preview, validation is an explicit pure
// step, and saving is an explicit Submit.
package builder

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ckpayment/ckmodal/internal/modal"
	"github.com/ckpayment/ckmodal/internal/snippets"
	"github.com/ckpayment/ckmodal/internal/validate"
	"github.com/google/uuid"
)

type Mode string

const (
	ModeCreate Mode = "create"
	ModeEdit   Mode = "edit"
)

// Saver is the slice of the controller the builder needs.
type Saver interface {
	Create(ctx context.Context, d modal.Draft) (modal.Config, error)
	Update(ctx context.Context, modalID string, d modal.Draft) (modal.Config, error)
	SupportedTokens(ctx context.Context) []string
}

type Builder struct {
	saver Saver
	newID func() string

	mu          sync.Mutex
	mode        Mode
	modalID     string
	draft       modal.Draft
	fieldErrors modal.FieldErrors
	rootErr     error
	submitting  bool
	previewOpen bool
	viewport    snippets.Viewport
}

// NewCreate starts an empty draft with the default theme.
func NewCreate(saver Saver) *Builder {
	return &Builder{
		saver: saver,
		newID: uuid.NewString,
		mode:  ModeCreate,
		draft: modal.Draft{
			AllowedTokens: []string{},
			Theme:         modal.DefaultTheme(),
			CustomFields:  []modal.CustomField{},
		},
		viewport: snippets.ViewportDesktop,
	}
}

// NewEdit loads an existing configuration into the draft. Custom fields
// without a row id get one.
func NewEdit(saver Saver, cfg modal.Config) *Builder {
	b := &Builder{
		saver:    saver,
		newID:    uuid.NewString,
		mode:     ModeEdit,
		modalID:  cfg.ID,
		draft:    cfg.Draft.Clone(),
		viewport: snippets.ViewportDesktop,
	}
	if b.draft.CustomFields == nil {
		b.draft.CustomFields = []modal.CustomField{}
	}
	for i := range b.draft.CustomFields {
		if b.draft.CustomFields[i].ID == "" {
			b.draft.CustomFields[i].ID = b.newID()
		}
	}
	return b
}

func (b *Builder) Mode() Mode {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mode
}

// ModalID is empty until a created draft has been saved.
func (b *Builder) ModalID() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.modalID
}

// Draft returns a copy of the current draft.
func (b *Builder) Draft() modal.Draft {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.draft.Clone()
}

// Edit applies fn to a copy of the draft and keeps the result.
func (b *Builder) Edit(fn func(d *modal.Draft)) {
	b.mu.Lock()
	defer b.mu.Unlock()

	d := b.draft.Clone()
	fn(&d)
	b.draft = d
}

// ApplyPreset replaces the theme with a named preset.
func (b *Builder) ApplyPreset(name string) error {
	theme, ok := modal.ThemePresets[name]
	if !ok {
		return fmt.Errorf("unknown theme preset %q", name)
	}
	b.Edit(func(d *modal.Draft) { d.Theme = theme })
	return nil
}

// AddField appends a custom field and returns its row id.
func (b *Builder) AddField(f modal.CustomField) string {
	f.ID = b.newID()
	f.Options = append([]string(nil), f.Options...)
	if f.Type == "" {
		f.Type = modal.FieldText
	}
	b.Edit(func(d *modal.Draft) { d.CustomFields = append(d.CustomFields, f) })
	return f.ID
}

// RemoveField drops the row with the given id.
func (b *Builder) RemoveField(rowID string) bool {
	removed := false
	b.Edit(func(d *modal.Draft) {
		for i, f := range d.CustomFields {
			if f.ID == rowID {
				d.CustomFields = append(d.CustomFields[:i], d.CustomFields[i+1:]...)
				removed = true
				return
			}
		}
	})
	return removed
}

// UpdateField applies fn to the row with the given id. The row id itself
// cannot be changed.
func (b *Builder) UpdateField(rowID string, fn func(f *modal.CustomField)) bool {
	found := false
	b.Edit(func(d *modal.Draft) {
		for i := range d.CustomFields {
			if d.CustomFields[i].ID == rowID {
				fn(&d.CustomFields[i])
				d.CustomFields[i].ID = rowID
				found = true
				return
			}
		}
	})
	return found
}

// Validate checks the draft and records the field errors it finds.
func (b *Builder) Validate(ctx context.Context) modal.FieldErrors {
	return b.check(ctx, b.Draft())
}

func (b *Builder) check(ctx context.Context, d modal.Draft) modal.FieldErrors {
	err := validate.Draft(d, b.saver.SupportedTokens(ctx))

	b.mu.Lock()
	defer b.mu.Unlock()
	b.fieldErrors = nil
	if ve, ok := modal.AsValidation(err); ok {
		b.fieldErrors = ve.Fields
	}
	return copyErrors(b.fieldErrors)
}

// Submit validates and saves the draft. Field errors and the root error are
// kept separately; on any failure the draft stays as it was. A second
// Submit while one is pending returns modal.ErrOperationInProgress.
func (b *Builder) Submit(ctx context.Context) (modal.Config, error) {
	b.mu.Lock()
	if b.submitting {
		b.mu.Unlock()
		return modal.Config{}, modal.ErrOperationInProgress
	}
	b.submitting = true
	b.rootErr = nil
	mode, modalID, d := b.mode, b.modalID, b.draft.Clone()
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		b.submitting = false
		b.mu.Unlock()
	}()

	if fields := b.check(ctx, d); len(fields) > 0 {
		return modal.Config{}, &modal.ValidationError{Fields: fields}
	}

	var saved modal.Config
	var err error
	if mode == ModeEdit {
		saved, err = b.saver.Update(ctx, modalID, d)
	} else {
		saved, err = b.saver.Create(ctx, d)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil {
		if ve, ok := modal.AsValidation(err); ok {
			b.fieldErrors = ve.Fields
		} else {
			b.rootErr = err
		}
		return modal.Config{}, err
	}

	b.mode = ModeEdit
	b.modalID = saved.ID
	b.fieldErrors = nil
	return saved, nil
}

func (b *Builder) Submitting() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.submitting
}

// FieldErrors returns the errors of the last validation.
func (b *Builder) FieldErrors() modal.FieldErrors {
	b.mu.Lock()
	defer b.mu.Unlock()
	return copyErrors(b.fieldErrors)
}

// RootError is the last non-field failure of Submit, such as a backend error.
func (b *Builder) RootError() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rootErr
}

// DismissError clears the root error.
func (b *Builder) DismissError() {
	b.mu.Lock()
	b.rootErr = nil
	b.mu.Unlock()
}

func (b *Builder) TogglePreview() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.previewOpen = !b.previewOpen
	return b.previewOpen
}

func (b *Builder) PreviewOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.previewOpen
}

func (b *Builder) SetViewport(v snippets.Viewport) {
	b.mu.Lock()
	b.viewport = v
	b.mu.Unlock()
}

// Preview renders the current draft, valid or not.
func (b *Builder) Preview() (string, error) {
	b.mu.Lock()
	cfg := modal.Config{ID: b.modalID, Draft: b.draft.Clone()}
	vp := b.viewport
	b.mu.Unlock()

	return snippets.RenderPreview(cfg, vp)
}

// IsBusy reports whether err means the save was refused because another one
// is pending.
func IsBusy(err error) bool {
	return errors.Is(err, modal.ErrOperationInProgress)
}

func copyErrors(fe modal.FieldErrors) modal.FieldErrors {
	if fe == nil {
		return nil
	}
	out := make(modal.FieldErrors, len(fe))
	for k, v := range fe {
		out[k] = v
	}
	return out
}
