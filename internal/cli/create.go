package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/ckpayment/ckmodal/internal/builder"
	"github.com/ckpayment/ckmodal/internal/controller"
	"github.com/ckpayment/ckmodal/internal/modal"
	"github.com/ckpayment/ckmodal/internal/store"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newCreateCmd(), newUpdateCmd())
}

// draftFlags are the modal fields settable from the command line. Empty
// values leave the draft unchanged.
type draftFlags struct {
	file        string
	name        string
	description string
	company     string
	website     string
	webhook     string
	tokens      string
	preset      string
	minAmount   float64
	maxAmount   float64
	fields      []string
}

func (f *draftFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.file, "file", "f", "", "JSON file with the full modal configuration (- for stdin)")
	cmd.Flags().StringVar(&f.name, "name", "", "modal name")
	cmd.Flags().StringVar(&f.description, "description", "", "short description")
	cmd.Flags().StringVar(&f.company, "company", "", "company name shown in the modal")
	cmd.Flags().StringVar(&f.website, "website", "", "company website URL")
	cmd.Flags().StringVar(&f.webhook, "webhook", "", "webhook URL notified on payment")
	cmd.Flags().StringVar(&f.tokens, "tokens", "", "comma-separated accepted tokens")
	cmd.Flags().StringVar(&f.preset, "theme", "", "theme preset ("+strings.Join(presetNames(), ", ")+")")
	cmd.Flags().Float64Var(&f.minAmount, "min", 0, "minimum amount")
	cmd.Flags().Float64Var(&f.maxAmount, "max", 0, "maximum amount")
	cmd.Flags().StringArrayVar(&f.fields, "field", nil, `custom field as name:label[:type[:required]] (repeatable)`)
}

// apply copies the set flags into b.
func (f *draftFlags) apply(cmd *cobra.Command, b *builder.Builder) error {
	if f.file != "" {
		d, err := readDraftFile(f.file)
		if err != nil {
			return err
		}
		fields := d.CustomFields
		d.CustomFields = []modal.CustomField{}
		b.Edit(func(cur *modal.Draft) { *cur = d })
		// Row ids come from the builder, not the file.
		for _, field := range fields {
			b.AddField(field)
		}
	}

	if f.preset != "" {
		if err := b.ApplyPreset(f.preset); err != nil {
			return err
		}
	}

	changed := cmd.Flags().Changed
	b.Edit(func(d *modal.Draft) {
		if changed("name") {
			d.Name = f.name
		}
		if changed("description") {
			d.Description = f.description
		}
		if changed("company") {
			d.CompanyName = f.company
		}
		if changed("website") {
			d.WebsiteURL = f.website
		}
		if changed("webhook") {
			d.WebhookURL = f.webhook
		}
		if changed("tokens") {
			d.AllowedTokens = splitCSV(f.tokens)
		}
		if changed("min") {
			v := f.minAmount
			d.MinimumAmount = &v
		}
		if changed("max") {
			v := f.maxAmount
			d.MaximumAmount = &v
		}
	})

	for _, spec := range f.fields {
		field, err := parseFieldSpec(spec)
		if err != nil {
			return err
		}
		b.AddField(field)
	}
	return nil
}

func presetNames() []string {
	names := make([]string, 0, len(modal.ThemePresets))
	for name := range modal.ThemePresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// parseFieldSpec reads name:label[:type[:required]].
func parseFieldSpec(spec string) (modal.CustomField, error) {
	parts := strings.Split(spec, ":")
	if len(parts) < 2 || len(parts) > 4 {
		return modal.CustomField{}, fmt.Errorf("invalid --field %q, want name:label[:type[:required]]", spec)
	}
	field := modal.CustomField{
		Name:  strings.TrimSpace(parts[0]),
		Label: strings.TrimSpace(parts[1]),
		Type:  modal.FieldText,
	}
	if len(parts) >= 3 && parts[2] != "" {
		field.Type = modal.FieldType(strings.TrimSpace(parts[2]))
	}
	if len(parts) == 4 {
		switch strings.TrimSpace(parts[3]) {
		case "required":
			field.Required = true
		case "", "optional":
		default:
			return modal.CustomField{}, fmt.Errorf("invalid --field %q: last part must be 'required' or 'optional'", spec)
		}
	}
	return field, nil
}

// submit saves the builder's draft and reports the outcome.
func submit(cmd *cobra.Command, b *builder.Builder, verb string) error {
	out := cmd.OutOrStdout()
	saved, err := b.Submit(cmd.Context())
	if err != nil {
		if printFieldErrors(cmd.ErrOrStderr(), err) {
			return fmt.Errorf("modal not %s", verb)
		}
		return err
	}

	printModalSummary(out, saved, verb)
	return nil
}

func printModalSummary(w io.Writer, m modal.Config, verb string) {
	status := "inactive"
	if m.IsActive {
		status = "active"
	}
	fmt.Fprintf(w, "Modal '%s' %s (%s)\n", m.Name, verb, status)
	fmt.Fprintf(w, "  ID: %s\n", m.ID)
	fmt.Fprintf(w, "  Company: %s\n", m.CompanyName)
	fmt.Fprintf(w, "  Tokens: %s\n", strings.Join(m.AllowedTokens, ", "))
	if len(m.CustomFields) > 0 {
		fmt.Fprintf(w, "  Custom fields: %d\n", len(m.CustomFields))
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Get the embed code with: ckmodal embed %s\n", m.ID)
}

func newCreateCmd() *cobra.Command {
	var flags draftFlags

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a payment modal",
		Long: `Create a payment modal from flags, a JSON file, or both (flags win).

New modals are active immediately.

Examples:
  ckmodal create --name Checkout --company "Acme" --tokens ICP,ckBTC
  ckmodal create --file checkout.json --theme dark
  ckmodal create --name Donate --company "Acme" --tokens ICP --field "note:Message:text"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withController(cmd.Context(), func(c *controller.Controller, _ *store.SQLiteStore) error {
				b := builder.NewCreate(c)
				if err := flags.apply(cmd, b); err != nil {
					return err
				}
				return submit(cmd, b, "created")
			})
		},
	}

	flags.register(cmd)
	return cmd
}

func newUpdateCmd() *cobra.Command {
	var flags draftFlags

	cmd := &cobra.Command{
		Use:   "update <modal-id>",
		Short: "Update a payment modal",
		Long: `Update a payment modal. Flags change single fields; --file replaces the
whole configuration. The result is validated before anything is saved.

Examples:
  ckmodal update 3f2a... --theme colorful
  ckmodal update 3f2a... --file checkout.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withController(cmd.Context(), func(c *controller.Controller, _ *store.SQLiteStore) error {
				current, ok := c.Get(args[0])
				if !ok {
					return &modal.NotFoundError{ModalID: args[0]}
				}

				b := builder.NewEdit(c, current)
				if err := flags.apply(cmd, b); err != nil {
					return err
				}
				return submit(cmd, b, "updated")
			})
		},
	}

	flags.register(cmd)
	return cmd
}
