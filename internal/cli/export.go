package cli

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/ckpayment/ckmodal/internal/store"
	"github.com/spf13/cobra"
)

var exportFormat string

var exportCmd = &cobra.Command{
	Use:   "export <modal-id>",
	Short: "Export raw event data",
	Long: `Export a modal's raw view and conversion events in CSV or JSON format.

Examples:
  ckmodal export 3f2a... --format csv > checkout.csv
  ckmodal export 3f2a... --format json > checkout.json`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "output format (csv or json)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	modalID := args[0]

	if exportFormat != "csv" && exportFormat != "json" {
		return fmt.Errorf("invalid format: must be 'csv' or 'json'")
	}

	return withStore(func(s *store.SQLiteStore) error {
		instanceID, err := resolveInstance(cmd.Context(), s, cfg.Instance)
		if err != nil {
			return err
		}

		events, err := s.ListEvents(cmd.Context(), instanceID, modalID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("modal '%s' not found", modalID)
			}
			return fmt.Errorf("failed to get events: %w", err)
		}

		if exportFormat == "csv" {
			return exportCSV(cmd.OutOrStdout(), events)
		}
		return exportJSON(cmd.OutOrStdout(), events)
	})
}

func exportCSV(out io.Writer, events []store.Event) error {
	w := csv.NewWriter(out)

	if err := w.Write([]string{"timestamp", "event_type", "visitor_id", "device", "country", "referrer", "token", "amount"}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, e := range events {
		row := []string{
			strconv.FormatInt(e.CreatedAt.Unix(), 10),
			string(e.Type),
			e.VisitorID,
			e.Device,
			e.Country,
			e.Referrer,
			e.Token,
			strconv.FormatFloat(e.Amount, 'f', -1, 64),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	w.Flush()
	return w.Error()
}

type jsonExport struct {
	Events []jsonEvent `json:"events"`
}

type jsonEvent struct {
	Timestamp int64   `json:"timestamp"`
	EventType string  `json:"event_type"`
	VisitorID string  `json:"visitor_id"`
	Device    string  `json:"device,omitempty"`
	Country   string  `json:"country,omitempty"`
	Referrer  string  `json:"referrer,omitempty"`
	Token     string  `json:"token,omitempty"`
	Amount    float64 `json:"amount,omitempty"`
}

func exportJSON(out io.Writer, events []store.Event) error {
	export := jsonExport{
		Events: make([]jsonEvent, len(events)),
	}

	for i, e := range events {
		export.Events[i] = jsonEvent{
			Timestamp: e.CreatedAt.Unix(),
			EventType: string(e.Type),
			VisitorID: e.VisitorID,
			Device:    e.Device,
			Country:   e.Country,
			Referrer:  e.Referrer,
			Token:     e.Token,
			Amount:    e.Amount,
		}
	}

	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}
