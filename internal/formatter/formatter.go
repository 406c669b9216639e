// package formatter renders subscription history in various formats (JSON, CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/desertthunder/ezpbars/internal/models"
	"github.com/desertthunder/ezpbars/internal/shared"
)

// Format names an output format.
type Format string

const (
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "txt"
)

// ParseFormat maps a flag value to a [Format]. "md" and "text" are accepted aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "txt", "text", "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, s)
	}
}

// Export renders subs in the given format.
func Export(format Format, subs []*models.Subscription) ([]byte, error) {
	switch format {
	case FormatJSON:
		return ExportToJSON(subs)
	case FormatCSV:
		return ExportToCSV(subs)
	case FormatMarkdown:
		return ExportToMarkdown(subs)
	case FormatText:
		return ExportToText(subs)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, format)
	}
}

// Record is the flat, serializable form of a subscription.
type Record struct {
	Sequence   int     `json:"sequence"`
	ID         string  `json:"id"`
	PbarName   string  `json:"pbar_name"`
	TraceUID   string  `json:"trace_uid"`
	Sub        string  `json:"sub"`
	Domain     string  `json:"domain,omitempty"`
	Status     string  `json:"status"`
	Error      string  `json:"error,omitempty"`
	Attempts   int     `json:"attempts"`
	Failures   int     `json:"failures"`
	Polls      int     `json:"polls"`
	StartedAt  string  `json:"started_at"`
	FinishedAt string  `json:"finished_at,omitempty"`
	Seconds    float64 `json:"duration_seconds,omitempty"`
}

// NewRecord flattens s.
func NewRecord(s *models.Subscription) Record {
	r := Record{
		Sequence:  s.Sequence(),
		ID:        s.ID(),
		PbarName:  s.PbarName(),
		TraceUID:  s.TraceUID(),
		Sub:       s.Sub(),
		Domain:    s.Domain(),
		Status:    string(s.Status()),
		Error:     s.ErrorMessage(),
		Attempts:  s.Attempts(),
		Failures:  s.Failures(),
		Polls:     s.Polls(),
		StartedAt: s.StartedAt().UTC().Format(time.RFC3339),
	}
	if f := s.FinishedAt(); f != nil {
		r.FinishedAt = f.UTC().Format(time.RFC3339)
		r.Seconds = s.Duration().Seconds()
	}
	return r
}

// ExportToJSON renders subs as an indented JSON array.
func ExportToJSON(subs []*models.Subscription) ([]byte, error) {
	records := make([]Record, 0, len(subs))
	for _, s := range subs {
		records = append(records, NewRecord(s))
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return append(data, '\n'), nil
}

// ExportToCSV renders subs with columns: Sequence, ID, PbarName, TraceUID, Status, Error, Attempts, Failures, Polls,
// StartedAt, FinishedAt
func ExportToCSV(subs []*models.Subscription) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{
		"Sequence", "ID", "PbarName", "TraceUID", "Status", "Error", "Attempts", "Failures", "Polls", "StartedAt",
		"FinishedAt",
	}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, s := range subs {
		r := NewRecord(s)
		record := []string{
			strconv.Itoa(r.Sequence),
			r.ID,
			r.PbarName,
			r.TraceUID,
			r.Status,
			r.Error,
			strconv.Itoa(r.Attempts),
			strconv.Itoa(r.Failures),
			strconv.Itoa(r.Polls),
			r.StartedAt,
			r.FinishedAt,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown renders subs as a Markdown table
func ExportToMarkdown(subs []*models.Subscription) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Subscription History\n\n")
	buf.WriteString(fmt.Sprintf("**Subscriptions**: %d\n\n", len(subs)))

	if len(subs) == 0 {
		return buf.Bytes(), nil
	}

	buf.WriteString("| # | Progress Bar | Trace | Status | Duration | Failures | Error |\n")
	buf.WriteString("|---|---|---|---|---|---|---|\n")
	for _, s := range subs {
		buf.WriteString(fmt.Sprintf("| %d | %s | `%s` | %s | %s | %d | %s |\n",
			s.Sequence(), escapeCell(s.PbarName()), s.TraceUID(), s.Status(), formatDuration(s), s.Failures(),
			escapeCell(s.ErrorMessage())))
	}

	return buf.Bytes(), nil
}

// ExportToText renders subs as aligned plain text columns
func ExportToText(subs []*models.Subscription) ([]byte, error) {
	var buf bytes.Buffer

	if len(subs) == 0 {
		buf.WriteString("No subscriptions recorded.\n")
		return buf.Bytes(), nil
	}

	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tPBAR\tTRACE\tSTATUS\tDURATION\tFAILURES\tERROR")
	for _, s := range subs {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%d\t%s\n",
			s.Sequence(), s.PbarName(), s.TraceUID(), s.Status(), formatDuration(s), s.Failures(), s.ErrorMessage())
	}
	if err := w.Flush(); err != nil {
		return nil, fmt.Errorf("failed to write text: %w", err)
	}

	return buf.Bytes(), nil
}

// WriteExport renders subs and writes them to path.
func WriteExport(format Format, subs []*models.Subscription, path string) error {
	data, err := Export(format, subs)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s export: %w", format, err)
	}
	return nil
}

func formatDuration(s *models.Subscription) string {
	if s.FinishedAt() == nil {
		return "-"
	}
	return s.Duration().Round(time.Millisecond).String()
}

func escapeCell(s string) string {
	return strings.NewReplacer("|", `\|`, "\n", " ").Replace(s)
}
