package formatter

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/ezpbars/internal/models"
	"github.com/desertthunder/ezpbars/internal/shared"
	th "github.com/desertthunder/ezpbars/internal/testing"
)

func testSubscriptions() []*models.Subscription {
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	done := models.NewSubscription(2, "example", "uid-done", "sub-1", "ezpbars.com")
	done.SetID("id-2")
	done.SetStartedAt(start)
	done.SetCounters(3, 2, 0)
	done.Finish(models.StatusComplete, "", start.Add(5*time.Second))

	failed := models.NewSubscription(1, "other", "uid-failed", "sub-1", "ezpbars.com")
	failed.SetID("id-1")
	failed.SetStartedAt(start)
	failed.SetCounters(1, 0, 0)
	failed.Finish(models.StatusFailed, "bad | token", start.Add(time.Second))

	return []*models.Subscription{done, failed}
}

func TestParseFormat(t *testing.T) {
	tc := []struct {
		in   string
		want Format
	}{
		{in: "json", want: FormatJSON},
		{in: "CSV", want: FormatCSV},
		{in: "md", want: FormatMarkdown},
		{in: "markdown", want: FormatMarkdown},
		{in: "text", want: FormatText},
		{in: "", want: FormatText},
	}
	for _, tt := range tc {
		got, err := ParseFormat(tt.in)
		if err != nil {
			t.Errorf("ParseFormat(%q) unexpected error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	if _, err := ParseFormat("xml"); !errors.Is(err, shared.ErrInvalidFlag) {
		t.Errorf("expected ErrInvalidFlag, got %v", err)
	}
}

func TestExporters(t *testing.T) {
	subs := testSubscriptions()

	t.Run("ExportToJSON", func(t *testing.T) {
		data, err := ExportToJSON(subs)
		if err != nil {
			t.Fatalf("ExportToJSON failed: %v", err)
		}

		var records []Record
		if err := json.Unmarshal(data, &records); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(records) != 2 {
			t.Fatalf("expected 2 records, got %d", len(records))
		}
		if records[0].Status != "complete" || records[0].Seconds != 5 {
			t.Errorf("unexpected first record %+v", records[0])
		}
		if records[1].Error != "bad | token" {
			t.Errorf("expected error message, got %q", records[1].Error)
		}
	})

	t.Run("ExportToJSON Empty", func(t *testing.T) {
		data, err := ExportToJSON(nil)
		if err != nil {
			t.Fatalf("ExportToJSON failed: %v", err)
		}
		if strings.TrimSpace(string(data)) != "[]" {
			t.Errorf("expected empty array, got %s", data)
		}
	})

	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(subs)
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		output := string(data)
		if !strings.HasPrefix(output, "Sequence,ID,PbarName,TraceUID,Status,Error,Attempts,Failures,Polls,StartedAt,FinishedAt\n") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, "2,id-2,example,uid-done,complete,,3,2,0,2024-03-01T12:00:00Z,2024-03-01T12:00:05Z") {
			t.Errorf("CSV missing completed row, got: %s", output)
		}
		if !strings.Contains(output, "bad | token") {
			t.Error("CSV missing error message")
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		data, err := ExportToMarkdown(subs)
		if err != nil {
			t.Fatalf("ExportToMarkdown failed: %v", err)
		}

		output := string(data)
		if !strings.Contains(output, "# Subscription History") {
			t.Error("Markdown missing title")
		}
		if !strings.Contains(output, "**Subscriptions**: 2") {
			t.Error("Markdown missing count")
		}
		if !strings.Contains(output, "| 2 | example | `uid-done` | complete | 5s | 2 |  |") {
			t.Errorf("Markdown missing completed row, got:\n%s", output)
		}
		if !strings.Contains(output, `bad \| token`) {
			t.Error("Markdown should escape pipes in cells")
		}
	})

	t.Run("ExportToMarkdown Empty", func(t *testing.T) {
		data, err := ExportToMarkdown(nil)
		if err != nil {
			t.Fatalf("ExportToMarkdown failed: %v", err)
		}
		if strings.Contains(string(data), "|") {
			t.Error("expected no table for empty history")
		}
	})

	t.Run("ExportToText", func(t *testing.T) {
		data, err := ExportToText(subs)
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}

		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		if len(lines) != 3 {
			t.Fatalf("expected header and 2 rows, got %d lines", len(lines))
		}
		if !strings.HasPrefix(lines[0], "#") || !strings.Contains(lines[0], "STATUS") {
			t.Errorf("unexpected header %q", lines[0])
		}
		if !strings.Contains(lines[2], "failed") || !strings.Contains(lines[2], "1s") {
			t.Errorf("unexpected row %q", lines[2])
		}
	})

	t.Run("ExportToText Empty", func(t *testing.T) {
		data, _ := ExportToText(nil)
		if string(data) != "No subscriptions recorded.\n" {
			t.Errorf("unexpected output %q", data)
		}
	})

	t.Run("Pending Duration", func(t *testing.T) {
		pending := models.NewSubscription(3, "example", "uid", "sub", "")
		data, _ := ExportToText([]*models.Subscription{pending})
		if !strings.Contains(string(data), "pending") || !strings.Contains(string(data), " - ") {
			t.Errorf("expected pending row with no duration, got %q", data)
		}
	})
}

func TestWriteExport(t *testing.T) {
	t.Run("Writes File", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "history.csv")
		if err := WriteExport(FormatCSV, testSubscriptions(), path); err != nil {
			t.Fatalf("WriteExport failed: %v", err)
		}

		th.AssertFileExists(t, path)
		if !strings.Contains(th.MustReadFile(t, path), "uid-done") {
			t.Error("export file missing data")
		}
	})

	t.Run("Unknown Format", func(t *testing.T) {
		err := WriteExport(Format("xml"), nil, filepath.Join(t.TempDir(), "x"))
		if !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag, got %v", err)
		}
	})

	t.Run("Unwritable Path", func(t *testing.T) {
		err := WriteExport(FormatText, nil, filepath.Join(t.TempDir(), "missing", "out.txt"))
		if err == nil {
			t.Error("expected error for missing directory")
		}
	})
}
