package main

import (
	"slices"
	"testing"
	"time"

	"findmeeting/internal/config"
	"findmeeting/internal/meeting"
	"findmeeting/internal/planner"

	"github.com/urfave/cli/v2"
)

func intPtr(n int) *int { return &n }

// runMerge parses args with the find command's flags and merges them into req.
func runMerge(t *testing.T, req *config.RequestFile, args ...string) {
	t.Helper()
	app := &cli.App{
		Name:  "findmeeting",
		Flags: findCommand().Flags,
		Action: func(c *cli.Context) error {
			mergeRequestFlags(c, req)
			return nil
		},
	}
	if err := app.Run(append([]string{"findmeeting"}, args...)); err != nil {
		t.Fatalf("Run error: %v", err)
	}
}

func TestMergeRequestFlagsDuration(t *testing.T) {
	tests := []struct {
		name string
		file *int
		args []string
		want int
	}{
		{"unset uses flag default", nil, nil, 30},
		{"explicit zero in file", intPtr(0), nil, 0},
		{"file value", intPtr(45), nil, 45},
		{"flag overrides file", intPtr(45), []string{"-d", "15"}, 15},
		{"flag zero overrides file", intPtr(45), []string{"--duration", "0"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &config.RequestFile{Duration: tt.file}
			runMerge(t, req, tt.args...)
			if req.Duration == nil || *req.Duration != tt.want {
				t.Errorf("Duration = %v, want %d", req.Duration, tt.want)
			}
		})
	}
}

func TestMergeRequestFlagsAttendeesAndTitle(t *testing.T) {
	req := &config.RequestFile{
		Title:     "Design review",
		Attendees: []string{"alice@example.com"},
		Optional:  []string{"carol@example.com"},
	}
	runMerge(t, req, "-a", "bob@example.com", "-a", "dave@example.com")

	if want := []string{"bob@example.com", "dave@example.com"}; !slices.Equal(req.Attendees, want) {
		t.Errorf("Attendees = %v, want %v", req.Attendees, want)
	}
	if want := []string{"carol@example.com"}; !slices.Equal(req.Optional, want) {
		t.Errorf("Optional = %v, want %v", req.Optional, want)
	}
	if req.Title != "Design review" {
		t.Errorf("Title = %q, want the file's title", req.Title)
	}

	req = &config.RequestFile{}
	runMerge(t, req)
	if req.Title != "Meeting" {
		t.Errorf("Title = %q, want default", req.Title)
	}

	req = &config.RequestFile{Title: "Design review"}
	runMerge(t, req, "--title", "Retro")
	if req.Title != "Retro" {
		t.Errorf("Title = %q, want flag value", req.Title)
	}
}

func TestSlotClocks(t *testing.T) {
	dayStart := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	slot := func(start, end int, closesDay bool) planner.Slot {
		return planner.Slot{
			Start:   dayStart.Add(time.Duration(start) * time.Minute),
			End:     dayStart.Add(time.Duration(end) * time.Minute),
			Minutes: end - start,
			Range:   meeting.MustFromStartEnd(start, end, closesDay),
		}
	}

	tests := []struct {
		name       string
		slot       planner.Slot
		start, end string
	}{
		{"inside the day", slot(540, 600, false), "09:00", "10:00"},
		{"empty at midnight", slot(0, 0, false), "00:00", "00:00"},
		{"until end of day", slot(780, meeting.EndOfDay, true), "13:00", "24:00"},
		// A fully booked day with a zero-minute meeting leaves [1440,1440).
		{"empty at end of day", slot(meeting.EndOfDay, meeting.EndOfDay, true), "24:00", "24:00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := startClock(tt.slot); got != tt.start {
				t.Errorf("startClock = %q, want %q", got, tt.start)
			}
			if got := endClock(tt.slot); got != tt.end {
				t.Errorf("endClock = %q, want %q", got, tt.end)
			}
		})
	}
}
