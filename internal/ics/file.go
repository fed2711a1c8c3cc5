package ics

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"findmeeting/internal/models"
)

// FileSource reads events from a local .ics file, e.g. a calendar export.
type FileSource struct {
	path   string
	logger *slog.Logger
}

func NewFileSource(logger *slog.Logger, path string) *FileSource {
	return &FileSource{path: path, logger: logger}
}

func (s *FileSource) Name() string {
	return "ics:" + s.path
}

// EventsBetween decodes the file and keeps the events overlapping [start, end).
// The file is re-read on every call.
func (s *FileSource) EventsBetween(ctx context.Context, start, end time.Time) ([]*models.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open calendar file: %w", err)
	}
	defer f.Close()

	events, err := Decode(f, start.Location(), "ics")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}

	var inRange []*models.Event
	for _, e := range events {
		if e.Overlaps(start, end) {
			inRange = append(inRange, e)
		}
	}
	s.logger.Debug("Read events from calendar file", "file", s.path, "total", len(events), "inRange", len(inRange))
	return inRange, nil
}
