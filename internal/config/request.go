package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// RequestFile is a meeting request stored as YAML, e.g.
//
//	title: Design review
//	date: 2025-03-10
//	duration: 45
//	attendees: [alice@example.com, bob@example.com]
//	optional: [carol@example.com]
//
// Duration is nil when the file does not set it, so an explicit 0 survives.
type RequestFile struct {
	Title     string   `yaml:"title"`
	Date      string   `yaml:"date"`
	Duration  *int     `yaml:"duration"`
	Attendees []string `yaml:"attendees"`
	Optional  []string `yaml:"optional"`
}

// LoadRequest reads and validates a request file.
func LoadRequest(path string) (*RequestFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read request file: %w", err)
	}

	var req RequestFile
	if err := yaml.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request file %s: %w", path, err)
	}
	if req.Duration != nil && *req.Duration < 0 {
		return nil, fmt.Errorf("request file %s: duration must not be negative", path)
	}
	if req.Date != "" {
		if _, err := time.Parse(time.DateOnly, req.Date); err != nil {
			return nil, fmt.Errorf("request file %s: invalid date %q: %w", path, req.Date, err)
		}
	}
	return &req, nil
}

// Day parses Date in loc. ok is false when the file has no date.
func (r *RequestFile) Day(loc *time.Location) (day time.Time, ok bool) {
	if r.Date == "" {
		return time.Time{}, false
	}
	day, err := time.ParseInLocation(time.DateOnly, r.Date, loc)
	if err != nil {
		return time.Time{}, false
	}
	return day, true
}
