package archive

import (
	"errors"
	"fmt"
)

// DropError marks a record as permanently invalid. The pipeline logs the
// offending record and moves on; a DropError is never retried.
type DropError struct {
	Reason string
}

func (e *DropError) Error() string {
	return fmt.Sprintf("validation failure: %s", e.Reason)
}

// IsDrop reports whether err (or anything it wraps) is a DropError.
func IsDrop(err error) bool {
	var de *DropError
	return errors.As(err, &de)
}

func dropf(format string, args ...any) error {
	return &DropError{Reason: fmt.Sprintf(format, args...)}
}

// Validate enforces the record schema before any side effect occurs.
// Checks run in order and short-circuit on the first failure.
func Validate(r EpisodeRecord) error {
	scalars := []struct {
		name  string
		value string
	}{
		{"slug", r.Slug},
		{"url", r.URL},
		{"title", r.Title},
		{"synopsis", r.Synopsis},
		{"genre", r.Genre},
		{"era", r.Era},
	}
	for _, f := range scalars {
		if f.value == "" {
			return dropf("record does not have %s", f.name)
		}
	}

	if r.Date.IsZero() {
		return dropf("record does not have date")
	}

	for _, list := range []struct {
		name    string
		entries []string
	}{
		{"links", r.Links},
		{"reading_list", r.ReadingList},
	} {
		for _, entry := range list.entries {
			if entry == "" {
				return dropf("empty entry in %s", list.name)
			}
		}
	}

	if len(r.Description) == 0 {
		return dropf("empty description")
	}
	for _, entry := range r.Description {
		if entry == "" {
			return dropf("empty entry in description")
		}
	}

	if len(r.Audio) != 1 || r.Audio[0].Path == "" {
		return dropf("missing audio file")
	}
	if len(r.Images) != 1 || r.Images[0].Path == "" {
		return dropf("missing image")
	}

	return nil
}
