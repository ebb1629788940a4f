// Package vocab holds the fixed genre/era dimension tables as an
// immutable in-memory mapping, loaded once per run.
package vocab

import "fmt"

// Vocabulary maps genre and era names to their surrogate keys. It is
// read-only after construction and safe for concurrent use.
type Vocabulary struct {
	genres map[string]int32
	eras   map[string]int32
}

// New copies the given mappings into an immutable Vocabulary.
func New(genres, eras map[string]int32) *Vocabulary {
	v := &Vocabulary{
		genres: make(map[string]int32, len(genres)),
		eras:   make(map[string]int32, len(eras)),
	}
	for name, id := range genres {
		v.genres[name] = id
	}
	for name, id := range eras {
		v.eras[name] = id
	}
	return v
}

// GenreID resolves a genre name. An unknown name is a data mismatch
// between the scraped record and the dimension tables, not a retryable
// condition.
func (v *Vocabulary) GenreID(name string) (int32, error) {
	id, ok := v.genres[name]
	if !ok {
		return 0, fmt.Errorf("unknown genre %q", name)
	}
	return id, nil
}

// EraID resolves an era name.
func (v *Vocabulary) EraID(name string) (int32, error) {
	id, ok := v.eras[name]
	if !ok {
		return 0, fmt.Errorf("unknown era %q", name)
	}
	return id, nil
}
