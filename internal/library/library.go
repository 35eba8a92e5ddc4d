// Package library defines the immutable dose and tag definitions a digest
// cycle runs against. A Library is assembled and validated once per cycle
// and never mutated by the selection core.
package library

import (
	"errors"
	"fmt"

	"dailydose/internal/period"
)

// ErrConfig marks malformed dose or tag definitions. Validation failures are
// raised before scoring begins; a cycle never proceeds partially.
var ErrConfig = errors.New("configuration error")

// FrequencyKind says how strictly a quota count binds.
type FrequencyKind string

const (
	AtLeast FrequencyKind = "at-least"
	Exactly FrequencyKind = "exactly"
)

// Valid reports whether k is a known frequency kind.
func (k FrequencyKind) Valid() bool {
	return k == AtLeast || k == Exactly
}

// Frequency is a hard periodic quota: show Count times per Period.
type Frequency struct {
	Kind   FrequencyKind `json:"kind"`
	Count  int           `json:"count"`
	Period period.Period `json:"period"`
}

// Dose is a single schedulable reminder message. The message payload is
// opaque to the selection core. Frequency is nil for soft-only doses, which
// compete on time pressure alone.
type Dose struct {
	ID        string     `json:"id"`
	Tag       string     `json:"tag"`
	Message   string     `json:"message"`
	Frequency *Frequency `json:"frequency,omitempty"`
}

// Tag maps a name to its demand multiplier D, which scales how fast doses
// under it accrue time pressure.
type Tag struct {
	Name   string  `json:"name"`
	Demand float64 `json:"demand"`
}

// Library is the validated, immutable snapshot handed to a digest cycle.
type Library struct {
	doses []Dose
	tags  map[string]Tag
}

// New validates doses and tags and builds a Library. Every dose must carry a
// non-empty id, reference a defined tag, and have a positive count and valid
// period if it has a frequency at all; every tag demand must be positive.
func New(doses []Dose, tags []Tag) (*Library, error) {
	byName := make(map[string]Tag, len(tags))
	for _, t := range tags {
		if t.Name == "" {
			return nil, fmt.Errorf("%w: tag with empty name", ErrConfig)
		}
		if t.Demand <= 0 {
			return nil, fmt.Errorf("%w: tag %q demand %v must be positive", ErrConfig, t.Name, t.Demand)
		}
		if _, dup := byName[t.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate tag %q", ErrConfig, t.Name)
		}
		byName[t.Name] = t
	}

	seen := make(map[string]bool, len(doses))
	for _, d := range doses {
		if d.ID == "" {
			return nil, fmt.Errorf("%w: dose with empty id", ErrConfig)
		}
		if seen[d.ID] {
			return nil, fmt.Errorf("%w: duplicate dose %q", ErrConfig, d.ID)
		}
		seen[d.ID] = true
		if _, ok := byName[d.Tag]; !ok {
			return nil, fmt.Errorf("%w: dose %q references undefined tag %q", ErrConfig, d.ID, d.Tag)
		}
		if f := d.Frequency; f != nil {
			if !f.Kind.Valid() {
				return nil, fmt.Errorf("%w: dose %q frequency kind %q", ErrConfig, d.ID, f.Kind)
			}
			if f.Count <= 0 {
				return nil, fmt.Errorf("%w: dose %q frequency count %d must be positive", ErrConfig, d.ID, f.Count)
			}
			if !f.Period.Valid() {
				return nil, fmt.Errorf("%w: dose %q frequency period %q", ErrConfig, d.ID, f.Period)
			}
		}
	}

	out := &Library{
		doses: make([]Dose, len(doses)),
		tags:  byName,
	}
	copy(out.doses, doses)
	return out, nil
}

// Doses returns the active doses in library order.
func (l *Library) Doses() []Dose {
	return l.doses
}

// Tag returns the tag definition for name.
func (l *Library) Tag(name string) (Tag, bool) {
	t, ok := l.tags[name]
	return t, ok
}

// Demand returns the demand multiplier for a dose's tag.
func (l *Library) Demand(d Dose) float64 {
	return l.tags[d.Tag].Demand
}

// Len returns the number of active doses.
func (l *Library) Len() int {
	return len(l.doses)
}
