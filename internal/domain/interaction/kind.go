// Package interaction provides the visitor interaction domain entity.
package interaction

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// Kind is a kind of visitor interaction that may unlock audio playback.
type Kind string

const (
	KindClick      Kind = "click"
	KindTouchStart Kind = "touchstart"
	KindKeyDown    Kind = "keydown"
	KindScroll     Kind = "scroll"
)

// ErrUnknownKind is returned when an interaction kind is not recognized.
var ErrUnknownKind = errors.New("unknown interaction kind")

// DefaultKinds returns the interaction kinds that qualify for unlocking playback.
func DefaultKinds() []Kind {
	return []Kind{KindClick, KindTouchStart, KindKeyDown, KindScroll}
}

// ParseKind parses an interaction kind. DOM-style spellings such as
// "touch-start" and "keyDown" are accepted.
func ParseKind(s string) (Kind, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	normalized = strings.NewReplacer("-", "", "_", "").Replace(normalized)
	for _, k := range DefaultKinds() {
		if string(k) == normalized {
			return k, nil
		}
	}
	return "", errors.Wrapf(ErrUnknownKind, "%q", s)
}

// ParseKinds parses a list of interaction kinds.
func ParseKinds(values []string) ([]Kind, error) {
	kinds := make([]Kind, 0, len(values))
	for _, v := range values {
		k, err := ParseKind(v)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

// Event represents a single reported interaction.
type Event struct {
	Kind   Kind      // Interaction kind
	Source string    // Reporting client (kiosk name, browser session, ...)
	At     time.Time // Time the interaction was reported
}
