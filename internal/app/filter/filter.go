// Package filter provides the rule chain that validates audio uploads.
package filter

import (
	"context"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
)

// Candidate represents an audio file to be validated.
type Candidate struct {
	Name        string // Original file name
	ContentType string // Declared MIME type
	Size        int64  // Size in bytes
	Head        []byte // Leading bytes of the content; empty when only metadata is known
}

// Extension returns the lower-cased file extension including the dot.
func (c Candidate) Extension() string {
	return strings.ToLower(filepath.Ext(c.Name))
}

// MediaType returns the declared MIME type without parameters, lower-cased.
func (c Candidate) MediaType() string {
	t, _, _ := strings.Cut(c.ContentType, ";")
	return strings.ToLower(strings.TrimSpace(t))
}

// Result represents the result of a rule check.
type Result struct {
	Accepted bool
	Code     string // e.g., "unsupported_type", "file_too_large"
}

// Accept returns an accepted result.
func Accept() Result {
	return Result{Accepted: true}
}

// Reject returns a rejected result with the given code.
func Reject(code string) Result {
	return Result{Accepted: false, Code: code}
}

// Rule is the interface for upload validation rules.
type Rule interface {
	// Name returns the rule name (used in config).
	Name() string
	// Description returns a human-readable description.
	Description() string
	// ReturnCodes returns the codes this rule can return.
	ReturnCodes() []string
	// ValidateConfig validates and applies the rule configuration.
	ValidateConfig(settings map[string]any) error
	// Check performs the rule check.
	Check(ctx context.Context, c Candidate) Result
}

// registry holds registered rule factories.
var registry = make(map[string]func() Rule)

// Register registers a rule factory.
func Register(name string, factory func() Rule) {
	registry[name] = factory
}

// GetRegistered returns all registered rule factories.
func GetRegistered() map[string]func() Rule {
	return registry
}

// Names returns the registered rule names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// decodeConfig decodes rule settings into config, applies defaults and validates it.
func decodeConfig(settings map[string]any, config any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           config,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create decoder")
	}

	if err := decoder.Decode(settings); err != nil {
		return errors.Wrap(err, "failed to decode settings")
	}

	if err := defaults.Set(config); err != nil {
		return errors.Wrap(err, "failed to set defaults")
	}

	validate := validator.New()
	if err := validate.Struct(config); err != nil {
		return errors.Wrap(err, "validation failed")
	}
	return nil
}
