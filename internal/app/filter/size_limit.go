package filter

import (
	"context"

	zlog "github.com/rs/zerolog/log"
)

// DefaultMaxMB is the default upload size limit.
const DefaultMaxMB = 50

// SizeLimitConfig represents the configuration for SizeLimitRule.
type SizeLimitConfig struct {
	MaxMB float64 `yaml:"max_mb" mapstructure:"max_mb" default:"50" validate:"gt=0,lte=1024"`
}

// SizeLimitRule rejects empty files and files above the size limit.
type SizeLimitRule struct {
	maxBytes int64
}

// NewSizeLimitRule creates a rule with the given limit in megabytes.
func NewSizeLimitRule(maxMB float64) *SizeLimitRule {
	if maxMB <= 0 {
		maxMB = DefaultMaxMB
	}
	return &SizeLimitRule{maxBytes: int64(maxMB * 1024 * 1024)}
}

func (r *SizeLimitRule) Name() string {
	return "size_limit_rule"
}

func (r *SizeLimitRule) Description() string {
	return "Rejects empty files and files larger than max_mb megabytes"
}

func (r *SizeLimitRule) ReturnCodes() []string {
	return []string{"file_too_large", "empty_file"}
}

func (r *SizeLimitRule) ValidateConfig(settings map[string]any) error {
	var config SizeLimitConfig
	if err := decodeConfig(settings, &config); err != nil {
		return err
	}
	r.maxBytes = int64(config.MaxMB * 1024 * 1024)
	zlog.Debug().Msgf("size limit rule config: %+v", config)
	return nil
}

// MaxBytes returns the size limit in bytes.
func (r *SizeLimitRule) MaxBytes() int64 {
	return r.maxBytes
}

func (r *SizeLimitRule) Check(ctx context.Context, c Candidate) Result {
	if c.Size <= 0 {
		return Reject("empty_file")
	}
	if c.Size > r.maxBytes {
		return Reject("file_too_large")
	}
	return Accept()
}

func init() {
	Register("size_limit_rule", func() Rule {
		return NewSizeLimitRule(DefaultMaxMB)
	})
}
