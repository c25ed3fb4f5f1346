package filter

import (
	"context"
	"strings"

	zlog "github.com/rs/zerolog/log"
)

// MimeTypeConfig represents the configuration for MimeTypeRule.
type MimeTypeConfig struct {
	AllowedTypes      []string `yaml:"allowed_types" mapstructure:"allowed_types" default:"[\"audio/mpeg\",\"audio/mp3\",\"audio/wav\",\"audio/x-wav\",\"audio/ogg\",\"audio/webm\",\"audio/aac\",\"audio/m4a\",\"audio/x-m4a\",\"audio/mp4\"]" validate:"min=1"`
	AllowedExtensions []string `yaml:"allowed_extensions" mapstructure:"allowed_extensions" default:"[\".mp3\",\".wav\",\".ogg\",\".webm\",\".aac\",\".m4a\"]" validate:"min=1"`
}

// MimeTypeRule accepts files whose declared type or extension is a supported audio format.
type MimeTypeRule struct {
	types      map[string]bool
	extensions map[string]bool
}

// NewMimeTypeRule creates a rule with the default formats.
func NewMimeTypeRule() *MimeTypeRule {
	r := &MimeTypeRule{}
	if err := r.ValidateConfig(nil); err != nil {
		panic(err)
	}
	return r
}

func (r *MimeTypeRule) Name() string {
	return "mime_type_rule"
}

func (r *MimeTypeRule) Description() string {
	return "Accepts MP3, WAV, OGG, WebM, AAC and M4A by declared type or extension"
}

func (r *MimeTypeRule) ReturnCodes() []string {
	return []string{"unsupported_type"}
}

func (r *MimeTypeRule) ValidateConfig(settings map[string]any) error {
	var config MimeTypeConfig
	if err := decodeConfig(settings, &config); err != nil {
		return err
	}

	r.types = make(map[string]bool, len(config.AllowedTypes))
	for _, t := range config.AllowedTypes {
		r.types[strings.ToLower(strings.TrimSpace(t))] = true
	}
	r.extensions = make(map[string]bool, len(config.AllowedExtensions))
	for _, e := range config.AllowedExtensions {
		e = strings.ToLower(strings.TrimSpace(e))
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		r.extensions[e] = true
	}
	zlog.Debug().Msgf("mime type rule config: %+v", config)
	return nil
}

func (r *MimeTypeRule) Check(ctx context.Context, c Candidate) Result {
	if r.types[c.MediaType()] || r.extensions[c.Extension()] {
		return Accept()
	}
	return Reject("unsupported_type")
}

func init() {
	Register("mime_type_rule", func() Rule {
		return NewMimeTypeRule()
	})
}
