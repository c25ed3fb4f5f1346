package filter

import (
	"context"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	zlog "github.com/rs/zerolog/log"
)

// ContentSniffConfig represents the configuration for ContentSniffRule.
type ContentSniffConfig struct {
	// Container formats accepted besides audio/* (Ogg, WebM and MP4 audio are often detected as these).
	AllowedContainers []string `yaml:"allowed_containers" mapstructure:"allowed_containers" default:"[\"application/ogg\",\"video/webm\",\"video/mp4\"]"`
}

// ContentSniffRule checks that the leading bytes of a file really are audio.
type ContentSniffRule struct {
	containers map[string]bool
}

// NewContentSniffRule creates a rule with the default containers.
func NewContentSniffRule() *ContentSniffRule {
	r := &ContentSniffRule{}
	if err := r.ValidateConfig(nil); err != nil {
		panic(err)
	}
	return r
}

func (r *ContentSniffRule) Name() string {
	return "content_sniff_rule"
}

func (r *ContentSniffRule) Description() string {
	return "Detects the format from the file content and rejects non-audio data"
}

func (r *ContentSniffRule) ReturnCodes() []string {
	return []string{"content_mismatch"}
}

func (r *ContentSniffRule) ValidateConfig(settings map[string]any) error {
	var config ContentSniffConfig
	if err := decodeConfig(settings, &config); err != nil {
		return err
	}
	r.containers = make(map[string]bool, len(config.AllowedContainers))
	for _, c := range config.AllowedContainers {
		r.containers[strings.ToLower(c)] = true
	}
	zlog.Debug().Msgf("content sniff rule config: %+v", config)
	return nil
}

func (r *ContentSniffRule) Check(ctx context.Context, c Candidate) Result {
	// Nothing to inspect for metadata-only checks
	if len(c.Head) == 0 {
		return Accept()
	}

	detected := mimetype.Detect(c.Head)
	for m := detected; m != nil; m = m.Parent() {
		if r.allowed(m.String()) {
			return Accept()
		}
	}
	zlog.Debug().Msgf("content sniff rule: rejected: name=%s declared=%s detected=%s", c.Name, c.ContentType, detected.String())
	return Reject("content_mismatch")
}

func (r *ContentSniffRule) allowed(mime string) bool {
	t, _, _ := strings.Cut(mime, ";")
	t = strings.ToLower(t)
	return strings.HasPrefix(t, "audio/") || r.containers[t]
}

// DetectContentType returns the MIME type detected from the leading bytes of a file.
func DetectContentType(head []byte) string {
	return mimetype.Detect(head).String()
}

func init() {
	Register("content_sniff_rule", func() Rule {
		return NewContentSniffRule()
	})
}
