package filter

import (
	"context"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/campusbgm/internal/infra/config"
)

// Chain executes rules in sequence.
type Chain struct {
	rules []Rule
}

// NewChain creates a new rule chain.
func NewChain() *Chain {
	return &Chain{
		rules: make([]Rule, 0),
	}
}

// Add adds a rule to the chain.
func (c *Chain) Add(r Rule) {
	c.rules = append(c.rules, r)
}

// Execute runs all rules in sequence.
// Returns immediately if any rule rejects the candidate.
func (c *Chain) Execute(ctx context.Context, candidate Candidate) Result {
	for _, r := range c.rules {
		result := r.Check(ctx, candidate)
		if !result.Accepted {
			zlog.Debug().Msgf("upload rejected: rule=%s code=%s name=%s", r.Name(), result.Code, candidate.Name)
			return result
		}
	}
	return Accept()
}

// MaxBytes returns the size limit enforced by the chain, or 0 if no size rule is present.
func (c *Chain) MaxBytes() int64 {
	for _, r := range c.rules {
		if s, ok := r.(*SizeLimitRule); ok {
			return s.MaxBytes()
		}
	}
	return 0
}

// Rules returns all rules in the chain.
func (c *Chain) Rules() []Rule {
	return c.rules
}

// NewChainFromConfig builds the upload rule chain.
// The type and size rules always run; the size limit defaults to upload.max_size_mb.
// Other rules run when enabled under upload.rules.
func NewChainFromConfig(cfg *config.Config) (*Chain, error) {
	chain := NewChain()

	mimeRule := NewMimeTypeRule()
	if err := mimeRule.ValidateConfig(cfg.GetRuleSettings(mimeRule.Name())); err != nil {
		return nil, errors.Wrapf(err, "rule %s", mimeRule.Name())
	}
	chain.Add(mimeRule)

	sizeRule := NewSizeLimitRule(float64(cfg.Upload.MaxSizeMB))
	if settings := cfg.GetRuleSettings(sizeRule.Name()); len(settings) > 0 {
		// upload.max_size_mb stays in force unless the rule sets its own max_mb
		seeded := make(map[string]any, len(settings)+1)
		if cfg.Upload.MaxSizeMB > 0 {
			seeded["max_mb"] = cfg.Upload.MaxSizeMB
		}
		for k, v := range settings {
			seeded[k] = v
		}
		if err := sizeRule.ValidateConfig(seeded); err != nil {
			return nil, errors.Wrapf(err, "rule %s", sizeRule.Name())
		}
	}
	chain.Add(sizeRule)

	always := map[string]bool{mimeRule.Name(): true, sizeRule.Name(): true}
	for _, name := range Names() {
		if always[name] || !cfg.IsRuleEnabled(name) {
			continue
		}
		r := registry[name]()
		if err := r.ValidateConfig(cfg.GetRuleSettings(name)); err != nil {
			return nil, errors.Wrapf(err, "rule %s", name)
		}
		chain.Add(r)
		zlog.Info().Msgf("upload rule enabled: %s", name)
	}

	for name := range cfg.Upload.Rules {
		if _, ok := registry[name]; !ok {
			return nil, errors.Newf("unknown upload rule: %s", name)
		}
	}

	return chain, nil
}
