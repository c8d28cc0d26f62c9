package cards

import (
	"time"

	"github.com/okian/boxskill/pkg/logger"
)

// Option applies a configuration option to the Formatter.
type Option func(*Formatter)

// WithClock sets the time source used for created_at.
func WithClock(now func() time.Time) Option {
	return func(f *Formatter) {
		if now != nil {
			f.now = now
		}
	}
}

// WithSkillID overrides the skill id written into each card.
func WithSkillID(id string) Option {
	return func(f *Formatter) {
		if id != "" {
			f.skillID = id
		}
	}
}

// WithLogger sets the logger used for per-entry warnings.
func WithLogger(l logger.Logger) Option {
	return func(f *Formatter) {
		if l != nil {
			f.logger = l
		}
	}
}
