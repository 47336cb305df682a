package masking

import (
	"time"

	"github.com/dlclark/regexp2"
	"go.uber.org/zap"
)

const (
	// DefaultReplacement is used when a rule has no .REPLACER entry.
	DefaultReplacement = "*"

	// DefaultMatchTimeout bounds a single regex evaluation.
	DefaultMatchTimeout = 100 * time.Millisecond

	// SubPatternSuffix marks the key holding a rule's sub-pattern.
	SubPatternSuffix = ".REPLACE"

	// ReplacementSuffix marks the key holding a rule's replacement.
	ReplacementSuffix = ".REPLACER"
)

// Options controls how rule patterns are compiled.
type Options struct {
	// MatchTimeout bounds each regex evaluation (0 disables the check).
	MatchTimeout time.Duration

	// DefaultReplacement replaces a missing .REPLACER entry (default: "*").
	DefaultReplacement string

	// RegexOptions are passed to regexp2.Compile for every pattern.
	RegexOptions regexp2.RegexOptions
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{
		MatchTimeout:       DefaultMatchTimeout,
		DefaultReplacement: DefaultReplacement,
		RegexOptions:       regexp2.None,
	}
}

func (o Options) replacement() string {
	if o.DefaultReplacement == "" {
		return DefaultReplacement
	}
	return o.DefaultReplacement
}

// Option configures a Store or an Engine.
type Option func(*settings)

type settings struct {
	logger  *zap.Logger
	metrics *Metrics
}

func newSettings(opts []Option) settings {
	s := settings{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// WithLogger sets the logger receiving masking diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics records load and masking counters on m.
func WithMetrics(m *Metrics) Option {
	return func(s *settings) {
		s.metrics = m
	}
}
