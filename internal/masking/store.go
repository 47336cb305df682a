package masking

import (
	"errors"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/magiconair/properties"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Source is a flat key/value rule configuration.
// Keys must be returned in the order they were defined.
// *properties.Properties satisfies it.
type Source interface {
	Keys() []string
	Get(key string) (string, bool)
}

// ParseRules builds rules from src.
//
// Each rule R is defined by up to three keys: R (outer pattern), R.REPLACE
// (sub-pattern) and R.REPLACER (replacement, default "*"). Rules without a
// .REPLACE entry or with a pattern that does not compile are dropped. The
// returned error combines one *RulePatternError per dropped rule and is
// never a reason to discard the returned rules.
func ParseRules(src Source, opts Options) (Rules, error) {
	if src == nil {
		return nil, nil
	}

	var (
		rules Rules
		errs  error
	)
	for _, key := range src.Keys() {
		if key == "" || isAttributeKey(key) {
			continue
		}

		matchPattern, _ := src.Get(key)
		subPattern, ok := src.Get(key + SubPatternSuffix)
		if !ok {
			errs = multierr.Append(errs, &RulePatternError{
				RuleID: key,
				Key:    key + SubPatternSuffix,
				Err:    ErrMissingSubPattern,
			})
			continue
		}
		replacement, ok := src.Get(key + ReplacementSuffix)
		if !ok {
			replacement = opts.replacement()
		}

		rule, err := NewRule(key, matchPattern, subPattern, replacement, opts)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		rules = append(rules, rule)
	}
	return rules, errs
}

func isAttributeKey(key string) bool {
	return strings.HasSuffix(key, SubPatternSuffix) || strings.HasSuffix(key, ReplacementSuffix)
}

// LoadBytes parses rules from properties file content.
// ${...} expansion is disabled so replacements like ${1} reach the regex engine.
func LoadBytes(content []byte, opts Options) (Rules, error) {
	loader := &properties.Loader{
		Encoding:         properties.UTF8,
		DisableExpansion: true,
	}
	props, err := loader.LoadBytes(content)
	if err != nil {
		return nil, err
	}
	return ParseRules(props, opts)
}

// LoadFile reads rules from the properties file at path.
// A missing or unparsable file yields no rules and a *ConfigLoadError.
func LoadFile(path string, opts Options) (Rules, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigLoadError{Path: path, Err: err}
	}

	rules, err := LoadBytes(content, opts)
	if err != nil && rules == nil && !isRuleError(err) {
		return nil, &ConfigLoadError{Path: path, Err: err}
	}
	return rules, err
}

func isRuleError(err error) bool {
	for _, e := range multierr.Errors(err) {
		var rpe *RulePatternError
		if !errors.As(e, &rpe) {
			return false
		}
	}
	return true
}

// Store loads rules from a file once and hands the same list to every caller.
type Store struct {
	path     string
	opts     Options
	settings settings

	once  sync.Once
	rules Rules
	err   error
}

// NewStore creates a store for the rules file at path. Nothing is read until
// the first call to Rules.
func NewStore(path string, opts Options, options ...Option) *Store {
	return &Store{
		path:     path,
		opts:     opts,
		settings: newSettings(options),
	}
}

// Path returns the rules file path.
func (s *Store) Path() string {
	return s.path
}

// Rules returns the loaded rules, loading them on first use.
// The result may be empty, in which case masking is disabled.
func (s *Store) Rules() Rules {
	s.once.Do(s.load)
	return slices.Clone(s.rules)
}

// Err returns the errors collected while loading, loading first if needed.
func (s *Store) Err() error {
	s.once.Do(s.load)
	return s.err
}

// Engine builds an Engine over the store's rules.
func (s *Store) Engine(options ...Option) *Engine {
	opts := append([]Option{WithLogger(s.settings.logger), WithMetrics(s.settings.metrics)}, options...)
	return NewEngine(s.Rules(), opts...)
}

func (s *Store) load() {
	logger := s.settings.logger.With(zap.String("path", s.path))

	s.rules, s.err = LoadFile(s.path, s.opts)

	var cle *ConfigLoadError
	if errors.As(s.err, &cle) {
		if cle.NotFound() {
			logger.Warn("masking rules file not found, masking disabled")
		} else {
			logger.Warn("failed to load masking rules, masking disabled", zap.Error(cle.Err))
		}
		s.settings.metrics.setRulesLoaded(0)
		return
	}

	for _, err := range multierr.Errors(s.err) {
		var rpe *RulePatternError
		if errors.As(err, &rpe) {
			logger.Warn("dropped masking rule",
				zap.String("rule", rpe.RuleID),
				zap.String("key", rpe.Key),
				zap.Error(rpe.Err),
			)
			s.settings.metrics.observeRuleError(rpe.RuleID, errorKindPattern)
		}
	}

	s.settings.metrics.setRulesLoaded(len(s.rules))
	if len(s.rules) == 0 {
		logger.Warn("no valid masking rules, masking disabled")
		return
	}
	logger.Info("masking rules loaded",
		zap.Int("rules", len(s.rules)),
		zap.Strings("ids", s.rules.IDs()),
	)
}
