package masking

import (
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"
)

// Engine applies an ordered rule list to log messages.
// It holds no mutable state and is safe for concurrent use.
type Engine struct {
	rules    Rules
	settings settings
}

// NewEngine creates an engine over rules. An empty list makes Mask the
// identity function.
func NewEngine(rules Rules, options ...Option) *Engine {
	return &Engine{
		rules:    slices.Clone(rules),
		settings: newSettings(options),
	}
}

// Enabled reports whether any rule is loaded.
func (e *Engine) Enabled() bool {
	return len(e.rules) > 0
}

// Rules returns a copy of the engine's rules.
func (e *Engine) Rules() Rules {
	return slices.Clone(e.rules)
}

// Mask returns message with every configured secret redacted.
// A rule that fails on this message is skipped and logged; Mask itself never
// fails.
func (e *Engine) Mask(message string) string {
	return e.mask(message, nil)
}

// MaskResult masks message and reports what each rule did.
func (e *Engine) MaskResult(message string) *Result {
	start := time.Now()
	result := &Result{
		Original: message,
		ByRule:   make(map[string]int),
	}
	result.Masked = e.mask(message, result)
	result.Duration = time.Since(start)
	return result
}

func (e *Engine) mask(message string, result *Result) string {
	if len(e.rules) == 0 {
		return message
	}
	e.settings.metrics.observeMessage()

	for _, rule := range e.rules {
		masked, changed, err := e.apply(rule, message)
		if err != nil {
			e.reportApplyError(err)
			if result != nil {
				result.Skipped = append(result.Skipped, rule.id)
			}
			continue
		}
		if changed > 0 {
			e.settings.metrics.observeSpans(rule.id, changed)
			if result != nil {
				result.ByRule[rule.id] += changed
				result.TotalSpans += changed
			}
		}
		message = masked
	}
	return message
}

// apply runs one rule, converting failures and panics into an *ApplyError.
func (e *Engine) apply(rule Rule, message string) (masked string, changed int, err error) {
	defer func() {
		if r := recover(); r != nil {
			masked, changed = message, 0
			err = newApplyError(rule.id, fmt.Errorf("panic: %v", r))
		}
	}()

	masked, changed, err = rule.apply(message)
	if err != nil {
		return message, 0, newApplyError(rule.id, err)
	}
	return masked, changed, nil
}

func (e *Engine) reportApplyError(err error) {
	ae, ok := err.(*ApplyError)
	if !ok {
		return
	}
	e.settings.logger.Warn("masking rule skipped for message",
		zap.String("rule", ae.RuleID),
		zap.Bool("timeout", ae.Timeout()),
	)
	e.settings.metrics.observeRuleError(ae.RuleID, errorKindApply)
}
