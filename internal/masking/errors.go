package masking

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
)

var (
	// ErrMissingSubPattern is reported for a rule without a .REPLACE entry.
	ErrMissingSubPattern = errors.New("missing sub-pattern")

	// ErrEmptyPattern is reported for a rule whose pattern value is blank.
	ErrEmptyPattern = errors.New("pattern is empty")
)

// ConfigLoadError reports a rules file that could not be read or parsed.
// Masking is disabled when it occurs.
type ConfigLoadError struct {
	Path string
	Err  error
}

func (e *ConfigLoadError) Error() string {
	return fmt.Sprintf("load masking rules from %s: %v", e.Path, e.Err)
}

func (e *ConfigLoadError) Unwrap() error {
	return e.Err
}

// NotFound reports whether the rules file does not exist.
func (e *ConfigLoadError) NotFound() bool {
	return errors.Is(e.Err, fs.ErrNotExist)
}

// RulePatternError reports a rule dropped at load time.
type RulePatternError struct {
	RuleID string
	// Key is the configuration key holding the bad value.
	Key string
	Err error
}

func (e *RulePatternError) Error() string {
	return fmt.Sprintf("rule %q: invalid %s: %v", e.RuleID, e.Key, e.Err)
}

func (e *RulePatternError) Unwrap() error {
	return e.Err
}

// ApplyError reports a rule that failed while masking one message.
// The message text is never part of Error(), since regexp2 timeout errors
// embed the input they were matching.
type ApplyError struct {
	RuleID string
	Err    error

	timeout bool
}

func newApplyError(ruleID string, err error) *ApplyError {
	return &ApplyError{RuleID: ruleID, Err: err, timeout: isMatchTimeout(err)}
}

func (e *ApplyError) Error() string {
	if e.timeout {
		return fmt.Sprintf("rule %q: match timeout", e.RuleID)
	}
	return fmt.Sprintf("rule %q: apply failed", e.RuleID)
}

func (e *ApplyError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the rule hit its match timeout.
func (e *ApplyError) Timeout() bool {
	return e.timeout
}

// isMatchTimeout reports whether err came from a regexp2 MatchTimeout.
// regexp2 has no typed timeout error; it returns fmt.Errorf("match timeout
// after %v on input `%v`"), so this depends on that wording. A change in it
// makes timeouts report as "apply failed" and nothing else.
func isMatchTimeout(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "match timeout")
}
