package masking

import (
	"strings"

	"github.com/dlclark/regexp2"
)

// Rule masks one category of secret.
//
// Match finds the outer span. Sub is applied only inside that span and every
// Sub match is replaced with the replacement, which may use $1 or ${name}.
type Rule struct {
	id          string
	match       *regexp2.Regexp
	sub         *regexp2.Regexp
	replacement string
}

// NewRule compiles a rule. The key reported in a RulePatternError is the
// properties key the pattern would be read from.
func NewRule(id, matchPattern, subPattern, replacement string, opts Options) (Rule, error) {
	match, err := compile(id, id, matchPattern, opts)
	if err != nil {
		return Rule{}, err
	}
	sub, err := compile(id, id+SubPatternSuffix, subPattern, opts)
	if err != nil {
		return Rule{}, err
	}
	return Rule{
		id:          id,
		match:       match,
		sub:         sub,
		replacement: replacement,
	}, nil
}

func compile(id, key, pattern string, opts Options) (*regexp2.Regexp, error) {
	if strings.TrimSpace(pattern) == "" {
		return nil, &RulePatternError{RuleID: id, Key: key, Err: ErrEmptyPattern}
	}
	re, err := regexp2.Compile(pattern, opts.RegexOptions)
	if err != nil {
		return nil, &RulePatternError{RuleID: id, Key: key, Err: err}
	}
	if opts.MatchTimeout > 0 {
		re.MatchTimeout = opts.MatchTimeout
	}
	return re, nil
}

// ID returns the configuration key root of the rule.
func (r Rule) ID() string { return r.id }

// MatchPattern returns the outer pattern source.
func (r Rule) MatchPattern() string { return r.match.String() }

// SubPattern returns the sub-pattern source.
func (r Rule) SubPattern() string { return r.sub.String() }

// Replacement returns the replacement applied to sub-pattern matches.
func (r Rule) Replacement() string { return r.replacement }

// apply rewrites every outer span of message and returns the new message and
// the number of spans that changed. On error the message is returned as is.
// Bytes outside the rewritten spans are copied from message unchanged, even
// when they are not valid UTF-8.
func (r Rule) apply(message string) (string, int, error) {
	m, err := r.match.FindStringMatch(message)
	if err != nil || m == nil {
		return message, 0, err
	}

	offsets := runeOffsets(message)
	var sb strings.Builder
	sb.Grow(len(message))

	last, changed := 0, 0
	for m != nil {
		start, end := offsets[m.Index], offsets[m.Index+m.Length]

		// regexp2 decodes invalid bytes to U+FFFD, so a span counts as
		// changed only when the sub-pattern rewrote its decoded text.
		span := m.String()
		masked, err := r.sub.Replace(span, r.replacement, -1, -1)
		if err != nil {
			return message, 0, err
		}

		sb.WriteString(message[last:start])
		if masked == span {
			sb.WriteString(message[start:end])
		} else {
			sb.WriteString(masked)
			changed++
		}
		last = end

		m, err = r.match.FindNextMatch(m)
		if err != nil {
			return message, 0, err
		}
	}
	sb.WriteString(message[last:])

	return sb.String(), changed, nil
}

// runeOffsets maps the rune positions regexp2 reports to byte offsets in s.
// Each invalid byte counts as one rune, as in a []rune conversion.
func runeOffsets(s string) []int {
	offsets := make([]int, 0, len(s)+1)
	for i := range s {
		offsets = append(offsets, i)
	}
	return append(offsets, len(s))
}

// Rules is an ordered list of rules. Order is significant: each rule sees
// the output of the rules before it.
type Rules []Rule

// IDs returns the rule IDs in application order.
func (rs Rules) IDs() []string {
	ids := make([]string, 0, len(rs))
	for _, r := range rs {
		ids = append(ids, r.id)
	}
	return ids
}
