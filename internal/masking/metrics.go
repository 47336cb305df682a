package masking

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	errorKindPattern = "pattern"
	errorKindApply   = "apply"
)

// Metrics holds Prometheus metrics for rule loading and masking.
// A nil *Metrics records nothing.
type Metrics struct {
	MessagesTotal    prometheus.Counter
	SpansMaskedTotal *prometheus.CounterVec
	RuleErrorsTotal  *prometheus.CounterVec
	RulesLoaded      prometheus.Gauge
}

// NewMetrics creates masking metrics and registers them with reg.
//
// Metrics:
//   - logmask_messages_total - messages passed through an enabled engine
//   - logmask_spans_masked_total{rule} - outer spans rewritten per rule
//   - logmask_rule_errors_total{rule,kind} - dropped (pattern) or skipped (apply) rules
//   - logmask_rules_loaded - rules in the most recent load
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		MessagesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "logmask_messages_total",
			Help: "Total number of messages passed through masking rules",
		}),
		SpansMaskedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "logmask_spans_masked_total",
				Help: "Total number of matched spans rewritten, by rule",
			},
			[]string{"rule"},
		),
		RuleErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "logmask_rule_errors_total",
				Help: "Total number of rule failures, by rule and kind",
			},
			[]string{"rule", "kind"}, // kind: "pattern" or "apply"
		),
		RulesLoaded: factory.NewGauge(prometheus.GaugeOpts{
			Name: "logmask_rules_loaded",
			Help: "Number of masking rules currently loaded",
		}),
	}
}

func (m *Metrics) observeMessage() {
	if m == nil {
		return
	}
	m.MessagesTotal.Inc()
}

func (m *Metrics) observeSpans(rule string, n int) {
	if m == nil {
		return
	}
	m.SpansMaskedTotal.WithLabelValues(rule).Add(float64(n))
}

func (m *Metrics) observeRuleError(rule, kind string) {
	if m == nil {
		return
	}
	m.RuleErrorsTotal.WithLabelValues(rule, kind).Inc()
}

func (m *Metrics) setRulesLoaded(n int) {
	if m == nil {
		return
	}
	m.RulesLoaded.Set(float64(n))
}
