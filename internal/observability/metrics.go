package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters for the HTTP surface and the
// automation engine. All methods are safe on a nil receiver.
type Metrics struct {
	mu            sync.Mutex
	requestCount  map[string]int64
	errorCount    map[string]int64
	triggerCount  map[string]int64
	ruleSuccesses int64
	ruleFailures  int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount: make(map[string]int64),
		errorCount:   make(map[string]int64),
		triggerCount: make(map[string]int64),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// RecordTriggerFired counts automation trigger firings by trigger name.
func (m *Metrics) RecordTriggerFired(trigger string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.triggerCount[trigger]++
}

// RecordRuleOutcome counts per-rule evaluation outcomes.
func (m *Metrics) RecordRuleOutcome(success bool) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if success {
		m.ruleSuccesses++
	} else {
		m.ruleFailures++
	}
}

// RuleOutcomes returns success and failure totals.
func (m *Metrics) RuleOutcomes() (successes, failures int64) {
	if m == nil {
		return 0, 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ruleSuccesses, m.ruleFailures
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
