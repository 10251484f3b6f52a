package authcore

import "sync/atomic"

// MetricID identifies one engine counter.
type MetricID uint16

const (
	// MetricRegisterSuccess counts completed registrations.
	MetricRegisterSuccess MetricID = iota
	// MetricRegisterDuplicate counts registrations rejected for an existing email.
	MetricRegisterDuplicate
	// MetricLoginSuccess counts logins that produced a session.
	MetricLoginSuccess
	// MetricLoginFailure counts rejected credential checks.
	MetricLoginFailure
	// MetricLoginMFARequired counts logins deferred to the MFA challenge.
	MetricLoginMFARequired
	// MetricMFALoginSuccess counts completed MFA login challenges.
	MetricMFALoginSuccess
	// MetricMFALoginFailure counts failed MFA login challenges.
	MetricMFALoginFailure
	// MetricRefreshSuccess counts refreshes that minted a new access token.
	MetricRefreshSuccess
	// MetricRefreshRotated counts refreshes that also extended the session.
	MetricRefreshRotated
	// MetricRefreshFailure counts rejected refreshes.
	MetricRefreshFailure
	// MetricLogout counts single-session logouts.
	MetricLogout
	// MetricEmailVerified counts consumed email verification codes.
	MetricEmailVerified
	// MetricEmailVerificationFailure counts rejected email verifications.
	MetricEmailVerificationFailure
	// MetricPasswordResetRequested counts issued reset codes.
	MetricPasswordResetRequested
	// MetricPasswordResetRateLimited counts reset requests over the window limit.
	MetricPasswordResetRateLimited
	// MetricPasswordResetSuccess counts completed password resets.
	MetricPasswordResetSuccess
	// MetricPasswordResetFailure counts rejected password resets.
	MetricPasswordResetFailure
	// MetricMFASetupGenerated counts issued enrollment secrets.
	MetricMFASetupGenerated
	// MetricMFAEnabled counts completed enrollments.
	MetricMFAEnabled
	// MetricMFARevoked counts MFA revocations.
	MetricMFARevoked
	// MetricSessionCreated counts sessions created by any flow.
	MetricSessionCreated
	// MetricSessionInvalidated counts sessions deleted by any flow.
	MetricSessionInvalidated
	metricIDCount
)

const cacheLineSize = 64

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics is a fixed set of atomic counters, one per MetricID. A disabled
// Metrics is inert and costs one branch per increment.
type Metrics struct {
	enabled  bool
	counters [metricIDCount]paddedCounter
}

// MetricsSnapshot is a point-in-time copy of every counter.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

// NewMetrics builds the counter set.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

// Enabled reports whether counters are being recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// Inc adds one to the counter for id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Value reads a single counter.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter into a fresh map.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}

	s := MetricsSnapshot{Counters: make(map[MetricID]uint64, int(metricIDCount))}
	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}
	return s
}
