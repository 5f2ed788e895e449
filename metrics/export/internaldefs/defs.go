package internaldefs

import (
	"github.com/MrEthical07/storegate"
)

// CounterDef names one counter for every exporter.
type CounterDef struct {
	ID   storegate.MetricID
	Name string
	Help string
}

// HistogramDef names one latency histogram for every exporter.
type HistogramDef struct {
	ID   storegate.MetricID
	Name string
	Help string
}

// CounterDefs lists the exported counters in render order.
var CounterDefs = []CounterDef{
	{ID: storegate.MetricLoginSuccess, Name: "storegate_login_success_total", Help: "Successful sign-ins."},
	{ID: storegate.MetricLoginFailure, Name: "storegate_login_failure_total", Help: "Failed sign-ins."},
	{ID: storegate.MetricLogout, Name: "storegate_logout_total", Help: "Local logouts."},
	{ID: storegate.MetricRegister, Name: "storegate_register_total", Help: "Account registrations."},
	{ID: storegate.MetricVerifySuccess, Name: "storegate_verify_success_total", Help: "Successful account verifications."},
	{ID: storegate.MetricVerifyFailure, Name: "storegate_verify_failure_total", Help: "Failed account verifications."},
	{ID: storegate.MetricRefreshSuccess, Name: "storegate_refresh_success_total", Help: "Successful client refresh exchanges."},
	{ID: storegate.MetricRefreshFailure, Name: "storegate_refresh_failure_total", Help: "Refresh exchanges rejected by the backend."},
	{ID: storegate.MetricRefreshNetworkFailure, Name: "storegate_refresh_network_failure_total", Help: "Refresh exchanges that never reached the backend."},
	{ID: storegate.MetricPasswordResetRequest, Name: "storegate_password_reset_request_total", Help: "Password reset requests."},
	{ID: storegate.MetricPasswordResetConfirm, Name: "storegate_password_reset_confirm_total", Help: "Password reset confirmations."},
	{ID: storegate.MetricPasswordChange, Name: "storegate_password_change_total", Help: "Password changes."},
	{ID: storegate.MetricProfileUpdate, Name: "storegate_profile_update_total", Help: "Profile updates."},
	{ID: storegate.MetricLogoutAll, Name: "storegate_logout_all_total", Help: "Logout-all-sessions operations."},
	{ID: storegate.MetricSessionRevoked, Name: "storegate_session_revoked_total", Help: "Revoked backend sessions."},
	{ID: storegate.MetricRehydrateRestored, Name: "storegate_rehydrate_restored_total", Help: "Sessions restored from the store."},
	{ID: storegate.MetricCorruptState, Name: "storegate_corrupt_state_total", Help: "Corrupt stored sessions discarded."},
	{ID: storegate.MetricOperationPending, Name: "storegate_operation_pending_total", Help: "Operations refused while another was in flight."},
	{ID: storegate.MetricBearerRetry, Name: "storegate_bearer_retry_total", Help: "Authenticated calls retried after a refresh."},
	{ID: storegate.MetricNavigationRedirect, Name: "storegate_navigation_redirect_total", Help: "Client navigations redirected by the guard."},
	{ID: storegate.MetricGateAllow, Name: "storegate_gate_allow_total", Help: "Gate requests forwarded with an identity."},
	{ID: storegate.MetricGatePublic, Name: "storegate_gate_public_total", Help: "Gate requests to public routes."},
	{ID: storegate.MetricGateRedirectSignIn, Name: "storegate_gate_redirect_sign_in_total", Help: "Gate requests sent to sign-in."},
	{ID: storegate.MetricGateRedirectHome, Name: "storegate_gate_redirect_home_total", Help: "Gate requests sent home for lack of permission."},
	{ID: storegate.MetricGateInvalidToken, Name: "storegate_gate_invalid_token_total", Help: "Gate requests carrying an invalid or expired token."},
	{ID: storegate.MetricGateRefreshSuccess, Name: "storegate_gate_refresh_success_total", Help: "Gate refresh exchanges performed."},
	{ID: storegate.MetricGateRefreshFailure, Name: "storegate_gate_refresh_failure_total", Help: "Gate refresh exchanges that failed."},
	{ID: storegate.MetricGateRefreshShared, Name: "storegate_gate_refresh_shared_total", Help: "Gate requests that reused another request's refresh."},
	{ID: storegate.MetricGatePathRewrite, Name: "storegate_gate_path_rewrite_total", Help: "Gate requests whose path was normalized."},
	{ID: storegate.MetricGatePanicRecovered, Name: "storegate_gate_panic_recovered_total", Help: "Gate evaluations that panicked."},
}

// HistogramDefs lists the exported latency histograms.
var HistogramDefs = []HistogramDef{
	{ID: storegate.MetricBackendLatency, Name: "storegate_backend_latency_seconds", Help: "Backend round trip latency of the session manager."},
	{ID: storegate.MetricGateLatency, Name: "storegate_gate_latency_seconds", Help: "Edge gate evaluation latency."},
}

// HistogramBounds are the upper bounds of the first seven buckets in
// seconds. The eighth bucket is +Inf.
var HistogramBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix names each bucket, +Inf included, for exporters that
// flatten histograms into gauges.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// AuditDroppedName is the counter of audit events lost to backpressure.
const AuditDroppedName = "storegate_audit_dropped_total"

// NormalizeBuckets copies raw into a fixed eight-bucket array.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}

// MetricsOnly adapts a bare *storegate.Metrics, as held by the edge gate,
// to the exporters' source interface. It never reports dropped audit events.
type MetricsOnly struct {
	Metrics *storegate.Metrics
}

func (m MetricsOnly) MetricsSnapshot() storegate.MetricsSnapshot { return m.Metrics.Snapshot() }

func (m MetricsOnly) AuditDropped() uint64 { return 0 }
