package internaldefs

import (
	goMail "github.com/MrEthical07/goMail"
)

// Series is one labelled value of a counter family.
type Series struct {
	ID    goMail.MetricID
	Value string
}

// CounterFamily groups related counters under one metric name. Label is
// empty for single-series families.
type CounterFamily struct {
	Name   string
	Help   string
	Label  string
	Series []Series
}

type HistogramDef struct {
	ID   goMail.MetricID
	Name string
	Help string
}

var CounterFamilies = []CounterFamily{
	{
		Name:  "gomail_signup_total",
		Help:  "Signup attempts by outcome.",
		Label: "result",
		Series: []Series{
			{ID: goMail.MetricSignupSuccess, Value: "success"},
			{ID: goMail.MetricSignupDuplicate, Value: "duplicate"},
			{ID: goMail.MetricSignupRateLimited, Value: "rate_limited"},
		},
	},
	{
		Name:  "gomail_login_total",
		Help:  "Login attempts by outcome.",
		Label: "result",
		Series: []Series{
			{ID: goMail.MetricLoginSuccess, Value: "success"},
			{ID: goMail.MetricLoginFailure, Value: "failure"},
			{ID: goMail.MetricLoginRateLimited, Value: "rate_limited"},
		},
	},
	{
		Name:   "gomail_password_rehashed_total",
		Help:   "Password hashes upgraded at login.",
		Series: []Series{{ID: goMail.MetricPasswordRehashed}},
	},
	{
		Name:  "gomail_gate_requests_total",
		Help:  "Requests to protected routes by gate decision.",
		Label: "result",
		Series: []Series{
			{ID: goMail.MetricGateAllowed, Value: "allowed"},
			{ID: goMail.MetricGateDeniedMissing, Value: "missing_token"},
			{ID: goMail.MetricGateDeniedInvalid, Value: "invalid_token"},
			{ID: goMail.MetricGateDeniedExpired, Value: "expired_token"},
		},
	},
	{
		Name:  "gomail_mail_operations_total",
		Help:  "Mailbox operations by kind.",
		Label: "op",
		Series: []Series{
			{ID: goMail.MetricMailSent, Value: "send"},
			{ID: goMail.MetricMailMarkedRead, Value: "mark_read"},
			{ID: goMail.MetricMailMarkReadMiss, Value: "mark_read_miss"},
			{ID: goMail.MetricMailboxFetched, Value: "list"},
			{ID: goMail.MetricMailExported, Value: "export"},
		},
	},
	{
		Name:   "gomail_mail_undelivered_recipients_total",
		Help:   "Recipient addresses without an account.",
		Series: []Series{{ID: goMail.MetricMailRecipientUndelivered}},
	},
}

var HistogramDefs = []HistogramDef{
	{ID: goMail.MetricGateLatency, Name: "gomail_gate_verify_seconds", Help: "Session token verification latency."},
}

// HistogramBounds are the bucket upper bounds in seconds, matching the
// millisecond buckets of goMail.Metrics.
var HistogramBounds = []string{
	"0.0001",
	"0.00025",
	"0.0005",
	"0.001",
	"0.0025",
	"0.005",
	"0.01",
	"+Inf",
}

const BucketCount = 8

// NormalizeBuckets copies raw into a fixed-size array, zero-filling short input.
func NormalizeBuckets(raw []uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	copy(out[:], raw)
	return out
}

func CumulativeBuckets(raw [BucketCount]uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	var running uint64
	for i, v := range raw {
		running += v
		out[i] = running
	}
	return out
}
