// Package prometheus exposes goMail engine metrics in the Prometheus text
// format without pulling in the Prometheus client library.
//
// Counters are grouped into labelled families, for example
//
//	gomail_login_total{result="failure"} 3
//	gomail_gate_requests_total{result="expired_token"} 1
//
// Mount [Exporter.Handler] on an admin listener, never on the public router.
package prometheus
