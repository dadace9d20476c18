// Package internaldefs holds the metric names, labels and bucket bounds shared
// by the Prometheus and OTel exporters, so both publish identical series.
package internaldefs
