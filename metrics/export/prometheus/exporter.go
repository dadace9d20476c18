package prometheus

import (
	"net/http"
	"strconv"
	"strings"

	goMail "github.com/MrEthical07/goMail"
	"github.com/MrEthical07/goMail/metrics/export/internaldefs"
)

// Source is what the exporter reads on every scrape. *goMail.Engine satisfies it.
type Source interface {
	MetricsSnapshot() goMail.MetricsSnapshot
	AuditDropped() uint64
}

const contentType = "text/plain; version=0.0.4; charset=utf-8"

// Exporter renders engine metrics in the Prometheus text exposition format.
type Exporter struct {
	source Source
}

func New(source Source) *Exporter {
	return &Exporter{source: source}
}

// Handler serves the current metrics. Nothing is cached between scrapes.
func (p *Exporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", contentType)
		_, _ = w.Write([]byte(p.Render()))
	})
}

// Render returns the exposition text, or "" when metrics are disabled and no
// audit event was dropped.
func (p *Exporter) Render() string {
	if p == nil || p.source == nil {
		return ""
	}

	snapshot := p.source.MetricsSnapshot()
	dropped := p.source.AuditDropped()
	if len(snapshot.Counters) == 0 && len(snapshot.Histograms) == 0 && dropped == 0 {
		return ""
	}

	var b strings.Builder
	b.Grow(4096)

	if len(snapshot.Counters) > 0 {
		for _, fam := range internaldefs.CounterFamilies {
			writeFamily(&b, fam, snapshot.Counters)
		}
	}

	for _, def := range internaldefs.HistogramDefs {
		raw, ok := snapshot.Histograms[def.ID]
		if !ok {
			continue
		}
		writeHistogram(&b, def.Name, def.Help, internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(raw)))
	}

	writeHeader(&b, "gomail_audit_dropped_total", "Audit events dropped because the queue was full.", "counter")
	writeSample(&b, "gomail_audit_dropped_total", "", dropped)

	return b.String()
}

func writeFamily(b *strings.Builder, fam internaldefs.CounterFamily, counters map[goMail.MetricID]uint64) {
	writeHeader(b, fam.Name, fam.Help, "counter")
	for _, s := range fam.Series {
		labels := ""
		if fam.Label != "" {
			labels = fam.Label + `="` + s.Value + `"`
		}
		writeSample(b, fam.Name, labels, counters[s.ID])
	}
}

func writeHistogram(b *strings.Builder, name, help string, cumulative [internaldefs.BucketCount]uint64) {
	writeHeader(b, name, help, "histogram")
	for i, le := range internaldefs.HistogramBounds {
		writeSample(b, name+"_bucket", `le="`+le+`"`, cumulative[i])
	}
	// Observations are bucketed only, so the sum is not tracked.
	b.WriteString(name)
	b.WriteString("_sum 0\n")
	writeSample(b, name+"_count", "", cumulative[internaldefs.BucketCount-1])
}

func writeHeader(b *strings.Builder, name, help, kind string) {
	b.WriteString("# HELP ")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(escapeHelp(help))
	b.WriteString("\n# TYPE ")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(kind)
	b.WriteByte('\n')
}

func writeSample(b *strings.Builder, name, labels string, v uint64) {
	b.WriteString(name)
	if labels != "" {
		b.WriteByte('{')
		b.WriteString(labels)
		b.WriteByte('}')
	}
	b.WriteByte(' ')
	b.WriteString(strconv.FormatUint(v, 10))
	b.WriteByte('\n')
}

func escapeHelp(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, "\n", `\n`)
}
