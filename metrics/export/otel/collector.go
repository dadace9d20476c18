package otel

import (
	"context"
	"encoding/json"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

const meterName = "github.com/MrEthical07/goMail"

// Collector owns a private meter provider with a manual reader, so the
// exported instruments can be inspected over HTTP without an OTLP backend.
type Collector struct {
	reader   *sdkmetric.ManualReader
	provider *sdkmetric.MeterProvider
	exporter *Exporter
}

// Point is one collected data point.
type Point struct {
	Attributes map[string]string `json:"attributes,omitempty"`
	Value      int64             `json:"value"`
}

// Instrument is one collected instrument with its points.
type Instrument struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Kind        string  `json:"kind"`
	Points      []Point `json:"points"`
}

func NewCollector(source Source) (*Collector, error) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	exp, err := New(provider.Meter(meterName), source)
	if err != nil {
		_ = provider.Shutdown(context.Background())
		return nil, err
	}

	return &Collector{reader: reader, provider: provider, exporter: exp}, nil
}

// Collect runs one collection cycle and flattens the result.
func (c *Collector) Collect(ctx context.Context) ([]Instrument, error) {
	var rm metricdata.ResourceMetrics
	if err := c.reader.Collect(ctx, &rm); err != nil {
		return nil, err
	}

	out := make([]Instrument, 0, 16)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			ins := Instrument{Name: m.Name, Description: m.Description}
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				ins.Kind = "counter"
				for _, dp := range data.DataPoints {
					ins.Points = append(ins.Points, Point{Attributes: attrMap(dp.Attributes), Value: dp.Value})
				}
			case metricdata.Gauge[int64]:
				ins.Kind = "gauge"
				for _, dp := range data.DataPoints {
					ins.Points = append(ins.Points, Point{Attributes: attrMap(dp.Attributes), Value: dp.Value})
				}
			default:
				continue
			}
			out = append(out, ins)
		}
	}

	return out, nil
}

// Handler serves the collected instruments as JSON.
func (c *Collector) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		instruments, err := c.Collect(r.Context())
		if err != nil {
			http.Error(w, "collect failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"instruments": instruments})
	})
}

func (c *Collector) Shutdown(ctx context.Context) error {
	if c == nil {
		return nil
	}
	_ = c.exporter.Close()
	return c.provider.Shutdown(ctx)
}

func attrMap(set attribute.Set) map[string]string {
	if set.Len() == 0 {
		return nil
	}
	out := make(map[string]string, set.Len())
	iter := set.Iter()
	for iter.Next() {
		kv := iter.Attribute()
		out[string(kv.Key)] = kv.Value.Emit()
	}
	return out
}
