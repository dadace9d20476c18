package internaldefs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	goMail "github.com/MrEthical07/goMail"
)

func TestEveryCounterExportedOnce(t *testing.T) {
	seen := map[goMail.MetricID]string{}
	for _, fam := range CounterFamilies {
		if len(fam.Series) > 1 {
			require.NotEmpty(t, fam.Label, "%s has several series but no label", fam.Name)
		}
		for _, s := range fam.Series {
			prev, dup := seen[s.ID]
			require.False(t, dup, "metric %d exported by %s and %s", s.ID, prev, fam.Name)
			seen[s.ID] = fam.Name
		}
	}

	snap := goMail.NewMetrics(goMail.MetricsConfig{Enabled: true}).Snapshot()
	for id := range snap.Counters {
		assert.Contains(t, seen, id, "counter %d has no exporter definition", id)
	}
}

func TestCumulativeBuckets(t *testing.T) {
	got := CumulativeBuckets(NormalizeBuckets([]uint64{1, 2, 3}))
	assert.Equal(t, [BucketCount]uint64{1, 3, 6, 6, 6, 6, 6, 6}, got)
	assert.Len(t, HistogramBounds, BucketCount)
}
