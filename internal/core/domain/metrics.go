package domain

// MetricPoint is one aggregated telemetry value, keyed by metric name and
// attribute set.
type MetricPoint struct {
	Name       string
	Attributes map[string]string

	// Value is the counter total, or the sum of observations for a histogram.
	Value float64

	// Count is the number of histogram observations; zero for counters.
	Count uint64
}
