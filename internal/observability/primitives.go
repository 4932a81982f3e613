package observability

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Prometheus text exposition for the handful of metric kinds we export.
// Series within a family are written in label order so scrapes diff cleanly.

type family struct {
	name   string
	help   string
	kind   string
	labels []string
}

func (f family) header(w io.Writer) error {
	_, err := fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n", f.name, f.help, f.name, f.kind)
	return err
}

// series stores one float per label combination. Counters and gauges,
// labeled or not, are views over it.
type series struct {
	family
	mu   sync.RWMutex
	vals map[string]float64
}

func newSeries(name, help, kind string, labels []string) *series {
	return &series{family: family{name: name, help: help, kind: kind, labels: labels}, vals: map[string]float64{}}
}

func (s *series) update(values []string, fn func(float64) float64) {
	key := labelString(s.labels, values)
	s.mu.Lock()
	s.vals[key] = fn(s.vals[key])
	s.mu.Unlock()
}

func (s *series) get(values []string) float64 {
	key := labelString(s.labels, values)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.vals[key]
}

func (s *series) write(w io.Writer) error {
	if err := s.header(w); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.labels) == 0 && len(s.vals) == 0 {
		_, err := fmt.Fprintf(w, "%s 0\n", s.name)
		return err
	}
	for _, k := range sortedKeys(s.vals) {
		if _, err := fmt.Fprintf(w, "%s%s %s\n", s.name, k, formatFloat(s.vals[k])); err != nil {
			return err
		}
	}
	return nil
}

type CounterVec struct{ s *series }

func NewCounterVec(name, help string, labels []string) *CounterVec {
	return &CounterVec{s: newSeries(name, help, "counter", labels)}
}

func (c *CounterVec) Inc(values ...string) { c.Add(1, values...) }

func (c *CounterVec) Add(v float64, values ...string) {
	if c == nil || v < 0 {
		return
	}
	c.s.update(values, func(cur float64) float64 { return cur + v })
}

func (c *CounterVec) Value(values ...string) float64 {
	if c == nil {
		return 0
	}
	return c.s.get(values)
}

func (c *CounterVec) WritePrometheus(w io.Writer) error {
	if c == nil {
		return nil
	}
	return c.s.write(w)
}

// Counter is a CounterVec without labels.
type Counter struct{ vec *CounterVec }

func NewCounter(name, help string) *Counter {
	return &Counter{vec: NewCounterVec(name, help, nil)}
}

func (c *Counter) Inc() {
	if c != nil {
		c.vec.Inc()
	}
}

func (c *Counter) Add(v float64) {
	if c != nil {
		c.vec.Add(v)
	}
}

func (c *Counter) Value() float64 {
	if c == nil {
		return 0
	}
	return c.vec.Value()
}

func (c *Counter) WritePrometheus(w io.Writer) error {
	if c == nil {
		return nil
	}
	return c.vec.WritePrometheus(w)
}

type GaugeVec struct{ s *series }

func NewGaugeVec(name, help string, labels []string) *GaugeVec {
	return &GaugeVec{s: newSeries(name, help, "gauge", labels)}
}

func (g *GaugeVec) Set(v float64, values ...string) {
	if g == nil {
		return
	}
	g.s.update(values, func(float64) float64 { return v })
}

func (g *GaugeVec) Add(v float64, values ...string) {
	if g == nil {
		return
	}
	g.s.update(values, func(cur float64) float64 { return cur + v })
}

func (g *GaugeVec) Value(values ...string) float64 {
	if g == nil {
		return 0
	}
	return g.s.get(values)
}

func (g *GaugeVec) WritePrometheus(w io.Writer) error {
	if g == nil {
		return nil
	}
	return g.s.write(w)
}

type Gauge struct{ vec *GaugeVec }

func NewGauge(name, help string) *Gauge {
	return &Gauge{vec: NewGaugeVec(name, help, nil)}
}

func (g *Gauge) Set(v float64) {
	if g != nil {
		g.vec.Set(v)
	}
}

func (g *Gauge) Inc() {
	if g != nil {
		g.vec.Add(1)
	}
}

func (g *Gauge) Dec() {
	if g != nil {
		g.vec.Add(-1)
	}
}

func (g *Gauge) Value() float64 {
	if g == nil {
		return 0
	}
	return g.vec.Value()
}

func (g *Gauge) WritePrometheus(w io.Writer) error {
	if g == nil {
		return nil
	}
	return g.vec.WritePrometheus(w)
}

var defaultLatencyBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5}

type HistogramVec struct {
	family
	bounds []float64
	mu     sync.Mutex
	dists  map[string]*distribution
}

// distribution keeps non-cumulative bucket counts; the last slot is +Inf.
type distribution struct {
	counts []uint64
	sum    float64
	n      uint64
}

func NewHistogramVec(name, help string, labels []string, buckets []float64) *HistogramVec {
	if len(buckets) == 0 {
		buckets = defaultLatencyBuckets
	}
	bounds := append([]float64(nil), buckets...)
	sort.Float64s(bounds)
	return &HistogramVec{
		family: family{name: name, help: help, kind: "histogram", labels: labels},
		bounds: bounds,
		dists:  map[string]*distribution{},
	}
}

func (h *HistogramVec) Observe(v float64, values ...string) {
	if h == nil {
		return
	}
	key := labelString(h.labels, values)
	slot := sort.SearchFloat64s(h.bounds, v)
	h.mu.Lock()
	defer h.mu.Unlock()
	d := h.dists[key]
	if d == nil {
		d = &distribution{counts: make([]uint64, len(h.bounds)+1)}
		h.dists[key] = d
	}
	d.counts[slot]++
	d.sum += v
	d.n++
}

func (h *HistogramVec) WritePrometheus(w io.Writer) error {
	if h == nil {
		return nil
	}
	if err := h.header(w); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, k := range sortedKeys(h.dists) {
		d := h.dists[k]
		var cum uint64
		for i, bound := range h.bounds {
			cum += d.counts[i]
			if _, err := fmt.Fprintf(w, "%s_bucket%s %d\n", h.name, withLe(k, formatFloat(bound)), cum); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "%s_bucket%s %d\n%s_sum%s %s\n%s_count%s %d\n",
			h.name, withLe(k, "+Inf"), d.n,
			h.name, k, formatFloat(d.sum),
			h.name, k, d.n,
		); err != nil {
			return err
		}
	}
	return nil
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

// labelString renders {a="x",b="y"}; missing values become "unknown".
func labelString(names, values []string) string {
	if len(names) == 0 {
		return ""
	}
	parts := make([]string, len(names))
	for i, name := range names {
		val := "unknown"
		if i < len(values) {
			val = values[i]
		}
		parts[i] = name + "=" + strconv.Quote(val)
	}
	return "{" + strings.Join(parts, ",") + "}"
}

func withLe(labels, le string) string {
	pair := "le=" + strconv.Quote(le)
	if labels == "" {
		return "{" + pair + "}"
	}
	return strings.TrimSuffix(labels, "}") + "," + pair + "}"
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
