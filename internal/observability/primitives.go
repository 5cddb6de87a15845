package observability

import (
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Prometheus text exposition for the handful of series Metrics keeps.
// Series are written in label order so scrapes diff cleanly.

type family struct {
	name   string
	help   string
	kind   string
	labels []string

	mu   sync.Mutex
	vals map[string]float64
}

func newCounter(name, help string, labels ...string) *family {
	return &family{name: name, help: help, kind: "counter", labels: labels, vals: map[string]float64{}}
}

func newGauge(name, help string, labels ...string) *family {
	return &family{name: name, help: help, kind: "gauge", labels: labels, vals: map[string]float64{}}
}

func (f *family) add(delta float64, values ...string) {
	key := labelSet(f.labels, values)
	f.mu.Lock()
	f.vals[key] += delta
	f.mu.Unlock()
}

func (f *family) value(values ...string) float64 {
	key := labelSet(f.labels, values)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.vals[key]
}

func (f *family) WritePrometheus(w io.Writer) error {
	var b strings.Builder
	writeHeader(&b, f.name, f.help, f.kind)
	f.mu.Lock()
	keys := sortedKeys(f.vals)
	if len(f.labels) == 0 && len(keys) == 0 {
		keys = []string{""}
	}
	for _, k := range keys {
		b.WriteString(f.name + k + " " + formatFloat(f.vals[k]) + "\n")
	}
	f.mu.Unlock()
	_, err := io.WriteString(w, b.String())
	return err
}

type histogram struct {
	name   string
	help   string
	labels []string
	bounds []float64

	mu     sync.Mutex
	series map[string]*histSeries
	// labelValues keeps the raw values so bucket lines can add "le".
	labelValues map[string][]string
}

type histSeries struct {
	// le[i] counts observations <= bounds[i].
	le    []uint64
	sum   float64
	count uint64
}

func newHistogram(name, help string, bounds []float64, labels ...string) *histogram {
	return &histogram{
		name:        name,
		help:        help,
		labels:      labels,
		bounds:      bounds,
		series:      map[string]*histSeries{},
		labelValues: map[string][]string{},
	}
}

func (h *histogram) observe(v float64, values ...string) {
	key := labelSet(h.labels, values)
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.series[key]
	if !ok {
		s = &histSeries{le: make([]uint64, len(h.bounds))}
		h.series[key] = s
		h.labelValues[key] = append([]string(nil), values...)
	}
	s.sum += v
	s.count++
	for i, bound := range h.bounds {
		if v <= bound {
			s.le[i]++
		}
	}
}

func (h *histogram) WritePrometheus(w io.Writer) error {
	var b strings.Builder
	writeHeader(&b, h.name, h.help, "histogram")
	names := append(append([]string(nil), h.labels...), "le")
	h.mu.Lock()
	for _, k := range sortedKeys(h.series) {
		s := h.series[k]
		vals := append(padValues(h.labelValues[k], len(h.labels)), "")
		for i, bound := range h.bounds {
			vals[len(vals)-1] = formatFloat(bound)
			b.WriteString(h.name + "_bucket" + labelSet(names, vals) + " " + strconv.FormatUint(s.le[i], 10) + "\n")
		}
		vals[len(vals)-1] = "+Inf"
		b.WriteString(h.name + "_bucket" + labelSet(names, vals) + " " + strconv.FormatUint(s.count, 10) + "\n")
		b.WriteString(h.name + "_sum" + k + " " + formatFloat(s.sum) + "\n")
		b.WriteString(h.name + "_count" + k + " " + strconv.FormatUint(s.count, 10) + "\n")
	}
	h.mu.Unlock()
	_, err := io.WriteString(w, b.String())
	return err
}

func writeHeader(b *strings.Builder, name, help, kind string) {
	b.WriteString("# HELP " + name + " " + help + "\n")
	b.WriteString("# TYPE " + name + " " + kind + "\n")
}

// labelSet renders {a="x",b="y"}; missing values become "unknown".
func labelSet(names, values []string) string {
	if len(names) == 0 {
		return ""
	}
	values = padValues(values, len(names))
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + "=" + strconv.Quote(values[i])
	}
	return "{" + strings.Join(parts, ",") + "}"
}

func padValues(values []string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = "unknown"
		if i < len(values) {
			out[i] = values[i]
		}
	}
	return out
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
