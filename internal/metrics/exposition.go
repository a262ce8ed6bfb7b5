package metrics

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/randomizedcoder/go-fps-collector/internal/report"
)

// reportPrefix starts every metric name of an exported report.
const reportPrefix = "fps_report_"

// unitSuffix maps report units onto Prometheus-style name suffixes.
var unitSuffix = map[string]string{
	report.UnitNone:         "",
	report.UnitNanoseconds:  "_nanoseconds",
	report.UnitMilliseconds: "_milliseconds",
	report.UnitPerSecond:    "_per_second",
	report.UnitFraction:     "_ratio",
}

// splitRunKey splits "run_<i>.<kind>_<label>" into its parts.
func splitRunKey(key string) (run, kind, label string, ok bool) {
	rest, found := strings.CutPrefix(key, "run_")
	if !found {
		return "", "", "", false
	}
	run, rest, found = strings.Cut(rest, ".")
	if !found {
		return "", "", "", false
	}
	if _, err := strconv.Atoi(run); err != nil {
		return "", "", "", false
	}
	kind, label, found = strings.Cut(rest, "_")
	if !found || label == "" {
		return "", "", "", false
	}
	return run, kind, label, true
}

// ReportFamilies converts a report into gauge families. Per-loop keys share
// one family per label, distinguished by "run" and "kind" labels. Families
// are sorted by name.
func ReportFamilies(r report.Report) []*dto.MetricFamily {
	families := make(map[string]*dto.MetricFamily)

	for _, key := range r.Keys() {
		v := r[key]

		base := key
		var labels []*dto.LabelPair
		if run, kind, label, ok := splitRunKey(key); ok {
			base = label
			labels = []*dto.LabelPair{labelPair("kind", kind), labelPair("run", run)}
		}
		name := reportPrefix + base + unitSuffix[v.Unit]

		mf, ok := families[name]
		if !ok {
			mf = &dto.MetricFamily{
				Name: stringPtr(name),
				Help: stringPtr(helpText(base, v)),
				Type: dto.MetricType_GAUGE.Enum(),
			}
			families[name] = mf
		}

		value := v.Float()
		mf.Metric = append(mf.Metric, &dto.Metric{
			Label: labels,
			Gauge: &dto.Gauge{Value: &value},
		})
	}

	names := make([]string, 0, len(families))
	for name := range families {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]*dto.MetricFamily, 0, len(names))
	for _, name := range names {
		out = append(out, families[name])
	}
	return out
}

// WriteReport writes the report in the Prometheus text exposition format.
func WriteReport(w io.Writer, r report.Report) error {
	for _, mf := range ReportFamilies(r) {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("write %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

// DecodeText parses a text exposition into families keyed by name.
func DecodeText(r io.Reader) (map[string]*dto.MetricFamily, error) {
	decoder := expfmt.NewDecoder(r, expfmt.FmtText)
	parsed := make(map[string]*dto.MetricFamily)

	for {
		var mf dto.MetricFamily
		if err := decoder.Decode(&mf); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("decode error: %w", err)
		}
		parsed[mf.GetName()] = &mf
	}
	return parsed, nil
}

func helpText(base string, v report.Value) string {
	help := strings.ReplaceAll(base, "_", " ")
	if v.LowerIsBetter {
		help += " (lower is better)"
	}
	return help
}

func labelPair(name, value string) *dto.LabelPair {
	return &dto.LabelPair{Name: stringPtr(name), Value: stringPtr(value)}
}

func stringPtr(s string) *string {
	return &s
}
