package histogram

import (
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// label returns the x-axis label of a bucket for the HTML chart.
func (h *Histogram) label(b Bucket) string {
	key := strconv.FormatInt(h.displayKey(b), 10)
	switch b.Kind {
	case KindUnderflow:
		return "<" + key
	case KindOverflow:
		return ">" + key
	default:
		return key
	}
}

// RenderHTML writes a self-contained bar chart page for the histogram.
// An empty histogram writes nothing.
func (h *Histogram) RenderHTML(w io.Writer, title, unit string) error {
	if h.total == 0 {
		return nil
	}

	counts := h.Counts()
	labels := make([]string, 0, len(counts))
	items := make([]opts.BarData, 0, len(counts))
	for _, c := range counts {
		labels = append(labels, h.label(c.Bucket))
		items = append(items, opts.BarData{Value: c.Count})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: strconv.Itoa(h.total) + " frames, bucket " + strconv.FormatInt(h.bucketSize, 10) + " " + unit,
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: unit}),
		charts.WithYAxisOpts(opts.YAxis{Name: "frames"}),
	)
	bar.SetXAxis(labels).AddSeries("frames", items)

	return bar.Render(w)
}
