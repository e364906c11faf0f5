// Package report renders dataset and filter run summaries as HTML
// charts and PNG plots.
package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// RenderClassChart writes an HTML bar chart of per-split label counts.
// classCounts is keyed by split name, then class title, matching the
// conversion run stats.
func RenderClassChart(w io.Writer, title string, classCounts map[string]map[string]int) error {
	if len(classCounts) == 0 {
		return fmt.Errorf("no class counts to chart")
	}

	// Collect the union of class titles for a stable x-axis.
	titleSet := map[string]bool{}
	for _, counts := range classCounts {
		for t := range counts {
			titleSet[t] = true
		}
	}
	titles := make([]string, 0, len(titleSet))
	for t := range titleSet {
		titles = append(titles, t)
	}
	sort.Strings(titles)

	splits := make([]string, 0, len(classCounts))
	for split := range classCounts {
		splits = append(splits, split)
	}
	sort.Strings(splits)

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "900px", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: "label boxes per class and split"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)

	bar.SetXAxis(titles)
	for _, split := range splits {
		data := make([]opts.BarData, len(titles))
		for i, t := range titles {
			data[i] = opts.BarData{Value: classCounts[split][t]}
		}
		bar.AddSeries(split, data,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)
	}

	return bar.Render(w)
}
