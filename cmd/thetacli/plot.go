package main

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/spf13/cobra"
)

func newPlotCmd() *cobra.Command {
	var in, out string
	cmd := &cobra.Command{
		Use:   "plot",
		Short: "Render a sweep JSONL file as an HTML scatter chart",
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := readRows(in)
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				return fmt.Errorf("plot: %s holds no sweep rows", in)
			}
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("create %s: %w", out, err)
			}
			if err := renderSweep(f, rows); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d rows)\n", out, len(rows))
			return nil
		},
	}
	cmd.Flags().StringVar(&in, "in", "sweep.jsonl", "sweep JSONL input")
	cmd.Flags().StringVarP(&out, "out", "o", "sweep.html", "HTML output path")
	return cmd
}

// sweepChart plots time in milliseconds against precision, one series for
// forced naive summation and one per strategy the automatic choice took.
func sweepChart(rows []sweepRow) *charts.Scatter {
	sc := charts.NewScatter()
	sc.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Theta evaluation time vs. precision",
			Subtitle: fmt.Sprintf("genus %d, %d rows", rows[0].Genus, len(rows)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:    opts.Bool(true),
			Trigger: "item",
			Formatter: opts.FuncOpts(`
function (p) {
  var v = p.value || [];
  return '<b>' + p.seriesName + '</b><br/>' +
    'prec: ' + v[0] + ' bits<br/>' +
    'time: ' + (typeof v[1] === 'number' ? v[1].toFixed(3) : v[1]) + ' ms<br/>' +
    'sample: ' + v[2] + (v[3] ? ', reduced' : '');
}`),
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{
			Name:      "Precision (bits)",
			Type:      "log",
			AxisLabel: &opts.AxisLabel{Formatter: "{value}"},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name:      "Time (ms)",
			Type:      "log",
			AxisLabel: &opts.AxisLabel{Formatter: "{value}"},
		}),
		charts.WithDataZoomOpts(
			opts.DataZoom{Type: "inside"},
			opts.DataZoom{Type: "slider"},
		),
		charts.WithToolboxOpts(opts.Toolbox{
			Show: opts.Bool(true),
			Feature: &opts.ToolBoxFeature{
				SaveAsImage: &opts.ToolBoxFeatureSaveAsImage{Show: opts.Bool(true)},
				Restore:     &opts.ToolBoxFeatureRestore{Show: opts.Bool(true)},
				DataZoom:    &opts.ToolBoxFeatureDataZoom{Show: opts.Bool(true)},
			},
		}),
	)

	ms := func(us int64) float64 { return float64(us) / 1000 }
	naive := make([]opts.ScatterData, 0, len(rows))
	auto := map[string][]opts.ScatterData{}
	for _, r := range rows {
		naive = append(naive, opts.ScatterData{Value: []interface{}{r.Prec, ms(r.NaiveUS), r.Sample, r.Reduced}})
		auto[r.Strategy] = append(auto[r.Strategy], opts.ScatterData{Value: []interface{}{r.Prec, ms(r.AutoUS), r.Sample, r.Reduced}})
	}
	sc.AddSeries("naive (forced)", naive,
		charts.WithScatterChartOpts(opts.ScatterChart{Symbol: "circle", SymbolSize: 7}),
	)
	names := make([]string, 0, len(auto))
	for name := range auto {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		sc.AddSeries("auto: "+name, auto[name],
			charts.WithScatterChartOpts(opts.ScatterChart{Symbol: "diamond", SymbolSize: 9}),
		)
	}
	return sc
}

func renderSweep(w io.Writer, rows []sweepRow) error {
	page := components.NewPage().SetPageTitle("Theta sweep")
	page.AddCharts(sweepChart(rows))
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	return nil
}
