package report

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"option-analytics-go/analysis"
	"option-analytics-go/pricing"
	"option-analytics-go/smile"
)

// ErrNothingToPlot 表示过滤后没有任何可画的 IV 点
var ErrNothingToPlot = errors.New("no iv points to plot")

const (
	chartWidth  = 8 * vg.Inch
	chartHeight = 5 * vg.Inch
)

// smileChart 每种期权类型一条 IV(%)-行权价 折线
func smileChart(title string, records []analysis.Record) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Strike"
	p.Y.Label.Text = "IV %"
	p.Add(plotter.NewGrid())
	p.Legend.Top = true

	drawn := 0
	for i, kind := range []pricing.OptionKind{pricing.Call, pricing.Put} {
		pts := smile.Curve(records, kind)
		if len(pts) == 0 {
			continue
		}
		xys := make(plotter.XYs, len(pts))
		for j, pt := range pts {
			xys[j].X = pt.Strike
			xys[j].Y = pt.IV * 100
		}
		line, points, err := plotter.NewLinePoints(xys)
		if err != nil {
			return nil, fmt.Errorf("%s smile: %w", kind, err)
		}
		line.Color = plotutil.Color(i)
		points.Color = plotutil.Color(i)
		points.Shape = plotutil.Shape(i)
		p.Add(line, points)
		p.Legend.Add(kind.String(), line, points)
		drawn++
	}
	if drawn == 0 {
		return nil, ErrNothingToPlot
	}
	return p, nil
}

// WriteSmileChart renders the IV smile in format ("svg", "png", "pdf", ...).
func WriteSmileChart(w io.Writer, format, title string, records []analysis.Record) error {
	p, err := smileChart(title, records)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(chartWidth, chartHeight, format)
	if err != nil {
		return fmt.Errorf("smile chart: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write smile chart: %w", err)
	}
	return nil
}

// SaveSmileChart writes the chart to path; the extension picks the format.
func SaveSmileChart(path, title string, records []analysis.Record) error {
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if format == "" {
		return fmt.Errorf("smile chart %s: missing file extension (.svg, .png, .pdf)", path)
	}
	p, err := smileChart(title, records)
	if err != nil {
		return err
	}
	if err := p.Save(chartWidth, chartHeight, path); err != nil {
		return fmt.Errorf("save smile chart: %w", err)
	}
	return nil
}
