// Package report renders analysis results as terminal tables and exports
// them as CSV or JSON.
package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"option-analytics-go/analysis"
	"option-analytics-go/pricing"
	"option-analytics-go/smile"
)

// DefaultTableLimit 终端表格默认展示的行数
const DefaultTableLimit = 20

var printer = message.NewPrinter(language.English)

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	table.SetBorder(false)
	return table
}

// WriteTable renders up to limit records (all when limit <= 0).
func WriteTable(w io.Writer, records []analysis.Record, limit int) {
	if limit <= 0 || limit > len(records) {
		limit = len(records)
	}
	table := newTable(w, []string{"Strike", "Type", "LTP", "IV %", "Delta", "Gamma", "Vega", "Theta/day", "Rho", "Iter"})
	for _, r := range records[:limit] {
		iter := strconv.Itoa(r.Iterations)
		if !r.Converged {
			iter += "*"
		}
		table.Append([]string{
			printer.Sprintf("%.2f", r.Strike),
			r.Kind.String(),
			printer.Sprintf("%.2f", r.LTP),
			fmt.Sprintf("%.2f", r.IV*100),
			fmt.Sprintf("%.4f", r.Greeks.Delta),
			fmt.Sprintf("%.6f", r.Greeks.Gamma),
			fmt.Sprintf("%.4f", r.Greeks.Vega),
			fmt.Sprintf("%.4f", r.Greeks.ThetaPerDay()),
			fmt.Sprintf("%.4f", r.Greeks.Rho),
			iter,
		})
	}
	table.Render()
	if limit < len(records) {
		fmt.Fprintf(w, "... %d more rows\n", len(records)-limit)
	}
}

// WriteSmileTable renders one kind's IV smile.
func WriteSmileTable(w io.Writer, kind pricing.OptionKind, points []smile.Point) {
	fmt.Fprintf(w, "IV smile (%s)\n", kind)
	table := newTable(w, []string{"Strike", "IV %"})
	for _, p := range points {
		table.Append([]string{printer.Sprintf("%.2f", p.Strike), fmt.Sprintf("%.2f", p.IV*100)})
	}
	table.Render()
}

// WriteSummary renders per-kind IV statistics.
func WriteSummary(w io.Writer, summaries []smile.Summary) {
	table := newTable(w, []string{"Type", "Count", "Mean %", "Median %", "StdDev %", "Min %", "Max %", "ATM %"})
	for _, s := range summaries {
		table.Append([]string{
			s.Kind.String(),
			strconv.Itoa(s.Count),
			fmt.Sprintf("%.2f", s.MeanIV*100),
			fmt.Sprintf("%.2f", s.MedianIV*100),
			fmt.Sprintf("%.2f", s.StdDevIV*100),
			fmt.Sprintf("%.2f", s.MinIV*100),
			fmt.Sprintf("%.2f", s.MaxIV*100),
			fmt.Sprintf("%.2f", s.ATMIV*100),
		})
	}
	table.Render()
}

// WriteFailures lists quotes that could not be analysed.
func WriteFailures(w io.Writer, failures []analysis.Failure) {
	if len(failures) == 0 {
		return
	}
	fmt.Fprintf(w, "%d quote(s) failed:\n", len(failures))
	table := newTable(w, []string{"Row", "Strike", "Type", "LTP", "Error"})
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, f := range failures {
		table.Append([]string{
			strconv.Itoa(f.Index),
			printer.Sprintf("%.2f", f.Quote.Strike),
			f.Quote.Kind.String(),
			printer.Sprintf("%.2f", f.Quote.LTP),
			f.Message,
		})
	}
	table.Render()
}

// WriteQuote renders a single priced option with its Greeks.
func WriteQuote(w io.Writer, kind pricing.OptionKind, price, iv float64, g pricing.Greeks) {
	table := newTable(w, []string{"Type", "Price", "IV %", "Delta", "Gamma", "Vega", "Theta/yr", "Theta/day", "Rho"})
	table.Append([]string{
		kind.String(),
		printer.Sprintf("%.4f", price),
		fmt.Sprintf("%.4f", iv*100),
		fmt.Sprintf("%.6f", g.Delta),
		fmt.Sprintf("%.8f", g.Gamma),
		fmt.Sprintf("%.6f", g.Vega),
		fmt.Sprintf("%.6f", g.Theta),
		fmt.Sprintf("%.6f", g.ThetaPerDay()),
		fmt.Sprintf("%.6f", g.Rho),
	})
	table.Render()
}
