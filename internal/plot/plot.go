// Package plot renders end-of-run analytics from the persisted history:
// average unit price per good per round, and per-agent net worth valued
// at those prices.
package plot

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/shopspring/decimal"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/caio-almeid4/marketplace-simulation/internal/persistence"
)

// WriteAll renders every chart into dir, creating it if needed.
func WriteAll(db *persistence.DB, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create plots dir: %w", err)
	}

	trades, err := db.ListTrades()
	if err != nil {
		return fmt.Errorf("load trades: %w", err)
	}
	snapshots, err := db.ListSnapshots()
	if err != nil {
		return fmt.Errorf("load snapshots: %w", err)
	}

	if err := priceTrends(trades, filepath.Join(dir, "price_trends.png")); err != nil {
		return err
	}
	return netWorth(trades, snapshots, filepath.Join(dir, "net_worth.png"))
}

// avgUnitPrices aggregates average unit price per item per round.
func avgUnitPrices(trades []persistence.TradeRow) map[string]map[int]float64 {
	sums := make(map[string]map[int]decimal.Decimal)
	counts := make(map[string]map[int]int)
	for _, t := range trades {
		if sums[t.Item] == nil {
			sums[t.Item] = make(map[int]decimal.Decimal)
			counts[t.Item] = make(map[int]int)
		}
		sums[t.Item][t.Round] = sums[t.Item][t.Round].Add(t.UnitPrice())
		counts[t.Item][t.Round]++
	}

	out := make(map[string]map[int]float64)
	for item, rounds := range sums {
		out[item] = make(map[int]float64)
		for round, sum := range rounds {
			avg, _ := sum.Div(decimal.NewFromInt(int64(counts[item][round]))).Float64()
			out[item][round] = avg
		}
	}
	return out
}

func priceTrends(trades []persistence.TradeRow, path string) error {
	p := plot.New()
	p.Title.Text = "Average Unit Price per Round"
	p.X.Label.Text = "Round"
	p.Y.Label.Text = "Price (cash)"
	p.Add(plotter.NewGrid())

	prices := avgUnitPrices(trades)
	items := make([]string, 0, len(prices))
	for item := range prices {
		items = append(items, item)
	}
	sort.Strings(items)

	for i, item := range items {
		line, err := plotter.NewLine(sortedXYs(prices[item]))
		if err != nil {
			return fmt.Errorf("price line for %s: %w", item, err)
		}
		line.Color = plotutil.Color(i)
		p.Add(line)
		p.Legend.Add(item, line)
	}

	return p.Save(10*vg.Inch, 6*vg.Inch, path)
}

func netWorth(trades []persistence.TradeRow, snapshots []persistence.SnapshotRow, path string) error {
	p := plot.New()
	p.Title.Text = "Net Worth per Agent"
	p.X.Label.Text = "Round"
	p.Y.Label.Text = "Cash + goods at market price"
	p.Add(plotter.NewGrid())

	prices := avgUnitPrices(trades)
	series := make(map[string]map[int]float64)
	for _, s := range snapshots {
		if series[s.Agent] == nil {
			series[s.Agent] = make(map[int]float64)
		}
		worth, err := decimal.NewFromString(s.Cash)
		if err != nil {
			worth = decimal.Zero
		}
		w, _ := worth.Float64()
		w += float64(s.Apple) * prices["apple"][s.Round]
		w += float64(s.Chip) * prices["chip"][s.Round]
		w += float64(s.Gold) * prices["gold"][s.Round]
		series[s.Agent][s.Round] = w
	}

	names := make([]string, 0, len(series))
	for name := range series {
		names = append(names, name)
	}
	sort.Strings(names)

	for i, name := range names {
		line, err := plotter.NewLine(sortedXYs(series[name]))
		if err != nil {
			return fmt.Errorf("net worth line for %s: %w", name, err)
		}
		line.Color = plotutil.Color(i)
		p.Add(line)
		p.Legend.Add(name, line)
	}

	return p.Save(10*vg.Inch, 6*vg.Inch, path)
}

func sortedXYs(points map[int]float64) plotter.XYs {
	rounds := make([]int, 0, len(points))
	for r := range points {
		rounds = append(rounds, r)
	}
	sort.Ints(rounds)

	xys := make(plotter.XYs, 0, len(rounds))
	for _, r := range rounds {
		xys = append(xys, plotter.XY{X: float64(r), Y: points[r]})
	}
	return xys
}
