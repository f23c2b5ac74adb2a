package aggregate

import (
	"testing"

	"wing-analyzer/internal/model"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// buildRecords 把三个随机切片按最短长度拼成商品记录
func buildRecords(prices, sales, views []int) []model.ProductRecord {
	n := len(prices)
	if len(sales) < n {
		n = len(sales)
	}
	if len(views) < n {
		n = len(views)
	}

	records := make([]model.ProductRecord, 0, n)
	for i := 0; i < n; i++ {
		records = append(records, model.ProductRecord{
			ProductName:  "p",
			SalePrice:    float64(prices[i]),
			SalesLast28d: float64(sales[i]),
			PvLast28Day:  float64(views[i]),
		})
	}
	return records
}

func TestProperty_SummaryMatchesProducts(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("summary totals are the sums of per-product values", prop.ForAll(
		func(prices, sales, views []int) bool {
			agg := Aggregate(buildRecords(prices, sales, views))

			var revenue, totalSales, totalViews float64
			for _, p := range agg.Products {
				revenue += p.Revenue
				totalSales += p.Sales
				totalViews += p.Views
			}

			if agg.Summary.TotalProducts != len(agg.Products) {
				t.Logf("FAIL: TotalProducts %d != %d", agg.Summary.TotalProducts, len(agg.Products))
				return false
			}
			if agg.Summary.TotalRevenue != revenue {
				t.Logf("FAIL: TotalRevenue %v != %v", agg.Summary.TotalRevenue, revenue)
				return false
			}
			if agg.Summary.TotalProfit != agg.Summary.TotalRevenue*MarginRate {
				t.Logf("FAIL: TotalProfit %v != %v", agg.Summary.TotalProfit, agg.Summary.TotalRevenue*MarginRate)
				return false
			}
			return agg.Summary.TotalSales == totalSales && agg.Summary.TotalViews == totalViews
		},
		gen.SliceOf(gen.IntRange(0, 1000000)),
		gen.SliceOf(gen.IntRange(0, 10000)),
		gen.SliceOf(gen.IntRange(0, 100000)),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProperty_ZeroViewsNeverDivides(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("products without views report 0.00 conversion", prop.ForAll(
		func(price, sales int) bool {
			p := Analyze(model.ProductRecord{
				SalePrice:    float64(price),
				SalesLast28d: float64(sales),
			})
			return p.ConversionRate == "0.00"
		},
		gen.IntRange(0, 1000000),
		gen.IntRange(0, 10000),
	))

	properties.Property("aggregate conversion is 0.00 when no product has views", prop.ForAll(
		func(prices, sales []int) bool {
			views := make([]int, len(prices))
			agg := Aggregate(buildRecords(prices, sales, views))
			return agg.Summary.AvgConversionRate == "0.00"
		},
		gen.SliceOf(gen.IntRange(0, 1000000)),
		gen.SliceOf(gen.IntRange(0, 10000)),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
