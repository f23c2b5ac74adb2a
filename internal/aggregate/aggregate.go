// Package aggregate 把 Wing 原始商品记录转换为派生指标和汇总，纯函数、无 I/O
package aggregate

import (
	"strconv"

	"wing-analyzer/internal/model"
)

// MarginRate 估算利润使用的固定利润率
const MarginRate = 0.20

// ThumbnailURLPrefix 缩略图 CDN 地址，imagePath 直接拼接在后面
const ThumbnailURLPrefix = "https://thumbnail6.coupangcdn.com/thumbnails/remote/260x260/image/"

// 配送方式代码映射，未知代码原样保留
var deliveryMethodLabels = map[string]string{
	"OVERSEA":  "해외 배송",
	"DOMESTIC": "국내배송",
}

// Aggregation 聚合结果
type Aggregation struct {
	Products  []model.ProductAnalysis
	Summary   model.AnalysisSummary
	Thumbnail string
}

// Aggregate 计算每个商品的营收、利润、转化率以及整体汇总
func Aggregate(records []model.ProductRecord) Aggregation {
	products := make([]model.ProductAnalysis, 0, len(records))

	var totalSales, totalViews, totalRevenue float64
	for _, r := range records {
		p := Analyze(r)
		totalSales += p.Sales
		totalViews += p.Views
		totalRevenue += p.Revenue
		products = append(products, p)
	}

	agg := Aggregation{
		Products: products,
		Summary: model.AnalysisSummary{
			TotalProducts:     len(records),
			TotalSales:        totalSales,
			TotalViews:        totalViews,
			TotalRevenue:      totalRevenue,
			TotalProfit:       totalRevenue * MarginRate,
			AvgConversionRate: ConversionRate(totalSales, totalViews),
		},
	}

	if len(records) > 0 && records[0].ImagePath != "" {
		agg.Thumbnail = ThumbnailURLPrefix + records[0].ImagePath
	}

	return agg
}

// Analyze 单个商品的派生指标
func Analyze(r model.ProductRecord) model.ProductAnalysis {
	revenue := r.SalesLast28d * r.SalePrice
	return model.ProductAnalysis{
		ProductName:    r.ProductName,
		BrandName:      orDash(r.BrandName),
		Manufacture:    orDash(r.Manufacture),
		Sales:          r.SalesLast28d,
		Price:          r.SalePrice,
		Views:          r.PvLast28Day,
		Rating:         r.Rating,
		ReviewCount:    r.RatingCount,
		Revenue:        revenue,
		Profit:         revenue * MarginRate,
		ConversionRate: ConversionRate(r.SalesLast28d, r.PvLast28Day),
		ImagePath:      r.ImagePath,
		DeliveryMethod: DeliveryMethodLabel(r.DeliveryMethod),
	}
}

// ConversionRate sales/views*100 保留两位小数，views 为 0 时返回 "0.00"
func ConversionRate(sales, views float64) string {
	if views <= 0 {
		return "0.00"
	}
	return strconv.FormatFloat(sales/views*100, 'f', 2, 64)
}

// DeliveryMethodLabel 配送方式代码转换为展示文本
func DeliveryMethodLabel(code string) string {
	if label, ok := deliveryMethodLabels[code]; ok {
		return label
	}
	return code
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
