package model

// ProductRecord Wing 搜索接口返回的原始商品记录（字段名与接口一致）
// 数值缺失或为 null 时解码为 0
type ProductRecord struct {
	ProductName    string  `json:"productName"`
	BrandName      string  `json:"brandName,omitempty"`
	Manufacture    string  `json:"manufacture,omitempty"`
	SalePrice      float64 `json:"salePrice"`
	SalesLast28d   float64 `json:"salesLast28d"`
	PvLast28Day    float64 `json:"pvLast28Day"`
	Rating         float64 `json:"rating"`
	RatingCount    float64 `json:"ratingCount"`
	ImagePath      string  `json:"imagePath,omitempty"`
	DeliveryMethod string  `json:"deliveryMethod,omitempty"`
}

// ProductAnalysis 单个商品的派生指标
type ProductAnalysis struct {
	ProductName    string  `json:"productName"`
	BrandName      string  `json:"brandName"`
	Manufacture    string  `json:"manufacture"`
	Sales          float64 `json:"sales"`
	Price          float64 `json:"price"`
	Views          float64 `json:"views"`
	Rating         float64 `json:"rating"`
	ReviewCount    float64 `json:"reviewCount"`
	Revenue        float64 `json:"revenue"`
	Profit         float64 `json:"profit"`
	ConversionRate string  `json:"conversionRate"`
	ImagePath      string  `json:"imagePath,omitempty"`
	DeliveryMethod string  `json:"deliveryMethod,omitempty"`
}

// AnalysisSummary 一次查询内所有商品的汇总
type AnalysisSummary struct {
	TotalProducts     int     `json:"totalProducts"`
	TotalSales        float64 `json:"totalSales"`
	TotalViews        float64 `json:"totalViews"`
	TotalRevenue      float64 `json:"totalRevenue"`
	TotalProfit       float64 `json:"totalProfit"`
	AvgConversionRate string  `json:"avgConversionRate"`
}
