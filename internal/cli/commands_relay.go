package cli

import (
	"context"
	"fmt"

	"wing-analyzer/internal/model"
)

// PingCommand 检查中继是否在线
type PingCommand struct {
	client *Client
}

// NewPingCommand 创建 ping 命令
func NewPingCommand(client *Client) *PingCommand {
	return &PingCommand{client: client}
}

func (c *PingCommand) Name() string        { return "ping" }
func (c *PingCommand) Aliases() []string   { return nil }
func (c *PingCommand) Description() string { return "检查中继连接" }
func (c *PingCommand) Usage() string       { return "ping" }

func (c *PingCommand) Execute(ctx context.Context, args []string) error {
	return c.client.SendExternal(ctx, model.Message{Type: model.TypePing})
}

// AnalyzeCommand 分析商品页 URL
type AnalyzeCommand struct {
	client *Client
}

// NewAnalyzeCommand 创建 analyze 命令
func NewAnalyzeCommand(client *Client) *AnalyzeCommand {
	return &AnalyzeCommand{client: client}
}

func (c *AnalyzeCommand) Name() string        { return "analyze" }
func (c *AnalyzeCommand) Aliases() []string   { return []string{"a"} }
func (c *AnalyzeCommand) Description() string { return "分析 Coupang 商品页的 28 天销量" }

func (c *AnalyzeCommand) Usage() string {
	return "analyze <product_url> [server_url]\n" +
		"  未登录 Wing 时会打开登录窗口，登录完成后自动重试\n" +
		"  提供 server_url 时分析结果会同时 POST 到该地址\n" +
		"  示例:\n" +
		"    analyze https://www.coupang.com/vp/products/7335597976?vendorItemId=85123"
}

func (c *AnalyzeCommand) Execute(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("用法: %s", c.Usage())
	}
	msg := model.Message{Type: model.TypeAnalyzeURL, URL: args[0]}
	if len(args) == 2 {
		msg.ServerURL = args[1]
	}
	return c.client.SendExternal(ctx, msg)
}

// SalesCommand 直接查询 Wing 原始销售记录
type SalesCommand struct {
	client *Client
}

// NewSalesCommand 创建 sales 命令
func NewSalesCommand(client *Client) *SalesCommand {
	return &SalesCommand{client: client}
}

func (c *SalesCommand) Name() string        { return "sales" }
func (c *SalesCommand) Aliases() []string   { return []string{"s"} }
func (c *SalesCommand) Description() string { return "查询商品的原始 Wing 销售记录（不触发登录）" }
func (c *SalesCommand) Usage() string       { return "sales <product_id>" }

func (c *SalesCommand) Execute(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("用法: %s", c.Usage())
	}
	return c.client.SendInternal(ctx, model.Message{Type: model.TypeGetSales, ProductID: args[0]})
}

// BadgeCommand 查询配送标签
type BadgeCommand struct {
	client *Client
}

// NewBadgeCommand 创建 badge 命令
func NewBadgeCommand(client *Client) *BadgeCommand {
	return &BadgeCommand{client: client}
}

func (c *BadgeCommand) Name() string        { return "badge" }
func (c *BadgeCommand) Aliases() []string   { return []string{"b"} }
func (c *BadgeCommand) Description() string { return "查询商品页的配送标签" }
func (c *BadgeCommand) Usage() string       { return "badge <product_id> <vendor_item_id>" }

func (c *BadgeCommand) Execute(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("用法: %s", c.Usage())
	}
	return c.client.SendInternal(ctx, model.Message{
		Type:         model.TypeFetchDeliveryBadge,
		ProductID:    args[0],
		VendorItemID: args[1],
	})
}

// StatusCommand 查看会话和登录流程状态
type StatusCommand struct {
	client *Client
}

// NewStatusCommand 创建 status 命令
func NewStatusCommand(client *Client) *StatusCommand {
	return &StatusCommand{client: client}
}

func (c *StatusCommand) Name() string        { return "status" }
func (c *StatusCommand) Aliases() []string   { return []string{"st"} }
func (c *StatusCommand) Description() string { return "查看 Wing 会话与登录流程状态" }
func (c *StatusCommand) Usage() string       { return "status" }

func (c *StatusCommand) Execute(ctx context.Context, args []string) error {
	return c.client.Status(ctx)
}
