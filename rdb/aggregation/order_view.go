package aggregation

import (
	"slices"
	"strings"
	"time"

	"github.com/hatlonely/harvest/rdb/query"
	"github.com/hatlonely/harvest/rdb/record"
)

type OrderViewInput struct {
	Orders     []record.Record
	OrderItems []record.Record
	Products   []record.Record
	Farmers    []record.Record
	Users      []record.Record
}

type OrderViewOptions struct {
	// 不为空时只保留该农户的商品，没有剩余商品的订单整个丢弃
	FarmerID string
}

type OrderItemView struct {
	ProductID   string  `json:"productId"`
	ProductName string  `json:"productName"`
	FarmerID    string  `json:"farmerId"`
	FarmerName  string  `json:"farmerName"`
	Quantity    int64   `json:"quantity"`
	Price       float64 `json:"price"`
}

type OrderView struct {
	OrderID       string          `json:"orderId"`
	BuyerID       string          `json:"buyerId"`
	BuyerName     string          `json:"buyerName"`
	BuyerEmail    string          `json:"buyerEmail"`
	FarmerName    string          `json:"farmerName"`
	Status        string          `json:"status"`
	PaymentMethod string          `json:"paymentMethod"`
	TotalAmount   float64         `json:"totalAmount"`
	CreatedAt     *time.Time      `json:"createdAt"`
	TotalItems    int             `json:"totalItems"`
	Items         []OrderItemView `json:"items"`

	id any
}

// ItemCounts 一次分组统计所有订单的商品行数
func ItemCounts(orderItems []record.Record) map[string]int {
	return CountMap(orderItems, ByField("order_id"))
}

// BuildOrderView 订单 -> 订单明细 -> 商品 -> 农户 -> 用户 的多跳关联
// 结果按 created_at 倒序，相同时按订单 id 正序
func BuildOrderView(in OrderViewInput, options OrderViewOptions) []OrderView {
	users := NewIndex(in.Users, "id")
	farmers := NewIndex(in.Farmers, "id")
	products := NewIndex(in.Products, "id")
	itemsByOrder := GroupBy(in.OrderItems, ByField("order_id"))
	counts := ItemCounts(in.OrderItems)

	// 同一个农户的名字只解析一次
	farmerNames := map[string]string{}
	farmerName := func(farmerID string) string {
		if name, ok := farmerNames[farmerID]; ok {
			return name
		}
		name := UnknownFarmer
		if f, ok := farmers.Lookup(farmerID); ok {
			name = ResolveName(users, f["user_id"], "name", UnknownFarmer)
		}
		farmerNames[farmerID] = name
		return name
	}

	views := make([]OrderView, 0, len(in.Orders))
	for _, o := range in.Orders {
		orderID, ok := o.Key("id")
		if !ok {
			continue
		}

		items := []OrderItemView{}
		for _, it := range itemsByOrder.Get(orderID) {
			item := OrderItemView{ProductName: Unknown, FarmerName: UnknownFarmer}
			item.ProductID, _ = it.Key("product_id")
			item.Quantity, _ = it.Int("quantity")

			p, found := products.Lookup(it["product_id"])
			if found {
				item.ProductName = ResolveName(products, it["product_id"], "name", Unknown)
				if fid, ok := p.Key("farmer_id"); ok {
					item.FarmerID = fid
					item.FarmerName = farmerName(fid)
				}
			}
			if price, ok := it.Float("price"); ok {
				item.Price = price
			} else if found {
				item.Price, _ = p.Float("price")
			}

			if options.FarmerID != "" && item.FarmerID != options.FarmerID {
				continue
			}
			items = append(items, item)
		}
		if options.FarmerID != "" && len(items) == 0 {
			continue
		}

		view := OrderView{
			OrderID:       orderID,
			BuyerName:     Anonymous,
			FarmerName:    joinFarmerNames(items),
			Status:        o.String("status"),
			PaymentMethod: o.String("payment_method"),
			TotalItems:    counts[orderID],
			Items:         items,
			id:            o["id"],
		}
		view.BuyerID, _ = o.Key("user_id")
		if u, ok := users.Lookup(o["user_id"]); ok {
			view.BuyerName = ResolveName(users, o["user_id"], "name", Anonymous)
			view.BuyerEmail = u.String("email")
		}
		view.TotalAmount, _ = o.Float("total_amount")
		if t, ok := o.Time("created_at"); ok {
			view.CreatedAt = &t
		}
		views = append(views, view)
	}

	slices.SortStableFunc(views, compareOrderViews)
	return views
}

func joinFarmerNames(items []OrderItemView) string {
	if len(items) == 0 {
		return "-"
	}
	var names []string
	for _, it := range items {
		if !slices.Contains(names, it.FarmerName) {
			names = append(names, it.FarmerName)
		}
	}
	return strings.Join(names, ", ")
}

// 没有创建时间的订单排在最后
func compareOrderViews(a, b OrderView) int {
	switch {
	case a.CreatedAt != nil && b.CreatedAt == nil:
		return -1
	case a.CreatedAt == nil && b.CreatedAt != nil:
		return 1
	case a.CreatedAt != nil && b.CreatedAt != nil:
		if c := b.CreatedAt.Compare(*a.CreatedAt); c != 0 {
			return c
		}
	}
	if c, ok := query.Compare(a.id, b.id); ok {
		return c
	}
	return strings.Compare(a.OrderID, b.OrderID)
}
