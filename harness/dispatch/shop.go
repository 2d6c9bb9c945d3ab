// 商店指令：初始化商品与查看商品列表。购买见 handleBuyItem。
package dispatch

import (
	"context"
	"sort"
	"strings"

	"github.com/kasuganosora/battlerunner/errs"
	"github.com/kasuganosora/battlerunner/harness/testctx"
)

// defaultShopStock 是 "包含多个物品" 时的商品。
var defaultShopStock = map[string]int{"物品A": 50, "物品B": 100, "物品C": 150}

func (d *Dispatcher) shopRules() []Rule {
	return []Rule{
		{
			Name:   "init_shop",
			Match:  func(in string) bool { return strings.HasPrefix(in, "初始化商店") },
			Handle: d.handleInitShop,
		},
		{
			Name:   "view_shop",
			Match:  func(in string) bool { return strings.Contains(in, "查看商店物品") },
			Handle: d.handleViewShop,
		},
	}
}

// shopPriceKey 返回商品价格变量名：物品A → shop_item_a_price。
func shopPriceKey(name string) string {
	return "shop_item_" + strings.ToLower(strings.TrimPrefix(name, "物品")) + "_price"
}

// handleInitShop 处理 初始化商店,包含物品A(价格=50),物品B(价格=80) 与 初始化商店,包含多个物品。
// 不带价格的商品价格为 0。
func (d *Dispatcher) handleInitShop(_ context.Context, tc *testctx.Context, in string) error {
	stock := make(map[string]int)
	if _, list, ok := strings.Cut(in, "包含"); ok {
		if strings.HasPrefix(list, "多个物品") {
			for name, price := range defaultShopStock {
				stock[name] = price
			}
		} else {
			for _, part := range splitTop(list) {
				name, args, _ := strings.Cut(part, "(")
				if name == "" {
					return errs.Malformed("商品", part)
				}
				price, _, err := fields(args).intField("价格", "price")
				if err != nil {
					return err
				}
				stock[name] = price
			}
		}
	}
	tc.Shop = stock
	for name, price := range stock {
		tc.SetVariable(shopPriceKey(name), price)
	}
	tc.SetVariable("shop.items_count", len(stock))
	return nil
}

// handleViewShop 把商品名（按名称排序）写入 shop_items。
func (d *Dispatcher) handleViewShop(_ context.Context, tc *testctx.Context, _ string) error {
	if tc.Shop == nil {
		return errs.NotFound("shop", "商店")
	}
	names := make([]string, 0, len(tc.Shop))
	for name := range tc.Shop {
		names = append(names, name)
	}
	sort.Strings(names)
	tc.SetVariable("shop_items", names)
	tc.SetVariable("shop.items_count", len(names))
	return nil
}
