package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/studieren/foodgram/auth"
	"github.com/studieren/foodgram/models"
)

// CartItem 购物车中某个食谱的一行食材
type CartItem struct {
	Name   string
	Unit   string
	Amount int
}

// ShoppingLine 按 (名称, 单位) 合并后的一行
type ShoppingLine struct {
	Name  string
	Unit  string
	Total int
}

// Aggregate 按 (名称, 单位) 分组求和，而不是按食材 id，
// 这样目录里重复录入的同名同单位食材也会合并成一行。
// 输出按名称（不区分大小写）、再按单位排列。
func Aggregate(items []CartItem) []ShoppingLine {
	type key struct{ name, unit string }
	totals := make(map[key]int, len(items))
	for _, it := range items {
		totals[key{it.Name, it.Unit}] += it.Amount
	}

	lines := make([]ShoppingLine, 0, len(totals))
	for k, total := range totals {
		lines = append(lines, ShoppingLine{Name: k.name, Unit: k.unit, Total: total})
	}
	sort.Slice(lines, func(i, j int) bool {
		a, b := lines[i], lines[j]
		if la, lb := strings.ToLower(a.Name), strings.ToLower(b.Name); la != lb {
			return la < lb
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.Unit < b.Unit
	})
	return lines
}

// Render 每行 "<name> - <total> <unit>\n"；空列表得到空串
func Render(lines []ShoppingLine) string {
	var b strings.Builder
	for _, l := range lines {
		b.WriteString(l.Name)
		b.WriteString(" - ")
		b.WriteString(strconv.Itoa(l.Total))
		b.WriteByte(' ')
		b.WriteString(l.Unit)
		b.WriteByte('\n')
	}
	return b.String()
}

// ShoppingList 汇总调用者购物车内所有食谱的食材
func (s *Service) ShoppingList(ctx context.Context, who auth.Identity) (string, error) {
	if who.Anonymous() {
		return "", ErrUnauthorized
	}

	start := time.Now()
	var items []CartItem
	err := s.crud.DB.WithContext(ctx).
		Table("ingredient_for_recipes AS ifr").
		Select("ingredients.name AS name, ingredients.measurement_unit AS unit, ifr.amount AS amount").
		Joins("JOIN ingredients ON ingredients.id = ifr.ingredient_id").
		Joins("JOIN shopping_carts ON shopping_carts.recipe_id = ifr.recipe_id").
		Where("shopping_carts.user_id = ?", who.UserID).
		Scan(&items).Error
	s.crud.LogOperation(ctx, "shopping_list", &models.ShoppingCart{}, time.Since(start), err, map[string]interface{}{
		"user_id": who.UserID, "rows": len(items),
	})
	if err != nil {
		return "", fmt.Errorf("load shopping cart: %w", err)
	}
	return Render(Aggregate(items)), nil
}
