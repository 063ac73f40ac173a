package changeorder

import (
	"strings"

	"crew-connect/internal/models"

	"github.com/shopspring/decimal"
)

const (
	categoryPrefix      = "CO: "
	lumpSumCategory     = categoryPrefix + "General Adjustment"
	defaultItemCategory = "General"
)

// BudgetItems derives the project budget lines representing the cost portion of
// an approved change order. Itemized change orders spread CostImpact across
// their items in proportion to each item's selling price. When TotalAmount is
// not positive or any item lacks a positive price, every item gets an equal
// share instead, so the lines always add up to CostImpact. A change order with
// cost impact but no items yields a single lump-sum line. Zero cost impact
// yields nothing.
//
// Shares are rounded to cents individually, so their sum may differ from
// CostImpact by a cent or two.
func BudgetItems(co models.ChangeOrder) []models.ProjectBudgetItem {
	if co.CostImpact.IsZero() {
		return nil
	}

	coID := co.ID
	if len(co.Items) == 0 {
		return []models.ProjectBudgetItem{{
			ProjectID:       co.EntityID,
			Category:        lumpSumCategory,
			Description:     co.Title,
			EstimatedAmount: co.CostImpact,
			ChangeOrderID:   &coID,
		}}
	}

	shares := allocateCost(co)
	items := make([]models.ProjectBudgetItem, 0, len(co.Items))
	for i, item := range co.Items {
		items = append(items, models.ProjectBudgetItem{
			ProjectID:       co.EntityID,
			Category:        categoryPrefix + itemCategory(item),
			Description:     itemDescription(co.Title, item),
			EstimatedAmount: shares[i],
			ChangeOrderID:   &coID,
			IsContingency:   false,
		})
	}
	return items
}

func allocateCost(co models.ChangeOrder) []decimal.Decimal {
	proportional := co.TotalAmount.IsPositive()
	for _, item := range co.Items {
		if !item.TotalPrice.IsPositive() {
			proportional = false
			break
		}
	}

	equal := co.CostImpact.Div(decimal.NewFromInt(int64(len(co.Items))))
	shares := make([]decimal.Decimal, len(co.Items))
	for i, item := range co.Items {
		share := equal
		if proportional {
			share = co.CostImpact.Mul(item.TotalPrice).Div(co.TotalAmount)
		}
		shares[i] = share.Round(2)
	}
	return shares
}

func itemCategory(item models.ChangeOrderItem) string {
	if t := strings.TrimSpace(item.ItemType); t != "" {
		return t
	}
	return defaultItemCategory
}

func itemDescription(title string, item models.ChangeOrderItem) string {
	desc := strings.TrimSpace(item.Description)
	if desc == "" {
		return title
	}
	return title + " - " + desc
}
