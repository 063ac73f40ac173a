package changeorder

import (
	"testing"

	"crew-connect/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBudgetItems(t *testing.T) {
	base := models.ChangeOrder{EntityType: models.EntityProject, EntityID: 5, Title: "Owner upgrades"}
	base.ID = 9

	t.Run("rounded shares are not rebalanced", func(t *testing.T) {
		co := base
		co.CostImpact = dec("100")
		co.Items = []models.ChangeOrderItem{{}, {}, {}}

		items := BudgetItems(co)
		require.Len(t, items, 3)
		for _, item := range items {
			assertDecimal(t, "33.33", item.EstimatedAmount)
			require.NotNil(t, item.ChangeOrderID)
			assert.Equal(t, uint(9), *item.ChangeOrderID)
			assert.Equal(t, uint(5), item.ProjectID)
			assert.Equal(t, "Owner upgrades", item.Description)
		}
	})

	t.Run("an unpriced item splits the whole order equally", func(t *testing.T) {
		co := base
		co.CostImpact = dec("-900")
		co.TotalAmount = dec("1200")
		co.Items = []models.ChangeOrderItem{
			{ItemType: "Credit", TotalPrice: dec("1200")},
			{ItemType: "Credit", TotalPrice: dec("0")},
		}

		items := BudgetItems(co)
		require.Len(t, items, 2)
		assertDecimal(t, "-450", items[0].EstimatedAmount)
		assertDecimal(t, "-450", items[1].EstimatedAmount)
		assert.Equal(t, "CO: Credit", items[1].Category)
		assertDecimal(t, "-900", items[0].EstimatedAmount.Add(items[1].EstimatedAmount))
	})

	t.Run("non-positive total falls back to equal split", func(t *testing.T) {
		co := base
		co.CostImpact = dec("500")
		co.TotalAmount = dec("0")
		co.Items = []models.ChangeOrderItem{{TotalPrice: dec("600")}, {TotalPrice: dec("400")}}

		items := BudgetItems(co)
		assertDecimal(t, "250", items[0].EstimatedAmount)
		assertDecimal(t, "250", items[1].EstimatedAmount)
	})

	t.Run("zero cost", func(t *testing.T) {
		co := base
		co.Items = []models.ChangeOrderItem{{TotalPrice: dec("10")}}
		assert.Empty(t, BudgetItems(co))
	})

	t.Run("lump sum", func(t *testing.T) {
		co := base
		co.CostImpact = dec("42.10")

		items := BudgetItems(co)
		require.Len(t, items, 1)
		assert.Equal(t, "CO: General Adjustment", items[0].Category)
		assertDecimal(t, "42.10", items[0].EstimatedAmount)
		assert.False(t, items[0].IsContingency)
	})
}
