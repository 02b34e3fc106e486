package inventory_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekk0s/nfe-ledger/internal/domain/entity"
	"github.com/ekk0s/nfe-ledger/internal/domain/inventory"
)

func mov(code string, dir entity.Direction, qty string) *entity.Movement {
	return &entity.Movement{ProductCode: code, Direction: dir, Quantity: decimal.RequireFromString(qty)}
}

func TestReplay(t *testing.T) {
	got := inventory.Replay([]*entity.Movement{
		mov("A", entity.DirectionIn, "50"),
		mov("B", entity.DirectionIn, "1.25"),
		mov("A", entity.DirectionOut, "20"),
		mov("B", entity.DirectionOut, "1.75"),
	})

	require.Len(t, got, 2)
	assert.True(t, decimal.NewFromInt(30).Equal(got["A"]))
	assert.True(t, decimal.RequireFromString("-0.5").Equal(got["B"]))
}

func TestReplay_SinMovimientos(t *testing.T) {
	assert.Empty(t, inventory.Replay(nil))
}

func TestDrift(t *testing.T) {
	projected := []entity.StockRow{
		{ProductCode: "C", Quantity: decimal.NewFromInt(5)},
		{ProductCode: "A", Quantity: decimal.RequireFromString("30.000")},
		{ProductCode: "Z", Quantity: decimal.Zero},
	}
	replayed := map[string]decimal.Decimal{
		"A": decimal.NewFromInt(30),
		"C": decimal.NewFromInt(4),
		"B": decimal.NewFromInt(2),
		"Y": decimal.Zero,
	}

	drift := inventory.Drift(projected, replayed)
	require.Len(t, drift, 2, "30.000 y 30 son iguales; Z y Y valen cero en ambos lados")
	assert.Equal(t, "B", drift[0].ProductCode)
	assert.True(t, drift[0].Projected.IsZero())
	assert.True(t, decimal.NewFromInt(2).Equal(drift[0].Replayed))
	assert.Equal(t, "C", drift[1].ProductCode)
	assert.True(t, decimal.NewFromInt(5).Equal(drift[1].Projected))
}

func TestDrift_Consistente(t *testing.T) {
	assert.Empty(t, inventory.Drift(nil, map[string]decimal.Decimal{}))
}
