package inventory

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/ekk0s/nfe-ledger/internal/domain/entity"
)

// Replay recalcula la cantidad por producto aplicando los movimientos en el orden recibido
// (servicio de dominio). Cantidad = Σ IN − Σ OUT. Los productos sin movimientos no aparecen.
func Replay(movements []*entity.Movement) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	for _, m := range movements {
		out[m.ProductCode] = out[m.ProductCode].Add(m.SignedQuantity())
	}
	return out
}

// Drift compara la proyección persistida con el replay. Un producto ausente del replay
// se considera con cantidad cero. El resultado se ordena por código.
func Drift(projected []entity.StockRow, replayed map[string]decimal.Decimal) []entity.StockDrift {
	seen := make(map[string]bool, len(projected))
	var drift []entity.StockDrift
	for _, row := range projected {
		seen[row.ProductCode] = true
		r := replayed[row.ProductCode]
		if !row.Quantity.Equal(r) {
			drift = append(drift, entity.StockDrift{ProductCode: row.ProductCode, Projected: row.Quantity, Replayed: r})
		}
	}
	for code, q := range replayed {
		if !seen[code] && !q.IsZero() {
			drift = append(drift, entity.StockDrift{ProductCode: code, Projected: decimal.Zero, Replayed: q})
		}
	}
	sort.Slice(drift, func(i, j int) bool { return drift[i].ProductCode < drift[j].ProductCode })
	return drift
}
