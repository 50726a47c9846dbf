package domain

import (
	"fmt"
	"sort"
)

// BatchKey agrupa ventas del mismo comprador y el mismo tipo de item.
type BatchKey struct {
	BuyerID  uint64
	ItemName string
}

// TransferBatch es una transferencia mínima derivada de los trades aceptados.
// Se reconstruye cada ciclo y nunca se persiste.
type TransferBatch struct {
	Key            BatchKey
	PrimaryTradeID string
	TradeIDs       []string
	TradeToken     string
	TradeURL       string

	// Assets es el conjunto original que el batch debe mover.
	Assets []uint64
	// Remaining son los assets que ninguna oferta existente cubre todavía.
	Remaining []uint64
}

// BuyerID devuelve el comprador del batch.
func (b TransferBatch) BuyerID() uint64 { return b.Key.BuyerID }

// Done indica que todos los assets ya están cubiertos por ofertas existentes.
func (b TransferBatch) Done() bool { return len(b.Remaining) == 0 }

// BuildBatches agrupa los trades por (buyer, item name) en una sola pasada con
// conjunto de exclusión. El primer trade descubierto de cada grupo es el
// primario: su token y trade URL se usan para dirigir la oferta.
// Un asset repetido en varios trades se cuenta una sola vez.
func BuildBatches(trades []Trade) []TransferBatch {
	excluded := make([]bool, len(trades))
	seenAsset := make(map[uint64]bool, len(trades))
	var batches []TransferBatch

	for i := range trades {
		if excluded[i] {
			continue
		}
		head := trades[i]
		b := TransferBatch{
			Key:            BatchKey{BuyerID: NormalizeAccountID(head.BuyerID), ItemName: head.Item.Name},
			PrimaryTradeID: head.ID,
			TradeToken:     head.TradeToken,
			TradeURL:       head.TradeURL,
		}
		for j := i; j < len(trades); j++ {
			if excluded[j] {
				continue
			}
			t := trades[j]
			if !SameAccount(t.BuyerID, head.BuyerID) || t.Item.Name != head.Item.Name {
				continue
			}
			excluded[j] = true
			b.TradeIDs = append(b.TradeIDs, t.ID)
			if seenAsset[t.Item.AssetID] {
				continue
			}
			seenAsset[t.Item.AssetID] = true
			b.Assets = append(b.Assets, t.Item.AssetID)
		}
		b.Remaining = append([]uint64(nil), b.Assets...)
		batches = append(batches, b)
	}
	return batches
}

// AssetSet construye un set a partir de una lista de assets.
func AssetSet(ids []uint64) map[uint64]bool {
	set := make(map[uint64]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

// SameAssets indica si dos listas contienen exactamente el mismo conjunto de assets.
func SameAssets(a, b []uint64) bool {
	sa, sb := AssetSet(a), AssetSet(b)
	if len(sa) != len(sb) {
		return false
	}
	for id := range sa {
		if !sb[id] {
			return false
		}
	}
	return true
}

// SubtractAssets devuelve los elementos de from que no están en covered,
// preservando el orden original.
func SubtractAssets(from []uint64, covered map[uint64]bool) []uint64 {
	out := make([]uint64, 0, len(from))
	for _, id := range from {
		if !covered[id] {
			out = append(out, id)
		}
	}
	return out
}

// SortedAssets devuelve una copia ordenada (útil para logs deterministas).
func SortedAssets(ids []uint64) []uint64 {
	out := append([]uint64(nil), ids...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// OfferMessage arma el mensaje de la oferta que el marketplace espera ver.
func OfferMessage(primaryTradeID string, itemCount int) string {
	if itemCount <= 1 {
		return fmt.Sprintf("CSFloat Market Trade Offer #%s. Thanks for using CSFloat!", primaryTradeID)
	}
	return fmt.Sprintf("CSFloat Market Trade Offer #%s and %d other items Thanks for using CSFloat!", primaryTradeID, itemCount-1)
}

// Message es el mensaje de la oferta para los assets pendientes del batch.
func (b TransferBatch) Message() string {
	return OfferMessage(b.PrimaryTradeID, len(b.Remaining))
}
