package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/autotrade/internal/domain"
	"github.com/alejandrodnm/autotrade/internal/ports"
	"github.com/alejandrodnm/autotrade/internal/retry"
)

// Dispatcher crea la oferta de transferencia para los assets pendientes de un batch.
type Dispatcher struct {
	network  ports.TradingNetwork
	policy   retry.Policy
	pageSize int
}

// NewDispatcher crea el dispatcher.
func NewDispatcher(network ports.TradingNetwork, policy retry.Policy, pageSize int) *Dispatcher {
	return &Dispatcher{network: network, policy: policy, pageSize: pageSize}
}

// Dispatch crea una oferta sin confirmar con todos los assets de
// batch.Remaining. Remaining vacío es un no-op exitoso (offerID "").
// Si algún asset no está en el inventario no se crea nada y el error es un
// *domain.MissingAssetsError. Todo el proceso se reintenta ante errores de
// transporte; desde el segundo intento se revisan las ofertas enviadas por
// si el intento anterior llegó a crear la oferta.
func (d *Dispatcher) Dispatch(ctx context.Context, batch domain.TransferBatch) (string, error) {
	if batch.Done() {
		return "", nil
	}
	if batch.TradeURL == "" && batch.BuyerID() == 0 {
		return "", fmt.Errorf("reconcile.Dispatch: trade %s: %w", batch.PrimaryTradeID, domain.ErrNoTarget)
	}

	attempt := 0
	offerID, err := retry.Do(ctx, d.policy, "steam dispatch "+batch.PrimaryTradeID, func(ctx context.Context) (string, error) {
		attempt++
		if attempt > 1 {
			if id, ok := d.alreadySent(ctx, batch); ok {
				slog.Info("reconcile: previous attempt created the offer", "offer_id", id, "trade_id", batch.PrimaryTradeID)
				return id, nil
			}
		}
		return d.dispatchOnce(ctx, batch)
	})
	if err != nil {
		return "", fmt.Errorf("reconcile.Dispatch: trade %s: %w", batch.PrimaryTradeID, err)
	}
	return offerID, nil
}

func (d *Dispatcher) dispatchOnce(ctx context.Context, batch domain.TransferBatch) (string, error) {
	inv, err := d.network.Inventory(ctx, d.pageSize)
	if err != nil {
		return "", fmt.Errorf("inventory: %w", err)
	}

	items, missing := resolveAssets(inv, batch.Remaining)
	if len(missing) > 0 {
		return "", retry.Permanent(&domain.MissingAssetsError{Missing: missing})
	}

	req := domain.OfferRequest{
		Target: domain.OfferTarget{
			TradeURL:  batch.TradeURL,
			PartnerID: batch.BuyerID(),
			Token:     batch.TradeToken,
		},
		ToGive:  items,
		Message: batch.Message(),
	}
	id, err := d.network.CreateOffer(ctx, req)
	if err != nil {
		return "", err
	}
	return id, nil
}

// alreadySent busca una oferta viva al comprador que ya contenga todo Remaining.
func (d *Dispatcher) alreadySent(ctx context.Context, batch domain.TransferBatch) (string, bool) {
	offers, err := d.network.SentOffers(ctx)
	if err != nil {
		return "", false
	}
	for _, o := range offers {
		if !o.Status.Covers() || !domain.SameAccount(o.CounterpartyID, batch.BuyerID()) {
			continue
		}
		if len(domain.SubtractAssets(batch.Remaining, domain.AssetSet(o.AssetsGiven))) == 0 {
			return o.OfferID, true
		}
	}
	return "", false
}

// resolveAssets busca cada asset en el inventario. Devuelve los items en el
// orden de ids y los ids que no aparecen.
func resolveAssets(inv []domain.InventoryItem, ids []uint64) ([]domain.InventoryItem, []uint64) {
	byID := make(map[uint64]domain.InventoryItem, len(inv))
	for _, it := range inv {
		byID[it.AssetID] = it
	}
	items := make([]domain.InventoryItem, 0, len(ids))
	var missing []uint64
	for _, id := range ids {
		it, ok := byID[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		items = append(items, it)
	}
	return items, missing
}

// missingAssets extrae los ids faltantes de un error de Dispatch.
func missingAssets(err error) ([]uint64, bool) {
	var m *domain.MissingAssetsError
	if errors.As(err, &m) {
		return m.Missing, true
	}
	return nil, false
}
