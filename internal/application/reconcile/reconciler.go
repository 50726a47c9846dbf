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

// Coverage es lo que las ofertas existentes ya cubren de un batch.
type Coverage struct {
	Sent       []uint64 // assets ya enviados en ofertas vivas al comprador
	Covering   []string // ofertas que cubren algún asset del batch
	Confirmed  []string // ofertas confirmadas en esta pasada
	Mismatched []string // ofertas pendientes de confirmar que no coinciden
	Failed     []string // confirmaciones que agotaron reintentos

	SessionLost bool
}

// Reconciler cruza los batches con las ofertas ya enviadas para no reenviar
// assets y confirma las ofertas que coinciden exactamente con un batch.
type Reconciler struct {
	network ports.TradingNetwork
	policy  retry.Policy
}

// NewReconciler crea el reconciliador de ofertas.
func NewReconciler(network ports.TradingNetwork, policy retry.Policy) *Reconciler {
	return &Reconciler{network: network, policy: policy}
}

// SentOffers lee las ofertas enviadas una vez por ciclo.
func (r *Reconciler) SentOffers(ctx context.Context) ([]domain.OutgoingOffer, error) {
	offers, err := retry.Do(ctx, r.policy, "steam sent offers", r.network.SentOffers)
	if err != nil {
		return nil, fmt.Errorf("reconcile.SentOffers: %w", err)
	}
	return offers, nil
}

// Reconcile resta de batch.Remaining los assets ya cubiertos por ofertas
// vivas al mismo comprador, y confirma las ofertas pendientes de confirmación
// cuyo contenido es exactamente el del batch.
func (r *Reconciler) Reconcile(ctx context.Context, batch *domain.TransferBatch, offers []domain.OutgoingOffer) Coverage {
	var cov Coverage
	sent := make(map[uint64]bool)

	for _, o := range offers {
		if !o.Status.Covers() || !domain.SameAccount(o.CounterpartyID, batch.BuyerID()) {
			continue
		}
		for _, id := range o.AssetsGiven {
			sent[id] = true
		}
		cov.Covering = append(cov.Covering, o.OfferID)

		if o.Status != domain.OfferNeedsConfirmation {
			continue
		}
		if !domain.SameAssets(o.AssetsGiven, batch.Assets) {
			slog.Warn("reconcile: offer awaiting confirmation does not match batch",
				"offer_id", o.OfferID,
				"buyer", batch.BuyerID(),
				"offer_assets", domain.SortedAssets(o.AssetsGiven),
				"batch_assets", domain.SortedAssets(batch.Assets),
			)
			cov.Mismatched = append(cov.Mismatched, o.OfferID)
			continue
		}
		if err := r.Confirm(ctx, o.OfferID); err != nil {
			cov.Failed = append(cov.Failed, o.OfferID)
			cov.SessionLost = cov.SessionLost || errors.Is(err, domain.ErrNotLoggedIn)
			continue
		}
		cov.Confirmed = append(cov.Confirmed, o.OfferID)
	}

	for id := range sent {
		cov.Sent = append(cov.Sent, id)
	}
	cov.Sent = domain.SortedAssets(cov.Sent)
	batch.Remaining = domain.SubtractAssets(batch.Remaining, sent)
	return cov
}

// Confirm confirma una oferta con reintentos. Es fatal-soft: el error solo se
// loguea; la oferta seguirá en needs-confirmation y el próximo ciclo reintenta.
func (r *Reconciler) Confirm(ctx context.Context, offerID string) error {
	err := retry.Run(ctx, r.policy, "steam confirm "+offerID, func(ctx context.Context) error {
		return r.network.ConfirmOffer(ctx, offerID)
	})
	if err != nil {
		slog.Warn("reconcile: confirmation failed, will retry next cycle", "offer_id", offerID, "err", err)
		return err
	}
	slog.Info("reconcile: offer confirmed", "offer_id", offerID)
	return nil
}
