package storage

// sqlite.go: historial de ciclos y ledger de ofertas.
//
// Estrategia:
//   - `cycles`: una fila por ciclo con los contadores del CycleResult.
//   - `dispatches`: una fila por batch que hizo algo (oferta creada, oferta
//     confirmada, assets faltantes o fallo). Los batches ya cubiertos no se
//     guardan: se repetirían en cada ciclo hasta que el comprador acepte.
//   - Prune automático al arrancar: cycles > 30d, dispatches > 90d.
//
// Es solo auditoría: el engine nunca lee de aquí para decidir qué enviar.

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alejandrodnm/autotrade/internal/domain"
	"github.com/alejandrodnm/autotrade/internal/ports"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS cycles (
    id                 TEXT PRIMARY KEY,
    started_at         DATETIME NOT NULL,
    finished_at        DATETIME NOT NULL,
    actionable_counter INTEGER  NOT NULL DEFAULT 0,
    actionable         INTEGER  NOT NULL DEFAULT 0,
    accepted           INTEGER  NOT NULL DEFAULT 0,
    accept_deferred    INTEGER  NOT NULL DEFAULT 0,
    batches            INTEGER  NOT NULL DEFAULT 0,
    offers_created     INTEGER  NOT NULL DEFAULT 0,
    confirmations      INTEGER  NOT NULL DEFAULT 0,
    skipped            TEXT
);

CREATE TABLE IF NOT EXISTS dispatches (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    cycle_id   TEXT     NOT NULL,
    offer_id   TEXT,
    buyer_id   INTEGER  NOT NULL,
    item_name  TEXT     NOT NULL,
    trade_ids  TEXT     NOT NULL,
    assets     TEXT     NOT NULL,
    outcome    TEXT     NOT NULL,
    error      TEXT,
    created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_cycles_at       ON cycles(started_at DESC);
CREATE INDEX IF NOT EXISTS idx_dispatches_at    ON dispatches(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_dispatches_buyer ON dispatches(buyer_id);
`

const (
	retentionCycles     = 30 * 24 * time.Hour
	retentionDispatches = 90 * 24 * time.Hour
)

var _ ports.HistoryStorage = (*SQLiteStorage)(nil)

// SQLiteStorage implementa ports.HistoryStorage usando SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada.
// Aplica el schema y limpia datos antiguos.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}

	s := &SQLiteStorage{db: db}
	s.pruneOld(context.Background())
	return s, nil
}

// SaveCycle persiste el resumen del ciclo y los batches que produjeron algo.
func (s *SQLiteStorage) SaveCycle(ctx context.Context, r *domain.CycleResult) error {
	if r == nil || r.ID == "" {
		return nil
	}
	finished := r.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveCycle: begin tx: %w", err)
	}
	defer tx.Rollback()

	deferred := 0
	if r.AcceptDeferred {
		deferred = 1
	}
	ins, err := tx.ExecContext(ctx, `
		INSERT INTO cycles
			(id, started_at, finished_at, actionable_counter, actionable, accepted,
			 accept_deferred, batches, offers_created, confirmations, skipped)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`,
		r.ID, r.StartedAt.UTC(), finished.UTC(), r.ActionableCounter, r.Actionable, r.Accepted,
		deferred, len(r.Batches), r.OffersCreated, r.Confirmations, nullString(r.Skipped),
	)
	if err != nil {
		return fmt.Errorf("storage.SaveCycle: insert cycle: %w", err)
	}
	// Ciclo ya guardado: sus dispatches también.
	if n, err := ins.RowsAffected(); err == nil && n == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO dispatches
			(cycle_id, offer_id, buyer_id, item_name, trade_ids, assets, outcome, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("storage.SaveCycle: prepare: %w", err)
	}
	defer stmt.Close()

	for _, b := range r.Batches {
		if b.Outcome == domain.OutcomeCovered {
			continue
		}
		tradeIDs, _ := json.Marshal(b.Batch.TradeIDs)
		assets := b.Batch.Assets
		if b.Outcome == domain.OutcomeMissing {
			assets = b.Missing
		}
		assetsJSON, _ := json.Marshal(assets)

		if _, err := stmt.ExecContext(ctx,
			r.ID,
			nullString(b.OfferID),
			int64(b.Batch.BuyerID()),
			b.Batch.Key.ItemName,
			string(tradeIDs),
			string(assetsJSON),
			string(b.Outcome),
			nullString(b.Err),
			finished.UTC(),
		); err != nil {
			return fmt.Errorf("storage.SaveCycle: insert dispatch %s: %w", b.Batch.PrimaryTradeID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SaveCycle: commit: %w", err)
	}
	return nil
}

// RecentDispatches devuelve los batches registrados desde since, más recientes primero.
func (s *SQLiteStorage) RecentDispatches(ctx context.Context, since time.Time) ([]ports.DispatchRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT cycle_id, COALESCE(offer_id, ''), buyer_id, item_name, trade_ids, assets, outcome, created_at
		FROM dispatches
		WHERE created_at >= ?
		ORDER BY created_at DESC, id DESC
	`, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("storage.RecentDispatches: query: %w", err)
	}
	defer rows.Close()

	var out []ports.DispatchRecord
	for rows.Next() {
		var rec ports.DispatchRecord
		var buyer int64
		var tradeIDs, assets, outcome string
		if err := rows.Scan(&rec.CycleID, &rec.OfferID, &buyer, &rec.ItemName,
			&tradeIDs, &assets, &outcome, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("storage.RecentDispatches: scan row: %w", err)
		}
		rec.BuyerID = uint64(buyer)
		rec.Outcome = domain.BatchOutcome(outcome)
		if err := json.Unmarshal([]byte(tradeIDs), &rec.TradeIDs); err != nil {
			return nil, fmt.Errorf("storage.RecentDispatches: trade ids: %w", err)
		}
		if err := json.Unmarshal([]byte(assets), &rec.Assets); err != nil {
			return nil, fmt.Errorf("storage.RecentDispatches: assets: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// CountCycles devuelve cuántos ciclos hay guardados.
func (s *SQLiteStorage) CountCycles(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cycles`).Scan(&n); err != nil {
		return 0, fmt.Errorf("storage.CountCycles: %w", err)
	}
	return n, nil
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// pruneOld elimina datos antiguos para mantener la DB ligera.
func (s *SQLiteStorage) pruneOld(ctx context.Context) {
	now := time.Now().UTC()
	s.db.ExecContext(ctx, `DELETE FROM cycles WHERE started_at < ?`, now.Add(-retentionCycles))
	s.db.ExecContext(ctx, `DELETE FROM dispatches WHERE created_at < ?`, now.Add(-retentionDispatches))
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
