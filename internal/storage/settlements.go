package storage

import (
	"context"
	"database/sql"
	"fmt"

	"budget/internal/core"
)

func (r *Repository) InsertSettlement(ctx context.Context, s core.Settlement) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO settlements (person_id, transaction_id, amount, settlement_type, timestamp)
		 VALUES (?, ?, ?, ?, ?)`,
		s.PersonID, nullableID(s.TransactionID), s.Amount, string(s.SettlementType), s.Timestamp,
	)
	if err != nil {
		return 0, fmt.Errorf("insert settlement: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	r.watcher.notify(KindSettlement)
	return id, nil
}

// DeleteSettlement removes a settlement outright; settlements have no
// soft-delete flag.
func (r *Repository) DeleteSettlement(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM settlements WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete settlement: %w", err)
	}
	r.watcher.notify(KindSettlement)
	return nil
}

func (r *Repository) GetSettlement(ctx context.Context, id int64) (*core.Settlement, error) {
	s := &core.Settlement{}
	var txID sql.NullInt64
	var settlementType string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, person_id, transaction_id, amount, settlement_type, timestamp
		 FROM settlements WHERE id = ?`, id,
	).Scan(&s.ID, &s.PersonID, &txID, &s.Amount, &settlementType, &s.Timestamp)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get settlement: %w", err)
	}
	s.TransactionID = scanNullableID(txID)
	s.SettlementType = core.SettlementType(settlementType)
	return s, nil
}

// ListSettlements returns every settlement in chronological order.
func (r *Repository) ListSettlements(ctx context.Context) ([]core.Settlement, error) {
	return r.listSettlements(ctx,
		`SELECT id, person_id, transaction_id, amount, settlement_type, timestamp
		 FROM settlements ORDER BY timestamp ASC, id ASC`)
}

func (r *Repository) ListSettlementsForPerson(ctx context.Context, personID int64) ([]core.Settlement, error) {
	return r.listSettlements(ctx,
		`SELECT id, person_id, transaction_id, amount, settlement_type, timestamp
		 FROM settlements WHERE person_id = ? ORDER BY timestamp ASC, id ASC`,
		personID)
}

func (r *Repository) ListSettlementsForTransaction(ctx context.Context, transactionID int64) ([]core.Settlement, error) {
	return r.listSettlements(ctx,
		`SELECT id, person_id, transaction_id, amount, settlement_type, timestamp
		 FROM settlements WHERE transaction_id = ? ORDER BY timestamp ASC, id ASC`,
		transactionID)
}

func (r *Repository) listSettlements(ctx context.Context, query string, args ...any) ([]core.Settlement, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list settlements: %w", err)
	}
	defer rows.Close()

	var settlements []core.Settlement
	for rows.Next() {
		var s core.Settlement
		var txID sql.NullInt64
		var settlementType string
		if err := rows.Scan(&s.ID, &s.PersonID, &txID, &s.Amount, &settlementType, &s.Timestamp); err != nil {
			return nil, fmt.Errorf("scan settlement: %w", err)
		}
		s.TransactionID = scanNullableID(txID)
		s.SettlementType = core.SettlementType(settlementType)
		settlements = append(settlements, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate settlements: %w", err)
	}
	return settlements, nil
}
