package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// CreateQuote inserts a quote and its items. Item positions are assigned from
// slice order.
func (s *Store) CreateQuote(ctx context.Context, quote *Quote) (*Quote, error) {
	if quote == nil {
		return nil, errors.New("quote is nil")
	}
	now := timestamp()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin quote tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO quotes (customer, subtotal, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		nullableString(quote.Customer), quote.Subtotal, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert quote: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	if err := insertItems(ctx, tx, id, quote.Items); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit quote: %w", err)
	}
	return s.GetQuote(ctx, id)
}

// UpdateQuote rewrites a quote's subtotal and items.
func (s *Store) UpdateQuote(ctx context.Context, quote *Quote) error {
	if quote == nil {
		return errors.New("quote is nil")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin quote tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE quotes SET customer = ?, subtotal = ?, updated_at = ? WHERE id = ?`,
		nullableString(quote.Customer), quote.Subtotal, timestamp(), quote.ID,
	)
	if err != nil {
		return fmt.Errorf("update quote: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("quote %d not found", quote.ID)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM quote_items WHERE quote_id = ?`, quote.ID); err != nil {
		return fmt.Errorf("clear quote items: %w", err)
	}
	if err := insertItems(ctx, tx, quote.ID, quote.Items); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit quote: %w", err)
	}
	return nil
}

// GetQuote fetches a quote with its items ordered by position.
func (s *Store) GetQuote(ctx context.Context, id int64) (*Quote, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, customer, subtotal, created_at, updated_at FROM quotes WHERE id = ?`, id)
	var (
		quote    Quote
		customer sql.NullString
		created  string
		updated  string
	)
	if err := row.Scan(&quote.ID, &customer, &quote.Subtotal, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get quote: %w", err)
	}
	quote.Customer = customer.String
	quote.CreatedAt = parseTimeString(created)
	quote.UpdatedAt = parseTimeString(updated)

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, position, model_id, material_id, colour, process_id, machine_id, quantity, job_id
         FROM quote_items WHERE quote_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("query quote items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			item       QuoteItem
			modelID    sql.NullInt64
			materialID sql.NullInt64
			colour     sql.NullString
			processID  sql.NullInt64
			machineID  sql.NullInt64
			jobID      sql.NullInt64
		)
		if err := rows.Scan(&item.ID, &item.Position, &modelID, &materialID, &colour, &processID, &machineID, &item.Quantity, &jobID); err != nil {
			return nil, fmt.Errorf("scan quote item: %w", err)
		}
		item.ModelID = nullInt(modelID)
		item.MaterialID = nullInt(materialID)
		item.Colour = colour.String
		item.ProcessID = nullInt(processID)
		item.MachineID = nullInt(machineID)
		item.JobID = nullInt(jobID)
		quote.Items = append(quote.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &quote, nil
}

// QuotesReferencingJob returns the ids of quotes with an item resolved to the
// given job. Used to refresh subtotals after the job finishes slicing.
func (s *Store) QuotesReferencingJob(ctx context.Context, jobID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT quote_id FROM quote_items WHERE job_id = ? ORDER BY quote_id`, jobID)
	if err != nil {
		return nil, fmt.Errorf("query quotes by job: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func insertItems(ctx context.Context, tx *sql.Tx, quoteID int64, items []QuoteItem) error {
	for i, item := range items {
		quantity := item.Quantity
		if quantity < 1 {
			quantity = 1
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO quote_items (quote_id, position, model_id, material_id, colour, process_id, machine_id, quantity, job_id)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			quoteID, i,
			nullableID(item.ModelID), nullableID(item.MaterialID), nullableString(item.Colour),
			nullableID(item.ProcessID), nullableID(item.MachineID), quantity, nullableID(item.JobID),
		); err != nil {
			return fmt.Errorf("insert quote item %d: %w", i, err)
		}
	}
	return nil
}

func nullInt(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	return &v.Int64
}
