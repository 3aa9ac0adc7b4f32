package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// CreateConfig stores a raw slicer configuration payload.
func (s *Store) CreateConfig(ctx context.Context, name string, payload json.RawMessage) (*ConfigDocument, error) {
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}
	now := timestamp()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO configs (name, payload, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		name, []byte(payload), now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert config: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetConfig(ctx, id)
}

// GetConfig fetches a configuration document by identifier.
func (s *Store) GetConfig(ctx context.Context, id int64) (*ConfigDocument, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, payload, created_at, updated_at FROM configs WHERE id = ?`, id)
	var (
		doc     ConfigDocument
		payload []byte
		created string
		updated string
	)
	if err := row.Scan(&doc.ID, &doc.Name, &payload, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get config: %w", err)
	}
	doc.Payload = json.RawMessage(payload)
	doc.CreatedAt = parseTimeString(created)
	doc.UpdatedAt = parseTimeString(updated)
	return &doc, nil
}

// CreateModel records an uploaded model file.
func (s *Store) CreateModel(ctx context.Context, name, filename string) (*Model, error) {
	if filename == "" {
		return nil, errors.New("model filename required")
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO models (name, filename, created_at) VALUES (?, ?, ?)`,
		name, filename, timestamp(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert model: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetModel(ctx, id)
}

// GetModel fetches a model by identifier.
func (s *Store) GetModel(ctx context.Context, id int64) (*Model, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, filename, created_at FROM models WHERE id = ?`, id)
	var (
		model   Model
		created string
	)
	if err := row.Scan(&model.ID, &model.Name, &model.Filename, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get model: %w", err)
	}
	model.CreatedAt = parseTimeString(created)
	return &model, nil
}

// CreateMaterial records a material with its pricing and config reference.
func (s *Store) CreateMaterial(ctx context.Context, name string, pricePerGram float64, configID *int64, active bool) (*Material, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO materials (name, price_per_gram, config_id, active, created_at) VALUES (?, ?, ?, ?, ?)`,
		name, pricePerGram, nullableID(configID), boolToInt(active), timestamp(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert material: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetMaterial(ctx, id)
}

// GetMaterial fetches a material by identifier.
func (s *Store) GetMaterial(ctx context.Context, id int64) (*Material, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, price_per_gram, config_id, active, created_at FROM materials WHERE id = ?`, id)
	return scanMaterial(row)
}

// CreateProcess records a process profile with its config reference.
func (s *Store) CreateProcess(ctx context.Context, name string, configID *int64, active bool) (*Process, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO processes (name, config_id, active, created_at) VALUES (?, ?, ?, ?)`,
		name, nullableID(configID), boolToInt(active), timestamp(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert process: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetProcess(ctx, id)
}

// GetProcess fetches a process by identifier.
func (s *Store) GetProcess(ctx context.Context, id int64) (*Process, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, config_id, active, created_at FROM processes WHERE id = ?`, id)
	var (
		process Process
		cfgID   sql.NullInt64
		active  int
		created string
	)
	if err := row.Scan(&process.ID, &process.Name, &cfgID, &active, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get process: %w", err)
	}
	if cfgID.Valid {
		process.ConfigID = &cfgID.Int64
	}
	process.Active = active != 0
	process.CreatedAt = parseTimeString(created)
	return &process, nil
}

// CreateMachine records a machine with its pricing and config reference.
func (s *Store) CreateMachine(ctx context.Context, name string, pricePerHour float64, configID *int64, active bool) (*Machine, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO machines (name, price_per_hour, config_id, active, created_at) VALUES (?, ?, ?, ?, ?)`,
		name, pricePerHour, nullableID(configID), boolToInt(active), timestamp(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert machine: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetMachine(ctx, id)
}

// GetMachine fetches a machine by identifier.
func (s *Store) GetMachine(ctx context.Context, id int64) (*Machine, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, price_per_hour, config_id, active, created_at FROM machines WHERE id = ?`, id)
	return scanMachine(row)
}

// FirstActiveMachine returns the lowest-id active machine, or nil when none exist.
// Quote items that omit a machine default to this record.
func (s *Store) FirstActiveMachine(ctx context.Context) (*Machine, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, price_per_hour, config_id, active, created_at FROM machines WHERE active = 1 ORDER BY id LIMIT 1`)
	return scanMachine(row)
}

func scanMaterial(row *sql.Row) (*Material, error) {
	var (
		material Material
		cfgID    sql.NullInt64
		active   int
		created  string
	)
	if err := row.Scan(&material.ID, &material.Name, &material.PricePerGram, &cfgID, &active, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get material: %w", err)
	}
	if cfgID.Valid {
		material.ConfigID = &cfgID.Int64
	}
	material.Active = active != 0
	material.CreatedAt = parseTimeString(created)
	return &material, nil
}

func scanMachine(row *sql.Row) (*Machine, error) {
	var (
		machine Machine
		cfgID   sql.NullInt64
		active  int
		created string
	)
	if err := row.Scan(&machine.ID, &machine.Name, &machine.PricePerHour, &cfgID, &active, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get machine: %w", err)
	}
	if cfgID.Valid {
		machine.ConfigID = &cfgID.Int64
	}
	machine.Active = active != 0
	machine.CreatedAt = parseTimeString(created)
	return &machine, nil
}
