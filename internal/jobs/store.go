package jobs

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"platen/internal/config"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema
// changes; users must clear the job database after schema changes.
const schemaVersion = 1

// Store manages job and dispatch-queue persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the job database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.DataDir, "jobs.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location for diagnostics.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("job database has schema version %d, expected %d (run 'platen queue clear' or delete the database)", version, schemaVersion)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

const jobColumns = `id, model_id, material_id, process_id, machine_id, status, plates_json,
    estimated_weight, estimated_duration, estimated_price,
    weight_override, duration_override, price_override,
    slicing_command, slicer_output, error_message, created_at, updated_at`

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		job          Job
		statusStr    string
		platesJSON   sql.NullString
		estWeight    sql.NullFloat64
		estDuration  sql.NullFloat64
		estPrice     sql.NullFloat64
		weightOver   sql.NullFloat64
		durationOver sql.NullFloat64
		priceOver    sql.NullFloat64
		command      sql.NullString
		output       sql.NullString
		errorMessage sql.NullString
		createdRaw   string
		updatedRaw   string
	)

	if err := scanner.Scan(
		&job.ID,
		&job.Tuple.ModelID,
		&job.Tuple.MaterialID,
		&job.Tuple.ProcessID,
		&job.Tuple.MachineID,
		&statusStr,
		&platesJSON,
		&estWeight,
		&estDuration,
		&estPrice,
		&weightOver,
		&durationOver,
		&priceOver,
		&command,
		&output,
		&errorMessage,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	job.Status = Status(statusStr)
	job.EstimatedWeight = nullFloat(estWeight)
	job.EstimatedDuration = nullFloat(estDuration)
	job.EstimatedPrice = nullFloat(estPrice)
	job.WeightOverride = nullFloat(weightOver)
	job.DurationOverride = nullFloat(durationOver)
	job.PriceOverride = nullFloat(priceOver)
	job.SlicingCommand = command.String
	job.SlicerOutput = output.String
	job.ErrorMessage = errorMessage.String

	if platesJSON.Valid && platesJSON.String != "" {
		if err := json.Unmarshal([]byte(platesJSON.String), &job.Plates); err != nil {
			return nil, fmt.Errorf("decode plates: %w", err)
		}
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		job.UpdatedAt = updated
	}
	return &job, nil
}

func marshalPlates(plates []Plate) (any, error) {
	if len(plates) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(plates)
	if err != nil {
		return nil, fmt.Errorf("encode plates: %w", err)
	}
	return string(raw), nil
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}

func nullableFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
