// Package pgstore provides a PostgreSQL implementation of incident.Store.
package pgstore

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linnemanlabs/remedy/internal/incident"
)

var tracer = otel.Tracer("github.com/linnemanlabs/remedy/internal/incident/pgstore")

//go:embed schema.sql
var schema string

// Store persists incident reports in PostgreSQL. The table carries the
// denormalized listing columns plus the full report as a JSONB blob; the
// blob is authoritative for reads by id.
type Store struct {
	pool *pgxpool.Pool
}

// New applies the schema and returns a ready Store.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Save upserts the report by incident id. The primary-key upsert gives
// per-incident single-writer discipline: concurrent saves for the same id
// serialize on the row instead of interleaving.
func (s *Store) Save(ctx context.Context, r *incident.Report) error {
	ctx, span := tracer.Start(ctx, "pgstore.Save", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "UPSERT"),
	))
	defer span.End()

	blob, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	query := `INSERT INTO incidents (
		incident_id, correlation_id, status, incident_type, severity,
		summary, created_at, updated_at, report
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	ON CONFLICT (incident_id) DO UPDATE SET
		status        = EXCLUDED.status,
		incident_type = EXCLUDED.incident_type,
		severity      = EXCLUDED.severity,
		summary       = EXCLUDED.summary,
		updated_at    = EXCLUDED.updated_at,
		report        = EXCLUDED.report`

	_, err = s.pool.Exec(ctx, query,
		r.IncidentID, r.CorrelationID, string(r.Status), r.IncidentType, r.Severity,
		r.Summary, r.CreatedAt, r.UpdatedAt, blob,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("upsert incident: %w", err)
	}
	return nil
}

// Get retrieves the full report by incident id.
func (s *Store) Get(ctx context.Context, id string) (*incident.Report, bool, error) {
	ctx, span := tracer.Start(ctx, "pgstore.Get", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	var blob []byte
	err := s.pool.QueryRow(ctx,
		`SELECT report FROM incidents WHERE incident_id = $1`, id,
	).Scan(&blob)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, fmt.Errorf("select incident: %w", err)
	}

	var r incident.Report
	if err := json.Unmarshal(blob, &r); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, fmt.Errorf("unmarshal report: %w", err)
	}
	return &r, true, nil
}

// List returns summaries ordered by most recently updated first, with
// per-stage latencies derived from each report's timing ledger.
func (s *Store) List(ctx context.Context) ([]incident.Summary, error) {
	ctx, span := tracer.Start(ctx, "pgstore.List", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	rows, err := s.pool.Query(ctx,
		`SELECT report FROM incidents ORDER BY updated_at DESC`)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("select incidents: %w", err)
	}
	defer rows.Close()

	var out []incident.Summary
	for rows.Next() {
		var blob []byte
		if err := rows.Scan(&blob); err != nil {
			return nil, fmt.Errorf("scan incident: %w", err)
		}
		var r incident.Report
		if err := json.Unmarshal(blob, &r); err != nil {
			return nil, fmt.Errorf("unmarshal report: %w", err)
		}
		out = append(out, incident.Summarize(&r))
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("iterate incidents: %w", err)
	}
	return out, nil
}
