// Package pgsource provides a PostgreSQL implementation of kb.Source.
package pgsource

import (
	"context"
	_ "embed"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linnemanlabs/warden/internal/kb"
)

var tracer = otel.Tracer("github.com/linnemanlabs/warden/internal/kb/pgsource")

//go:embed schema.sql
var schema string

// Source reads knowledge base entries from the incident_kb table on every Load.
type Source struct {
	pool *pgxpool.Pool
}

// New applies the schema on the given pool and returns a ready Source.
// The caller owns the pool.
func New(ctx context.Context, pool *pgxpool.Pool) (*Source, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Source{pool: pool}, nil
}

const entryColumns = `summary, service, impact, priority, category, assignment_group, major_incident`

// Load returns all entries in insertion order.
func (s *Source) Load(ctx context.Context) ([]kb.Entry, error) {
	ctx, span := tracer.Start(ctx, "pgsource.Load", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	rows, err := s.pool.Query(ctx, `SELECT `+entryColumns+` FROM incident_kb ORDER BY id`)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("query incident_kb: %w", err)
	}

	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (kb.Entry, error) {
		var e kb.Entry
		err := row.Scan(&e.Summary, &e.Service, &e.Impact, &e.Priority, &e.Category, &e.AssignmentGroup, &e.MajorIncident)
		return e, err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("scan incident_kb: %w", err)
	}

	if err := kb.Validate(entries); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("incident_kb: %w", err)
	}

	span.SetAttributes(attribute.Int("warden.kb.entries", len(entries)))
	return entries, nil
}

// SeedIfEmpty inserts entries when the table has no rows. It reports whether
// anything was inserted.
func (s *Source) SeedIfEmpty(ctx context.Context, entries []kb.Entry) (bool, error) {
	ctx, span := tracer.Start(ctx, "pgsource.SeedIfEmpty", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "INSERT"),
	))
	defer span.End()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// serialize concurrent seeders
	if _, err := tx.Exec(ctx, `LOCK TABLE incident_kb IN EXCLUSIVE MODE`); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, fmt.Errorf("lock incident_kb: %w", err)
	}

	var n int
	if err := tx.QueryRow(ctx, `SELECT count(*) FROM incident_kb`).Scan(&n); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, fmt.Errorf("count incident_kb: %w", err)
	}
	if n > 0 {
		return false, nil
	}

	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(`INSERT INTO incident_kb (`+entryColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			e.Summary, e.Service, e.Impact, e.Priority, e.Category, e.AssignmentGroup, e.MajorIncident)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, fmt.Errorf("insert incident_kb: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, fmt.Errorf("commit: %w", err)
	}
	span.SetAttributes(attribute.Int("warden.kb.seeded", len(entries)))
	return true, nil
}
