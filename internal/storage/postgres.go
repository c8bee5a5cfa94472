package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dpt/internal/config"
	apperrors "dpt/internal/errors"
	"dpt/internal/infrastructure"
	"dpt/internal/st"
)

// Run describes where a result came from.
type Run struct {
	Source   string
	Encoding string
	Strict   bool
}

// Store writes runs to PostgreSQL.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// Open connects to cfg.DSN and creates the report tables if missing.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*Store, error) {
	if cfg.DSN == "" {
		return nil, apperrors.NewConfigError("database.dsn")
	}
	if logger == nil {
		logger = slog.Default()
	}

	pcfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, apperrors.NewConfigError("database.dsn")
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, apperrors.NewStorageError("unable to create connection pool", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, apperrors.NewStorageError("unable to ping database", err)
	}

	s := &Store{pool: pool, logger: infrastructure.WithComponent(logger, "storage")}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Ping checks the connection to the database.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return apperrors.NewStorageError("database unreachable", err)
	}
	return nil
}

// Migrate creates the report tables.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return apperrors.NewStorageError("failed to create tables", err)
	}
	return nil
}

// SaveRun stores res in a single transaction and returns the run id.
func (s *Store) SaveRun(ctx context.Context, run Run, res *st.Result) (uuid.UUID, error) {
	id := uuid.New()
	start := time.Now()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, apperrors.NewStorageError("failed to begin transaction", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO st_runs (id, source, encoding, strict, files, rows_read, rows_aggregated, rows_skipped, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, id, run.Source, run.Encoding, run.Strict, res.Stats.Files,
		res.Stats.RowsRead, res.Stats.Aggregated, res.Stats.Skipped, res.Stats.Duration.Milliseconds())
	if err != nil {
		return uuid.Nil, apperrors.NewStorageError("failed to insert run", err)
	}

	copies := []struct {
		table   string
		columns []string
		rows    [][]any
	}{
		{"st_materials", materialColumns, MaterialRows(id, res)},
		{"st_stores", storeColumns, StoreRows(id, res)},
		{"st_brands", brandColumns, BrandRows(id, res)},
	}
	for _, c := range copies {
		n, err := tx.CopyFrom(ctx, pgx.Identifier{c.table}, c.columns, pgx.CopyFromRows(c.rows))
		if err != nil {
			return uuid.Nil, apperrors.NewStorageError(fmt.Sprintf("failed to copy %s", c.table), err)
		}
		s.logger.DebugContext(ctx, "rows copied", slog.String("table", c.table), slog.Int64("rows", n))
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, apperrors.NewStorageError("failed to commit run", err)
	}

	s.logger.InfoContext(ctx, "run saved",
		slog.String("run_id", id.String()),
		slog.Int("materials", len(res.Materials)),
		slog.Int("stores", len(res.Stores)),
		slog.Int("brands", len(res.Brands)),
		slog.Duration("duration", time.Since(start)))
	return id, nil
}

// MaterialRows renders st_materials rows ordered by material id.
func MaterialRows(runID uuid.UUID, res *st.Result) [][]any {
	ids := make([]uint32, 0, len(res.Materials))
	for id := range res.Materials {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	rows := make([][]any, 0, len(ids))
	for _, id := range ids {
		m := res.Materials[id]
		rows = append(rows, []any{
			runID, int64(m.ID), int32(m.WarehouseID), m.Name,
			m.Daily.Max, m.Daily.Min, nullDate(m.Daily.MaxDate), nullDate(m.Daily.MinDate),
			int32(m.Daily.MaxGap), int32(m.Daily.MinGap),
			nullDate(m.Daily.FirstDate), nullDate(m.Daily.LastDate),
			ints(m.Stores[:]), ints(m.ReqTimes[:]), m.Quantity[:], m.Amount[:],
		})
	}
	return rows
}

// StoreRows renders st_stores rows ordered by store id.
func StoreRows(runID uuid.UUID, res *st.Result) [][]any {
	ids := make([]uint32, 0, len(res.Stores))
	for id := range res.Stores {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	rows := make([][]any, 0, len(ids))
	for _, id := range ids {
		s := res.Stores[id]
		rows = append(rows, []any{
			runID, int64(s.ID), s.Name, s.Type.String(), s.Loc.String(),
			int64(s.SKUInUse), s.Amount,
			s.Daily.Max, s.Daily.Min, nullDate(s.Daily.MaxDate), nullDate(s.Daily.MinDate),
			int32(s.Daily.MaxGap), int32(s.Daily.MinGap),
			nullDate(s.Daily.FirstDate), nullDate(s.Daily.LastDate),
		})
	}
	return rows
}

// BrandRows renders st_brands rows in brand order.
func BrandRows(runID uuid.UUID, res *st.Result) [][]any {
	var rows [][]any
	for _, bt := range st.BrandTypes {
		b, ok := res.Brands[bt]
		if !ok {
			continue
		}
		rows = append(rows, []any{
			runID, b.Brand.String(), b.Amount, int64(b.SKUInUse),
			b.AmountByWarehouse[:], ints(b.SKUInUseByWarehouse[:]),
		})
	}
	return rows
}

func ints(v []uint32) []int64 {
	out := make([]int64, len(v))
	for i, n := range v {
		out[i] = int64(n)
	}
	return out
}

// nullDate maps an absent date to NULL.
func nullDate(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
