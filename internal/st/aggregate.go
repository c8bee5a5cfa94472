package st

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"dpt/internal/charset"
	apperrors "dpt/internal/errors"
)

// WarehouseSlots is the number of warehouse columns in the brand report:
// seven configured repository ids plus one for everything else.
const WarehouseSlots = 8

// Warehouses are the repository ids with their own brand report column.
type Warehouses [WarehouseSlots - 1]uint16

// NewWarehouses converts a configured id list. It must hold exactly seven ids.
func NewWarehouses(ids []uint16) (Warehouses, error) {
	var w Warehouses
	if len(ids) != len(w) {
		return w, apperrors.NewConfigError("aggregate.warehouses")
	}
	copy(w[:], ids)
	return w, nil
}

// Slot returns the brand report column of wid.
func (w *Warehouses) Slot(wid uint16) int {
	for i, id := range w {
		if id == wid {
			return i
		}
	}
	return WarehouseSlots - 1
}

// Options configure an Aggregator.
type Options struct {
	Fields     Fields
	Ranges     StoreRanges
	Warehouses Warehouses
	Encoding   charset.Encoding
	// Strict aborts the run on the first undecodable row instead of skipping it.
	Strict bool
	Logger *slog.Logger
}

// Stats counts what happened to the rows of a run.
type Stats struct {
	Files        int `json:"files"`
	RowsRead     int `json:"rows_read"`
	Aggregated   int `json:"rows_aggregated"`
	Skipped      int `json:"rows_skipped"`
	ZeroQuantity int `json:"rows_zero_quantity"`
	// Sentinels counts files that ended on a short or blank-id row.
	Sentinels int           `json:"sentinels"`
	Duration  time.Duration `json:"duration_ns"`
}

// Result is the finalized output of a run.
type Result struct {
	Materials map[uint32]*Material
	Stores    map[uint32]*Store
	Brands    map[BrandType]*Brand
	Stats     Stats
}

type materialStore struct {
	mid, sid uint32
}

type materialBrand struct {
	mid   uint32
	brand BrandType
}

// Aggregator folds ST exports into material, store and brand aggregates.
// Several files may be fed into one run; dedup sets and per-date groupings
// span all of them and the temporal fields are computed once by Finish.
// An Aggregator is not safe for concurrent use.
type Aggregator struct {
	opts   Options
	logger *slog.Logger
	tok    *Tokenizer

	materials map[uint32]*Material
	stores    map[uint32]*Store
	brands    map[BrandType]*Brand

	materialDaily map[uint32]map[time.Time]float64
	storeDaily    map[uint32]map[time.Time]float64
	storeSKUs     map[uint32]map[uint32]struct{}
	materialStore map[materialStore]struct{}
	materialBrand map[materialBrand]struct{}

	stats    Stats
	started  time.Time
	err      error
	finished bool
}

// NewAggregator returns an empty run.
func NewAggregator(opts Options) *Aggregator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		opts:          opts,
		logger:        logger.With(slog.String("component", "st_aggregator")),
		tok:           NewTokenizer(),
		materials:     make(map[uint32]*Material),
		stores:        make(map[uint32]*Store),
		brands:        make(map[BrandType]*Brand),
		materialDaily: make(map[uint32]map[time.Time]float64),
		storeDaily:    make(map[uint32]map[time.Time]float64),
		storeSKUs:     make(map[uint32]map[uint32]struct{}),
		materialStore: make(map[materialStore]struct{}),
		materialBrand: make(map[materialBrand]struct{}),
		started:       time.Now(),
	}
}

// ctxCheckInterval is how many rows pass between context checks.
const ctxCheckInterval = 4096

// Feed reads one export. The first line is its header; rows are consumed
// until EOF or the end-of-data sentinel. name only labels log records.
func (a *Aggregator) Feed(ctx context.Context, r io.Reader, name string) error {
	if a.err != nil {
		return a.err
	}
	if a.finished {
		return errors.New("st: feed after finish")
	}

	logger := a.logger.With(slog.String("file", name))
	logger.InfoContext(ctx, "aggregating export")
	before, start := a.stats, time.Now()

	if err := a.feed(ctx, logger, r, name); err != nil {
		a.err = err
		logger.ErrorContext(ctx, "export aborted",
			slog.Int("rows_read", a.stats.RowsRead-before.RowsRead),
			slog.String("error", err.Error()))
		return err
	}

	logger.InfoContext(ctx, "export aggregated",
		slog.Int("rows_read", a.stats.RowsRead-before.RowsRead),
		slog.Int("rows_aggregated", a.stats.Aggregated-before.Aggregated),
		slog.Int("rows_skipped", a.stats.Skipped-before.Skipped),
		slog.Int("rows_zero_quantity", a.stats.ZeroQuantity-before.ZeroQuantity),
		slog.Bool("sentinel", a.stats.Sentinels > before.Sentinels),
		slog.Duration("duration", time.Since(start)))
	return nil
}

func (a *Aggregator) feed(ctx context.Context, logger *slog.Logger, r io.Reader, name string) error {
	br := bufio.NewReaderSize(r, 64*1024)
	dec := a.opts.Encoding.NewDecoder()

	raw, err := readLine(br)
	if err != nil && !errors.Is(err, io.EOF) {
		return apperrors.NewIOError(fmt.Sprintf("read header of %s", name), err)
	}
	if len(raw) == 0 {
		logger.WarnContext(ctx, "empty export, nothing to aggregate")
		a.stats.Files++
		return nil
	}
	header, err := dec.Decode(raw)
	if err != nil {
		return err
	}
	schema := ResolveSchema(a.tok, header, a.opts.Fields)
	logger.DebugContext(ctx, "header resolved", slog.Any("schema", schema))
	a.stats.Files++

	line := 1
	for {
		raw, err := readLine(br)
		if len(raw) == 0 {
			if err == nil || errors.Is(err, io.EOF) {
				return nil
			}
			return apperrors.NewIOError(fmt.Sprintf("read %s", name), err)
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return apperrors.NewIOError(fmt.Sprintf("read %s", name), err)
		}
		line++
		a.stats.RowsRead++

		if line%ctxCheckInterval == 0 {
			if cerr := ctx.Err(); cerr != nil {
				return cerr
			}
		}

		text, derr := dec.Decode(raw)
		var rec *Record
		if derr == nil {
			rec, derr = DecodeRecord(a.tok, text, schema)
		}
		if derr != nil {
			if a.opts.Strict {
				return apperrors.NewMalformedDataError(derr, line)
			}
			a.stats.Skipped++
			logger.WarnContext(ctx, "skipping malformed row",
				slog.Int("line", line),
				slog.String("error", apperrors.Message(derr)))
			continue
		}
		if rec == nil {
			a.stats.Sentinels++
			logger.DebugContext(ctx, "end of data", slog.Int("line", line))
			return nil
		}

		a.add(rec)
	}
}

// readLine returns the next line including its "\n", or the unterminated
// tail of the input together with io.EOF.
func readLine(br *bufio.Reader) ([]byte, error) {
	return br.ReadBytes('\n')
}

// add folds one decoded record into the running state.
func (a *Aggregator) add(rec *Record) {
	if rec.Quantity == 0 {
		a.stats.ZeroQuantity++
		return
	}
	a.stats.Aggregated++

	mat := a.material(rec)
	store := a.store(rec)
	brand := NewBrandType(store.Type, store.Loc)
	bucket := BucketFor(store.Type, store.Loc)

	if rec.Quantity > 0 {
		key := materialStore{rec.MaterialID, rec.StoreID}
		if _, seen := a.materialStore[key]; !seen {
			a.materialStore[key] = struct{}{}
			mat.Stores[bucket]++
		}
		mat.ReqTimes[bucket]++
	}
	mat.Quantity[bucket] += rec.Quantity
	mat.Amount[bucket] += rec.Amount

	if !rec.Date.IsZero() {
		addDaily(a.materialDaily, rec.MaterialID, rec.Date, rec.Quantity)
		addDaily(a.storeDaily, rec.StoreID, rec.Date, rec.Amount)
	}

	store.Amount += rec.Amount
	skus, ok := a.storeSKUs[rec.StoreID]
	if !ok {
		skus = make(map[uint32]struct{})
		a.storeSKUs[rec.StoreID] = skus
	}
	if _, seen := skus[rec.MaterialID]; !seen {
		skus[rec.MaterialID] = struct{}{}
		store.SKUInUse++
	}

	b := a.brand(brand)
	slot := a.opts.Warehouses.Slot(rec.WarehouseID)
	b.Amount += rec.Amount
	b.AmountByWarehouse[slot] += rec.Amount
	key := materialBrand{rec.MaterialID, brand}
	if _, seen := a.materialBrand[key]; !seen {
		a.materialBrand[key] = struct{}{}
		b.SKUInUse++
		b.SKUInUseByWarehouse[slot]++
	}
}

// material returns the entry for rec's material, creating it from rec.
func (a *Aggregator) material(rec *Record) *Material {
	m, ok := a.materials[rec.MaterialID]
	if !ok {
		m = &Material{ID: rec.MaterialID, WarehouseID: rec.WarehouseID, Name: rec.Material}
		a.materials[rec.MaterialID] = m
	}
	return m
}

// store returns the entry for rec's store, classifying it on creation.
func (a *Aggregator) store(rec *Record) *Store {
	s, ok := a.stores[rec.StoreID]
	if !ok {
		t, loc := a.opts.Ranges.Classify(rec.StoreID)
		s = &Store{ID: rec.StoreID, Name: rec.Store, Type: t, Loc: loc}
		a.stores[rec.StoreID] = s
	}
	return s
}

func (a *Aggregator) brand(bt BrandType) *Brand {
	b, ok := a.brands[bt]
	if !ok {
		b = &Brand{Brand: bt}
		a.brands[bt] = b
	}
	return b
}

func addDaily(m map[uint32]map[time.Time]float64, id uint32, day time.Time, v float64) {
	byDay, ok := m[id]
	if !ok {
		byDay = make(map[time.Time]float64)
		m[id] = byDay
	}
	byDay[day] += v
}

// Finish computes the temporal fields and returns the result maps. The
// Aggregator cannot be fed afterwards.
func (a *Aggregator) Finish() (*Result, error) {
	if a.err != nil {
		return nil, a.err
	}
	if a.finished {
		return nil, errors.New("st: finish called twice")
	}
	a.finished = true

	for id, byDay := range a.materialDaily {
		if m, ok := a.materials[id]; ok {
			m.Daily = summarize(byDay)
		}
	}
	for id, byDay := range a.storeDaily {
		if s, ok := a.stores[id]; ok {
			s.Daily = summarize(byDay)
		}
	}
	a.materialDaily = nil
	a.storeDaily = nil

	a.stats.Duration = time.Since(a.started)
	a.logger.Info("aggregation finished",
		slog.Int("files", a.stats.Files),
		slog.Int("rows_read", a.stats.RowsRead),
		slog.Int("rows_aggregated", a.stats.Aggregated),
		slog.Int("rows_skipped", a.stats.Skipped),
		slog.Int("materials", len(a.materials)),
		slog.Int("stores", len(a.stores)),
		slog.Int("brands", len(a.brands)),
		slog.Duration("duration", a.stats.Duration))

	return &Result{
		Materials: a.materials,
		Stores:    a.stores,
		Brands:    a.brands,
		Stats:     a.stats,
	}, nil
}

// Aggregate runs a single export end to end.
func Aggregate(ctx context.Context, r io.Reader, opts Options) (*Result, error) {
	agg := NewAggregator(opts)
	if err := agg.Feed(ctx, r, "input"); err != nil {
		return nil, err
	}
	return agg.Finish()
}
