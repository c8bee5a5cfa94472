package st

import (
	"log/slog"

	"dpt/internal/charset"
	"dpt/internal/config"
)

// NewOptions builds aggregation options from the st, range and aggregate
// sections of cfg.
func NewOptions(cfg *config.Config, logger *slog.Logger) (Options, error) {
	fields, err := FieldsFromConfig(cfg.ST)
	if err != nil {
		return Options{}, err
	}
	ranges, err := ParseStoreRanges(cfg.Range)
	if err != nil {
		return Options{}, err
	}
	warehouses, err := NewWarehouses(cfg.Aggregate.Warehouses)
	if err != nil {
		return Options{}, err
	}
	enc, err := charset.Parse(cfg.Aggregate.Encoding)
	if err != nil {
		return Options{}, err
	}

	return Options{
		Fields:     fields,
		Ranges:     ranges,
		Warehouses: warehouses,
		Encoding:   enc,
		Strict:     cfg.Aggregate.Strict,
		Logger:     logger,
	}, nil
}
