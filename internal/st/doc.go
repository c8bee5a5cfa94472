// Package st aggregates ST (material requisition) exports from the ERP into
// per-material, per-store and per-brand statistics.
//
// A run reads one or more exports line by line. Each line is decoded from the
// configured charset, split by Tokenizer, decoded into a Record against the
// Schema resolved from that file's header, classified, and folded into the
// running state. Finish sorts the per-date groupings and fills in the temporal
// fields (first/last day, busiest/quietest day, gaps between active days).
//
//	agg := st.NewAggregator(st.Options{Fields: fields, Ranges: ranges, Warehouses: ids})
//	for _, f := range files {
//	    if err := agg.Feed(ctx, f, name); err != nil { ... }
//	}
//	result, err := agg.Finish()
package st
