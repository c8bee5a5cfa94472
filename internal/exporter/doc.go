// Package exporter writes aggregation results as CSV reports.
//
// CSVWriter is the low level writer: UTF-8 BOM for Excel, CRLF records and
// relative paths resolved against the reports directory. STReportWriter
// renders an st.Result into the three ST reports:
//
//	sku.csv    one row per material, 43 columns
//	store.csv  one row per store
//	brand.csv  one row per brand, with per-warehouse columns
//
// Example usage:
//
//	w := exporter.NewSTReportWriter(exporter.NewCSVWriter(paths), warehouses)
//	files, err := w.WriteAll(result, "")
package exporter
