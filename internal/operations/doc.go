// Package operations runs the ST pipeline as a sequence of steps.
//
// A Manager executes registered Steps in order against a shared
// OperationState. The standard pipeline is:
//
//	convert    xlsx inputs to csv
//	aggregate  csv inputs into an st.Result
//	export     sku.csv, store.csv and brand.csv
//	persist    the result to PostgreSQL, skipped without a sink
//
// A failed step fails the operation and skips every later step. Each step
// runs in its own span and records step metrics.
package operations
