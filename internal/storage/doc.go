// Package storage persists ST aggregation runs to PostgreSQL.
//
// Each run gets a UUID and one row in st_runs; its material, store and brand
// reports are bulk copied into st_materials, st_stores and st_brands.
package storage
