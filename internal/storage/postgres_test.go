package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dpt/internal/config"
	apperrors "dpt/internal/errors"
	"dpt/internal/st"
)

func sampleResult() *st.Result {
	day := time.Date(2021, 1, 10, 0, 0, 0, 0, time.UTC)
	m := &st.Material{ID: 7, WarehouseID: 11751, Name: "A"}
	m.Stores[st.BucketLocalJmj] = 1
	m.Quantity[st.BucketLocalJmj] = 8
	m.Daily = st.DailyStats{FirstDate: day, LastDate: day, Max: 8, Min: 8, MaxDate: day, MinDate: day}

	return &st.Result{
		Materials: map[uint32]*st.Material{7: m, 3: {ID: 3, Name: "B"}},
		Stores: map[uint32]*st.Store{
			100: {ID: 100, Name: "S1", Type: st.StoreJmj, Loc: st.LocLocal, SKUInUse: 2, Amount: 80},
		},
		Brands: map[st.BrandType]*st.Brand{
			st.BrandOth: {Brand: st.BrandOth},
			st.BrandJmj: {Brand: st.BrandJmj, Amount: 80, SKUInUse: 2},
		},
		Stats: st.Stats{Files: 1, RowsRead: 2, Aggregated: 2},
	}
}

func TestMaterialRows(t *testing.T) {
	id := uuid.New()
	rows := MaterialRows(id, sampleResult())

	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.Len(t, row, len(materialColumns))
		assert.Equal(t, id, row[0])
	}
	assert.Equal(t, int64(3), rows[0][1])
	assert.Nil(t, rows[0][6], "absent dates are NULL")

	assert.Equal(t, int64(7), rows[1][1])
	assert.Equal(t, int32(11751), rows[1][2])
	assert.Equal(t, time.Date(2021, 1, 10, 0, 0, 0, 0, time.UTC), rows[1][6])
	assert.Equal(t, []int64{1, 0, 0, 0, 0, 0, 0, 0}, rows[1][12])
	assert.Equal(t, []float64{8, 0, 0, 0, 0, 0, 0, 0}, rows[1][14])
}

func TestStoreRows(t *testing.T) {
	rows := StoreRows(uuid.Nil, sampleResult())

	require.Len(t, rows, 1)
	assert.Len(t, rows[0], len(storeColumns))
	assert.Equal(t, []any{int64(100), "S1", "Jmj", "Local", int64(2), 80.0}, rows[0][1:7])
}

func TestBrandRows(t *testing.T) {
	rows := BrandRows(uuid.Nil, sampleResult())

	require.Len(t, rows, 2)
	assert.Len(t, rows[0], len(brandColumns))
	assert.Equal(t, "Jmj", rows[0][1])
	assert.Equal(t, "Oth", rows[1][1])
	assert.Len(t, rows[0][5], st.WarehouseSlots)
}

func TestOpen_RequiresDSN(t *testing.T) {
	_, err := Open(context.Background(), config.DatabaseConfig{}, nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))
}

func TestStore_SaveRun(t *testing.T) {
	// Set DPT_TEST_DATABASE_DSN to run against a scratch database.
	dsn := os.Getenv("DPT_TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("DPT_TEST_DATABASE_DSN not set, skipping integration test")
	}

	ctx := context.Background()
	s, err := Open(ctx, config.DatabaseConfig{DSN: dsn, MaxConns: 2}, nil)
	require.NoError(t, err)
	defer s.Close()

	id, err := s.SaveRun(ctx, Run{Source: "test.csv", Encoding: "UTF8"}, sampleResult())
	require.NoError(t, err)

	var materials int
	require.NoError(t, s.pool.QueryRow(ctx,
		"SELECT count(*) FROM st_materials WHERE run_id = $1", id).Scan(&materials))
	assert.Equal(t, 2, materials)

	_, err = s.pool.Exec(ctx, "DELETE FROM st_runs WHERE id = $1", id)
	require.NoError(t, err)
}
