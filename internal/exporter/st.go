package exporter

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strconv"

	"dpt/internal/st"
)

// Report file names.
const (
	SKUFile   = "sku.csv"
	StoreFile = "store.csv"
	BrandFile = "brand.csv"
)

// bucketLabels are the material report suffixes, in bucket order.
var bucketLabels = [...]string{"九毛九", "太二", "两颗鸡蛋", "怂", "那未大叔", "外区门店", "外区", "其他"}

var brandLabels = map[st.BrandType]string{
	st.BrandJmj: "九毛九",
	st.BrandTey: "太二",
	st.BrandLkd: "两颗鸡蛋",
	st.BrandSon: "怂",
	st.BrandNws: "那未大叔",
	st.BrandOs:  "外区门店",
	st.BrandDc:  "外区",
	st.BrandOth: "其他",
}

// SKUHeader is the 43 column header of sku.csv.
var SKUHeader = func() []string {
	h := []string{
		"物料编码", "物料名称", "仓位编码",
		"单日最大领用量", "单日最小领用量", "最大用量日", "最小用量日",
		"最大领用间隔天数", "最小领用间隔天数", "最早领用日期", "最晚领用日期",
		"领用门店数-九毛九", "领用门店数-太二", "领用门店数-两颗鸡蛋", "领用门店数-怂",
		"领用门店数-那未大叔", "领用门店数-外区门店", "领用外区数", "领用-其他",
	}
	for _, prefix := range []string{"领用次数-", "用量-", "金额-"} {
		for _, label := range bucketLabels {
			h = append(h, prefix+label)
		}
	}
	return h
}()

// StoreHeader is the header of store.csv.
var StoreHeader = []string{
	"门店编码", "门店名称", "门店类型", "门店区域", "领用SKU数", "领用金额",
	"单日最大领用金额", "单日最小领用金额", "最大金额日", "最小金额日",
	"最大领用间隔天数", "最小领用间隔天数", "最早领用日期", "最晚领用日期",
}

// STReportWriter renders aggregation results as the ST reports.
type STReportWriter struct {
	csv        *CSVWriter
	warehouses st.Warehouses
}

// NewSTReportWriter returns a writer labelling brand columns with warehouses.
func NewSTReportWriter(csv *CSVWriter, warehouses st.Warehouses) *STReportWriter {
	return &STReportWriter{csv: csv, warehouses: warehouses}
}

// BrandHeader is the header of brand.csv for the configured warehouses.
func (w *STReportWriter) BrandHeader() []string {
	h := []string{"品牌", "领用金额", "领用SKU数"}
	for _, prefix := range []string{"金额-", "SKU数-"} {
		for _, id := range w.warehouses {
			h = append(h, prefix+strconv.FormatUint(uint64(id), 10))
		}
		h = append(h, prefix+"其他仓")
	}
	return h
}

// WriteAll writes sku.csv, store.csv and brand.csv into outDir and returns
// their paths. An empty outDir means the reports directory.
func (w *STReportWriter) WriteAll(res *st.Result, outDir string) ([]string, error) {
	steps := []struct {
		name  string
		write func(*st.Result, string) (string, error)
	}{
		{SKUFile, w.WriteMaterials},
		{StoreFile, w.WriteStores},
		{BrandFile, w.WriteBrands},
	}

	paths := make([]string, 0, len(steps))
	for _, s := range steps {
		path, err := s.write(res, filepath.Join(outDir, s.name))
		if err != nil {
			return paths, fmt.Errorf("write %s: %w", s.name, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// Table is one rendered report.
type Table struct {
	Name   string     `json:"name"`
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`
}

// Tables renders the three reports without writing them.
func (w *STReportWriter) Tables(res *st.Result) []Table {
	return []Table{w.MaterialTable(res), w.StoreTable(res), w.BrandTable(res)}
}

// MaterialTable renders the material report, ordered by material id.
func (w *STReportWriter) MaterialTable(res *st.Result) Table {
	ids := make([]uint32, 0, len(res.Materials))
	for id := range res.Materials {
		ids = append(ids, id)
	}
	sortIDs(ids)

	rows := make([][]string, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, MaterialRow(res.Materials[id]))
	}
	return Table{Name: SKUFile, Header: SKUHeader, Rows: rows}
}

// StoreTable renders the store report, ordered by store id.
func (w *STReportWriter) StoreTable(res *st.Result) Table {
	ids := make([]uint32, 0, len(res.Stores))
	for id := range res.Stores {
		ids = append(ids, id)
	}
	sortIDs(ids)

	rows := make([][]string, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, StoreRow(res.Stores[id]))
	}
	return Table{Name: StoreFile, Header: StoreHeader, Rows: rows}
}

// BrandTable renders the brand report in brand order.
func (w *STReportWriter) BrandTable(res *st.Result) Table {
	brands := make([]st.BrandType, 0, len(res.Brands))
	for bt := range res.Brands {
		brands = append(brands, bt)
	}
	sort.Slice(brands, func(i, j int) bool { return brands[i].Less(brands[j]) })

	rows := make([][]string, 0, len(brands))
	for _, bt := range brands {
		rows = append(rows, BrandRow(res.Brands[bt]))
	}
	return Table{Name: BrandFile, Header: w.BrandHeader(), Rows: rows}
}

// WriteMaterials writes the material report to path.
func (w *STReportWriter) WriteMaterials(res *st.Result, path string) (string, error) {
	return w.write(path, w.MaterialTable(res))
}

// WriteStores writes the store report to path.
func (w *STReportWriter) WriteStores(res *st.Result, path string) (string, error) {
	return w.write(path, w.StoreTable(res))
}

// WriteBrands writes the brand report to path.
func (w *STReportWriter) WriteBrands(res *st.Result, path string) (string, error) {
	return w.write(path, w.BrandTable(res))
}

func (w *STReportWriter) write(path string, t Table) (string, error) {
	sw, err := w.csv.CreateStreamWriter(path, t.Header)
	if err != nil {
		return "", err
	}
	for _, row := range t.Rows {
		if err := sw.WriteRecord(row); err != nil {
			sw.Close()
			return "", err
		}
	}
	if err := sw.Close(); err != nil {
		return "", err
	}

	slog.Info("ST report written",
		slog.String("path", sw.Path()),
		slog.Int("rows", sw.Rows()))
	return sw.Path(), nil
}

// MaterialRow renders one sku.csv record.
func MaterialRow(m *st.Material) []string {
	row := make([]string, 0, len(SKUHeader))
	row = append(row,
		formatUint(uint64(m.ID)),
		m.Name,
		formatUint(uint64(m.WarehouseID)),
		formatFloat(m.Daily.Max),
		formatFloat(m.Daily.Min),
		formatDate(m.Daily.MaxDate),
		formatDate(m.Daily.MinDate),
		strconv.Itoa(m.Daily.MaxGap),
		strconv.Itoa(m.Daily.MinGap),
		formatDate(m.Daily.FirstDate),
		formatDate(m.Daily.LastDate),
	)
	for _, v := range m.Stores {
		row = append(row, formatUint(uint64(v)))
	}
	for _, v := range m.ReqTimes {
		row = append(row, formatUint(uint64(v)))
	}
	for _, v := range m.Quantity {
		row = append(row, formatFloat(v))
	}
	for _, v := range m.Amount {
		row = append(row, formatFloat(v))
	}
	return row
}

// StoreRow renders one store.csv record.
func StoreRow(s *st.Store) []string {
	return []string{
		formatUint(uint64(s.ID)),
		s.Name,
		s.Type.String(),
		s.Loc.String(),
		formatUint(uint64(s.SKUInUse)),
		formatFloat(s.Amount),
		formatFloat(s.Daily.Max),
		formatFloat(s.Daily.Min),
		formatDate(s.Daily.MaxDate),
		formatDate(s.Daily.MinDate),
		strconv.Itoa(s.Daily.MaxGap),
		strconv.Itoa(s.Daily.MinGap),
		formatDate(s.Daily.FirstDate),
		formatDate(s.Daily.LastDate),
	}
}

// BrandRow renders one brand.csv record.
func BrandRow(b *st.Brand) []string {
	row := []string{
		brandLabels[b.Brand],
		formatFloat(b.Amount),
		formatUint(uint64(b.SKUInUse)),
	}
	for _, v := range b.AmountByWarehouse {
		row = append(row, formatFloat(v))
	}
	for _, v := range b.SKUInUseByWarehouse {
		row = append(row, formatUint(uint64(v)))
	}
	return row
}

func sortIDs(ids []uint32) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
