package st

import "time"

// StoreType is the brand a store belongs to.
type StoreType int

const (
	StoreJmj StoreType = iota
	StoreTey
	StoreLkd
	StoreSon
	StoreNws
	StoreDc
	StoreOth
)

var storeTypeNames = [...]string{"Jmj", "Tey", "Lkd", "Son", "Nws", "Dc", "Oth"}

func (t StoreType) String() string {
	if t < 0 || int(t) >= len(storeTypeNames) {
		return "Oth"
	}
	return storeTypeNames[t]
}

// StoreLoc tells whether a store is in the local region or an outer one.
type StoreLoc int

const (
	LocLocal StoreLoc = iota
	LocOuter
	LocUnknown
)

func (l StoreLoc) String() string {
	switch l {
	case LocLocal:
		return "Local"
	case LocOuter:
		return "Outer"
	default:
		return "Unknown"
	}
}

// BrandType is the brand report key derived from a (StoreType, StoreLoc) pair.
// Its numeric value is the report order.
type BrandType int

const (
	BrandJmj BrandType = iota
	BrandTey
	BrandLkd
	BrandSon
	BrandNws
	BrandOs
	BrandDc
	BrandOth
)

// BrandTypes lists every brand in report order.
var BrandTypes = [...]BrandType{BrandJmj, BrandTey, BrandLkd, BrandSon, BrandNws, BrandOs, BrandDc, BrandOth}

var brandTypeNames = [...]string{"Jmj", "Tey", "Lkd", "Son", "Nws", "Os", "Dc", "Oth"}

func (b BrandType) String() string {
	if b < 0 || int(b) >= len(brandTypeNames) {
		return "Oth"
	}
	return brandTypeNames[b]
}

// Less orders brands for reports.
func (b BrandType) Less(other BrandType) bool {
	return b < other
}

// NewBrandType derives the brand of a classified store. Named brands keep
// their identity locally and collapse to Os outside the region; Dc only
// exists as an outer warehouse.
func NewBrandType(t StoreType, loc StoreLoc) BrandType {
	switch loc {
	case LocLocal:
		switch t {
		case StoreJmj:
			return BrandJmj
		case StoreTey:
			return BrandTey
		case StoreLkd:
			return BrandLkd
		case StoreSon:
			return BrandSon
		case StoreNws:
			return BrandNws
		}
	case LocOuter:
		switch t {
		case StoreJmj, StoreTey, StoreLkd, StoreSon, StoreNws:
			return BrandOs
		case StoreDc:
			return BrandDc
		}
	}
	return BrandOth
}

// Record is one decoded ST row.
type Record struct {
	MaterialID  uint32
	StoreID     uint32
	WarehouseID uint16
	Material    string
	Store       string
	Quantity    float64
	Amount      float64
	// Date is the zero time when the export has no date column.
	Date time.Time
}

// Material is the per-SKU aggregate.
type Material struct {
	ID          uint32
	WarehouseID uint16
	Name        string

	Stores   ISlots
	ReqTimes ISlots
	Quantity FSlots
	Amount   FSlots

	Daily DailyStats
}

// Store is the per-store aggregate. Its daily statistics are amount based.
type Store struct {
	ID       uint32
	Name     string
	Type     StoreType
	Loc      StoreLoc
	SKUInUse uint32
	Amount   float64

	Daily DailyStats
}

// Brand is the per-brand aggregate broken out by warehouse.
type Brand struct {
	Brand    BrandType
	Amount   float64
	SKUInUse uint32

	// Indexed like Options.Warehouses; the last element collects every other id.
	AmountByWarehouse   [WarehouseSlots]float64
	SKUInUseByWarehouse [WarehouseSlots]uint32
}

// DailyStats are the temporal fields computed from a per-date series. Dates
// are zero when the entity never had a dated row.
type DailyStats struct {
	FirstDate time.Time
	LastDate  time.Time
	Max       float64
	Min       float64
	MaxDate   time.Time
	MinDate   time.Time
	// MaxGap and MinGap are in days, see computeGaps.
	MaxGap int
	MinGap int
}
