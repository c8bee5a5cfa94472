package st

// Bucket is one of the eight breakdown columns of the material report.
type Bucket int

const (
	BucketLocalJmj Bucket = iota
	BucketLocalTey
	BucketLocalLkd
	BucketLocalSon
	BucketLocalNws
	BucketOuterStore
	BucketOuterDc
	BucketOther

	bucketCount
)

// Buckets lists every bucket in column order.
var Buckets = [...]Bucket{
	BucketLocalJmj, BucketLocalTey, BucketLocalLkd, BucketLocalSon,
	BucketLocalNws, BucketOuterStore, BucketOuterDc, BucketOther,
}

var bucketNames = [...]string{
	"local_jmj", "local_tey", "local_lkd", "local_son",
	"local_nws", "outer_store", "outer_dc", "other",
}

func (b Bucket) String() string {
	if b < 0 || b >= bucketCount {
		return "other"
	}
	return bucketNames[b]
}

// FSlots holds one float counter per bucket.
type FSlots [bucketCount]float64

// ISlots holds one integer counter per bucket.
type ISlots [bucketCount]uint32

// Sum adds up every bucket.
func (s FSlots) Sum() float64 {
	var total float64
	for _, v := range s {
		total += v
	}
	return total
}

// Sum adds up every bucket.
func (s ISlots) Sum() uint32 {
	var total uint32
	for _, v := range s {
		total += v
	}
	return total
}

type storeClass struct {
	t   StoreType
	loc StoreLoc
}

// bucketTable routes a classified store to its material report column.
var bucketTable = map[storeClass]Bucket{
	{StoreJmj, LocLocal}:   BucketLocalJmj,
	{StoreTey, LocLocal}:   BucketLocalTey,
	{StoreLkd, LocLocal}:   BucketLocalLkd,
	{StoreSon, LocLocal}:   BucketLocalSon,
	{StoreNws, LocLocal}:   BucketLocalNws,
	{StoreJmj, LocOuter}:   BucketOuterStore,
	{StoreTey, LocOuter}:   BucketOuterStore,
	{StoreLkd, LocOuter}:   BucketOuterStore,
	{StoreSon, LocOuter}:   BucketOuterStore,
	{StoreNws, LocOuter}:   BucketOuterStore,
	{StoreDc, LocOuter}:    BucketOuterDc,
	{StoreOth, LocUnknown}: BucketOther,
}

// BucketFor returns the column a (type, loc) pair is counted in.
func BucketFor(t StoreType, loc StoreLoc) Bucket {
	if b, ok := bucketTable[storeClass{t, loc}]; ok {
		return b
	}
	return BucketOther
}
