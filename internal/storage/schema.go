package storage

// schema creates the report tables. Bucket and warehouse breakdowns are
// arrays in report column order.
const schema = `
CREATE TABLE IF NOT EXISTS st_runs (
	id              uuid PRIMARY KEY,
	created_at      timestamptz NOT NULL DEFAULT now(),
	source          text NOT NULL,
	encoding        text NOT NULL,
	strict          boolean NOT NULL,
	files           integer NOT NULL,
	rows_read       bigint NOT NULL,
	rows_aggregated bigint NOT NULL,
	rows_skipped    bigint NOT NULL,
	duration_ms     bigint NOT NULL
);

CREATE TABLE IF NOT EXISTS st_materials (
	run_id       uuid NOT NULL REFERENCES st_runs(id) ON DELETE CASCADE,
	material_id  bigint NOT NULL,
	warehouse_id integer NOT NULL,
	name         text NOT NULL,
	max_quantity double precision NOT NULL,
	min_quantity double precision NOT NULL,
	max_date     date,
	min_date     date,
	max_gap      integer NOT NULL,
	min_gap      integer NOT NULL,
	first_date   date,
	last_date    date,
	stores       bigint[] NOT NULL,
	req_times    bigint[] NOT NULL,
	quantity     double precision[] NOT NULL,
	amount       double precision[] NOT NULL,
	PRIMARY KEY (run_id, material_id)
);

CREATE TABLE IF NOT EXISTS st_stores (
	run_id     uuid NOT NULL REFERENCES st_runs(id) ON DELETE CASCADE,
	store_id   bigint NOT NULL,
	name       text NOT NULL,
	store_type text NOT NULL,
	location   text NOT NULL,
	sku_in_use bigint NOT NULL,
	amount     double precision NOT NULL,
	max_amount double precision NOT NULL,
	min_amount double precision NOT NULL,
	max_date   date,
	min_date   date,
	max_gap    integer NOT NULL,
	min_gap    integer NOT NULL,
	first_date date,
	last_date  date,
	PRIMARY KEY (run_id, store_id)
);

CREATE TABLE IF NOT EXISTS st_brands (
	run_id              uuid NOT NULL REFERENCES st_runs(id) ON DELETE CASCADE,
	brand               text NOT NULL,
	amount              double precision NOT NULL,
	sku_in_use          bigint NOT NULL,
	amount_by_warehouse double precision[] NOT NULL,
	sku_by_warehouse    bigint[] NOT NULL,
	PRIMARY KEY (run_id, brand)
);
`

var (
	materialColumns = []string{
		"run_id", "material_id", "warehouse_id", "name",
		"max_quantity", "min_quantity", "max_date", "min_date", "max_gap", "min_gap",
		"first_date", "last_date", "stores", "req_times", "quantity", "amount",
	}
	storeColumns = []string{
		"run_id", "store_id", "name", "store_type", "location", "sku_in_use", "amount",
		"max_amount", "min_amount", "max_date", "min_date", "max_gap", "min_gap",
		"first_date", "last_date",
	}
	brandColumns = []string{
		"run_id", "brand", "amount", "sku_in_use", "amount_by_warehouse", "sku_by_warehouse",
	}
)
