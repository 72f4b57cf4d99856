package sqlite

// schema is applied on first open. Statements are idempotent so existing
// database files are left untouched.
const schema = `
CREATE TABLE IF NOT EXISTS catalog_items (
	id                 TEXT PRIMARY KEY,
	description        TEXT NOT NULL,
	package_label      TEXT NOT NULL DEFAULT '',
	price_cents        INTEGER NOT NULL CHECK (price_cents >= 0),
	quantity           INTEGER NOT NULL DEFAULT 0 CHECK (quantity >= 0),
	for_sale           INTEGER NOT NULL DEFAULT 1,
	reorder_threshold  INTEGER NOT NULL DEFAULT 0,
	created_at         TEXT NOT NULL,
	updated_at         TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS discounts (
	id                  TEXT PRIMARY KEY,
	code                TEXT NOT NULL UNIQUE,
	description         TEXT NOT NULL DEFAULT '',
	level               INTEGER NOT NULL,
	type                INTEGER NOT NULL,
	percentage          REAL NOT NULL DEFAULT 0,
	dollar_value_cents  INTEGER NOT NULL DEFAULT 0,
	target_item_id      TEXT NOT NULL DEFAULT '',
	start_date          TEXT NOT NULL,
	expiration_date     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS orders (
	id                  TEXT PRIMARY KEY,
	customer_id         TEXT NOT NULL,
	employee_id         TEXT,
	discount_id         TEXT,
	card_number_masked  TEXT NOT NULL,
	card_expiry         TEXT NOT NULL,
	subtotal_cents      INTEGER NOT NULL,
	discount_cents      INTEGER NOT NULL,
	tax_cents           INTEGER NOT NULL,
	total_cents         INTEGER NOT NULL,
	placed_at           TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS order_lines (
	order_id          TEXT NOT NULL REFERENCES orders(id),
	item_id           TEXT NOT NULL,
	description       TEXT NOT NULL,
	package_label     TEXT NOT NULL DEFAULT '',
	discount_id       TEXT,
	unit_price_cents  INTEGER NOT NULL,
	quantity          INTEGER NOT NULL,
	PRIMARY KEY (order_id, item_id, package_label)
);

CREATE INDEX IF NOT EXISTS idx_orders_placed_at ON orders (placed_at);
CREATE INDEX IF NOT EXISTS idx_catalog_for_sale ON catalog_items (for_sale);
`
