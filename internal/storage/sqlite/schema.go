package sqlite

const schema = `
-- Crops table (varieties)
CREATE TABLE IF NOT EXISTS crops (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL CHECK(length(name) <= 200),
    species TEXT NOT NULL,
    days_to_maturity INTEGER NOT NULL DEFAULT 0 CHECK(days_to_maturity >= 0),
    spacing_cm INTEGER NOT NULL DEFAULT 0,
    notes TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_crops_name ON crops(name);

-- Locations table (fields, greenhouses, nurseries)
CREATE TABLE IF NOT EXISTS locations (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL CHECK(length(name) <= 200),
    kind TEXT NOT NULL CHECK(kind IN ('field', 'greenhouse', 'nursery')),
    notes TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- Plots table
CREATE TABLE IF NOT EXISTS plots (
    id TEXT PRIMARY KEY,
    location_id TEXT NOT NULL,
    name TEXT NOT NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (location_id) REFERENCES locations(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_plots_location ON plots(location_id);

-- Beds table
CREATE TABLE IF NOT EXISTS beds (
    id TEXT PRIMARY KEY,
    plot_id TEXT NOT NULL,
    name TEXT NOT NULL,
    capacity INTEGER NOT NULL CHECK(capacity > 0),
    notes TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (plot_id) REFERENCES plots(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_beds_plot ON beds(plot_id);

-- Plantings table
CREATE TABLE IF NOT EXISTS plantings (
    id TEXT PRIMARY KEY,
    crop_id TEXT NOT NULL,
    bed_id TEXT,
    nursery_location_id TEXT,
    stage TEXT NOT NULL DEFAULT 'nursery'
        CHECK(stage IN ('nursery', 'planted', 'harvested', 'removed')),
    quantity INTEGER NOT NULL CHECK(quantity > 0),
    sown_at DATETIME NOT NULL,
    transplanted_at DATETIME,
    first_harvest_at DATETIME,
    removed_at DATETIME,
    removal_reason TEXT NOT NULL DEFAULT '',
    notes TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (crop_id) REFERENCES crops(id),
    FOREIGN KEY (bed_id) REFERENCES beds(id) ON DELETE SET NULL,
    FOREIGN KEY (nursery_location_id) REFERENCES locations(id)
);

CREATE INDEX IF NOT EXISTS idx_plantings_stage ON plantings(stage);
CREATE INDEX IF NOT EXISTS idx_plantings_crop ON plantings(crop_id);
CREATE INDEX IF NOT EXISTS idx_plantings_bed ON plantings(bed_id);

-- One active planting per (crop, bed). Removed plantings free the slot.
CREATE UNIQUE INDEX IF NOT EXISTS idx_plantings_active_crop_bed
    ON plantings(crop_id, bed_id)
    WHERE stage IN ('planted', 'harvested') AND bed_id IS NOT NULL;

-- Atomic counter for planting ID generation
CREATE TABLE IF NOT EXISTS planting_counters (
    prefix TEXT PRIMARY KEY,
    last_id INTEGER NOT NULL DEFAULT 0
);

-- Harvest records
CREATE TABLE IF NOT EXISTS harvests (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    planting_id TEXT NOT NULL,
    quantity REAL NOT NULL CHECK(quantity > 0),
    unit TEXT NOT NULL CHECK(unit IN ('kg', 'bunch', 'count', 'crate')),
    harvested_at DATETIME NOT NULL,
    notes TEXT NOT NULL DEFAULT '',
    FOREIGN KEY (planting_id) REFERENCES plantings(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_harvests_planting ON harvests(planting_id);
CREATE INDEX IF NOT EXISTS idx_harvests_harvested_at ON harvests(harvested_at);

-- Planting events table (audit trail)
CREATE TABLE IF NOT EXISTS planting_events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    planting_id TEXT NOT NULL,
    event_type TEXT NOT NULL,
    actor TEXT NOT NULL,
    old_value TEXT,
    new_value TEXT,
    comment TEXT,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (planting_id) REFERENCES plantings(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_planting_events_planting ON planting_events(planting_id);
CREATE INDEX IF NOT EXISTS idx_planting_events_created_at ON planting_events(created_at);

-- Activities table
CREATE TABLE IF NOT EXISTS activities (
    id TEXT PRIMARY KEY,
    type TEXT NOT NULL
        CHECK(type IN ('irrigation', 'soil_amendment', 'pest_management', 'asset_maintenance')),
    location_id TEXT NOT NULL,
    bed_id TEXT,
    material TEXT NOT NULL DEFAULT '',
    amount TEXT NOT NULL DEFAULT '',
    performed_at DATETIME NOT NULL,
    performed_by TEXT NOT NULL DEFAULT '',
    source TEXT NOT NULL DEFAULT 'manual' CHECK(source IN ('manual', 'schedule')),
    notes TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (location_id) REFERENCES locations(id),
    FOREIGN KEY (bed_id) REFERENCES beds(id) ON DELETE SET NULL
);

CREATE INDEX IF NOT EXISTS idx_activities_type ON activities(type);
CREATE INDEX IF NOT EXISTS idx_activities_location ON activities(location_id);
CREATE INDEX IF NOT EXISTS idx_activities_performed_at ON activities(performed_at);

-- Recurring activity schedules
CREATE TABLE IF NOT EXISTS activity_schedules (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    type TEXT NOT NULL
        CHECK(type IN ('irrigation', 'soil_amendment', 'pest_management', 'asset_maintenance')),
    location_id TEXT NOT NULL,
    bed_id TEXT,
    material TEXT NOT NULL DEFAULT '',
    amount TEXT NOT NULL DEFAULT '',
    cron_expr TEXT NOT NULL,
    enabled INTEGER NOT NULL DEFAULT 1,
    next_fire_at DATETIME NOT NULL,
    last_fired_at DATETIME,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (location_id) REFERENCES locations(id),
    FOREIGN KEY (bed_id) REFERENCES beds(id) ON DELETE SET NULL
);

CREATE INDEX IF NOT EXISTS idx_schedules_next_fire ON activity_schedules(next_fire_at);

-- Beds currently holding an active planting
CREATE VIEW IF NOT EXISTS active_beds AS
SELECT DISTINCT bed_id
FROM plantings
WHERE stage IN ('planted', 'harvested')
  AND bed_id IS NOT NULL;
`
