package postgres

// schema defines all tables, indexes, and the planting lifecycle
// functions. Lifecycle writes go through the fn_* functions so every
// stage transition, its constraint checks, and its event log entry
// commit atomically on the server.
const schema = `
CREATE TABLE IF NOT EXISTS crops (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL CHECK(length(name) <= 200),
    species TEXT NOT NULL,
    days_to_maturity INTEGER NOT NULL DEFAULT 0 CHECK(days_to_maturity >= 0),
    spacing_cm INTEGER NOT NULL DEFAULT 0,
    notes TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_crops_name ON crops(name);

CREATE TABLE IF NOT EXISTS locations (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL CHECK(length(name) <= 200),
    kind TEXT NOT NULL CHECK(kind IN ('field', 'greenhouse', 'nursery')),
    notes TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS plots (
    id TEXT PRIMARY KEY,
    location_id TEXT NOT NULL REFERENCES locations(id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_plots_location ON plots(location_id);

CREATE TABLE IF NOT EXISTS beds (
    id TEXT PRIMARY KEY,
    plot_id TEXT NOT NULL REFERENCES plots(id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    capacity INTEGER NOT NULL CHECK(capacity > 0),
    notes TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_beds_plot ON beds(plot_id);

CREATE SEQUENCE IF NOT EXISTS planting_id_seq;

CREATE TABLE IF NOT EXISTS plantings (
    id TEXT PRIMARY KEY,
    crop_id TEXT NOT NULL REFERENCES crops(id),
    bed_id TEXT REFERENCES beds(id) ON DELETE SET NULL,
    nursery_location_id TEXT REFERENCES locations(id),
    stage TEXT NOT NULL DEFAULT 'nursery'
        CHECK(stage IN ('nursery', 'planted', 'harvested', 'removed')),
    quantity INTEGER NOT NULL CHECK(quantity > 0),
    sown_at TIMESTAMPTZ NOT NULL,
    transplanted_at TIMESTAMPTZ,
    first_harvest_at TIMESTAMPTZ,
    removed_at TIMESTAMPTZ,
    removal_reason TEXT NOT NULL DEFAULT '',
    notes TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_plantings_stage ON plantings(stage);
CREATE INDEX IF NOT EXISTS idx_plantings_crop ON plantings(crop_id);
CREATE INDEX IF NOT EXISTS idx_plantings_bed ON plantings(bed_id);

-- One active planting per (crop, bed). Removed plantings free the slot.
CREATE UNIQUE INDEX IF NOT EXISTS idx_plantings_active_crop_bed
    ON plantings(crop_id, bed_id)
    WHERE stage IN ('planted', 'harvested') AND bed_id IS NOT NULL;

CREATE TABLE IF NOT EXISTS harvests (
    id BIGSERIAL PRIMARY KEY,
    planting_id TEXT NOT NULL REFERENCES plantings(id) ON DELETE CASCADE,
    quantity DOUBLE PRECISION NOT NULL CHECK(quantity > 0),
    unit TEXT NOT NULL CHECK(unit IN ('kg', 'bunch', 'count', 'crate')),
    harvested_at TIMESTAMPTZ NOT NULL,
    notes TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_harvests_planting ON harvests(planting_id);
CREATE INDEX IF NOT EXISTS idx_harvests_harvested_at ON harvests(harvested_at);

CREATE TABLE IF NOT EXISTS planting_events (
    id BIGSERIAL PRIMARY KEY,
    planting_id TEXT NOT NULL REFERENCES plantings(id) ON DELETE CASCADE,
    event_type TEXT NOT NULL,
    actor TEXT NOT NULL,
    old_value TEXT,
    new_value TEXT,
    comment TEXT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_planting_events_planting ON planting_events(planting_id);
CREATE INDEX IF NOT EXISTS idx_planting_events_created_at ON planting_events(created_at);

CREATE TABLE IF NOT EXISTS activities (
    id TEXT PRIMARY KEY,
    type TEXT NOT NULL
        CHECK(type IN ('irrigation', 'soil_amendment', 'pest_management', 'asset_maintenance')),
    location_id TEXT NOT NULL REFERENCES locations(id),
    bed_id TEXT REFERENCES beds(id) ON DELETE SET NULL,
    material TEXT NOT NULL DEFAULT '',
    amount TEXT NOT NULL DEFAULT '',
    performed_at TIMESTAMPTZ NOT NULL,
    performed_by TEXT NOT NULL DEFAULT '',
    source TEXT NOT NULL DEFAULT 'manual' CHECK(source IN ('manual', 'schedule')),
    notes TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_activities_type ON activities(type);
CREATE INDEX IF NOT EXISTS idx_activities_location ON activities(location_id);
CREATE INDEX IF NOT EXISTS idx_activities_performed_at ON activities(performed_at);

CREATE TABLE IF NOT EXISTS activity_schedules (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    type TEXT NOT NULL
        CHECK(type IN ('irrigation', 'soil_amendment', 'pest_management', 'asset_maintenance')),
    location_id TEXT NOT NULL REFERENCES locations(id),
    bed_id TEXT REFERENCES beds(id) ON DELETE SET NULL,
    material TEXT NOT NULL DEFAULT '',
    amount TEXT NOT NULL DEFAULT '',
    cron_expr TEXT NOT NULL,
    enabled BOOLEAN NOT NULL DEFAULT TRUE,
    next_fire_at TIMESTAMPTZ NOT NULL,
    last_fired_at TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_schedules_next_fire ON activity_schedules(next_fire_at);

CREATE OR REPLACE VIEW active_beds AS
SELECT DISTINCT bed_id
FROM plantings
WHERE stage IN ('planted', 'harvested')
  AND bed_id IS NOT NULL;

-- Shared constraint checks for planting into a bed: the bed must exist,
-- must not already hold an active planting of the same crop, and must
-- have room for the quantity. Locks the bed row to serialize writers.
CREATE OR REPLACE FUNCTION fn_check_bed_fits(
    p_crop_id TEXT, p_bed_id TEXT, p_quantity INTEGER
) RETURNS VOID AS $$
DECLARE
    v_capacity INTEGER;
    v_used INTEGER;
BEGIN
    SELECT capacity INTO v_capacity FROM beds WHERE id = p_bed_id FOR UPDATE;
    IF NOT FOUND THEN
        RAISE EXCEPTION 'bed % not found', p_bed_id;
    END IF;

    IF EXISTS (
        SELECT 1 FROM plantings
        WHERE crop_id = p_crop_id AND bed_id = p_bed_id
          AND stage IN ('planted', 'harvested')
    ) THEN
        RAISE EXCEPTION 'duplicate planting of crop % in bed %', p_crop_id, p_bed_id;
    END IF;

    SELECT COALESCE(SUM(quantity), 0) INTO v_used
    FROM plantings
    WHERE bed_id = p_bed_id AND stage IN ('planted', 'harvested');

    IF v_used + p_quantity > v_capacity THEN
        RAISE EXCEPTION 'bed capacity exceeded: bed % holds % of %, cannot add %',
            p_bed_id, v_used, v_capacity, p_quantity;
    END IF;
END;
$$ LANGUAGE plpgsql;

CREATE OR REPLACE FUNCTION fn_create_nursery_planting(
    p_crop_id TEXT, p_nursery_location_id TEXT, p_quantity INTEGER,
    p_sown_at TIMESTAMPTZ, p_notes TEXT, p_actor TEXT
) RETURNS TEXT AS $$
DECLARE
    v_kind TEXT;
    v_id TEXT;
BEGIN
    PERFORM 1 FROM crops WHERE id = p_crop_id;
    IF NOT FOUND THEN
        RAISE EXCEPTION 'crop % not found', p_crop_id;
    END IF;

    SELECT kind INTO v_kind FROM locations WHERE id = p_nursery_location_id;
    IF NOT FOUND THEN
        RAISE EXCEPTION 'location % not found', p_nursery_location_id;
    END IF;
    IF v_kind <> 'nursery' THEN
        RAISE EXCEPTION 'wrong location kind: % is a %', p_nursery_location_id, v_kind;
    END IF;

    v_id := 'pl-' || nextval('planting_id_seq');

    INSERT INTO plantings (id, crop_id, nursery_location_id, stage, quantity, sown_at, notes)
    VALUES (v_id, p_crop_id, p_nursery_location_id, 'nursery', p_quantity, p_sown_at, p_notes);

    INSERT INTO planting_events (planting_id, event_type, actor, new_value)
    VALUES (v_id, 'created', p_actor,
        (SELECT row_to_json(p)::text FROM plantings p WHERE p.id = v_id));

    RETURN v_id;
END;
$$ LANGUAGE plpgsql;

CREATE OR REPLACE FUNCTION fn_direct_seed_planting(
    p_crop_id TEXT, p_bed_id TEXT, p_quantity INTEGER,
    p_sown_at TIMESTAMPTZ, p_notes TEXT, p_actor TEXT
) RETURNS TEXT AS $$
DECLARE
    v_id TEXT;
BEGIN
    PERFORM 1 FROM crops WHERE id = p_crop_id;
    IF NOT FOUND THEN
        RAISE EXCEPTION 'crop % not found', p_crop_id;
    END IF;

    PERFORM fn_check_bed_fits(p_crop_id, p_bed_id, p_quantity);

    v_id := 'pl-' || nextval('planting_id_seq');

    INSERT INTO plantings (id, crop_id, bed_id, stage, quantity, sown_at, notes)
    VALUES (v_id, p_crop_id, p_bed_id, 'planted', p_quantity, p_sown_at, p_notes);

    INSERT INTO planting_events (planting_id, event_type, actor, new_value)
    VALUES (v_id, 'direct_seeded', p_actor,
        (SELECT row_to_json(p)::text FROM plantings p WHERE p.id = v_id));

    RETURN v_id;
END;
$$ LANGUAGE plpgsql;

CREATE OR REPLACE FUNCTION fn_transplant_planting(
    p_id TEXT, p_bed_id TEXT, p_when TIMESTAMPTZ, p_actor TEXT
) RETURNS VOID AS $$
DECLARE
    v_old plantings%ROWTYPE;
BEGIN
    SELECT * INTO v_old FROM plantings WHERE id = p_id FOR UPDATE;
    IF NOT FOUND THEN
        RAISE EXCEPTION 'planting % not found', p_id;
    END IF;
    IF v_old.stage <> 'nursery' THEN
        RAISE EXCEPTION 'invalid transition: cannot transplant a planting in stage %', v_old.stage;
    END IF;

    PERFORM fn_check_bed_fits(v_old.crop_id, p_bed_id, v_old.quantity);

    UPDATE plantings
    SET bed_id = p_bed_id, nursery_location_id = NULL, stage = 'planted',
        transplanted_at = p_when, updated_at = NOW()
    WHERE id = p_id;

    INSERT INTO planting_events (planting_id, event_type, actor, old_value, new_value)
    VALUES (p_id, 'transplanted', p_actor, row_to_json(v_old)::text,
        (SELECT row_to_json(p)::text FROM plantings p WHERE p.id = p_id));
END;
$$ LANGUAGE plpgsql;

CREATE OR REPLACE FUNCTION fn_harvest_planting(
    p_id TEXT, p_quantity DOUBLE PRECISION, p_unit TEXT,
    p_harvested_at TIMESTAMPTZ, p_notes TEXT, p_actor TEXT
) RETURNS BIGINT AS $$
DECLARE
    v_stage TEXT;
    v_harvest_id BIGINT;
BEGIN
    SELECT stage INTO v_stage FROM plantings WHERE id = p_id FOR UPDATE;
    IF NOT FOUND THEN
        RAISE EXCEPTION 'planting % not found', p_id;
    END IF;
    IF v_stage NOT IN ('planted', 'harvested') THEN
        RAISE EXCEPTION 'invalid transition: cannot harvest a planting in stage %', v_stage;
    END IF;

    INSERT INTO harvests (planting_id, quantity, unit, harvested_at, notes)
    VALUES (p_id, p_quantity, p_unit, p_harvested_at, p_notes)
    RETURNING id INTO v_harvest_id;

    IF v_stage = 'planted' THEN
        UPDATE plantings
        SET stage = 'harvested', first_harvest_at = p_harvested_at, updated_at = NOW()
        WHERE id = p_id;
    END IF;

    INSERT INTO planting_events (planting_id, event_type, actor, comment)
    VALUES (p_id, 'harvested', p_actor, p_quantity || ' ' || p_unit);

    RETURN v_harvest_id;
END;
$$ LANGUAGE plpgsql;

CREATE OR REPLACE FUNCTION fn_remove_planting(
    p_id TEXT, p_reason TEXT, p_when TIMESTAMPTZ, p_actor TEXT
) RETURNS VOID AS $$
DECLARE
    v_old plantings%ROWTYPE;
BEGIN
    SELECT * INTO v_old FROM plantings WHERE id = p_id FOR UPDATE;
    IF NOT FOUND THEN
        RAISE EXCEPTION 'planting % not found', p_id;
    END IF;
    IF v_old.stage = 'removed' THEN
        RAISE EXCEPTION 'invalid transition: cannot remove a planting in stage %', v_old.stage;
    END IF;

    UPDATE plantings
    SET stage = 'removed', removed_at = p_when, removal_reason = p_reason, updated_at = NOW()
    WHERE id = p_id;

    INSERT INTO planting_events (planting_id, event_type, actor, old_value, comment)
    VALUES (p_id, 'removed', p_actor, row_to_json(v_old)::text, p_reason);
END;
$$ LANGUAGE plpgsql;
`
