package sqlite

// schema is idempotent; every statement tolerates re-execution so the
// index can be opened by any version without a migration step.
const schema = `
CREATE TABLE IF NOT EXISTS events (
    id TEXT PRIMARY KEY,
    task_id TEXT NOT NULL,
    timestamp DATETIME NOT NULL,
    type TEXT NOT NULL,
    mode TEXT NOT NULL DEFAULT '',
    stage TEXT NOT NULL DEFAULT '',
    mission_id TEXT NOT NULL DEFAULT '',
    parent_event_id TEXT,
    payload TEXT NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS idx_events_task ON events(task_id, timestamp);
CREATE INDEX IF NOT EXISTS idx_events_type ON events(type);
CREATE INDEX IF NOT EXISTS idx_events_mission ON events(mission_id);
CREATE INDEX IF NOT EXISTS idx_events_timestamp ON events(timestamp);
`
