package storage

// schema is applied statement by statement on open. It sticks to SQL that
// sqlite and postgres both accept.
var schema = []string{
	// notes are the facts sibling cards are generated from
	`CREATE TABLE IF NOT EXISTS notes (
    id BIGINT PRIMARY KEY,
    checksum TEXT NOT NULL,
    front TEXT NOT NULL,
    back TEXT NOT NULL,
    context TEXT NOT NULL DEFAULT '',
    tags TEXT NOT NULL DEFAULT '',
    mtime BIGINT NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS ix_notes_checksum ON notes (checksum)`,

	`CREATE TABLE IF NOT EXISTS deck_configs (
    id BIGINT PRIMARY KEY,
    name TEXT NOT NULL,
    body TEXT NOT NULL
)`,

	// filter holds the JSON search terms of filtered decks, '' otherwise
	`CREATE TABLE IF NOT EXISTS decks (
    id BIGINT PRIMARY KEY,
    name TEXT NOT NULL UNIQUE,
    conf_id BIGINT NOT NULL DEFAULT 1,
    new_day INTEGER NOT NULL DEFAULT 0,
    new_count INTEGER NOT NULL DEFAULT 0,
    rev_day INTEGER NOT NULL DEFAULT 0,
    rev_count INTEGER NOT NULL DEFAULT 0,
    lrn_day INTEGER NOT NULL DEFAULT 0,
    lrn_count INTEGER NOT NULL DEFAULT 0,
    time_day INTEGER NOT NULL DEFAULT 0,
    time_count INTEGER NOT NULL DEFAULT 0,
    filter TEXT NOT NULL DEFAULT ''
)`,

	// cards carry the scheduling state; odid/odue remember the home deck
	// and due of cards moved into a filtered deck
	`CREATE TABLE IF NOT EXISTS cards (
    id BIGINT PRIMARY KEY,
    nid BIGINT NOT NULL REFERENCES notes (id),
    did BIGINT NOT NULL,
    ord INTEGER NOT NULL,
    mtime BIGINT NOT NULL,
    usn INTEGER NOT NULL DEFAULT -1,
    type INTEGER NOT NULL DEFAULT 0,
    queue INTEGER NOT NULL DEFAULT 0,
    due BIGINT NOT NULL,
    ivl INTEGER NOT NULL DEFAULT 0,
    factor INTEGER NOT NULL DEFAULT 0,
    reps INTEGER NOT NULL DEFAULT 0,
    lapses INTEGER NOT NULL DEFAULT 0,
    left_steps INTEGER NOT NULL DEFAULT 0,
    odue BIGINT NOT NULL DEFAULT 0,
    odid BIGINT NOT NULL DEFAULT 0
)`,
	`CREATE INDEX IF NOT EXISTS ix_cards_sched ON cards (did, queue, due)`,
	`CREATE INDEX IF NOT EXISTS ix_cards_nid ON cards (nid)`,

	// revlog ids are answer times in milliseconds
	`CREATE TABLE IF NOT EXISTS revlog (
    id BIGINT PRIMARY KEY,
    cid BIGINT NOT NULL,
    usn INTEGER NOT NULL,
    ease INTEGER NOT NULL,
    ivl INTEGER NOT NULL,
    last_ivl INTEGER NOT NULL,
    factor INTEGER NOT NULL,
    taken_ms INTEGER NOT NULL,
    kind INTEGER NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS ix_revlog_cid ON revlog (cid)`,

	`CREATE TABLE IF NOT EXISTS col_config (
    name TEXT PRIMARY KEY,
    value TEXT NOT NULL
)`,
}
