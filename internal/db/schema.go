package db

const schema = `
CREATE TABLE IF NOT EXISTS feeds (
	id          TEXT PRIMARY KEY,
	slug        TEXT NOT NULL UNIQUE,
	title       TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	author      TEXT NOT NULL DEFAULT '',
	link        TEXT NOT NULL DEFAULT '',
	image_key   TEXT,
	created_at  TIMESTAMP NOT NULL,
	updated_at  TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS episodes (
	id           TEXT PRIMARY KEY,
	feed_id      TEXT NOT NULL REFERENCES feeds(id) ON DELETE CASCADE,
	title        TEXT NOT NULL,
	description  TEXT NOT NULL DEFAULT '',
	media_key    TEXT NOT NULL,
	media_type   TEXT NOT NULL,
	size_bytes   INTEGER NOT NULL DEFAULT 0,
	duration     INTEGER,
	published_at TIMESTAMP NOT NULL,
	created_at   TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_episodes_feed_published
	ON episodes(feed_id, published_at DESC);

CREATE TABLE IF NOT EXISTS request_events (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	time        TIMESTAMP NOT NULL,
	client_ip   TEXT NOT NULL DEFAULT '',
	fingerprint TEXT NOT NULL DEFAULT '',
	client_name TEXT NOT NULL DEFAULT '',
	method      TEXT NOT NULL,
	path        TEXT NOT NULL,
	route_class TEXT NOT NULL,
	status      INTEGER NOT NULL,
	user_agent  TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_request_events_time ON request_events(time);
CREATE INDEX IF NOT EXISTS idx_request_events_fingerprint ON request_events(fingerprint);
`
