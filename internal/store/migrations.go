package store

const schema = `
CREATE TABLE IF NOT EXISTS news_items (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    title         TEXT NOT NULL,
    source_key    TEXT NOT NULL,
    rank          INTEGER NOT NULL,
    url           TEXT NOT NULL DEFAULT '',
    mobile_url    TEXT NOT NULL DEFAULT '',
    first_seen_at TEXT NOT NULL,
    last_seen_at  TEXT NOT NULL,
    seen_count    INTEGER NOT NULL DEFAULT 1,
    created_at    TEXT NOT NULL,
    updated_at    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_news_source ON news_items(source_key);
CREATE INDEX IF NOT EXISTS idx_news_last_seen ON news_items(last_seen_at);
CREATE INDEX IF NOT EXISTS idx_news_title ON news_items(title);

-- Dedup identity: at most one row per (url, source_key) for non-empty URLs.
-- Rows with an empty URL are never deduplicated.
CREATE UNIQUE INDEX IF NOT EXISTS idx_news_url_source
    ON news_items(url, source_key) WHERE url != '';
`
