package sqlite

// schema is applied on every Open; all statements are idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS collections (
	name       TEXT PRIMARY KEY,
	dimension  INTEGER NOT NULL,
	metric     TEXT NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS entries (
	collection TEXT NOT NULL,
	id         TEXT NOT NULL,
	vector     BLOB NOT NULL,
	text       TEXT NOT NULL,
	metadata   TEXT NOT NULL DEFAULT '{}',
	PRIMARY KEY (collection, id)
);

CREATE TABLE IF NOT EXISTS commits (
	name         TEXT PRIMARY KEY,
	kind         TEXT NOT NULL,
	records      INTEGER NOT NULL,
	dropped      INTEGER NOT NULL,
	vectors      INTEGER NOT NULL,
	digest       TEXT NOT NULL,
	committed_at INTEGER NOT NULL
);
`

const upsertEntrySQL = `
INSERT INTO entries (collection, id, vector, text, metadata)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (collection, id) DO UPDATE SET
	vector = excluded.vector,
	text = excluded.text,
	metadata = excluded.metadata`

const upsertCommitSQL = `
INSERT INTO commits (name, kind, records, dropped, vectors, digest, committed_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (name) DO UPDATE SET
	kind = excluded.kind,
	records = excluded.records,
	dropped = excluded.dropped,
	vectors = excluded.vectors,
	digest = excluded.digest,
	committed_at = excluded.committed_at`
