package store

// Schema DDL per backend. Both lay out the same tables: uuid text primary
// keys, compressed message content, and cascading deletes from dataset down
// to annotations.

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS datasets (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	upload_date DATETIME NOT NULL,
	file_count INTEGER NOT NULL DEFAULT 0,
	duplicate_count INTEGER NOT NULL DEFAULT 0,
	excluded_count INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL,
	error_message TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS jobs (
	id TEXT PRIMARY KEY,
	dataset_id TEXT NOT NULL,
	file_name TEXT NOT NULL,
	content BLOB,
	content_hash TEXT NOT NULL,
	status TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	FOREIGN KEY (dataset_id) REFERENCES datasets(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_jobs_dataset ON jobs(dataset_id);
CREATE INDEX IF NOT EXISTS idx_jobs_content_hash ON jobs(content_hash);
CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);

CREATE TABLE IF NOT EXISTS annotation_classes (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	display_label TEXT NOT NULL,
	color TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	deleted BOOLEAN NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS annotation_versions (
	id TEXT PRIMARY KEY,
	job_id TEXT NOT NULL,
	version_number INTEGER NOT NULL,
	source TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	FOREIGN KEY (job_id) REFERENCES jobs(id) ON DELETE CASCADE,
	UNIQUE (job_id, version_number)
);

CREATE TABLE IF NOT EXISTS annotations (
	id TEXT PRIMARY KEY,
	version_id TEXT NOT NULL,
	class_name TEXT NOT NULL,
	tag TEXT NOT NULL DEFAULT '',
	section_index INTEGER NOT NULL,
	start_offset INTEGER NOT NULL,
	end_offset INTEGER NOT NULL,
	original_text TEXT NOT NULL DEFAULT '',
	FOREIGN KEY (version_id) REFERENCES annotation_versions(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_annotations_version ON annotations(version_id);

CREATE TABLE IF NOT EXISTS excluded_file_hashes (
	id TEXT PRIMARY KEY,
	content_hash TEXT NOT NULL UNIQUE,
	file_name TEXT NOT NULL DEFAULT '',
	note TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL
);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS datasets (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	upload_date TIMESTAMPTZ NOT NULL,
	file_count INTEGER NOT NULL DEFAULT 0,
	duplicate_count INTEGER NOT NULL DEFAULT 0,
	excluded_count INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL,
	error_message TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS jobs (
	id TEXT PRIMARY KEY,
	dataset_id TEXT NOT NULL REFERENCES datasets(id) ON DELETE CASCADE,
	file_name TEXT NOT NULL,
	content BYTEA,
	content_hash TEXT NOT NULL,
	status TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_jobs_dataset ON jobs(dataset_id);
CREATE INDEX IF NOT EXISTS idx_jobs_content_hash ON jobs(content_hash);
CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);

CREATE TABLE IF NOT EXISTS annotation_classes (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	display_label TEXT NOT NULL,
	color TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	deleted BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS annotation_versions (
	id TEXT PRIMARY KEY,
	job_id TEXT NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
	version_number INTEGER NOT NULL,
	source TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	UNIQUE (job_id, version_number)
);

CREATE TABLE IF NOT EXISTS annotations (
	id TEXT PRIMARY KEY,
	version_id TEXT NOT NULL REFERENCES annotation_versions(id) ON DELETE CASCADE,
	class_name TEXT NOT NULL,
	tag TEXT NOT NULL DEFAULT '',
	section_index INTEGER NOT NULL,
	start_offset INTEGER NOT NULL,
	end_offset INTEGER NOT NULL,
	original_text TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_annotations_version ON annotations(version_id);

CREATE TABLE IF NOT EXISTS excluded_file_hashes (
	id TEXT PRIMARY KEY,
	content_hash TEXT NOT NULL UNIQUE,
	file_name TEXT NOT NULL DEFAULT '',
	note TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);
`
