package db

import (
	"database/sql"
	"fmt"

	"golang.org/x/mod/semver"
)

// SchemaVersion is the store layout written by this build.
const SchemaVersion = "v1.0.0"

// InitSchema creates the store tables if they do not exist and records the
// schema version on first use.
func InitSchema(d *sql.DB) error {
	if _, err := d.Exec(storeDDL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	_, err := d.Exec(
		`INSERT INTO meta (key, value) VALUES ('schema_version', $1)
		 ON CONFLICT (key) DO NOTHING`, SchemaVersion,
	)
	if err != nil {
		return fmt.Errorf("write schema version: %w", err)
	}
	return nil
}

// CheckSchemaVersion fails when the store was written by a newer, or
// unknown, layout than SchemaVersion.
func CheckSchemaVersion(d *sql.DB) error {
	var stored string
	err := d.QueryRow("SELECT value FROM meta WHERE key = 'schema_version'").Scan(&stored)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if !semver.IsValid(stored) {
		return fmt.Errorf("store schema version %q is not valid semver", stored)
	}
	if semver.Major(stored) != semver.Major(SchemaVersion) || semver.Compare(stored, SchemaVersion) > 0 {
		return fmt.Errorf("store schema %s is not supported by this build (%s)", stored, SchemaVersion)
	}
	return nil
}

const storeDDL = `
CREATE TABLE IF NOT EXISTS meta (
	key             VARCHAR PRIMARY KEY,
	value           VARCHAR NOT NULL
);

CREATE TABLE IF NOT EXISTS tweets (
	id              VARCHAR PRIMARY KEY,
	text            VARCHAR NOT NULL,
	text_hash       VARCHAR NOT NULL,
	author          VARCHAR,
	source          VARCHAR NOT NULL,
	created_at      TIMESTAMP,
	received_at     TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tweets_hash ON tweets(text_hash);

CREATE TABLE IF NOT EXISTS runs (
	id              VARCHAR PRIMARY KEY,
	created_at      TIMESTAMP NOT NULL,
	seed            BIGINT NOT NULL,
	latent_dims     INTEGER NOT NULL,
	clusters        INTEGER NOT NULL,
	max_iterations  INTEGER NOT NULL,
	iterations      INTEGER NOT NULL,
	converged       BOOLEAN NOT NULL,
	documents       INTEGER NOT NULL,
	terms           INTEGER NOT NULL,
	elapsed_ms      BIGINT NOT NULL,
	source          VARCHAR NOT NULL
);

CREATE TABLE IF NOT EXISTS run_clusters (
	run_id          VARCHAR NOT NULL REFERENCES runs(id),
	rank            INTEGER NOT NULL,
	tag             INTEGER NOT NULL,
	size            INTEGER NOT NULL,
	keywords        VARCHAR,
	centroid        DOUBLE[],
	PRIMARY KEY (run_id, rank)
);

CREATE TABLE IF NOT EXISTS run_members (
	run_id          VARCHAR NOT NULL REFERENCES runs(id),
	rank            INTEGER NOT NULL,
	position        INTEGER NOT NULL,
	doc_index       INTEGER NOT NULL,
	tweet_id        VARCHAR
);
CREATE INDEX IF NOT EXISTS idx_rm_run ON run_members(run_id, rank);
`
