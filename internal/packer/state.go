package packer

import (
	"database/sql"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	nxerrors "github.com/nxindex/core/internal/errors"
)

// stateFileName is the SQLite-backed source of truth for publication
// state (chain-id, last-incremental, per-chunk counters). The published
// <INDEX_FILE>.properties text file (properties.go) remains the wire
// format peers read — it is generated from this table on every Pack
// rather than hand-parsed back on the next Pack, so the on-disk write
// path and the read-back path can never disagree about field names.
const stateFileName = ".nxindex-state.db"

// stateTimeLayout keeps the full nanosecond timestamp in the state row,
// so Pack's "not newer than the last pack" check compares exact values
// rather than the millisecond-truncated form the .properties file uses.
const stateTimeLayout = time.RFC3339Nano

const createStateTableSQL = `
CREATE TABLE IF NOT EXISTS nxindex_publication_state (
	id               TEXT PRIMARY KEY,
	chain_id         TEXT NOT NULL,
	last_incremental INTEGER NOT NULL,
	timestamp        TEXT NOT NULL,
	chunks           TEXT NOT NULL,
	epoch            INTEGER NOT NULL DEFAULT 0
)`

func statePath(outDir string) string {
	return filepath.Join(outDir, stateFileName)
}

func openStateDB(outDir string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", statePath(outDir))
	if err != nil {
		return nil, nxerrors.IOError("opening publication state database", err)
	}
	if _, err := db.Exec(createStateTableSQL); err != nil {
		_ = db.Close()
		return nil, nxerrors.IOError("creating publication state table", err)
	}
	return db, nil
}

// readState loads the single publication-state row, keyed by
// repositoryID. A missing database or row is not an error: it returns
// (nil, nil), signalling "no chain yet" exactly like the pre-SQLite
// properties-file read did.
func readState(outDir, repositoryID string) (*Properties, error) {
	db, err := openStateDB(outDir)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()

	row := db.QueryRow(
		`SELECT chain_id, last_incremental, timestamp, chunks, epoch FROM nxindex_publication_state WHERE id = ?`,
		repositoryID,
	)

	var chainID, ts, chunksCSV string
	var lastIncremental, epoch int
	if err := row.Scan(&chainID, &lastIncremental, &ts, &chunksCSV, &epoch); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, nxerrors.IOError("reading publication state", err)
	}

	p := &Properties{ID: repositoryID, ChainID: chainID, LastIncremental: lastIncremental, Epoch: epoch}
	if parsed, err := time.Parse(stateTimeLayout, ts); err == nil {
		p.Timestamp = parsed
	}
	if chunksCSV != "" {
		for _, part := range strings.Split(chunksCSV, ",") {
			if n, err := strconv.Atoi(part); err == nil {
				p.Chunks = append(p.Chunks, n)
			}
		}
	}
	return p, nil
}

// writeState upserts the publication-state row and regenerates the
// published .properties text file from it in the same call, so the two
// representations never drift.
func writeState(outDir string, p *Properties) error {
	db, err := openStateDB(outDir)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	chunkStrs := make([]string, len(p.Chunks))
	for i, c := range p.Chunks {
		chunkStrs[i] = strconv.Itoa(c)
	}

	_, err = db.Exec(
		`INSERT INTO nxindex_publication_state (id, chain_id, last_incremental, timestamp, chunks, epoch)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET chain_id=excluded.chain_id, last_incremental=excluded.last_incremental,
			timestamp=excluded.timestamp, chunks=excluded.chunks, epoch=excluded.epoch`,
		p.ID, p.ChainID, p.LastIncremental, p.Timestamp.UTC().Format(stateTimeLayout), strings.Join(chunkStrs, ","), p.Epoch,
	)
	if err != nil {
		return nxerrors.IOError("writing publication state", err)
	}

	return writeProperties(outDir, p)
}
