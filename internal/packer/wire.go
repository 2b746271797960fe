package packer

import (
	"archive/zip"
	"bufio"
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"io"
	"os"
	"time"

	nxerrors "github.com/nxindex/core/internal/errors"
	"github.com/nxindex/core/internal/field"
)

// magic identifies a published index stream. version pins the wire
// framing below; bumping either changes what a consumer must expect.
var magic = [4]byte{'N', 'X', 'I', '1'}

const streamVersion = 1

// Per-field flags recorded alongside each name/value pair.
const (
	flagStored = 1 << iota
	flagIndexed
	flagTokenized
)

// wireDoc is one flattened document: every field value the schema says is
// Stored, expanded to one (name, flags, value) triple per value (so a
// multi-valued field like classnames repeats its name).
type wireDoc struct {
	fields []wireField
}

type wireField struct {
	name  string
	flags byte
	value string
}

func flagsFor(f field.IndexerField) byte {
	var fl byte
	if f.Stored {
		fl |= flagStored
	}
	if f.Indexed {
		fl |= flagIndexed
	}
	if !f.Keyword {
		fl |= flagTokenized
	}
	return fl
}

// buildWireDoc flattens doc's stored values according to schema. Fields
// with no schema entry (internal marker documents) are skipped by the
// caller before reaching here.
func buildWireDoc(doc *field.IndexDocument, schema []field.IndexerField) wireDoc {
	byKey := make(map[string]field.IndexerField, len(schema))
	for _, f := range schema {
		byKey[f.StorageKey] = f
	}

	var wd wireDoc
	for key, raw := range doc.Values {
		f, known := byKey[key]
		if !known || !f.Stored {
			continue
		}
		flags := flagsFor(f)
		switch v := raw.(type) {
		case string:
			wd.fields = append(wd.fields, wireField{name: key, flags: flags, value: v})
		case []string:
			for _, s := range v {
				wd.fields = append(wd.fields, wireField{name: key, flags: flags, value: s})
			}
		}
	}
	return wd
}

// writeStream writes the v1 published-index frame:
// [magic=4 bytes][version=1 byte][timestamp=8-byte big-endian millis]
// [doc-count=varint](document*), each document
// [field-count=varint]([name-len=varint][name][flags=1 byte][value-len=varint][value])*.
func writeStream(w io.Writer, timestamp time.Time, docs []wireDoc) error {
	bw := bufio.NewWriter(w)

	if _, err := bw.Write(magic[:]); err != nil {
		return nxerrors.IOError("writing stream magic", err)
	}
	if err := bw.WriteByte(streamVersion); err != nil {
		return nxerrors.IOError("writing stream version", err)
	}
	var tsBuf [8]byte
	binary.BigEndian.PutUint64(tsBuf[:], uint64(timestamp.UnixMilli()))
	if _, err := bw.Write(tsBuf[:]); err != nil {
		return nxerrors.IOError("writing stream timestamp", err)
	}

	var countBuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(countBuf[:], uint64(len(docs)))
	if _, err := bw.Write(countBuf[:n]); err != nil {
		return nxerrors.IOError("writing stream doc count", err)
	}

	for _, doc := range docs {
		if err := writeWireDoc(bw, doc); err != nil {
			return err
		}
	}
	if err := bw.Flush(); err != nil {
		return nxerrors.IOError("flushing stream", err)
	}
	return nil
}

func writeWireDoc(bw *bufio.Writer, doc wireDoc) error {
	var buf [binary.MaxVarintLen64]byte

	n := binary.PutUvarint(buf[:], uint64(len(doc.fields)))
	if _, err := bw.Write(buf[:n]); err != nil {
		return nxerrors.IOError("writing document field count", err)
	}
	for _, f := range doc.fields {
		if err := writeVarintBytes(bw, []byte(f.name)); err != nil {
			return err
		}
		if err := bw.WriteByte(f.flags); err != nil {
			return nxerrors.IOError("writing field flags", err)
		}
		if err := writeVarintBytes(bw, []byte(f.value)); err != nil {
			return err
		}
	}
	return nil
}

func writeVarintBytes(bw *bufio.Writer, b []byte) error {
	var buf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(buf[:], uint64(len(b)))
	if _, err := bw.Write(buf[:n]); err != nil {
		return nxerrors.IOError("writing length prefix", err)
	}
	if _, err := bw.Write(b); err != nil {
		return nxerrors.IOError("writing bytes", err)
	}
	return nil
}

// writeGzStream gzip-compresses a v1 stream to w.
func writeGzStream(w io.Writer, timestamp time.Time, docs []wireDoc) error {
	gz := gzip.NewWriter(w)
	if err := writeStream(gz, timestamp, docs); err != nil {
		_ = gz.Close()
		return err
	}
	if err := gz.Close(); err != nil {
		return nxerrors.IOError("closing gzip stream", err)
	}
	return nil
}

// writeLegacyZip wraps the same v1 stream in a single-entry zip archive
// named indexFileName, for consumers that only understand the legacy
// full-archive delivery form.
func writeLegacyZip(path string, timestamp time.Time, docs []wireDoc) error {
	var buf bytes.Buffer
	if err := writeStream(&buf, timestamp, docs); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return nxerrors.IOError("creating legacy zip", err)
	}
	defer func() { _ = f.Close() }()

	zw := zip.NewWriter(f)
	entry, err := zw.Create(indexFileName)
	if err != nil {
		return nxerrors.IOError("creating legacy zip entry", err)
	}
	if _, err := entry.Write(buf.Bytes()); err != nil {
		return nxerrors.IOError("writing legacy zip entry", err)
	}
	if err := zw.Close(); err != nil {
		return nxerrors.IOError("closing legacy zip", err)
	}
	return nil
}
