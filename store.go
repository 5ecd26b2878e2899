package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
)

const jsonIndent = "    "

// loadStoredRecords reads the records a previous run left in path without
// decoding them, so hand edits survive the rewrite. Only a missing file, an
// unreadable one or one that is not a JSON array yields an empty set.
func loadStoredRecords(path string) []json.RawMessage {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			debugLog("no previous %s, starting fresh", path)
		} else {
			log.Printf("✗ Reading previous %s: %v (ignoring it)", path, err)
		}
		return nil
	}

	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		log.Printf("✗ Parsing previous %s: %v (ignoring it)", path, err)
		return nil
	}
	return records
}

// storedKey decodes only the identity field of a persisted record. It reports
// false when the record is not an object or the field is not a string.
func storedKey(raw json.RawMessage, field string) (string, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return "", false
	}
	value, found := fields[field]
	if !found {
		return "", false
	}
	var s *string
	if err := json.Unmarshal(value, &s); err != nil || s == nil {
		return "", false
	}
	return *s, true
}

// storedRecord is a record on its way to disk together with its identity
type storedRecord struct {
	raw   json.RawMessage
	key   string
	keyed bool
	index int
}

// identity keeps unkeyed records apart from every keyed one and from each other
func (r storedRecord) identity() string {
	if r.keyed {
		return "k:" + r.key
	}
	return "u:" + strconv.Itoa(r.index)
}

// marshalRecord encodes one record without HTML escaping
func marshalRecord(record any) (json.RawMessage, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(record); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func encodeFresh[T any](records []T, id Identity[T]) ([]storedRecord, error) {
	out := make([]storedRecord, 0, len(records))
	for _, r := range records {
		raw, err := marshalRecord(r)
		if err != nil {
			return nil, err
		}
		out = append(out, storedRecord{raw: raw, key: id.Key(r), keyed: true})
	}
	return out, nil
}

// encodeRecords renders records the way the site expects them:
// four space indent, no HTML escaping, [] for an empty set.
func encodeRecords(records []json.RawMessage) ([]byte, error) {
	if records == nil {
		records = []json.RawMessage{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", jsonIndent)
	if err := enc.Encode(records); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// WriteRecords replaces path with the JSON encoding of records
func WriteRecords[T any](path string, records []T) error {
	raw := make([]json.RawMessage, 0, len(records))
	for _, r := range records {
		data, err := marshalRecord(r)
		if err != nil {
			return fmt.Errorf("encoding %s: %w", path, err)
		}
		raw = append(raw, data)
	}
	return writeStored(path, raw)
}

func writeStored(path string, records []json.RawMessage) error {
	data, err := encodeRecords(records)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("creating temporary file for %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("setting mode of %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

// MergeAndWrite reconciles fresh records with the file's previous content and
// writes the result, returning the number of records written. Previous
// records are matched on id.Field alone and written back as they were found.
func MergeAndWrite[T any](path string, fresh []T, id Identity[T]) (int, error) {
	encoded, err := encodeFresh(fresh, id)
	if err != nil {
		return 0, fmt.Errorf("encoding %s: %w", path, err)
	}

	previous := loadStoredRecords(path)
	stale := make([]storedRecord, 0, len(previous))
	for i, raw := range previous {
		key, ok := storedKey(raw, id.Field)
		if !ok {
			debugLog("record %d of %s has no string %q, keeping it", i, path, id.Field)
		}
		stale = append(stale, storedRecord{raw: raw, key: key, keyed: ok, index: i})
	}

	merged := Merge(encoded, stale, storedRecord.identity)
	out := make([]json.RawMessage, len(merged))
	for i, r := range merged {
		out[i] = r.raw
	}
	if err := writeStored(path, out); err != nil {
		return 0, err
	}
	return len(out), nil
}
