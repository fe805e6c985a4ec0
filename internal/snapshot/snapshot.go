// Package snapshot reads workspace exports from an import directory.
package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"wsrestore/internal/restore"
)

// SealedSuffix marks an age-encrypted export.
const SealedSuffix = ".age"

// ErrNotFound is returned when the import directory has no export.
var ErrNotFound = errors.New("snapshot not found")

// Encryptor seals exports and unlocks the key that opens them.
type Encryptor interface {
	// Setup generates a key pair protected by passphrase.
	Setup(passphrase string) error

	// Encrypt writes the ciphertext of r to w using the public key.
	Encrypt(r io.Reader, w io.Writer) error

	// Unlock decrypts the private key and returns a context that can open
	// sealed exports.
	Unlock(passphrase string) (DecryptionContext, error)

	// IsConfigured reports whether both key files exist.
	IsConfigured() bool
}

// DecryptionContext holds an unlocked private key for one session.
type DecryptionContext interface {
	Decrypt(r io.Reader, w io.Writer) error
}

// Unlocker is called only when the export found is sealed.
type Unlocker func() (DecryptionContext, error)

// Locate returns the path of the export named name in dir, preferring the
// plain file over a sealed one.
func Locate(dir, name string) (path string, sealed bool, err error) {
	plain := filepath.Join(dir, name)
	if info, err := os.Stat(plain); err == nil && !info.IsDir() {
		return plain, false, nil
	}
	enc := plain + SealedSuffix
	if info, err := os.Stat(enc); err == nil && !info.IsDir() {
		return enc, true, nil
	}
	return "", false, fmt.Errorf("%w: neither %s nor %s exists", ErrNotFound, name, name+SealedSuffix)
}

// Open locates and decodes the export in dir. unlock may be nil when sealed
// exports are not expected.
func Open(dir, name string, unlock Unlocker) (*restore.Snapshot, error) {
	path, sealed, err := Locate(dir, name)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot: %w", err)
	}
	defer f.Close()

	if !sealed {
		return Decode(f)
	}

	if unlock == nil {
		return nil, fmt.Errorf("snapshot %s is encrypted and no key is available", path)
	}
	dc, err := unlock()
	if err != nil {
		return nil, fmt.Errorf("unlocking key: %w", err)
	}

	var plain bytes.Buffer
	if err := dc.Decrypt(f, &plain); err != nil {
		return nil, fmt.Errorf("decrypting %s: %w", path, err)
	}
	return Decode(&plain)
}

// Decode parses an export. Entity arrays are read from the top level, or
// from a top-level "data" object when the export nests them. A kind whose
// array is absent or null is left out of Records; an empty array is kept
// as an empty slice.
func Decode(r io.Reader) (*restore.Snapshot, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var top map[string]json.RawMessage
	if err := dec.Decode(&top); err != nil {
		return nil, fmt.Errorf("parsing snapshot: %w", err)
	}

	tables := top
	if raw, ok := top["data"]; ok {
		var nested map[string]json.RawMessage
		if err := json.Unmarshal(raw, &nested); err == nil && nested != nil {
			tables = nested
		}
	}

	snap := &restore.Snapshot{
		ExportedAt: scalarString(top["exportedAt"]),
		Version:    scalarString(top["version"]),
		Records:    make(map[restore.Kind][]restore.Record),
	}

	for _, ks := range restore.LoadOrder() {
		raw, ok := tables[ks.Table]
		if !ok || isNull(raw) {
			continue
		}
		records, err := decodeRecords(raw)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", ks.Table, err)
		}
		snap.Records[ks.Kind] = records
	}
	return snap, nil
}

func decodeRecords(raw json.RawMessage) ([]restore.Record, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var items []json.RawMessage
	if err := dec.Decode(&items); err != nil {
		return nil, fmt.Errorf("expected an array: %w", err)
	}

	records := make([]restore.Record, 0, len(items))
	for _, item := range items {
		rec := restore.Record{}
		d := json.NewDecoder(bytes.NewReader(item))
		d.UseNumber()
		// Anything other than an object becomes an empty record, which the
		// loader drops for having no id.
		if err := d.Decode(&rec); err != nil || rec == nil {
			rec = restore.Record{}
		}
		records = append(records, rec)
	}
	return records, nil
}

// scalarString renders a string or number field; anything else is "".
func scalarString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	default:
		return ""
	}
}

func isNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}
