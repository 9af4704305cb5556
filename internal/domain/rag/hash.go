package rag

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// ContentHash returns the hex sha256 of text + "\n" + the canonical JSON of
// metadata. Map keys are sorted at every depth and HTML escaping is off, so
// equal maps hash equally whatever order they were built in. Nil metadata
// hashes as {}.
func ContentHash(text string, metadata Metadata) (string, error) {
	canon, err := CanonicalJSON(metadata)
	if err != nil {
		return "", err
	}
	h := sha256.New()
	h.Write([]byte(text))
	h.Write([]byte{'\n'})
	h.Write(canon)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// CanonicalJSON serialises metadata with sorted keys and no trailing newline.
// encoding/json already sorts map keys; nested values reached through
// interfaces are maps too, so the ordering holds recursively.
func CanonicalJSON(metadata Metadata) ([]byte, error) {
	if metadata == nil {
		metadata = Metadata{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(map[string]any(metadata)); err != nil {
		return nil, invalid("metadata", "not JSON-serialisable: %v", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
