package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainProfile = "profilegen/profile/v1"
	DomainRowSpec = "profilegen/rowspec/v1"
	DomainRow     = "profilegen/row/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ProfileHash computes the identity of a profile document.
// The document is any canonical-marshalable value (typically map[string]any).
func ProfileHash(doc any) (string, error) {
	canonical, err := MarshalCanonical(doc)
	if err != nil {
		return "", fmt.Errorf("ProfileHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainProfile, canonical), nil
}

// RowSpecHash computes the identity of a RowSpec description.
func RowSpecHash(desc map[string]any) (string, error) {
	canonical, err := MarshalCanonical(desc)
	if err != nil {
		return "", fmt.Errorf("RowSpecHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainRowSpec, canonical), nil
}

// RowHash computes the identity of a generated row.
func RowHash(row Row) (string, error) {
	canonical, err := MarshalCanonical(map[string]Value(row))
	if err != nil {
		return "", fmt.Errorf("RowHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainRow, canonical), nil
}

// MustRowHash is like RowHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustRowHash(row Row) string {
	h, err := RowHash(row)
	if err != nil {
		panic(err)
	}
	return h
}
