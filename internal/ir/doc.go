// Package ir provides the foundational value and schema types for profilegen.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal. This keeps the value model the
// bottom layer with no circular dependencies.
//
// Key design constraints:
//   - Values form a sealed sum type: Null, String, Decimal, DateTime
//   - NO float types anywhere - numbers are arbitrary-precision decimals (apd)
//   - DateTimes are always UTC
//   - Every Value has a stable Hash() used as its set identity
//   - Canonical JSON (RFC 8785 ordering, NFC strings) is the only
//     serialization used for content-addressed hashes
package ir
