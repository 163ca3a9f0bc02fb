// Package ir provides the canonical data types for tournament structures.
//
// This package contains the structure document model, the template record,
// and the opaque value family used for parts of a document whose meaning is
// owned elsewhere. All other internal packages import ir; ir imports nothing
// internal.
//
// Key constraints:
//   - Opaque numbers that are not int64 keep their literal text (IRNumber)
//   - Unknown keys and unknown phase types are preserved, never rejected
//   - Content identity uses RFC 8785 canonical JSON (StructureHash)
package ir
