package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content identity.
// The version suffix allows a future algorithm change.
const (
	DomainStructure = "phaseforge/structure/v1"
	DomainTemplate  = "phaseforge/template/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// StructureHash identifies a document's logical content. Two documents that
// differ only in key order or whitespace hash identically.
func StructureHash(doc StructureDocument) (string, error) {
	canonical, err := MarshalCanonical(doc.ToIR())
	if err != nil {
		return "", fmt.Errorf("StructureHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainStructure, canonical), nil
}

// TemplateHash identifies a record's user-visible content: metadata plus the
// logical structure. ID, ownership and timestamps are excluded so a
// duplicate and its source hash alike until one of them is edited.
func TemplateHash(rec TemplateRecord) (string, error) {
	doc, err := DecodeDocument([]byte(rec.StructureJSON))
	if err != nil {
		return "", fmt.Errorf("TemplateHash: %w", err)
	}
	obj := IRObject{
		"name":         IRString(rec.Name),
		"description":  IRString(rec.Description),
		"category":     IRString(rec.Category),
		"minUnits":     IRInt(rec.MinUnits),
		"maxUnits":     IRInt(rec.MaxUnits),
		"defaultUnits": IRInt(rec.DefaultUnits),
		"diagramText":  IRString(rec.DiagramText),
		"tags":         IRString(rec.Tags),
		"structure":    doc.ToIR(),
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("TemplateHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainTemplate, canonical), nil
}

// MustStructureHash is like StructureHash but panics on error.
// Use only in tests or when the document is known to be valid.
func MustStructureHash(doc StructureDocument) string {
	h, err := StructureHash(doc)
	if err != nil {
		panic(err)
	}
	return h
}
