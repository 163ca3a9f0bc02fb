package ir

// Version constants.
const (
	// SchemaVersion is the structure document schema version. There is a
	// single schema; documents carry no version field.
	SchemaVersion = "1"

	// Version is the phaseforge release version.
	Version = "0.1.0"
)
