package ir

// Version constants for the profile format and engine.
const (
	// ProfileSchemaVersion is the profile document schema version.
	ProfileSchemaVersion = "1"

	// EngineVersion is the profilegen engine version.
	EngineVersion = "0.1.0"
)
