package ir

// Version constants for the model schema and engine.
const (
	// SchemaVersion is the model description schema version.
	SchemaVersion = "1"

	// EngineVersion is the statefuzz engine version, reported as the tool
	// version on findings.
	EngineVersion = "0.1.0"

	// ToolName identifies the engine on every finding it emits.
	ToolName = "state-fuzzer"
)
