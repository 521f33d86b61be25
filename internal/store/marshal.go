package store

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/roach88/statefuzz/internal/finding"
)

// marshalFinding converts a finding to canonical JSON TEXT for storage.
// Uses RFC 8785 canonical JSON for deterministic serialization.
func marshalFinding(f finding.Finding) (string, error) {
	data, err := f.CanonicalJSON()
	if err != nil {
		return "", fmt.Errorf("marshal finding: %w", err)
	}
	return string(data), nil
}

// unmarshalFinding parses canonical JSON TEXT to a Finding.
// IR-typed fields decode through ir.IRObject.UnmarshalJSON, which keeps
// integers exact via json.Number.
func unmarshalFinding(data string) (finding.Finding, error) {
	var f finding.Finding
	if err := json.Unmarshal([]byte(data), &f); err != nil {
		return finding.Finding{}, fmt.Errorf("unmarshal finding: %w", err)
	}
	if f.Actions == nil {
		f.Actions = []string{}
	}
	return f, nil
}

// marshalSeed stores a seed as decimal TEXT; SQLite INTEGER is signed 64-bit.
func marshalSeed(seed uint64) string {
	return strconv.FormatUint(seed, 10)
}

func unmarshalSeed(data string) (uint64, error) {
	seed, err := strconv.ParseUint(data, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("unmarshal seed: %w", err)
	}
	return seed, nil
}
