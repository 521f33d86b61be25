package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainState   = "statefuzz/state/v1"
	DomainFinding = "statefuzz/finding/v1"
	DomainModel   = "statefuzz/model/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// StateSignature computes the coverage signature of a state. Only storage
// and balances take part; metadata is provenance and never distinguishes
// two states.
func StateSignature(storage, balances IRObject) (string, error) {
	obj := IRObject{
		"storage":  nonNil(storage),
		"balances": nonNil(balances),
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("StateSignature: failed to marshal: %w", err)
	}

	return hashWithDomain(DomainState, canonical), nil
}

// FindingFingerprint identifies a finding by the invariant it broke and the
// action names along its trace. Parameters are left out so that the same
// path found with different sampled inputs dedupes to one row.
func FindingFingerprint(invariant string, actions []string) (string, error) {
	names := make(IRArray, len(actions))
	for i, a := range actions {
		names[i] = IRString(a)
	}
	obj := IRObject{
		"invariant": IRString(invariant),
		"actions":   names,
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("FindingFingerprint: failed to marshal: %w", err)
	}

	return hashWithDomain(DomainFinding, canonical), nil
}

// ModelHash hashes the canonical form of a model document, so stored runs
// can tell whether the model changed since they were recorded.
func ModelHash(doc IRObject) (string, error) {
	canonical, err := MarshalCanonical(nonNil(doc))
	if err != nil {
		return "", fmt.Errorf("ModelHash: failed to marshal: %w", err)
	}

	return hashWithDomain(DomainModel, canonical), nil
}

// MustStateSignature is like StateSignature but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustStateSignature(storage, balances IRObject) string {
	sig, err := StateSignature(storage, balances)
	if err != nil {
		panic(err)
	}
	return sig
}

func nonNil(obj IRObject) IRObject {
	if obj == nil {
		return IRObject{}
	}
	return obj
}
