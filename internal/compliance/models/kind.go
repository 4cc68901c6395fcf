package models

import dErrors "fleetcomply/pkg/domain-errors"

// Kind is the closed set of compliance entity kinds the lifecycle service
// operates over. Dispatch is by switch over this enum, never by reflection.
type Kind string

const (
	KindPolicy  Kind = "policy"
	KindPermit  Kind = "permit"
	KindLicense Kind = "license"
)

func (k Kind) String() string { return string(k) }

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindPolicy, KindPermit, KindLicense:
		return true
	}
	return false
}

// ParseKind validates a kind string.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown compliance kind: %s", s)
	}
	return k, nil
}
