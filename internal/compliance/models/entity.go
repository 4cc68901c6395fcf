package models

// Entity is the narrow view the lifecycle service needs over the three
// concrete compliance kinds. It is a closed set: exactly *Policy, *Permit
// and *RegistrationLicense implement it.
type Entity interface {
	Kind() Kind
	Rec() *Record
	// Ref is the entity's identifier as a string, used in error details and
	// notification events.
	Ref() string
}

var (
	_ Entity = (*Policy)(nil)
	_ Entity = (*Permit)(nil)
	_ Entity = (*RegistrationLicense)(nil)
)
