package domain

// ReferenceData is the read-only configuration one refresh classifies with.
type ReferenceData struct {
	Owners    *OwnerDirectory
	Overrides OverrideTable
}

// ReferenceProvider hands out the current reference data.
type ReferenceProvider interface {
	Reference() ReferenceData
}

type staticReference struct {
	ref ReferenceData
}

// StaticReference returns a provider that always yields ref.
func StaticReference(ref ReferenceData) ReferenceProvider {
	return staticReference{ref: ref}
}

func (s staticReference) Reference() ReferenceData {
	return s.ref
}
