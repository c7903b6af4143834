package domain

import "slices"

// NormalizedTask is the classified, owner-resolved form of a RawRecord. It is
// built once per refresh and never mutated afterwards.
type NormalizedTask struct {
	ID              string     `json:"id"`
	ExternalID      string     `json:"externalId,omitempty"`
	Title           string     `json:"title"`
	Category        Category   `json:"category"`
	Status          string     `json:"status"`
	URL             string     `json:"url,omitempty"`
	Phases          PhaseFlags `json:"phases"`
	DiscoveryOwners []string   `json:"discoveryOwners"`
	DeliveryOwners  []string   `json:"deliveryOwners"`
}

// Owners returns the owner list of phase p.
func (t NormalizedTask) Owners(p Phase) []string {
	if p == PhaseDelivery {
		return t.DeliveryOwners
	}
	return t.DiscoveryOwners
}

// HasOwner reports whether name is an owner of phase p.
func (t NormalizedTask) HasOwner(p Phase, name string) bool {
	return slices.Contains(t.Owners(p), name)
}

// IsOwnerless reports whether neither owner list has an entry.
func (t NormalizedTask) IsOwnerless() bool {
	return len(t.DiscoveryOwners) == 0 && len(t.DeliveryOwners) == 0
}

// IsDone reports whether the status is terminal (Delivered, Done or Archive).
func (t NormalizedTask) IsDone() bool {
	_, ok := DoneRules().Match(NormalizeText(t.Status))
	return ok
}
