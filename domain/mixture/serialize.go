package mixture

import (
	"encoding/json"
	"fmt"

	"goprior/domain/core"
)

// ComponentRecord is the external form of one component
type ComponentRecord struct {
	Weight float64   `json:"weight"`
	Params []float64 `json:"params"`
}

// Record is the external representation of a mixture: the family tag plus the
// ordered (weight, params) tuples, suitable for persistence and cross-process
// exchange. FromRecord validates on the way back in, so a Record is never a
// backdoor around construction checks.
type Record struct {
	Family     string            `json:"family"`
	Components []ComponentRecord `json:"components"`
	RefScale   float64           `json:"ref_scale,omitempty"`
}

// Record returns the mixture's external representation
func (m Mixture) Record() Record {
	comps := make([]ComponentRecord, len(m.comps))
	for i, c := range m.comps {
		comps[i] = ComponentRecord{Weight: c.Weight, Params: []float64{c.Params[0], c.Params[1]}}
	}
	return Record{Family: m.family.String(), Components: comps, RefScale: m.refScale}
}

// FromRecord rebuilds a validated mixture from its external representation
func FromRecord(r Record) (Mixture, error) {
	family, err := ParseFamily(r.Family)
	if err != nil {
		return Mixture{}, err
	}
	comps := make([]Component, len(r.Components))
	for i, cr := range r.Components {
		if len(cr.Params) != 2 {
			return Mixture{}, core.NewDomainError(r.Family, fmt.Sprintf("component %d has %d params, want 2", i, len(cr.Params)))
		}
		comps[i] = Component{Weight: cr.Weight, Params: [2]float64{cr.Params[0], cr.Params[1]}}
	}
	m, err := New(family, comps...)
	if err != nil {
		return Mixture{}, err
	}
	if r.RefScale != 0 {
		return m.WithRefScale(r.RefScale)
	}
	return m, nil
}

// EncodeJSON serializes the mixture's record form
func (m Mixture) EncodeJSON() ([]byte, error) {
	return json.Marshal(m.Record())
}

// DecodeJSON rebuilds a mixture from its serialized record form
func DecodeJSON(data []byte) (Mixture, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return Mixture{}, fmt.Errorf("decode mixture record: %w", err)
	}
	return FromRecord(r)
}
