package mixture

import (
	"fmt"

	"goprior/domain/core"
)

// Robustify mixes a vague component into the prior: the existing component
// weights are rescaled by (1-weight), preserving their relative ratios, and
// the vague component enters with the given weight. The vague component must
// belong to the mixture's family.
func (m Mixture) Robustify(weight float64, vague Component) (Mixture, error) {
	if weight <= 0 || weight >= 1 {
		return Mixture{}, fmt.Errorf("%w: robust weight %g outside (0,1)", core.ErrInvalidWeights, weight)
	}
	if err := m.family.ValidateComponent(Component{Weight: weight, Params: vague.Params}); err != nil {
		return Mixture{}, err
	}

	comps := make([]Component, 0, len(m.comps)+1)
	for _, c := range m.comps {
		comps = append(comps, Component{Weight: c.Weight * (1 - weight), Params: c.Params})
	}
	comps = append(comps, Component{Weight: weight, Params: vague.Params})

	out, err := New(m.family, comps...)
	if err != nil {
		return Mixture{}, err
	}
	out.refScale = m.refScale
	return out, nil
}

// RobustifyDefault robustifies with the family's canonical vague component
// centered at location with pseudoN pseudo-observations. For beta mixtures,
// location 0.5 and pseudoN 2 give the uniform robust component.
func (m Mixture) RobustifyDefault(weight, location, pseudoN float64) (Mixture, error) {
	vague, err := VagueComponent(m.family, weight, location, pseudoN, m.refScale)
	if err != nil {
		return Mixture{}, err
	}
	return m.Robustify(weight, vague)
}
