package catalog

import (
	"sort"

	"github.com/rotisserie/eris"
)

// ErrUnknownDrug is returned when a scenario names a drug the catalog does
// not carry.
var ErrUnknownDrug = eris.New("catalog: unknown drug")

// DrugFactor is a catalog entry mapping a drug to its larval growth rate
// multiplier.
type DrugFactor struct {
	Drug       string  `json:"drug"`
	Multiplier float64 `json:"multiplier"`
	Note       string  `json:"note,omitempty"`
}

// ToxicologyCatalog is a read-only index of drug growth modifiers.
type ToxicologyCatalog struct {
	byKey map[string]DrugFactor
	order []string
}

// NewToxicologyCatalog validates entries and builds the index. Multipliers
// must be positive; a zero multiplier would silently halt development and
// masquerade as a thermal effect.
func NewToxicologyCatalog(factors []DrugFactor) (*ToxicologyCatalog, error) {
	c := &ToxicologyCatalog{byKey: make(map[string]DrugFactor, len(factors))}
	for _, f := range factors {
		if f.Drug == "" {
			return nil, eris.New("catalog: drug factor missing name")
		}
		if f.Multiplier <= 0 {
			return nil, eris.Errorf("catalog: drug %q multiplier %.2f must be > 0", f.Drug, f.Multiplier)
		}
		c.byKey[foldName(f.Drug)] = f
		c.order = append(c.order, f.Drug)
	}
	sort.Strings(c.order)
	return c, nil
}

// Lookup resolves a drug by name.
func (c *ToxicologyCatalog) Lookup(drug string) (DrugFactor, error) {
	if f, ok := c.byKey[foldName(drug)]; ok {
		return f, nil
	}
	return DrugFactor{}, eris.Wrapf(ErrUnknownDrug, "%q", drug)
}

// Drugs returns the catalog's drug names in sorted order.
func (c *ToxicologyCatalog) Drugs() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// DefaultToxicology returns the built-in drug catalog. Multipliers follow
// the entomotoxicology literature on blowfly larvae reared on dosed tissue.
func DefaultToxicology() []DrugFactor {
	return []DrugFactor{
		{Drug: "cocaine", Multiplier: 1.5, Note: "accelerated feeding, Goff et al."},
		{Drug: "methamphetamine", Multiplier: 1.3},
		{Drug: "heroin", Multiplier: 1.2},
		{Drug: "ethanol", Multiplier: 0.9},
		{Drug: "barbiturate", Multiplier: 0.8, Note: "retarded development"},
		{Drug: "malathion", Multiplier: 0.6},
	}
}
