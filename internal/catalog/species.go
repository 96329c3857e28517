// Package catalog holds the read-only species and toxicology lookup tables.
// Catalogs are loaded once at process start (or test fixture start) and
// shared across runs; nothing here mutates after load.
package catalog

import (
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Validation sentinels. Loaders wrap these with the offending entity so the
// caller can report which profile or stage broke the contract.
var (
	ErrInvalidSpeciesProfile        = eris.New("catalog: invalid species profile")
	ErrNonMonotonicStageRequirement = eris.New("catalog: stage requirements not strictly increasing")
	ErrUnknownSpecies               = eris.New("catalog: unknown species")
	ErrUnknownStage                 = eris.New("catalog: unknown growth stage")
)

// StageRequirement is one entry in a species' ordered development sequence:
// the cumulative ADH at which the named stage is complete.
type StageRequirement struct {
	Stage string  `json:"stage"`
	ADH   float64 `json:"adh"`
}

// SpeciesProfile holds the immutable developmental constants for one
// species. Created once per catalog load, never mutated afterwards.
type SpeciesProfile struct {
	ID     string             `json:"id"`
	Name   string             `json:"name"`
	Source string             `json:"source,omitempty"`
	LDTC   float64            `json:"ldt_c"`
	UDTC   float64            `json:"udt_c"`
	Stages []StageRequirement `json:"stages"`
	// VariancePct is the ± tolerance applied to stage requirements when
	// deriving the confidence interval. Zero means "use the engine default".
	VariancePct float64 `json:"variance_pct,omitempty"`
}

// Validate checks the profile against the engine's input contract.
func (p SpeciesProfile) Validate() error {
	if p.ID == "" {
		return eris.Wrap(ErrInvalidSpeciesProfile, "missing id")
	}
	if p.LDTC < 0 {
		return eris.Wrapf(ErrInvalidSpeciesProfile, "%s: negative LDT %.1f", p.ID, p.LDTC)
	}
	if p.UDTC <= p.LDTC {
		return eris.Wrapf(ErrInvalidSpeciesProfile, "%s: UDT %.1f <= LDT %.1f", p.ID, p.UDTC, p.LDTC)
	}
	if len(p.Stages) == 0 {
		return eris.Wrapf(ErrInvalidSpeciesProfile, "%s: no stage requirements", p.ID)
	}
	prev := 0.0
	for i, s := range p.Stages {
		if s.Stage == "" {
			return eris.Wrapf(ErrInvalidSpeciesProfile, "%s: stage %d unnamed", p.ID, i)
		}
		if s.ADH <= prev {
			return eris.Wrapf(ErrNonMonotonicStageRequirement,
				"%s: stage %q requires %.1f ADH after %.1f", p.ID, s.Stage, s.ADH, prev)
		}
		prev = s.ADH
	}
	if p.VariancePct < 0 || p.VariancePct >= 1 {
		return eris.Wrapf(ErrInvalidSpeciesProfile, "%s: variance_pct %.2f outside [0,1)", p.ID, p.VariancePct)
	}
	return nil
}

// StageIndex returns the position of the named stage in the requirement
// sequence, or ErrUnknownStage.
func (p SpeciesProfile) StageIndex(stage string) (int, error) {
	key := foldName(stage)
	for i, s := range p.Stages {
		if foldName(s.Stage) == key {
			return i, nil
		}
	}
	return 0, eris.Wrapf(ErrUnknownStage, "%s: %q", p.ID, stage)
}

// SpeciesCatalog is a read-only index of species profiles.
type SpeciesCatalog struct {
	byKey map[string]SpeciesProfile
	order []string
}

// NewSpeciesCatalog validates every profile and builds the lookup index.
// Profiles are indexed by folded ID and folded display name, so AI-parsed
// scenario records with casing or diacritic drift still resolve.
func NewSpeciesCatalog(profiles []SpeciesProfile) (*SpeciesCatalog, error) {
	c := &SpeciesCatalog{byKey: make(map[string]SpeciesProfile, len(profiles)*2)}
	for _, p := range profiles {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		c.byKey[foldName(p.ID)] = p
		if p.Name != "" {
			c.byKey[foldName(p.Name)] = p
		}
		c.order = append(c.order, p.ID)
	}
	sort.Strings(c.order)
	return c, nil
}

// Lookup resolves a species by ID or display name.
func (c *SpeciesCatalog) Lookup(nameOrID string) (SpeciesProfile, error) {
	if p, ok := c.byKey[foldName(nameOrID)]; ok {
		return p, nil
	}
	return SpeciesProfile{}, eris.Wrapf(ErrUnknownSpecies, "%q", nameOrID)
}

// IDs returns the catalog's species IDs in sorted order.
func (c *SpeciesCatalog) IDs() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// foldName normalizes a species or stage name for lookup: NFKC, case fold,
// collapse separators.
func foldName(s string) string {
	s = norm.NFKC.String(s)
	s = cases.Fold().String(s)
	s = strings.ReplaceAll(s, "-", " ")
	s = strings.ReplaceAll(s, "_", " ")
	return strings.Join(strings.Fields(s), " ")
}

// DefaultSpecies returns the built-in species catalog. LDT/UDT and stage
// ADH requirements follow published blowfly development datasets, including
// the low-LDT Busan population of Lucilia sericata.
func DefaultSpecies() []SpeciesProfile {
	return []SpeciesProfile{
		{
			ID:   "lucilia_sericata",
			Name: "Lucilia sericata",
			LDTC: 9.0,
			UDTC: 35.0,
			Stages: []StageRequirement{
				{Stage: "egg", ADH: 20},
				{Stage: "instar_1", ADH: 300},
				{Stage: "instar_2", ADH: 800},
				{Stage: "instar_3_feed", ADH: 1400},
				{Stage: "instar_3_wander", ADH: 2400},
				{Stage: "pupa", ADH: 4000},
			},
		},
		{
			ID:     "lucilia_sericata_busan",
			Name:   "Lucilia sericata (Busan)",
			Source: "Jung & Yoon (2015), Korean Police Studies 14(1)",
			LDTC:   4.5,
			UDTC:   35.0,
			Stages: []StageRequirement{
				{Stage: "egg", ADH: 35},
				{Stage: "instar_1", ADH: 150},
				{Stage: "instar_2", ADH: 350},
				{Stage: "instar_3_feed", ADH: 550},
				{Stage: "instar_3_wander", ADH: 702},
				{Stage: "pupa", ADH: 4901},
				{Stage: "adult", ADH: 6483},
			},
		},
		{
			ID:   "chrysomya_megacephala",
			Name: "Chrysomya megacephala",
			LDTC: 10.0,
			UDTC: 40.0,
			Stages: []StageRequirement{
				{Stage: "egg", ADH: 15},
				{Stage: "instar_1", ADH: 300},
				{Stage: "instar_2", ADH: 700},
				{Stage: "instar_3_feed", ADH: 1300},
				{Stage: "instar_3_wander", ADH: 2200},
				{Stage: "pupa", ADH: 3800},
			},
		},
	}
}
