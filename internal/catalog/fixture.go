package catalog

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
)

// LoadSpeciesFromFile reads a JSON array of SpeciesProfile from the given
// path and returns a validated catalog.
func LoadSpeciesFromFile(path string) (*SpeciesCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "catalog: read species fixture")
	}

	var profiles []SpeciesProfile
	if err := json.Unmarshal(data, &profiles); err != nil {
		return nil, eris.Wrap(err, "catalog: unmarshal species fixture")
	}

	return NewSpeciesCatalog(profiles)
}

// LoadToxicologyFromFile reads a JSON array of DrugFactor from the given
// path and returns a validated catalog.
func LoadToxicologyFromFile(path string) (*ToxicologyCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "catalog: read toxicology fixture")
	}

	var factors []DrugFactor
	if err := json.Unmarshal(data, &factors); err != nil {
		return nil, eris.Wrap(err, "catalog: unmarshal toxicology fixture")
	}

	return NewToxicologyCatalog(factors)
}
