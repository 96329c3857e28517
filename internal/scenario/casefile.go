package scenario

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/mortis-lab/pmi-cli/internal/model"
)

// LoadCaseFile reads a scenario from a YAML case file. The record is raw:
// it still has to pass Adapter.Resolve before a run.
func LoadCaseFile(path string) (model.Scenario, error) {
	var sc model.Scenario

	data, err := os.ReadFile(path)
	if err != nil {
		return sc, eris.Wrap(err, "scenario: read case file")
	}
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return sc, eris.Wrap(err, "scenario: unmarshal case file")
	}
	return sc, nil
}

// SaveCaseFile writes a scenario skeleton as YAML, used by the parse
// command to hand the investigator something editable.
func SaveCaseFile(path string, sc model.Scenario) error {
	data, err := yaml.Marshal(sc)
	if err != nil {
		return eris.Wrap(err, "scenario: marshal case file")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrap(err, "scenario: write case file")
	}
	return nil
}
