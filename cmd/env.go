package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/mortis-lab/pmi-cli/internal/catalog"
	"github.com/mortis-lab/pmi-cli/internal/model"
	"github.com/mortis-lab/pmi-cli/internal/scenario"
	"github.com/mortis-lab/pmi-cli/internal/simulate"
	"github.com/mortis-lab/pmi-cli/internal/store"
	"github.com/mortis-lab/pmi-cli/pkg/notion"
)

// initStore opens the configured persistence backend and runs migrations.
func initStore(ctx context.Context) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch cfg.Store.Driver {
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	case "sqlite", "":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "pmi.db"
		}
		st, err = store.NewSQLite(dsn)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// loadCatalogs builds the species and toxicology catalogs: Notion when
// configured, fixture files next, built-in tables as the fallback.
func loadCatalogs(ctx context.Context) (*catalog.SpeciesCatalog, *catalog.ToxicologyCatalog, error) {
	if cfg.Notion.Token != "" && cfg.Notion.SpeciesDB != "" {
		client := notion.NewClient(cfg.Notion.Token)
		species, err := catalog.LoadSpeciesFromNotion(ctx, client, cfg.Notion.SpeciesDB)
		if err != nil {
			return nil, nil, eris.Wrap(err, "load species from notion")
		}
		tox, err := catalog.LoadToxicologyFromNotion(ctx, client, cfg.Notion.ToxicologyDB)
		if err != nil {
			return nil, nil, eris.Wrap(err, "load toxicology from notion")
		}
		zap.L().Info("catalogs loaded from notion",
			zap.Int("species", len(species.IDs())),
			zap.Int("drugs", len(tox.Drugs())),
		)
		return species, tox, nil
	}

	var (
		species *catalog.SpeciesCatalog
		tox     *catalog.ToxicologyCatalog
		err     error
	)
	if cfg.Catalog.SpeciesFile != "" {
		species, err = catalog.LoadSpeciesFromFile(cfg.Catalog.SpeciesFile)
	} else {
		species, err = catalog.NewSpeciesCatalog(catalog.DefaultSpecies())
	}
	if err != nil {
		return nil, nil, eris.Wrap(err, "load species catalog")
	}

	if cfg.Catalog.ToxicologyFile != "" {
		tox, err = catalog.LoadToxicologyFromFile(cfg.Catalog.ToxicologyFile)
	} else {
		tox, err = catalog.NewToxicologyCatalog(catalog.DefaultToxicology())
	}
	if err != nil {
		return nil, nil, eris.Wrap(err, "load toxicology catalog")
	}

	return species, tox, nil
}

// engineParams maps configuration onto the simulation tunables.
func engineParams() simulate.Params {
	e := cfg.Engine
	return simulate.Params{
		StepHours:      e.StepHours,
		MaxSearchHours: e.MaxSearchHours,
		SunnyOffsetC:   e.SunnyOffsetC,
		ShadedOffsetC:  e.ShadedOffsetC,
		Mass: simulate.MassParams{
			ColonizationADH: e.MassColonizationADH,
			RampADH:         e.MassRampADH,
			MaxHeatC:        e.MassMaxHeatC,
		},
		DefaultVariancePct: e.VariancePct,
		ConfidenceLevel:    e.ConfidenceLevel,
	}
}

// piaDelays maps configuration onto the concealment delay table.
func piaDelays() map[model.Concealment]float64 {
	return map[model.Concealment]float64{
		model.ConcealmentOpen:    cfg.Engine.PIAOpenHours,
		model.ConcealmentWrapped: cfg.Engine.PIAWrappedHours,
		model.ConcealmentBuried:  cfg.Engine.PIABuriedHours,
	}
}

// newAdapter assembles the scenario adapter from catalogs and config.
func newAdapter(ctx context.Context) (*scenario.Adapter, error) {
	species, tox, err := loadCatalogs(ctx)
	if err != nil {
		return nil, err
	}
	return &scenario.Adapter{
		Species:   species,
		Tox:       tox,
		Params:    engineParams(),
		PIADelays: piaDelays(),
	}, nil
}
