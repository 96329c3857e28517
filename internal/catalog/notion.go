package catalog

import (
	"context"
	"strconv"
	"strings"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/mortis-lab/pmi-cli/pkg/notion"
)

// LoadSpeciesFromNotion queries the lab's Notion species database for all
// active profiles. Malformed pages are skipped and logged rather than
// aborting the sync; validation of the surviving set still applies.
//
// Expected properties: Name (title), ID (rich_text), LDT (number),
// UDT (number), Stages (rich_text, "stage:adh; stage:adh; ..."),
// Variance (number, optional), Status (status).
func LoadSpeciesFromNotion(ctx context.Context, client notion.Client, dbID string) (*SpeciesCatalog, error) {
	filter := &notionapi.DatabaseQueryRequest{
		Filter: notionapi.PropertyFilter{
			Property: "Status",
			Status: &notionapi.StatusFilterCondition{
				Equals: "Active",
			},
		},
	}

	pages, err := notion.QueryAll(ctx, client, dbID, filter)
	if err != nil {
		return nil, eris.Wrap(err, "catalog: load species from notion")
	}

	var profiles []SpeciesProfile
	for _, p := range pages {
		profile, err := parseSpeciesPage(p)
		if err != nil {
			zap.L().Warn("catalog: skipping malformed species page",
				zap.String("page_id", string(p.ID)),
				zap.Error(err),
			)
			continue
		}
		profiles = append(profiles, profile)
	}

	return NewSpeciesCatalog(profiles)
}

// LoadToxicologyFromNotion queries the Notion drug-factor database.
// Expected properties: Drug (title), Multiplier (number), Note (rich_text).
func LoadToxicologyFromNotion(ctx context.Context, client notion.Client, dbID string) (*ToxicologyCatalog, error) {
	pages, err := notion.QueryAll(ctx, client, dbID, nil)
	if err != nil {
		return nil, eris.Wrap(err, "catalog: load toxicology from notion")
	}

	var factors []DrugFactor
	for _, p := range pages {
		f := DrugFactor{}
		if prop, ok := p.Properties["Drug"]; ok {
			if tp, ok := prop.(*notionapi.TitleProperty); ok {
				f.Drug = plainText(tp.Title)
			}
		}
		if prop, ok := p.Properties["Multiplier"]; ok {
			if np, ok := prop.(*notionapi.NumberProperty); ok {
				f.Multiplier = np.Number
			}
		}
		if prop, ok := p.Properties["Note"]; ok {
			if rtp, ok := prop.(*notionapi.RichTextProperty); ok {
				f.Note = plainText(rtp.RichText)
			}
		}
		if f.Drug == "" || f.Multiplier <= 0 {
			zap.L().Warn("catalog: skipping malformed drug page",
				zap.String("page_id", string(p.ID)),
			)
			continue
		}
		factors = append(factors, f)
	}

	return NewToxicologyCatalog(factors)
}

func parseSpeciesPage(p notionapi.Page) (SpeciesProfile, error) {
	profile := SpeciesProfile{}

	if prop, ok := p.Properties["Name"]; ok {
		if tp, ok := prop.(*notionapi.TitleProperty); ok {
			profile.Name = plainText(tp.Title)
		}
	}
	if prop, ok := p.Properties["ID"]; ok {
		if rtp, ok := prop.(*notionapi.RichTextProperty); ok {
			profile.ID = plainText(rtp.RichText)
		}
	}
	if prop, ok := p.Properties["LDT"]; ok {
		if np, ok := prop.(*notionapi.NumberProperty); ok {
			profile.LDTC = np.Number
		}
	}
	if prop, ok := p.Properties["UDT"]; ok {
		if np, ok := prop.(*notionapi.NumberProperty); ok {
			profile.UDTC = np.Number
		}
	}
	if prop, ok := p.Properties["Variance"]; ok {
		if np, ok := prop.(*notionapi.NumberProperty); ok {
			profile.VariancePct = np.Number
		}
	}
	if prop, ok := p.Properties["Source"]; ok {
		if rtp, ok := prop.(*notionapi.RichTextProperty); ok {
			profile.Source = plainText(rtp.RichText)
		}
	}

	if prop, ok := p.Properties["Stages"]; ok {
		if rtp, ok := prop.(*notionapi.RichTextProperty); ok {
			stages, err := parseStageList(plainText(rtp.RichText))
			if err != nil {
				return profile, err
			}
			profile.Stages = stages
		}
	}

	if profile.ID == "" {
		return profile, eris.New("missing ID property")
	}
	return profile, nil
}

// parseStageList parses "egg:20; instar_1:300" into ordered requirements.
func parseStageList(s string) ([]StageRequirement, error) {
	var stages []StageRequirement
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, adhStr, ok := strings.Cut(part, ":")
		if !ok {
			return nil, eris.Errorf("malformed stage entry %q", part)
		}
		adh, err := strconv.ParseFloat(strings.TrimSpace(adhStr), 64)
		if err != nil {
			return nil, eris.Wrapf(err, "stage %q ADH", name)
		}
		stages = append(stages, StageRequirement{
			Stage: strings.TrimSpace(name),
			ADH:   adh,
		})
	}
	return stages, nil
}

func plainText(rts []notionapi.RichText) string {
	var s string
	for _, rt := range rts {
		s += rt.PlainText
	}
	return s
}
