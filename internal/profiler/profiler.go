// Package profiler turns free-text scene narratives into structured
// scenarios using the Anthropic API.
package profiler

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/mortis-lab/pmi-cli/internal/model"
	"github.com/mortis-lab/pmi-cli/pkg/anthropic"
)

const systemPrompt = `You are a forensic entomology case intake assistant. Extract a
structured scenario from the investigator's narrative. Respond with a single JSON
object and nothing else, using this schema:

{
  "case_id": string,
  "species_id": string,          // snake_case, e.g. "lucilia_sericata"
  "observed_stage": string,      // e.g. "egg", "instar_1", "instar_2", "instar_3", "pupa"
  "discovery_time": string,      // RFC 3339, UTC if zone unknown
  "concealment": string,         // "open", "wrapped", or "buried"
  "solar": string,               // "sunny", "shaded", or "none"
  "soil_depth_cm": number,       // 0 if not buried
  "toxicology": [string],        // drug names found in the narrative
  "scene_events": [
    {"start": string, "end": string, "delta_c": number, "cause": string}
  ],
  "weather_hint": {
    "mean_temp_c": number,       // 0 if the narrative gives no temperature
    "swing_c": number,
    "history_days": number
  }
}

Only include facts stated or directly implied by the narrative. Use empty
arrays when nothing applies.`

// Hints carries weather synthesis parameters the narrative implied but a
// structured series cannot be built from directly.
type Hints struct {
	MeanTempC   float64 `json:"mean_temp_c"`
	SwingC      float64 `json:"swing_c"`
	HistoryDays int     `json:"history_days"`
}

// parsedScenario is the JSON shape the model is asked to produce.
type parsedScenario struct {
	CaseID        string   `json:"case_id"`
	SpeciesID     string   `json:"species_id"`
	ObservedStage string   `json:"observed_stage"`
	DiscoveryTime string   `json:"discovery_time"`
	Concealment   string   `json:"concealment"`
	Solar         string   `json:"solar"`
	SoilDepthCM   float64  `json:"soil_depth_cm"`
	Toxicology    []string `json:"toxicology"`
	SceneEvents   []struct {
		Start  string  `json:"start"`
		End    string  `json:"end"`
		DeltaC float64 `json:"delta_c"`
		Cause  string  `json:"cause"`
	} `json:"scene_events"`
	WeatherHint Hints `json:"weather_hint"`
}

// Profiler parses narratives through an LLM.
type Profiler struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// New creates a Profiler.
func New(client anthropic.Client, modelID string, maxTokens int64) *Profiler {
	if maxTokens == 0 {
		maxTokens = 2048
	}
	return &Profiler{client: client, model: modelID, maxTokens: maxTokens}
}

// Parse extracts a scenario and weather hints from a narrative. The
// returned scenario has no weather series; the caller synthesizes or
// attaches one before running.
func (p *Profiler) Parse(ctx context.Context, narrative string) (model.Scenario, Hints, error) {
	var sc model.Scenario

	resp, err := p.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     p.model,
		MaxTokens: p.maxTokens,
		System:    systemPrompt,
		Messages: []anthropic.Message{
			{Role: "user", Content: narrative},
		},
	})
	if err != nil {
		return sc, Hints{}, eris.Wrap(err, "profiler: create message")
	}
	resp.Usage.LogCost(p.model, "narrative_parse")

	raw := extractJSON(responseText(resp))
	if raw == "" {
		return sc, Hints{}, eris.New("profiler: response contains no JSON object")
	}

	var parsed parsedScenario
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return sc, Hints{}, eris.Wrap(err, "profiler: unmarshal response")
	}

	sc, err = toScenario(parsed)
	if err != nil {
		return sc, Hints{}, err
	}

	zap.L().Info("profiler: parsed narrative",
		zap.String("case_id", sc.CaseID),
		zap.String("species", sc.SpeciesID),
		zap.String("stage", sc.ObservedStage),
		zap.Int("scene_events", len(sc.SceneEvents)),
	)
	return sc, parsed.WeatherHint, nil
}

func toScenario(parsed parsedScenario) (model.Scenario, error) {
	var sc model.Scenario

	discovery, err := time.Parse(time.RFC3339, parsed.DiscoveryTime)
	if err != nil {
		return sc, eris.Wrapf(err, "profiler: bad discovery_time %q", parsed.DiscoveryTime)
	}

	sc = model.Scenario{
		CaseID:        parsed.CaseID,
		SpeciesID:     parsed.SpeciesID,
		ObservedStage: parsed.ObservedStage,
		DiscoveryTime: discovery.UTC(),
		Concealment:   model.Concealment(parsed.Concealment),
		Solar:         model.SolarExposure(parsed.Solar),
	}
	if sc.Concealment == "" {
		sc.Concealment = model.ConcealmentOpen
	}
	if sc.Solar == "" {
		sc.Solar = model.SolarNone
	}
	if parsed.SoilDepthCM > 0 {
		sc.Soil = &model.SoilParams{DepthCM: parsed.SoilDepthCM}
	}

	for _, drug := range parsed.Toxicology {
		sc.Toxicology = append(sc.Toxicology, model.ToxicologyFactor{
			Drug: strings.ToLower(strings.TrimSpace(drug)),
		})
	}

	for i, ev := range parsed.SceneEvents {
		start, err := time.Parse(time.RFC3339, ev.Start)
		if err != nil {
			return sc, eris.Wrapf(err, "profiler: event %d bad start %q", i, ev.Start)
		}
		end, err := time.Parse(time.RFC3339, ev.End)
		if err != nil {
			return sc, eris.Wrapf(err, "profiler: event %d bad end %q", i, ev.End)
		}
		sc.SceneEvents = append(sc.SceneEvents, model.SceneEvent{
			Start:  start.UTC(),
			End:    end.UTC(),
			DeltaC: ev.DeltaC,
			Cause:  model.EventCause(ev.Cause),
		})
	}

	return sc, nil
}

func responseText(resp *anthropic.MessageResponse) string {
	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String()
}

var jsonFenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*\\})\\s*```")

// extractJSON pulls the first JSON object out of a model response,
// tolerating code fences and surrounding prose.
func extractJSON(text string) string {
	if m := jsonFenceRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ""
	}
	return text[start : end+1]
}
