package search

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/talgya/stickersim/internal/config"
	"github.com/talgya/stickersim/internal/entropy"
)

// Range types.
const (
	TypeFloat = "float"
	TypeInt   = "int"
)

// ParameterRange bounds one tunable parameter during optimization.
type ParameterRange struct {
	Name string  `json:"name" yaml:"name"`
	Min  float64 `json:"min" yaml:"min"`
	Max  float64 `json:"max" yaml:"max"`
	Step float64 `json:"step" yaml:"step"`
	Type string  `json:"type,omitempty" yaml:"type,omitempty"` // "int" or "float"; float when empty
}

// Snap clamps v into the range and moves it to the nearest step from Min.
// Integer ranges are rounded after snapping.
func (r ParameterRange) Snap(v float64) float64 {
	v = math.Max(r.Min, math.Min(r.Max, v))
	if r.Step > 0 {
		steps := math.Round((v - r.Min) / r.Step)
		v = r.Min + steps*r.Step
		if v > r.Max+1e-9 {
			v -= r.Step
		}
		// Kill binary drift like 0.30000000000000004.
		v = math.Round(v*1e9) / 1e9
	}
	if r.Type == TypeInt {
		v = math.Round(v)
	}
	return v
}

// Draw picks one of the range's grid points uniformly, Min and Max
// included.
func (r ParameterRange) Draw(rng *entropy.Stream) float64 {
	if r.Step <= 0 {
		return r.Snap(rng.Uniform(r.Min, r.Max))
	}
	steps := int(math.Floor((r.Max-r.Min)/r.Step + 1e-9))
	k := rng.IntBetween(0, steps)
	return r.Snap(r.Min + float64(k)*r.Step)
}

// Validate checks the range against the known parameter names.
func (r ParameterRange) Validate() error {
	if !knownParam(r.Name) {
		return fmt.Errorf("range %q: unknown parameter", r.Name)
	}
	if r.Max < r.Min {
		return fmt.Errorf("range %q: max %v below min %v", r.Name, r.Max, r.Min)
	}
	if r.Step <= 0 {
		return fmt.Errorf("range %q: step must be positive", r.Name)
	}
	switch r.Type {
	case "", TypeFloat, TypeInt:
	default:
		return fmt.Errorf("range %q: unknown type %q", r.Name, r.Type)
	}
	return nil
}

var (
	paramSetOnce sync.Once
	paramSet     map[string]bool
)

func knownParam(name string) bool {
	paramSetOnce.Do(func() {
		paramSet = make(map[string]bool)
		for _, n := range config.ParamNames() {
			paramSet[n] = true
		}
	})
	return paramSet[name]
}

// DefaultRanges returns the optimization ranges used when no range file
// is given.
func DefaultRanges() []ParameterRange {
	f := func(name string, lo, hi, step float64) ParameterRange {
		return ParameterRange{Name: name, Min: lo, Max: hi, Step: step, Type: TypeFloat}
	}
	i := func(name string, lo, hi, step float64) ParameterRange {
		return ParameterRange{Name: name, Min: lo, Max: hi, Step: step, Type: TypeInt}
	}
	return []ParameterRange{
		// Scoring
		f("owner_base_points", 1.0, 4.0, 0.5),
		f("scanner_base_points", 0.5, 2.0, 0.25),
		f("unique_scanner_bonus", 0.5, 2.0, 0.25),
		i("diminishing_threshold", 2, 5, 1),

		// Diversity
		f("geo_diversity_radius", 200, 1000, 100),
		f("geo_diversity_bonus", 0.5, 2.0, 0.25),
		f("venue_variety_bonus", 0.5, 2.0, 0.25),
		i("social_sneeze_threshold", 2, 5, 1),
		f("social_sneeze_bonus", 1.0, 5.0, 0.5),

		// Economy
		i("pack_price_points", 200, 500, 50),
		f("pack_price_dollars", 2.0, 5.0, 0.5),
		f("points_per_dollar", 50, 200, 25),

		// Caps
		i("daily_scan_cap", 10, 30, 5),
		f("weekly_earn_cap", 300, 800, 100),
		f("daily_passive_cap", 50, 200, 25),

		// Retention
		f("churn_probability_whale", 0.0002, 0.002, 0.0002),
		f("churn_probability_grinder", 0.0005, 0.003, 0.0005),
		f("churn_probability_casual", 0.001, 0.005, 0.0005),
		i("streak_bonus_days", 3, 10, 1),
		f("streak_bonus_multiplier", 1.2, 2.0, 0.1),
		i("comeback_bonus_days", 2, 7, 1),
		f("comeback_bonus_multiplier", 1.5, 3.0, 0.25),

		// Decay
		f("sticker_decay_rate", 0.05, 0.2, 0.025),
		f("sticker_min_value", 0.05, 0.3, 0.05),

		// Onboarding
		i("new_player_bonus_days", 3, 14, 1),
		f("new_player_bonus_multiplier", 1.5, 3.0, 0.25),
		i("new_player_free_packs", 0, 3, 1),

		// Events
		i("event_frequency_days", 14, 60, 7),
		i("event_duration_days", 3, 14, 1),
		f("event_bonus_multiplier", 1.2, 2.5, 0.1),
	}
}

const rangesSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["ranges"],
  "additionalProperties": false,
  "properties": {
    "ranges": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["name", "min", "max", "step"],
        "additionalProperties": false,
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "min": {"type": "number"},
          "max": {"type": "number"},
          "step": {"type": "number", "exclusiveMinimum": 0},
          "type": {"enum": ["int", "float"]}
        }
      }
    }
  }
}`

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func rangesValidator() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = jsonschema.CompileString("ranges.schema.json", rangesSchema)
	})
	return schema, schemaErr
}

type rangeFile struct {
	Ranges []ParameterRange `json:"ranges"`
}

// LoadRanges reads a YAML or JSON range file of the form
// {ranges: [{name, min, max, step, type}]}. The document is checked
// against a JSON schema before decoding, and every name must be a known
// scalar parameter.
func LoadRanges(path string) ([]ParameterRange, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading ranges: %w", err)
	}
	return ParseRanges(data)
}

// ParseRanges decodes and validates a range document. JSON is a subset of
// YAML, so both are accepted.
func ParseRanges(data []byte) ([]ParameterRange, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing ranges: %w", err)
	}
	// Round-trip through JSON so the validator sees float64 numbers and
	// string-keyed objects.
	buf, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("normalizing ranges: %w", err)
	}
	var doc any
	if err := json.Unmarshal(buf, &doc); err != nil {
		return nil, fmt.Errorf("normalizing ranges: %w", err)
	}

	sch, err := rangesValidator()
	if err != nil {
		return nil, fmt.Errorf("compiling range schema: %w", err)
	}
	if err := sch.Validate(doc); err != nil {
		return nil, fmt.Errorf("invalid range file: %w", err)
	}

	var rf rangeFile
	if err := json.Unmarshal(buf, &rf); err != nil {
		return nil, fmt.Errorf("decoding ranges: %w", err)
	}
	seen := make(map[string]bool, len(rf.Ranges))
	for i := range rf.Ranges {
		r := &rf.Ranges[i]
		if r.Type == "" {
			r.Type = TypeFloat
			if config.ParamIsInt(r.Name) {
				r.Type = TypeInt
			}
		}
		if err := r.Validate(); err != nil {
			return nil, err
		}
		if seen[r.Name] {
			return nil, fmt.Errorf("range %q listed twice", r.Name)
		}
		seen[r.Name] = true
	}
	return rf.Ranges, nil
}
