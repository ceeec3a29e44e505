package citation

import (
	"regexp"
	"sort"
	"strings"
)

// PresetPriority ranks preset aliases above user-defined ones by default.
const PresetPriority = 100

// Preset is a template for a well-known citation style.
type Preset struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	Prefix          string `json:"prefix"`
	Pattern         string `json:"pattern"`
	NumberExtractor string `json:"number_extractor"`
	DisplayFormat   string `json:"display_format"`
}

var presets = map[string]Preset{
	"ccc": {
		Name:            "ccc",
		Description:     "Catechism of the Catholic Church (CCC 1234)",
		Prefix:          "CCC",
		Pattern:         `\bCCC\s*§?\s*\d{1,4}\b`,
		NumberExtractor: DefaultNumberExtractor,
		DisplayFormat:   "CCC " + NumberPlaceholder,
	},
	"compendium": {
		Name:            "compendium",
		Description:     "Compendium of the Catechism (Compendium 123)",
		Prefix:          "Compendium",
		Pattern:         `\bCompendium\s+\d{1,3}\b`,
		NumberExtractor: DefaultNumberExtractor,
		DisplayFormat:   "Compendium " + NumberPlaceholder,
	},
	"canon-law": {
		Name:            "canon-law",
		Description:     "Code of Canon Law (CIC can. 1055)",
		Prefix:          "CIC",
		Pattern:         `\bCIC\s+(?:can\.\s*)?\d{1,4}\b`,
		NumberExtractor: `(\d+)\s*$`,
		DisplayFormat:   "CIC can. " + NumberPlaceholder,
	},
	"denzinger": {
		Name:            "denzinger",
		Description:     "Denzinger-Hünermann (DH 3001)",
		Prefix:          "DH",
		Pattern:         `\bDH\s+\d{1,4}\b`,
		NumberExtractor: DefaultNumberExtractor,
		DisplayFormat:   "DH " + NumberPlaceholder,
	},
}

// Presets returns every preset sorted by name.
func Presets() []Preset {
	out := make([]Preset, 0, len(presets))
	for _, p := range presets {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// PresetByName looks a preset up case-insensitively.
func PresetByName(name string) (Preset, bool) {
	p, ok := presets[strings.ToLower(strings.TrimSpace(name))]
	return p, ok
}

// Apply derives alias fields from the preset. A non-empty customPrefix
// replaces every occurrence of the default prefix in the prefix, the pattern
// and the display format.
func (p Preset) Apply(customPrefix string) AliasInput {
	in := AliasInput{
		Prefix:          p.Prefix,
		Pattern:         p.Pattern,
		NumberExtractor: p.NumberExtractor,
		DisplayFormat:   p.DisplayFormat,
		Priority:        PresetPriority,
	}
	customPrefix = strings.TrimSpace(customPrefix)
	if customPrefix == "" || customPrefix == p.Prefix {
		return in
	}
	in.Prefix = customPrefix
	in.Pattern = strings.ReplaceAll(p.Pattern, regexp.QuoteMeta(p.Prefix), regexp.QuoteMeta(customPrefix))
	in.DisplayFormat = strings.ReplaceAll(p.DisplayFormat, p.Prefix, customPrefix)
	return in
}
