// Package knowledge holds the agronomy catalogue: per-crop growing
// conditions, gene effects, and pest treatment chemicals. The built-in
// catalogue can be replaced by a TOML file for game updates.
package knowledge

import (
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/croplens/croplens/internal/errors"
)

// Pest category keys. Grapevines have their own pest roster.
const (
	CategoryGeneral = "GENERAL"
	CategoryGrape   = "GRAPE"
)

// Crop describes one crop's preferred conditions.
type Crop struct {
	TempMin      float64
	TempMax      float64
	HasTempRange bool
	WaterL       float64
	Fertilizer   string
}

// Chemical is one treatment class and the pests it covers.
type Chemical struct {
	Class   string
	VolumeL float64
	Targets []string
}

// Base is the loaded catalogue. Read-only after construction.
type Base struct {
	crops map[string]Crop
	genes map[string]string
	pests map[string][]Chemical
}

// Crop looks up a crop by name, case-insensitive.
func (b *Base) Crop(name string) (Crop, bool) {
	c, ok := b.crops[strings.ToUpper(strings.TrimSpace(name))]
	return c, ok
}

// GeneEffect returns the description of a genome letter, or "".
func (b *Base) GeneEffect(gene string) string {
	return b.genes[strings.ToUpper(gene)]
}

// PestCategory returns the pest roster key for a crop.
func (b *Base) PestCategory(crop string) string {
	if strings.Contains(strings.ToUpper(crop), CategoryGrape) {
		return CategoryGrape
	}
	return CategoryGeneral
}

// FindChemical returns the treatment whose target list matches the
// detected parasite, preferring the crop's own category and falling
// back to the general roster.
func (b *Base) FindChemical(crop, parasite string) (Chemical, bool) {
	needle := strings.ToUpper(parasite)
	for _, category := range []string{b.PestCategory(crop), CategoryGeneral} {
		for _, chem := range b.pests[category] {
			for _, target := range chem.Targets {
				if strings.Contains(needle, target) {
					return chem, true
				}
			}
		}
	}
	return Chemical{}, false
}

// CropNames returns all crop names, longest first so compound names
// win prefix matching.
func (b *Base) CropNames() []string {
	names := make([]string, 0, len(b.crops))
	for name := range b.crops {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})
	return names
}

// TargetNames returns every known parasite name across all categories.
func (b *Base) TargetNames() []string {
	seen := make(map[string]struct{})
	var names []string
	for _, chems := range b.pests {
		for _, chem := range chems {
			for _, target := range chem.Targets {
				if _, ok := seen[target]; !ok {
					seen[target] = struct{}{}
					names = append(names, target)
				}
			}
		}
	}
	sort.Strings(names)
	return names
}

// File representation for external catalogues.
type fileCrop struct {
	Temp  []float64 `toml:"temp"`
	Water float64   `toml:"water"`
	Fert  string    `toml:"fert"`
}

type fileChemical struct {
	VolumeL float64  `toml:"volume_l"`
	Targets []string `toml:"targets"`
}

type fileBase struct {
	Crops map[string]fileCrop                `toml:"crops"`
	Genes map[string]string                  `toml:"genes"`
	Pests map[string]map[string]fileChemical `toml:"pests"`
}

// Load reads a catalogue from a TOML file.
func Load(path string) (*Base, error) {
	var raw fileBase
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return nil, errors.Wrap(err, errors.ConfigInvalid, "decode knowledge file").WithMetadata("path", path)
	}
	return buildBase(raw)
}

func buildBase(raw fileBase) (*Base, error) {
	b := &Base{
		crops: make(map[string]Crop, len(raw.Crops)),
		genes: make(map[string]string, len(raw.Genes)),
		pests: make(map[string][]Chemical, len(raw.Pests)),
	}
	for name, fc := range raw.Crops {
		crop := Crop{WaterL: fc.Water, Fertilizer: strings.ToUpper(fc.Fert)}
		switch len(fc.Temp) {
		case 0:
		case 2:
			crop.TempMin, crop.TempMax = fc.Temp[0], fc.Temp[1]
			crop.HasTempRange = true
		default:
			return nil, errors.Newf(errors.ConfigInvalid, "crop %q: temp must have two bounds", name)
		}
		b.crops[strings.ToUpper(name)] = crop
	}
	for gene, desc := range raw.Genes {
		b.genes[strings.ToUpper(gene)] = desc
	}
	for category, chems := range raw.Pests {
		classes := make([]string, 0, len(chems))
		for class := range chems {
			classes = append(classes, class)
		}
		sort.Strings(classes)
		for _, class := range classes {
			fc := chems[class]
			targets := make([]string, len(fc.Targets))
			for i, t := range fc.Targets {
				targets[i] = strings.ToUpper(t)
			}
			b.pests[strings.ToUpper(category)] = append(b.pests[strings.ToUpper(category)], Chemical{
				Class:   strings.ToUpper(class),
				VolumeL: fc.VolumeL,
				Targets: targets,
			})
		}
	}
	return b, nil
}
