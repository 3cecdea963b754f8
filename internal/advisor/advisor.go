// Package advisor turns confirmed game state into husbandry advice:
// severity readings per condition bar, pest treatment selection, and
// fertilizer dosage.
package advisor

import (
	"fmt"
	"strings"

	"github.com/croplens/croplens/internal/knowledge"
	"github.com/croplens/croplens/internal/roi"
	"github.com/croplens/croplens/internal/state"
)

// Severity grades how far a reading is from the crop's comfort zone.
type Severity int

const (
	OK Severity = iota
	Near
	Warn
	Critical
)

func (s Severity) String() string {
	return [...]string{"OK", "NEAR", "WARN", "CRITICAL"}[s]
}

// BarReading is one evaluated condition bar.
type BarReading struct {
	Current float64
	Target  float64
	Unit    string
	Status  Severity
	Note    string
}

// GenomeInfo summarizes the planted seed's gene letters.
type GenomeInfo struct {
	Sequence        string
	Effects         []string
	ParasiteRisk    bool
	WaterMultiplier float64
}

// PestFinding is the parasite reading plus the selected treatment.
type PestFinding struct {
	Detected       string
	Status         Severity
	Chemical       string
	VolumeL        float64
	Recommendation string
}

// FertilizerAdvice says whether to fertilize and with what.
type FertilizerAdvice struct {
	Family      string
	Recommended bool
	DosageL     float64
}

// Report is one full evaluation of the current state.
type Report struct {
	Crop          string
	Status        string
	Stage         string
	StageProgress float64
	Genome        *GenomeInfo
	Temperature   *BarReading
	Water         *BarReading
	SoilPct       float64
	HasSoil       bool
	Parasites     *PestFinding
	Fertilizer    FertilizerAdvice
	Severity      Severity // worst status across readings
	Alerts        []string
}

// Advisor tuning constants.
const (
	DefaultTempDeltaNear         = 0.5
	DefaultTempDeltaWarn         = 2.0
	DefaultGenomeWaterMultiplier = 1.15
	DefaultFertilizerFactor      = 1.0
)

// Config holds rule thresholds.
type Config struct {
	TempDeltaNear         float64
	TempDeltaWarn         float64
	GenomeWaterMultiplier float64
	FertilizerFactor      float64
}

func (c Config) withDefaults() Config {
	if c.TempDeltaNear == 0 {
		c.TempDeltaNear = DefaultTempDeltaNear
	}
	if c.TempDeltaWarn == 0 {
		c.TempDeltaWarn = DefaultTempDeltaWarn
	}
	if c.GenomeWaterMultiplier == 0 {
		c.GenomeWaterMultiplier = DefaultGenomeWaterMultiplier
	}
	if c.FertilizerFactor == 0 {
		c.FertilizerFactor = DefaultFertilizerFactor
	}
	return c
}

// Advisor applies the rule set against a knowledge base.
type Advisor struct {
	kb  *knowledge.Base
	cfg Config
}

// New creates an advisor. A nil base falls back to the built-in catalogue.
func New(kb *knowledge.Base, cfg Config) *Advisor {
	if kb == nil {
		kb = knowledge.Default()
	}
	return &Advisor{kb: kb, cfg: cfg.withDefaults()}
}

// Evaluate grades a state snapshot. Missing fields degrade gracefully:
// whatever is confirmed gets evaluated, the rest stays nil.
func (a *Advisor) Evaluate(snap state.Snapshot) Report {
	r := Report{}

	if fs, ok := snap[roi.FieldCrop]; ok {
		r.Crop = fs.Value.Label
	}
	if fs, ok := snap[roi.FieldStatus]; ok {
		r.Status = fs.Value.Label
	}
	if fs, ok := snap[roi.FieldStage]; ok {
		r.Stage = fs.Value.Label
		r.StageProgress = fs.Value.Num
	}
	if fs, ok := snap[roi.FieldSoil]; ok {
		r.SoilPct = fs.Value.Num
		r.HasSoil = true
	}
	if fs, ok := snap[roi.FieldGenome]; ok {
		r.Genome = a.buildGenome(fs.Value.Label)
	}

	crop, hasCrop := a.kb.Crop(r.Crop)

	if fs, ok := snap[roi.FieldTemperature]; ok && hasCrop {
		r.Temperature = a.evaluateTemperature(crop, fs.Value.Num, fs.Value.Target)
	}
	if fs, ok := snap[roi.FieldWater]; ok {
		r.Water = a.evaluateWater(crop, hasCrop, r.Genome, fs.Value.Num, fs.Value.Target)
	}
	if fs, ok := snap[roi.FieldParasites]; ok {
		r.Parasites = a.evaluateParasites(r.Crop, fs.Value.Label)
	}
	if hasCrop {
		r.Fertilizer = a.evaluateFertilizer(crop, r.Status)
	}

	r.Severity = overallSeverity(r)
	r.Alerts = collectAlerts(r)
	return r
}

func overallSeverity(r Report) Severity {
	worst := OK
	for _, bar := range []*BarReading{r.Temperature, r.Water} {
		if bar != nil && bar.Status > worst {
			worst = bar.Status
		}
	}
	if r.Parasites != nil && r.Parasites.Status > worst {
		worst = r.Parasites.Status
	}
	return worst
}

func (a *Advisor) buildGenome(sequence string) *GenomeInfo {
	if sequence == "" {
		return nil
	}
	info := &GenomeInfo{Sequence: sequence, WaterMultiplier: 1.0}
	for _, gene := range sequence {
		g := string(gene)
		if desc := a.kb.GeneEffect(g); desc != "" {
			info.Effects = append(info.Effects, g+": "+desc)
		}
		switch g {
		case "W":
			info.WaterMultiplier *= a.cfg.GenomeWaterMultiplier
		case "X":
			info.ParasiteRisk = true
		}
	}
	return info
}

func (a *Advisor) evaluateTemperature(crop knowledge.Crop, current, target float64) *BarReading {
	bar := &BarReading{Current: current, Target: target, Unit: "°C", Status: OK}
	if !crop.HasTempRange {
		return bar
	}
	switch {
	case current < crop.TempMin-a.cfg.TempDeltaWarn || current > crop.TempMax+a.cfg.TempDeltaWarn:
		bar.Status = Critical
	case current < crop.TempMin-a.cfg.TempDeltaNear || current > crop.TempMax+a.cfg.TempDeltaNear:
		bar.Status = Warn
	case current < crop.TempMin || current > crop.TempMax:
		bar.Status = Near
	}
	bar.Note = fmt.Sprintf("range %g..%g°C", crop.TempMin, crop.TempMax)
	return bar
}

func (a *Advisor) evaluateWater(crop knowledge.Crop, hasCrop bool, genome *GenomeInfo, current, required float64) *BarReading {
	if required == 0 && hasCrop {
		required = crop.WaterL
	}
	if genome != nil {
		required *= genome.WaterMultiplier
	}
	bar := &BarReading{Current: current, Target: required, Unit: "L", Status: OK}
	if required <= 0 {
		return bar
	}
	switch {
	case current < 0.5*required:
		bar.Status = Critical
		bar.Note = "critical water deficit"
	case current < required:
		bar.Status = Warn
		bar.Note = "water shortage"
	}
	return bar
}

func (a *Advisor) evaluateParasites(crop, detected string) *PestFinding {
	if detected == "" || strings.EqualFold(detected, "NONE") {
		return &PestFinding{Detected: "NONE", Status: OK}
	}
	finding := &PestFinding{Detected: detected, Status: Warn}
	if chem, ok := a.kb.FindChemical(crop, detected); ok {
		finding.Chemical = chem.Class
		finding.VolumeL = chem.VolumeL
		finding.Recommendation = fmt.Sprintf("%s, %.1f L", chem.Class, chem.VolumeL)
	}
	return finding
}

func (a *Advisor) evaluateFertilizer(crop knowledge.Crop, status string) FertilizerAdvice {
	advice := FertilizerAdvice{Family: crop.Fertilizer}
	if strings.Contains(strings.ToUpper(status), "FERTIL") {
		advice.Recommended = true
		advice.DosageL = crop.WaterL * a.cfg.FertilizerFactor
	}
	return advice
}

func collectAlerts(r Report) []string {
	var alerts []string
	for _, bar := range []*BarReading{r.Water, r.Temperature} {
		if bar != nil && bar.Status >= Warn {
			alerts = append(alerts, bar.Status.String())
		}
	}
	if r.Parasites != nil && r.Parasites.Status != OK {
		alerts = append(alerts, "parasites")
	}
	return alerts
}

// Recommendations renders a report as human-readable advice lines.
func Recommendations(r Report) []string {
	var out []string
	if r.Temperature != nil {
		line := fmt.Sprintf("Temperature %.1f° / %.1f° (%s)", r.Temperature.Current, r.Temperature.Target, r.Temperature.Status)
		if r.Temperature.Note != "" {
			line += " " + r.Temperature.Note
		}
		out = append(out, line)
	}
	if r.Water != nil && r.Water.Target > 0 {
		out = append(out, fmt.Sprintf("Water %.1f/%.1f L (%s)", r.Water.Current, r.Water.Target, r.Water.Status))
	}
	if r.Fertilizer.Recommended {
		out = append(out, fmt.Sprintf("Fertilizer: %s, %.1f L", r.Fertilizer.Family, r.Fertilizer.DosageL))
	}
	if r.Parasites != nil && r.Parasites.Status != OK {
		if r.Parasites.Recommendation != "" {
			out = append(out, fmt.Sprintf("Parasites: %s -> %s", r.Parasites.Detected, r.Parasites.Recommendation))
		} else {
			out = append(out, fmt.Sprintf("Parasites: %s (no known treatment)", r.Parasites.Detected))
		}
	}
	if r.Genome != nil {
		line := "Genome " + r.Genome.Sequence
		if len(r.Genome.Effects) > 0 {
			line += ": " + strings.Join(r.Genome.Effects, "; ")
		}
		if r.Genome.ParasiteRisk {
			line += "; elevated parasite risk"
		}
		out = append(out, line)
	}
	return out
}
