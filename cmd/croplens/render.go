package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/croplens/croplens/internal/advisor"
	"github.com/croplens/croplens/internal/roi"
	"github.com/croplens/croplens/internal/state"
)

// fieldOrder fixes the terminal layout; maps iterate randomly.
var fieldOrder = []string{
	roi.FieldCrop, roi.FieldStatus, roi.FieldStage, roi.FieldGenome,
	roi.FieldTemperature, roi.FieldWater, roi.FieldSoil,
	roi.FieldParasites, roi.FieldGold, roi.FieldHarvestTimer,
}

var (
	headerColor   = color.New(color.FgCyan, color.Bold)
	okColor       = color.New(color.FgGreen)
	nearColor     = color.New(color.FgYellow)
	warnColor     = color.New(color.FgYellow, color.Bold)
	criticalColor = color.New(color.FgRed, color.Bold)
	dimColor      = color.New(color.Faint)
)

func severityColor(s advisor.Severity) *color.Color {
	switch s {
	case advisor.Critical:
		return criticalColor
	case advisor.Warn:
		return warnColor
	case advisor.Near:
		return nearColor
	default:
		return okColor
	}
}

func renderSnapshot(w io.Writer, snap state.Snapshot) {
	headerColor.Fprintln(w, "Plant state")
	for _, field := range fieldOrder {
		fs, ok := snap[field]
		if !ok {
			dimColor.Fprintf(w, "  %-14s (not read)\n", field)
			continue
		}
		fmt.Fprintf(w, "  %-14s %s", field, fs.Value.String())
		dimColor.Fprintf(w, "  [%.0f%%]\n", fs.Value.Confidence*100)
	}
}

func renderReport(w io.Writer, report advisor.Report) {
	headerColor.Fprintln(w, "Assessment")
	severityColor(report.Severity).Fprintf(w, "  overall: %s\n", report.Severity)

	if report.Temperature != nil {
		c := severityColor(report.Temperature.Status)
		c.Fprintf(w, "  temperature %g%s of %g%s", report.Temperature.Current, report.Temperature.Unit, report.Temperature.Target, report.Temperature.Unit)
		if report.Temperature.Note != "" {
			dimColor.Fprintf(w, "  (%s)", report.Temperature.Note)
		}
		fmt.Fprintln(w)
	}
	if report.Water != nil {
		c := severityColor(report.Water.Status)
		c.Fprintf(w, "  water %g of %g %s\n", report.Water.Current, report.Water.Target, report.Water.Unit)
	}
	if report.Genome != nil {
		fmt.Fprintf(w, "  genome %s\n", report.Genome.Sequence)
		for _, effect := range report.Genome.Effects {
			dimColor.Fprintf(w, "    %s\n", effect)
		}
	}
	if report.Parasites != nil && report.Parasites.Status > advisor.OK {
		warnColor.Fprintf(w, "  parasites: %s", report.Parasites.Detected)
		if report.Parasites.Recommendation != "" {
			fmt.Fprintf(w, " -> %s", report.Parasites.Recommendation)
		}
		fmt.Fprintln(w)
	}

	if recs := advisor.Recommendations(report); len(recs) > 0 {
		headerColor.Fprintln(w, "Recommendations")
		for _, rec := range recs {
			fmt.Fprintf(w, "  %s\n", rec)
		}
	}
}

func renderJSON(w io.Writer, snap state.Snapshot, report advisor.Report) error {
	fields := make(map[string]jsonField, len(snap))
	for name, fs := range snap {
		fields[name] = jsonField{
			Value:      fs.Value.String(),
			Kind:       fs.Value.Kind.String(),
			Confidence: fs.Value.Confidence,
		}
	}
	enc := json.NewEncoder(w)
	return enc.Encode(struct {
		Fields          map[string]jsonField `json:"fields"`
		Severity        string               `json:"severity"`
		Alerts          []string             `json:"alerts"`
		Recommendations []string             `json:"recommendations"`
	}{fields, report.Severity.String(), report.Alerts, advisor.Recommendations(report)})
}

type jsonField struct {
	Value      string  `json:"value"`
	Kind       string  `json:"kind"`
	Confidence float64 `json:"confidence"`
}

// renderEventsJSON writes one JSON object per confirmed change.
func renderEventsJSON(w io.Writer, events <-chan state.Event) {
	enc := json.NewEncoder(w)
	for evt := range events {
		prev := ""
		if evt.Prev.Valid {
			prev = evt.Prev.String()
		}
		_ = enc.Encode(struct {
			Field string `json:"field"`
			Prev  string `json:"prev,omitempty"`
			New   string `json:"new"`
			At    string `json:"at"`
		}{evt.Field, prev, evt.New.String(), evt.At.Format("2006-01-02T15:04:05.000Z07:00")})
	}
}

// renderEvents prints confirmed changes as they land and re-evaluates
// the rules whenever the state moved.
func renderEvents(w io.Writer, a *app, events <-chan state.Event) {
	for evt := range events {
		if evt.Prev.Valid {
			fmt.Fprintf(w, "%s  %s -> %s\n", evt.At.Format("15:04:05"), evt.Prev.String(), evt.New.String())
		} else {
			fmt.Fprintf(w, "%s  %s\n", evt.At.Format("15:04:05"), evt.New.String())
		}

		report := a.advisor.Evaluate(a.pipe.Snapshot())
		for _, alert := range report.Alerts {
			severityColor(report.Severity).Fprintf(w, "  ! %s\n", alert)
		}
	}
}
