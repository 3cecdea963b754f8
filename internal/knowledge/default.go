package knowledge

// Default returns the built-in catalogue covering the current game
// season's crops and pests.
func Default() *Base {
	b, err := buildBase(defaultCatalogue)
	if err != nil {
		panic(err) // static data, cannot fail
	}
	return b
}

var defaultCatalogue = fileBase{
	Crops: map[string]fileCrop{
		"TOMATO":      {Temp: []float64{12, 15}, Water: 5, Fert: "MINERAL"},
		"PUMPKIN":     {Temp: []float64{12, 17}, Water: 12, Fert: "NITROGEN"},
		"CORN":        {Temp: []float64{-2, 24}, Water: 5, Fert: "NITROGEN"},
		"ONION":       {Temp: []float64{10, 20}, Water: 7, Fert: "NITROGEN"},
		"BEET":        {Temp: []float64{5, 18}, Water: 6, Fert: "POTASH"},
		"PEPPER":      {Temp: []float64{15, 27}, Water: 3, Fert: "MINERAL"},
		"WATERMELON":  {Temp: []float64{18, 30}, Water: 8, Fert: "MINERAL"},
		"CUCUMBER":    {Temp: []float64{15, 30}, Water: 4, Fert: "PHOSPHATE"},
		"EGGPLANT":    {Temp: []float64{15, 28}, Water: 10, Fert: "MINERAL"},
		"POTATO":      {Temp: []float64{5, 25}, Water: 3, Fert: "PHOSPHATE"},
		"CARROT":      {Temp: []float64{6, 25}, Water: 6, Fert: "PHOSPHATE"},
		"RADISH":      {Temp: []float64{-2, 20}, Water: 7, Fert: "POTASH"},
		"CABBAGE":     {Temp: []float64{5, 20}, Water: 8, Fert: "POTASH"},
		"GARLIC":      {Temp: []float64{8, 27}, Water: 5, Fert: "PHOSPHATE"},
		"GRAPE WHITE": {Water: 3, Fert: "MINERAL"},
		"GRAPE PINK":  {Water: 4, Fert: "NITROGEN"},
	},
	Genes: map[string]string{
		"X": "attracts more parasites",
		"W": "needs more water",
		"Y": "increases harvest yield",
		"G": "speeds up plant growth",
		"H": "increases plant health",
	},
	Pests: map[string]map[string]fileChemical{
		CategoryGeneral: {
			"BIOLOGICAL": {VolumeL: 2.1, Targets: []string{"APHID", "SLUGS", "COLORADO BEETLE"}},
			"SYSTEMIC":   {VolumeL: 1.1, Targets: []string{"CLICK BEETLE", "EARTH-BORING BEETLE"}},
			"INGESTED":   {VolumeL: 4.1, Targets: []string{"MOLE CRICKET", "WIREWORM", "ROOT-KNOT NEMATODE"}},
			"CONTACT":    {VolumeL: 3.1, Targets: []string{"THRIPS", "SPIDER MITE"}},
		},
		CategoryGrape: {
			"BIOLOGICAL": {VolumeL: 2.1, Targets: []string{"CICADAS", "VINE WEEVIL"}},
			"SYSTEMIC":   {VolumeL: 1.1, Targets: []string{"DUSKY GEOMETER MOTH", "GRAPE ERINEUM MITE"}},
			"INGESTED":   {VolumeL: 4.1, Targets: []string{"FELT MITE"}},
			"CONTACT":    {VolumeL: 3.1, Targets: []string{"MEALYBUGS", "PHYLLOXERA"}},
		},
	},
}
