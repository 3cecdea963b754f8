package roi

// Canonical HUD field names. Preset catalogues, grammars, and the
// advisor all key off these.
const (
	FieldCrop         = "crop"
	FieldStatus       = "status"
	FieldStage        = "stage"
	FieldGenome       = "genome"
	FieldTemperature  = "temperature"
	FieldWater        = "water"
	FieldSoil         = "soil"
	FieldParasites    = "parasites"
	FieldGold         = "gold"
	FieldHarvestTimer = "harvest_timer"
)
