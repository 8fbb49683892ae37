package features

// Epsilon is added to every divisor so a zero denominator never divides by zero.
const Epsilon = 0.01

// Values carries the numeric inputs of one rule for one record.
type Values map[string]float64

// Rule derives one numeric column from a fixed set of input fields.
type Rule struct {
	Name   string
	Inputs []string
	// Guard names a field whose mean over the batch must be strictly positive
	// for the rule to run at all. Empty means no guard.
	Guard   string
	Formula func(v Values) float64
}

func volume(v Values) float64 {
	return v["height"] * v["width"] * v["depth"] / 1_000_000
}

// ratio builds num / (den + Epsilon).
func ratio(num, den string) func(Values) float64 {
	return func(v Values) float64 { return v[num] / (v[den] + Epsilon) }
}

// pricePer is the common price / (x + Epsilon) rule guarded on x.
func pricePer(name, den string) Rule {
	return Rule{
		Name:    name,
		Inputs:  []string{"price", den},
		Guard:   den,
		Formula: ratio("price", den),
	}
}

var valueScore = Rule{
	Name:   "value_score",
	Inputs: []string{"price", "rating"},
	Formula: func(v Values) float64 {
		return v["rating"] * 10 / (v["price"] + Epsilon)
	},
}

var volumeRule = Rule{
	Name:    "volume_m3",
	Inputs:  []string{"height", "width", "depth"},
	Formula: volume,
}

var perCapacityRules = []Rule{
	pricePer("price_per_liter", "capacity"),
	pricePer("price_per_person", "capacity_people"),
}

// defaultRules is the per-category rule table. Category labels match the
// spreadsheet folder names and the model registry keys exactly.
var defaultRules = map[string][]Rule{
	"Refrigerator": {
		volumeRule,
		{
			Name:    "form_factor_ratio",
			Inputs:  []string{"height", "width"},
			Formula: ratio("height", "width"),
		},
		pricePer("price_per_liter", "total_capacity"),
		{
			Name:   "shelf_to_capacity_ratio",
			Inputs: []string{"fridge_shelves", "freezer_shelves", "total_capacity"},
			Formula: func(v Values) float64 {
				return (v["fridge_shelves"] + v["freezer_shelves"]) / (v["total_capacity"] + Epsilon)
			},
		},
	},
	"Washing_machine": {
		pricePer("price_per_kg", "capacity"),
		{
			Name:   "efficiency_score",
			Inputs: []string{"capacity", "water_consumption", "power_consumption"},
			Guard:  "capacity",
			Formula: func(v Values) float64 {
				return v["capacity"] / (v["water_consumption"] + v["power_consumption"] + Epsilon)
			},
		},
		volumeRule,
	},
	"Gas_stove": {
		pricePer("price_per_burner", "burner_count"),
		pricePer("price_per_oven_liter", "oven_capacity"),
	},
	"Dishwasher": {
		pricePer("price_per_place_setting", "capacity"),
		{
			Name:   "compactness",
			Inputs: []string{"capacity", "height", "width", "depth"},
			Guard:  "height",
			Formula: func(v Values) float64 {
				return v["capacity"] / (v["height"]*v["width"]*v["depth"] + Epsilon)
			},
		},
	},
	"Meat_grinder": {
		pricePer("price_per_watt", "power"),
		{
			Name:    "performance_rating",
			Inputs:  []string{"power", "rating"},
			Guard:   "power",
			Formula: func(v Values) float64 { return v["power"] * v["rating"] },
		},
	},
	"fryer":       perCapacityRules,
	"Rice_cooker": perCapacityRules,
	"Stirrer": {
		pricePer("price_per_accessory", "accessories_count"),
	},
}

// universalRules run for every recognised category, ahead of its own rules.
var universalRules = []Rule{valueScore}
