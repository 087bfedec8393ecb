package dataset

import (
	"time"

	"github.com/rotisserie/eris"

	"github.com/ticketless-chicago/blockmap/internal/aggregate"
	"github.com/ticketless-chicago/blockmap/internal/classify"
	"github.com/ticketless-chicago/blockmap/internal/grid"
)

const (
	windowQuarter = 90 * 24 * time.Hour
	windowYear    = 365 * 24 * time.Hour
)

// All returns every registered dataset in output order.
func All() []Config {
	return []Config{
		requests(),
		crimes(),
		crashes(),
		violations(),
		potholes(),
		permits(),
		licenses(),
		redLight(),
		speed(),
	}
}

// Get returns the named dataset config.
func Get(name string) (Config, error) {
	for _, c := range All() {
		if c.Name == name {
			return c, nil
		}
	}
	return Config{}, eris.Errorf("dataset: unknown dataset %q", name)
}

// Names returns the registered dataset names in output order.
func Names() []string {
	all := All()
	names := make([]string, len(all))
	for i, c := range all {
		names[i] = c.Name
	}
	return names
}

// standardMeta is the date/total/blocks prefix shared by most datasets.
func standardMeta(extra ...aggregate.MetaSpec) []aggregate.MetaSpec {
	meta := []aggregate.MetaSpec{
		{Key: "date", Kind: aggregate.MetaDate},
		{Key: "total", Kind: aggregate.MetaTotal},
		{Key: "blocks", Kind: aggregate.MetaBlocks},
	}
	return append(meta, extra...)
}

func requests() Config {
	table := &classify.Table{
		OnUnmatched: classify.Drop,
		Categories: []classify.Category{
			{Tag: "infrastructure", Name: "Infrastructure", Color: "#6b7280", Keywords: []string{
				"POTHOLE IN STREET COMPLAINT", "ALLEY POTHOLE COMPLAINT",
				"STREET LIGHT OUT COMPLAINT", "ALLEY LIGHT OUT COMPLAINT",
				"TRAFFIC SIGNAL OUT COMPLAINT", "SIGN REPAIR REQUEST",
				"SIDEWALK INSPECTION REQUEST",
			}},
			{Tag: "sanitation", Name: "Sanitation", Color: "#84cc16", Keywords: []string{
				"GRAFFITI REMOVAL REQUEST", "GARBAGE CART MAINTENANCE",
				"FLY DUMPING COMPLAINT", "SANITATION CODE VIOLATION",
				"DEAD ANIMAL PICK-UP REQUEST",
			}},
			{Tag: "pests", Name: "Pests", Color: "#f97316", Keywords: []string{
				"RODENT BAITING/RAT COMPLAINT", "STRAY ANIMAL COMPLAINT",
			}},
			{Tag: "vehicles", Name: "Abandoned Vehicles", Color: "#8b5cf6", Keywords: []string{
				"ABANDONED VEHICLE COMPLAINT",
			}},
			{Tag: "trees", Name: "Trees & Vegetation", Color: "#22c55e", Keywords: []string{
				"TREE TRIM REQUEST", "TREE DEBRIS CLEAN-UP REQUEST",
				"TREE EMERGENCY", "WEED REMOVAL REQUEST",
			}},
			{Tag: "water", Name: "Water/Sewer", Color: "#0ea5e9", Keywords: []string{
				"WATER ON STREET COMPLAINT", "SEWER CLEANING INSPECTION REQUEST",
				"CHECK FOR LEAK",
			}},
		},
	}

	return Config{
		Name:       "requests",
		Title:      "311 Service Requests",
		OutputFile: "311-data.json",
		Kind:       Grid,
		Agg: aggregate.Config{
			Name:      "requests",
			BlockSize: grid.BlockFine,
			Envelope:  grid.Chicago,
			Table:     table,
			// Info-only calls and O'Hare noise complaints say nothing
			// about neighborhood quality.
			ExcludeLabels:  []string{"INFORMATION ONLY", "AIRCRAFT"},
			RecencyWindow:  windowQuarter,
			Threshold:      3,
			Score:          func(c *aggregate.Cell) int { return aggregate.TruncClamp(float64(c.Count) / 50 * 100) },
			Meta:           standardMeta(),
			CoordPrecision: 4,
			Row: func(c *aggregate.Cell, lat, lng float64, score int) []any {
				return []any{lat, lng, c.Count, score, c.Categories, c.Ward, c.Address, c.Recent}
			},
		},
		Soda: SodaSpec{
			DatasetID:     "v6vf-nfxy",
			Select:        []string{"sr_number", "sr_type", "created_date", "latitude", "longitude", "ward", "street_address"},
			DateField:     "created_date",
			RequireCoords: true,
			Map: RowMap{
				Label: "sr_type", Lat: "latitude", Lng: "longitude",
				Ward: "ward", Address: "street_address", Timestamp: "created_date",
			},
		},
		CSV: CSVSpec{
			File: "311_Service_Requests.csv",
			Map: RowMap{
				Label: "SR_TYPE", Lat: "LATITUDE", Lng: "LONGITUDE",
				Ward: "WARD", Address: "STREET_ADDRESS", Timestamp: "CREATED_DATE",
			},
		},
	}
}

func crimes() Config {
	table := &classify.Table{
		OnUnmatched: classify.Other,
		Categories: []classify.Category{
			{Tag: "violent", Name: "Violent Crime", Color: "#dc2626", Keywords: []string{
				"HOMICIDE", "ROBBERY", "ASSAULT", "BATTERY", "CRIMINAL SEXUAL ASSAULT",
			}},
			{Tag: "property", Name: "Property Crime", Color: "#f59e0b", Keywords: []string{
				"THEFT", "BURGLARY", "MOTOR VEHICLE THEFT", "CRIMINAL DAMAGE", "ARSON",
			}},
			{Tag: "drugs", Name: "Narcotics", Color: "#8b5cf6", Keywords: []string{"NARCOTICS"}},
			{Tag: "weapons", Name: "Weapons", Color: "#1f2937", Keywords: []string{"WEAPONS VIOLATION"}},
			{Tag: "other", Name: "Other", Color: "#6b7280", Keywords: []string{
				"OTHER OFFENSE", "DECEPTIVE PRACTICE", "CRIMINAL TRESPASS",
			}},
		},
	}

	return Config{
		Name:       "crimes",
		Title:      "Crimes (last 12 months)",
		OutputFile: "crimes-data.json",
		Kind:       Grid,
		Agg: aggregate.Config{
			Name:      "crimes",
			BlockSize: grid.BlockFine,
			Envelope:  grid.Chicago,
			Table:     table,
			Flags: []aggregate.FlagSpec{
				{Key: "arrests", Match: yesFlag("arrest")},
			},
			Threshold: 2,
			Score: func(c *aggregate.Cell) int {
				if c.Count == 0 {
					return 0
				}
				violent := float64(c.Categories["violent"])
				property := float64(c.Categories["property"])
				severity := (violent*3 + property) / float64(c.Count) * 50
				volume := float64(c.Count) / 20 * 25
				return aggregate.TruncClamp(severity + volume)
			},
			Meta: standardMeta(aggregate.MetaSpec{
				Key: "period", Kind: aggregate.MetaFixed, Value: "Last 12 months",
			}),
			CoordPrecision: 4,
			Row: func(c *aggregate.Cell, lat, lng float64, score int) []any {
				return []any{lat, lng, c.Count, score, c.Categories, c.Ward, c.Address, int(c.Num("arrests"))}
			},
		},
		Soda: SodaSpec{
			DatasetID:     "ijzp-q8t2",
			Select:        []string{"id", "date", "primary_type", "block", "latitude", "longitude", "ward", "arrest"},
			DateField:     "date",
			RequireCoords: true,
			Map: RowMap{
				Label: "primary_type", Lat: "latitude", Lng: "longitude",
				Ward: "ward", Address: "block",
				Fields: map[string]string{"arrest": "arrest"},
			},
		},
		CSV: CSVSpec{
			File: "Crimes_-_One_year_prior_to_present.csv",
			Map: RowMap{
				Label: "PRIMARY DESCRIPTION", Lat: "LATITUDE", Lng: "LONGITUDE",
				Ward: "WARD", Address: "BLOCK",
				Fields: map[string]string{"arrest": "ARREST"},
			},
		},
	}
}

func crashes() Config {
	return Config{
		Name:       "crashes",
		Title:      "Traffic Crashes",
		OutputFile: "crashes-data.json",
		Kind:       Grid,
		Agg: aggregate.Config{
			Name:      "crashes",
			BlockSize: grid.BlockFine,
			Envelope:  grid.Chicago,
			Sums: []aggregate.SumSpec{
				{Key: "injuries", Field: "injuries_total", Kind: aggregate.ParseInt},
				{Key: "fatal", Field: "injuries_fatal", Kind: aggregate.ParseInt},
			},
			Flags: []aggregate.FlagSpec{
				{Key: "hit_and_run", Match: yesFlag("hit_and_run")},
			},
			Threshold: 3,
			Score: func(c *aggregate.Cell) int {
				injuryRate := 0.0
				if c.Count > 0 {
					injuryRate = c.Num("injuries") / float64(c.Count)
				}
				return aggregate.TruncClamp(c.Num("fatal")*20 + injuryRate*30 + float64(c.Count)/50*30)
			},
			Meta: standardMeta(
				aggregate.MetaSpec{Key: "total_injuries", Kind: aggregate.MetaSum, Num: "injuries"},
				aggregate.MetaSpec{Key: "total_fatal", Kind: aggregate.MetaSum, Num: "fatal"},
			),
			CoordPrecision: 4,
			Row: func(c *aggregate.Cell, lat, lng float64, score int) []any {
				return []any{lat, lng, c.Count, score, int(c.Num("injuries")), int(c.Num("fatal")), int(c.Num("hit_and_run")), c.Address}
			},
		},
		Soda: SodaSpec{
			DatasetID: "85ca-t3if",
			Select: []string{
				"crash_record_id", "crash_date", "latitude", "longitude",
				"injuries_total", "injuries_fatal", "hit_and_run_i",
				"street_name", "street_direction", "street_no",
			},
			DateField:     "crash_date",
			RequireCoords: true,
			Map: RowMap{
				Lat: "latitude", Lng: "longitude",
				AddressParts: []string{"street_no", "street_direction", "street_name"},
				Fields: map[string]string{
					"injuries_total": "injuries_total",
					"injuries_fatal": "injuries_fatal",
					"hit_and_run":    "hit_and_run_i",
				},
			},
		},
		CSV: CSVSpec{
			File: "Traffic_Crashes_-_Crashes.csv",
			Map: RowMap{
				Lat: "LATITUDE", Lng: "LONGITUDE",
				AddressParts: []string{"STREET_NO", "STREET_DIRECTION", "STREET_NAME"},
				Fields: map[string]string{
					"injuries_total": "INJURIES_TOTAL",
					"injuries_fatal": "INJURIES_FATAL",
					"hit_and_run":    "HIT_AND_RUN_I",
				},
			},
		},
	}
}

func violations() Config {
	highRisk := []string{
		"FIRE", "SMOKE", "ELECTRICAL", "HAZARD", "UNSAFE", "DANGER",
		"STRUCTURAL", "EGRESS", "EMERGENCY", "CONDEMNED", "VACANT",
	}

	return Config{
		Name:       "violations",
		Title:      "Building Violations",
		OutputFile: "violations-data.json",
		Kind:       Grid,
		Agg: aggregate.Config{
			Name:      "violations",
			BlockSize: grid.BlockFine,
			Envelope:  grid.Chicago,
			Flags: []aggregate.FlagSpec{
				{Key: "high_risk", Match: fieldContainsAny(highRisk, "description", "code")},
				{Key: "open", Match: fieldContainsAny([]string{"OPEN"}, "status")},
			},
			Threshold: 2,
			Score: func(c *aggregate.Cell) int {
				return aggregate.TruncClamp(c.Num("high_risk")*10 + float64(c.Count)/10*50)
			},
			Meta:           standardMeta(),
			CoordPrecision: 4,
			Row: func(c *aggregate.Cell, lat, lng float64, score int) []any {
				return []any{lat, lng, c.Count, score, int(c.Num("high_risk")), int(c.Num("open")), c.Address}
			},
		},
		Soda: SodaSpec{
			DatasetID: "22u3-xenr",
			Select: []string{
				"id", "violation_date", "violation_code", "violation_description",
				"violation_status", "address", "latitude", "longitude",
			},
			DateField:     "violation_date",
			RequireCoords: true,
			Map: RowMap{
				Lat: "latitude", Lng: "longitude", Address: "address",
				Fields: map[string]string{
					"description": "violation_description",
					"code":        "violation_code",
					"status":      "violation_status",
				},
			},
		},
		CSV: CSVSpec{
			File: "Building_Violations.csv",
			Map: RowMap{
				Lat: "LATITUDE", Lng: "LONGITUDE", Address: "ADDRESS",
				Fields: map[string]string{
					"description": "VIOLATION DESCRIPTION",
					"code":        "VIOLATION CODE",
					"status":      "VIOLATION STATUS",
				},
			},
		},
	}
}

func potholes() Config {
	return Config{
		Name:       "potholes",
		Title:      "Potholes Patched",
		OutputFile: "potholes-data.json",
		Kind:       Grid,
		Agg: aggregate.Config{
			Name:      "potholes",
			BlockSize: grid.BlockCoarse,
			Envelope:  grid.Chicago,
			Sums: []aggregate.SumSpec{
				{Key: "filled", Field: "filled", Kind: aggregate.ParseInt},
			},
			RecencyWindow: windowQuarter,
			Threshold:     3,
			// Ordering follows potholes actually filled, not request count:
			// one request can cover a whole block of patches.
			SortKey: "filled",
			Score: func(c *aggregate.Cell) int {
				return aggregate.TruncClamp(c.Num("filled") / 50 * 100)
			},
			Meta: []aggregate.MetaSpec{
				{Key: "date", Kind: aggregate.MetaDate},
				{Key: "total_repairs", Kind: aggregate.MetaTotal},
				{Key: "total_potholes", Kind: aggregate.MetaSum, Num: "filled"},
				{Key: "blocks", Kind: aggregate.MetaBlocks},
			},
			CoordPrecision: 4,
			Row: func(c *aggregate.Cell, lat, lng float64, score int) []any {
				return []any{lat, lng, c.Count, int(c.Num("filled")), score, c.Address, c.Recent}
			},
		},
		Soda: SodaSpec{
			DatasetID: "wqdh-9gek",
			Select: []string{
				"service_request_number", "creation_date",
				"number_of_potholes_filled_on_block", "street_address",
				"latitude", "longitude",
			},
			DateField:     "creation_date",
			RequireCoords: true,
			Map: RowMap{
				Lat: "latitude", Lng: "longitude",
				Address: "street_address", Timestamp: "creation_date",
				Fields: map[string]string{"filled": "number_of_potholes_filled_on_block"},
			},
		},
		CSV: CSVSpec{
			File: "Potholes_Patched.csv",
			Map: RowMap{
				Lat: "LATITUDE", Lng: "LONGITUDE",
				Address: "ADDRESS", Timestamp: "REQUEST DATE",
				Fields: map[string]string{"filled": "NUMBER OF POTHOLES FILLED ON BLOCK"},
			},
		},
	}
}

func permits() Config {
	table := &classify.Table{
		OnUnmatched: classify.Other,
		Categories: []classify.Category{
			{Tag: "new_construction", Name: "New Construction", Color: "#22c55e", Keywords: []string{"NEW CONSTRUCTION"}},
			{Tag: "renovation", Name: "Renovation", Color: "#3b82f6", Keywords: []string{"RENOVATION", "ALTERATION"}},
			{Tag: "electrical", Name: "Electrical", Color: "#eab308", Keywords: []string{"ELECTRICAL"}},
			{Tag: "plumbing", Name: "Plumbing", Color: "#0ea5e9", Keywords: []string{"PLUMBING"}},
			{Tag: "signs", Name: "Signs", Color: "#8b5cf6", Keywords: []string{"SIGN"}},
			{Tag: "demolition", Name: "Demolition", Color: "#ef4444", Keywords: []string{"WRECKING", "DEMOLITION"}},
			{Tag: "other", Name: "Other", Color: "#6b7280"},
		},
	}

	return Config{
		Name:       "permits",
		Title:      "Building Permits",
		OutputFile: "permits-data.json",
		Kind:       Grid,
		Agg: aggregate.Config{
			Name:      "permits",
			BlockSize: grid.BlockCoarse,
			Envelope:  grid.Chicago,
			Table:     table,
			Sums: []aggregate.SumSpec{
				{Key: "cost", Field: "cost", Kind: aggregate.ParseCurrency},
			},
			RecencyWindow: windowYear,
			Threshold:     5,
			Score: func(c *aggregate.Cell) int {
				return aggregate.TruncClamp(float64(c.Count)/100*50 + c.Num("cost")/1_000_000*50)
			},
			Meta: standardMeta(
				// The data rows carry cost truncated to whole dollars but
				// the citywide rollup keeps the exact sum.
				aggregate.MetaSpec{Key: "total_cost", Kind: aggregate.MetaSumFloat, Num: "cost"},
			),
			CoordPrecision: 4,
			Row: func(c *aggregate.Cell, lat, lng float64, score int) []any {
				return []any{lat, lng, c.Count, score, c.Categories, c.Ward, c.Address, int(c.Num("cost")), c.Recent}
			},
		},
		Soda: SodaSpec{
			DatasetID: "ydr8-5enu",
			Select: []string{
				"id", "permit_type", "issue_date", "reported_cost", "ward",
				"street_number", "street_direction", "street_name",
				"latitude", "longitude",
			},
			DateField:     "issue_date",
			RequireCoords: true,
			Map: RowMap{
				Label: "permit_type", Lat: "latitude", Lng: "longitude",
				Ward: "ward", Timestamp: "issue_date",
				AddressParts: []string{"street_number", "street_direction", "street_name"},
				Fields:       map[string]string{"cost": "reported_cost"},
			},
		},
		CSV: CSVSpec{
			File: "Building_Permits.csv",
			Map: RowMap{
				Label: "PERMIT_TYPE", Lat: "LATITUDE", Lng: "LONGITUDE",
				Ward: "WARD", Timestamp: "ISSUE_DATE",
				AddressParts: []string{"STREET_NUMBER", "STREET_DIRECTION", "STREET_NAME"},
				Fields:       map[string]string{"cost": "REPORTED_COST"},
			},
		},
	}
}

func licenses() Config {
	table := &classify.Table{
		OnUnmatched: classify.Other,
		Categories: []classify.Category{
			{Tag: "food", Name: "Food/Restaurant", Color: "#f97316", Keywords: []string{"FOOD", "RESTAURANT", "TAVERN", "LIQUOR"}},
			{Tag: "retail", Name: "Retail", Color: "#3b82f6", Keywords: []string{"RETAIL", "SALES"}},
			{Tag: "service", Name: "Services", Color: "#22c55e", Keywords: []string{"SERVICE", "REPAIR", "SALON", "BARBER"}},
			{Tag: "entertainment", Name: "Entertainment", Color: "#8b5cf6", Keywords: []string{"ENTERTAINMENT", "MUSIC", "AMUSEMENT", "PUBLIC PLACE"}},
			{Tag: "tobacco", Name: "Tobacco", Color: "#6b7280", Keywords: []string{"TOBACCO", "VAPE"}},
			{Tag: "other", Name: "Other", Color: "#94a3b8"},
		},
	}

	return Config{
		Name:       "licenses",
		Title:      "Business Licenses",
		OutputFile: "licenses-data.json",
		Kind:       Grid,
		Agg: aggregate.Config{
			Name:      "licenses",
			BlockSize: grid.BlockCoarse,
			Envelope:  grid.Chicago,
			Table:     table,
			Flags: []aggregate.FlagSpec{
				{Key: "active", Match: fieldContainsAny([]string{"AAI", "AAC", "ACTIVE", "ISSUED"}, "status")},
			},
			Threshold:      3,
			Score:          func(c *aggregate.Cell) int { return aggregate.TruncClamp(float64(c.Count) / 50 * 100) },
			Meta:           standardMeta(),
			CoordPrecision: 4,
			Row: func(c *aggregate.Cell, lat, lng float64, score int) []any {
				return []any{lat, lng, c.Count, score, c.Categories, c.Ward, c.Address, int(c.Num("active"))}
			},
		},
		Soda: SodaSpec{
			DatasetID: "r5kz-chrr",
			Select: []string{
				"id", "license_description", "license_status", "date_issued",
				"address", "ward", "latitude", "longitude",
			},
			DateField:     "date_issued",
			RequireCoords: true,
			Map: RowMap{
				Label: "license_description", Lat: "latitude", Lng: "longitude",
				Ward: "ward", Address: "address",
				Fields: map[string]string{"status": "license_status"},
			},
		},
		CSV: CSVSpec{
			File: "Business_Licenses.csv",
			Map: RowMap{
				Label: "LICENSE DESCRIPTION", Lat: "LATITUDE", Lng: "LONGITUDE",
				Ward: "WARD", Address: "ADDRESS",
				Fields: map[string]string{"status": "LICENSE STATUS"},
			},
		},
	}
}

func redLight() Config {
	return Config{
		Name:       "redlight",
		Title:      "Red Light Camera Violations",
		OutputFile: "redlight-violations.json",
		Kind:       Camera,
		Cam: aggregate.CameraConfig{
			Name:              "redlight",
			IDField:           "camera_id",
			ViolationsField:   "violations",
			AddressField:      "address",
			IntersectionField: "intersection",
			MinViolations:     100,
			CoordPrecision:    5,
		},
		Soda: SodaSpec{
			DatasetID: "spqx-js37",
			Select: []string{
				"intersection", "camera_id", "address", "violation_date",
				"violations", "latitude", "longitude",
			},
			DateField:     "violation_date",
			RequireCoords: true,
			Map: RowMap{
				Lat: "latitude", Lng: "longitude",
				Fields: map[string]string{
					"camera_id":    "camera_id",
					"violations":   "violations",
					"address":      "address",
					"intersection": "intersection",
				},
			},
		},
		CSV: CSVSpec{
			File: "Red_Light_Camera_Violations.csv",
			Map: RowMap{
				Lat: "LATITUDE", Lng: "LONGITUDE",
				Fields: map[string]string{
					"camera_id":    "CAMERA ID",
					"violations":   "VIOLATIONS",
					"address":      "ADDRESS",
					"intersection": "INTERSECTION",
				},
			},
		},
	}
}

func speed() Config {
	return Config{
		Name:       "speed",
		Title:      "Speed Camera Violations",
		OutputFile: "speed-violations.json",
		Kind:       Camera,
		Cam: aggregate.CameraConfig{
			Name:            "speed",
			IDField:         "camera_id",
			ViolationsField: "violations",
			AddressField:    "address",
			MinViolations:   100,
			CoordPrecision:  5,
		},
		Soda: SodaSpec{
			DatasetID: "hhkd-xvj4",
			Select: []string{
				"address", "camera_id", "violation_date", "violations",
				"latitude", "longitude",
			},
			DateField:     "violation_date",
			RequireCoords: true,
			Map: RowMap{
				Lat: "latitude", Lng: "longitude",
				Fields: map[string]string{
					"camera_id":  "camera_id",
					"violations": "violations",
					"address":    "address",
				},
			},
		},
		CSV: CSVSpec{
			File: "Speed_Camera_Violations.csv",
			Map: RowMap{
				Lat: "LATITUDE", Lng: "LONGITUDE",
				Fields: map[string]string{
					"camera_id":  "CAMERA ID",
					"violations": "VIOLATIONS",
					"address":    "ADDRESS",
				},
			},
		},
	}
}
