package agronomy

import "strings"

type cropProfile struct {
	BaseYield float64 // бушель/акр при полном обеспечении
	Price     float64 // $/бушель
}

var cropProfiles = map[string]cropProfile{
	"corn":    {BaseYield: 180, Price: 4.5},
	"soybean": {BaseYield: 55, Price: 12.0},
	"wheat":   {BaseYield: 70, Price: 6.0},
	"sorghum": {BaseYield: 100, Price: 4.2},
	"cotton":  {BaseYield: 1000, Price: 0.7},
}

var defaultCrop = cropProfile{BaseYield: 150, Price: 5.0}

func profileFor(crop string) cropProfile {
	if p, ok := cropProfiles[strings.ToLower(strings.TrimSpace(crop))]; ok {
		return p
	}
	return defaultCrop
}
