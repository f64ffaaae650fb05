package config

// DefaultCities returns the five U.S. cities with pre-resolved NOAA
// gridpoint-equivalent forecast coordinates. Used whenever a config
// document omits the `cities` key.
func DefaultCities() []CityConfig {
	return []CityConfig{
		{Name: "New York City", Slug: "nyc", GridID: "OKX", GridX: 37, GridY: 39, Enabled: true},
		{Name: "Chicago", Slug: "chicago", GridID: "LOT", GridX: 66, GridY: 77, Enabled: true},
		{Name: "Seattle", Slug: "seattle", GridID: "SEW", GridX: 124, GridY: 61, Enabled: true},
		{Name: "Atlanta", Slug: "atlanta", GridID: "FFC", GridX: 50, GridY: 82, Enabled: true},
		{Name: "Dallas", Slug: "dallas", GridID: "FWD", GridX: 87, GridY: 107, Enabled: true},
	}
}
