package fields

// Definition names one target field and the spellings the marketplace has
// used for it across schema releases.
type Definition struct {
	Name     string
	Synonyms []string
}

// Config drives the resolver. KnownSections are the payload sections probed
// first, in order; MaxDepth bounds the fallback tree search.
type Config struct {
	Version       string
	KnownSections []string
	MaxDepth      int
	Definitions   []Definition
}

// DefaultConfig returns the resolver configuration for the current
// marketplace schema generation.
func DefaultConfig() Config {
	return Config{
		Version: "2024.2",
		KnownSections: []string{
			"property",
			"listing",
			"address",
			"resoFacts",
			"propertyDetails",
			"listingDetails",
			"propertyInfo",
		},
		MaxDepth: 5,
		Definitions: []Definition{
			{Name: "year_built", Synonyms: []string{"yearBuilt", "Year Built", "constructionYear"}},
			{Name: "mls_id", Synonyms: []string{"mlsId", "mlsID", "mls_number", "mlsNumber"}},
			{Name: "price_history", Synonyms: []string{"priceHistory", "priceHistoryData"}},
			{Name: "price_per_sqft", Synonyms: []string{"pricePerSqft", "pricePerSquareFoot", "pricePerSqFt", "pricePerSquareFeet"}},
			{Name: "lot_size", Synonyms: []string{"lotSize", "lotSizeAcres", "lotSizeSqFt"}},
			{Name: "home_size_sqft", Synonyms: []string{"livingArea", "homeSize", "home_size", "squareFootage"}},
			{Name: "bedrooms", Synonyms: []string{"beds", "bedRooms", "bed_count"}},
			{Name: "bathrooms", Synonyms: []string{"baths", "bathRooms", "bath_count"}},
			{Name: "dock_info", Synonyms: []string{"dockInfo", "dockDetails", "dockFeatures"}},
			{Name: "bridge_height", Synonyms: []string{"bridgeHeight", "bridgeClearance", "bridgeInfo"}},
			{Name: "water_depth", Synonyms: []string{"waterDepth", "depth", "waterLevel"}},
			{Name: "canal_info", Synonyms: []string{"canalInfo", "canalDetails", "canalFeatures"}},
			{Name: "ocean_access", Synonyms: []string{"oceanAccess", "oceanView", "oceanFront"}},
			{Name: "waterfront_features", Synonyms: []string{"waterfrontFeatures", "waterfrontInfo"}},
			{Name: "water_view", Synonyms: []string{"waterView", "waterfrontView", "waterViewType"}},
		},
	}
}

func (c Config) definition(name string) Definition {
	for _, d := range c.Definitions {
		if d.Name == name {
			return d
		}
	}
	return Definition{Name: name}
}
