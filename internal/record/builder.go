package record

import (
	"sort"
	"strconv"
	"strings"

	"github.com/obedier/zillow-wf/helpers"
	"github.com/obedier/zillow-wf/internal/fields"
	"github.com/obedier/zillow-wf/internal/payload"
	errs "github.com/obedier/zillow-wf/pkg/errors"
)

// Photo is one listing photo, resolution sets kept as JSON
type Photo struct {
	Caption         string
	URL             string
	JpegResolutions string
	WebpResolutions string
	Order           int
}

// Listing is the normalized extraction result for one property page. Numeric
// fields are pointers so "absent" stays distinct from zero.
type Listing struct {
	ZPID string
	URL  string

	StreetAddress string
	City          string
	State         string
	ZipCode       string

	Price        *float64
	Beds         *float64
	Baths        *float64
	HomeSizeSqft *float64
	YearBuilt    *int
	PricePerSqft *float64
	LotSize      string
	LotSizeAcres *float64

	HomeType     string
	HomeStatus   string
	DaysOnZillow *int
	OnMarketDate string

	Latitude  *float64
	Longitude *float64

	Zestimate     *float64
	RentZestimate *float64
	MonthlyHoaFee *float64
	TaxAnnual     *float64
	TaxAssessed   *float64

	MLSID             string
	MLSName           string
	ListingAgent      string
	ListingOffice     string
	ListingAgentPhone string
	ParcelNumber      string
	OwnershipType     string

	Description        string
	WaterfrontFeatures string
	WaterView          string
	WaterBodyName      string
	View               string

	DockInfo     string
	BridgeHeight string
	WaterDepth   string
	CanalInfo    string
	OceanAccess  string

	IsWaterfront   bool
	WaterfrontType string
	DockLinearFt   *int
	NoFixedBridges bool

	PriceHistory string
	TaxHistory   string
	Schools      string
	ParkingInfo  string

	Photos     []Photo
	PhotoCount int

	// Extracted keeps the full resolver output for the satellite tables
	Extracted map[string]payload.Value
}

// Builder assembles listings from located payloads. Field values are picked
// by fixed precedence: the resoFacts block first, then the property object,
// then the resolver's fallback strategies. First non-empty value wins and is
// never overwritten.
type Builder struct {
	resolver *fields.Resolver
}

// NewBuilder returns a builder using the given resolver for fallbacks
func NewBuilder(r *fields.Resolver) *Builder {
	return &Builder{resolver: r}
}

// Build extracts one listing from a located payload. A payload without a
// parsable client cache fails as cache-not-found; a cache carrying no
// property object or no identifier fails as validation.
func (b *Builder) Build(p *payload.Payload) (*Listing, error) {
	cache, err := p.ClientCache()
	if err != nil {
		return nil, errs.NewCacheNotFound("", "decoding client cache", err)
	}

	prop := findProperty(cache)
	if prop.Kind() != payload.KindMap {
		return nil, errs.NewValidation("", "no property object in client cache")
	}

	l := &Listing{Extracted: make(map[string]payload.Value)}

	if err := b.identity(l, prop); err != nil {
		return nil, err
	}
	b.summary(l, prop, cache, p)
	b.detail(l, prop, cache, p)
	b.photos(l, prop)
	b.waterfront(l, prop)

	return l, nil
}

// findProperty scans the cache entries for the one carrying a property
// object. Keys are visited sorted so ties break the same way every run.
func findProperty(cache map[string]payload.Value) payload.Value {
	keys := make([]string, 0, len(cache))
	for k := range cache {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if prop := cache[k].Get("property"); prop.Kind() == payload.KindMap {
			return prop
		}
	}
	return payload.Null()
}

func (b *Builder) identity(l *Listing, prop payload.Value) error {
	l.ZPID = prop.Get("zpid").Text()
	l.URL = firstText(prop.Get("url"), prop.Get("hdpUrl"))

	if l.ZPID == "" && l.URL != "" {
		if zpid, err := helpers.ExtractZPID(l.URL); err == nil {
			l.ZPID = zpid
		}
	}
	if l.ZPID == "" {
		return errs.NewValidation(l.URL, "property object has no zpid")
	}
	if l.URL == "" {
		l.URL = "https://www.zillow.com/homedetails/" + l.ZPID + "_zpid/"
	} else {
		l.URL = helpers.AbsoluteListingURL(l.URL)
	}
	return nil
}

func (b *Builder) summary(l *Listing, prop payload.Value, cache map[string]payload.Value, p *payload.Payload) {
	addr := prop.Get("address")
	l.StreetAddress = addr.Get("streetAddress").Text()
	l.City = addr.Get("city").Text()
	l.State = addr.Get("state").Text()
	l.ZipCode = addr.Get("zipcode").Text()

	facts := factsFrom(prop.Get("resoFacts"))
	pick := b.picker(prop, facts, cache, p)

	l.Price = asFloat(pick("price", "", "price"))
	l.Beds = asFloat(pick("bedrooms", "bedrooms", "bedrooms"))
	l.Baths = asFloat(pick("bathrooms", "bathrooms", "bathrooms"))
	l.HomeSizeSqft = asFloat(pick("home_size_sqft", "livingArea", "livingArea"))
	l.YearBuilt = asInt(pick("year_built", "yearBuilt", "yearBuilt"))
	l.PricePerSqft = asFloat(pick("price_per_sqft", "pricePerSquareFoot", "pricePerSquareFoot"))
	l.LotSize = pick("lot_size", "lotSize", "lotSize").Text()
	l.LotSizeAcres = asFloat(pick("", "lotSizeAcres", "lotSizeAcres"))

	l.HomeType = prop.Get("homeType").Text()
	l.HomeStatus = pick("home_status", "", "homeStatus").Text()
	l.DaysOnZillow = asInt(pick("days_on_zillow", "", "daysOnZillow"))
	l.OnMarketDate = pick("on_market_date", "onMarketDate", "onMarketDate").Text()

	l.Latitude = asFloat(prop.Get("latitude"))
	l.Longitude = asFloat(prop.Get("longitude"))

	l.Zestimate = asFloat(prop.Get("zestimate"))
	l.RentZestimate = asFloat(prop.Get("rentZestimate"))
	l.MonthlyHoaFee = asFloat(prop.Get("monthlyHoaFee"))
	l.TaxAnnual = asFloat(pick("", "taxAnnualAmount", "taxAnnualAmount"))
	l.TaxAssessed = asFloat(pick("", "taxAssessedValue", "taxAssessedValue"))

	attribution := prop.Get("attributionInfo")
	l.MLSID = firstText(facts.get("mlsId", "mls id"), attribution.Get("mlsId"), prop.Get("mlsId"),
		b.resolve("mls_id", cache, p))
	l.MLSName = firstText(facts.get("mlsName", "mls name"), attribution.Get("mlsName"), prop.Get("mlsName"))
	l.ListingAgent = attribution.Get("agentName").Text()
	l.ListingOffice = attribution.Get("brokerName").Text()
	l.ListingAgentPhone = attribution.Get("agentPhoneNumber").Text()

	l.ParcelNumber = pick("", "parcelNumber", "parcelNumber").Text()
	l.OwnershipType = pick("", "ownershipType", "ownershipType").Text()
}

func (b *Builder) detail(l *Listing, prop payload.Value, cache map[string]payload.Value, p *payload.Payload) {
	facts := factsFrom(prop.Get("resoFacts"))

	l.Description = firstText(prop.Get("description"),
		facts.get("description", "description"),
		facts.get("propertyDescription", ""))

	pick := b.picker(prop, facts, cache, p)
	l.WaterfrontFeatures = pick("waterfront_features", "waterfrontFeatures", "waterfrontFeatures").Text()
	l.WaterView = pick("water_view", "waterView", "waterView").Text()
	l.WaterBodyName = firstText(facts.get("waterBodyName", "water body"), prop.Get("waterBodyName"))
	l.View = pick("", "view", "view").Text()

	l.PriceHistory = prop.Get("priceHistory").JSON()
	l.TaxHistory = prop.Get("taxHistory").JSON()
	l.Schools = schoolsJSON(prop)
	l.ParkingInfo = parkingJSON(prop)

	for _, name := range []string{"dock_info", "bridge_height", "water_depth", "canal_info", "ocean_access"} {
		if v := b.resolve(name, cache, p); !v.IsEmpty() {
			l.Extracted[name] = v
		}
	}
	l.DockInfo = firstText(l.Extracted["dock_info"], payload.FromString(mineDockInfo(l.Description)))
	l.BridgeHeight = firstText(l.Extracted["bridge_height"], payload.FromString(mineBridgeHeight(l.Description)))
	l.WaterDepth = firstText(l.Extracted["water_depth"], payload.FromString(mineWaterDepth(l.Description)))
	l.CanalInfo = firstText(l.Extracted["canal_info"], payload.FromString(mineCanalInfo(l.Description)))
	l.OceanAccess = firstText(l.Extracted["ocean_access"], payload.FromString(mineOceanAccess(l.Description)))
}

func (b *Builder) photos(l *Listing, prop payload.Value) {
	shots, ok := prop.Get("responsivePhotos").List()
	if !ok {
		return
	}
	l.PhotoCount = len(shots)
	for i, shot := range shots {
		l.Photos = append(l.Photos, Photo{
			Caption:         shot.Get("caption").Text(),
			URL:             firstText(shot.Get("url"), shot.Get("mixedSources", "jpeg").Get("url")),
			JpegResolutions: shot.Get("mixedSources", "jpeg").JSON(),
			WebpResolutions: shot.Get("mixedSources", "webp").JSON(),
			Order:           i,
		})
	}
}

func (b *Builder) waterfront(l *Listing, prop payload.Value) {
	text := strings.Join([]string{l.Description, l.WaterfrontFeatures, l.WaterView, l.WaterBodyName, l.View}, " ")

	l.IsWaterfront = l.WaterfrontFeatures != "" || l.WaterView != "" || l.WaterBodyName != "" ||
		hasWaterfrontKeyword(text)
	l.WaterfrontType = classifyWaterfront(text)
	l.DockLinearFt = mineDockLinearFt(l.Description)
	l.NoFixedBridges = mineNoFixedBridges(l.Description)
}

// picker returns the precedence chain for one field: resoFacts, then the
// property object, then the resolver. Empty key arguments skip that stage.
func (b *Builder) picker(prop payload.Value, facts facts, cache map[string]payload.Value, p *payload.Payload) func(field, factKey, propKey string) payload.Value {
	return func(field, factKey, propKey string) payload.Value {
		if factKey != "" {
			if v := facts.get(factKey, labelOf(factKey)); !v.IsEmpty() {
				return v
			}
		}
		if propKey != "" {
			if v := prop.Get(propKey); !v.IsEmpty() {
				return v
			}
		}
		if field != "" {
			if v := b.resolve(field, cache, p); !v.IsEmpty() {
				return v
			}
		}
		return payload.Null()
	}
}

func (b *Builder) resolve(field string, cache map[string]payload.Value, p *payload.Payload) payload.Value {
	return b.resolver.ResolveCache(field, cache, p)
}

// facts gives uniform access to the resoFacts block, which the marketplace
// ships either as a flat object or as a list of factLabel/factValue pairs.
type facts struct {
	object payload.Value
	pairs  []payload.Value
}

func factsFrom(v payload.Value) facts {
	if v.Kind() == payload.KindMap {
		return facts{object: v}
	}
	if items, ok := v.List(); ok {
		return facts{object: payload.Null(), pairs: items}
	}
	return facts{object: payload.Null()}
}

// get looks up a fact by exact object key or, in list form, by label
// substring match.
func (f facts) get(key, labelSubstr string) payload.Value {
	if f.object.Kind() == payload.KindMap {
		if v := f.object.Get(key); !v.IsEmpty() {
			return v
		}
		return payload.Null()
	}
	if labelSubstr == "" {
		return payload.Null()
	}
	for _, pair := range f.pairs {
		label := strings.ToLower(pair.Get("factLabel").Text())
		if label != "" && strings.Contains(label, labelSubstr) {
			if v := pair.Get("factValue"); !v.IsEmpty() {
				return v
			}
		}
	}
	return payload.Null()
}

// labelOf maps a camelCase fact key to the human label substring used by the
// list form of resoFacts.
func labelOf(key string) string {
	var b strings.Builder
	for i, r := range key {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteRune(r + ('a' - 'A'))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func firstText(values ...payload.Value) string {
	for _, v := range values {
		if !v.IsEmpty() {
			return v.Text()
		}
	}
	return ""
}

// asFloat coerces a value to a number, tolerating currency formatting and
// unit suffixes in string form.
func asFloat(v payload.Value) *float64 {
	if n, ok := v.Num(); ok {
		return &n
	}
	s, ok := v.Str()
	if !ok {
		return nil
	}
	s = strings.TrimSpace(strings.ReplaceAll(strings.TrimPrefix(s, "$"), ",", ""))
	if i := strings.IndexByte(s, ' '); i > 0 {
		s = s[:i]
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &n
}

func asInt(v payload.Value) *int {
	f := asFloat(v)
	if f == nil {
		return nil
	}
	n := int(*f)
	return &n
}

func schoolsJSON(prop payload.Value) string {
	return payload.FromMap(map[string]payload.Value{
		"elementary":          prop.Get("elementarySchool"),
		"middle":              prop.Get("middleOrJuniorSchool"),
		"high":                prop.Get("highSchool"),
		"elementary_district": prop.Get("elementarySchoolDistrict"),
		"middle_district":     prop.Get("middleOrJuniorSchoolDistrict"),
		"high_district":       prop.Get("highSchoolDistrict"),
	}).JSON()
}

func parkingJSON(prop payload.Value) string {
	return payload.FromMap(map[string]payload.Value{
		"features":         prop.Get("parkingFeatures"),
		"capacity":         prop.Get("parkingCapacity"),
		"open_capacity":    prop.Get("openParkingCapacity"),
		"covered_capacity": prop.Get("coveredParkingCapacity"),
		"carport_capacity": prop.Get("carportParkingCapacity"),
	}).JSON()
}
