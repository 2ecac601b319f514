package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"unicode/utf8"

	_ "github.com/lib/pq"

	"github.com/obedier/zillow-wf/internal/record"
	"github.com/obedier/zillow-wf/logger"
	errs "github.com/obedier/zillow-wf/pkg/errors"
)

const maxPhotosPerListing = 10

const descriptionPreviewLen = 200

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS listings_summary (
		zpid            TEXT PRIMARY KEY,
		price           NUMERIC,
		beds            NUMERIC,
		baths           NUMERIC,
		home_size_sqft  NUMERIC,
		address         TEXT,
		city            TEXT,
		state           TEXT,
		zip_code        TEXT,
		url             TEXT,
		latitude        DOUBLE PRECISION,
		longitude       DOUBLE PRECISION,
		zestimate       NUMERIC,
		rent_zestimate  NUMERIC,
		monthly_hoa_fee NUMERIC,
		days_on_zillow  INTEGER,
		home_status     TEXT,
		home_type       TEXT,
		year_built      INTEGER,
		price_per_sqft  NUMERIC,
		lot_size        TEXT,
		mls_id          TEXT,
		mls_name        TEXT,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS listings_detail (
		zpid                TEXT PRIMARY KEY,
		description_raw     TEXT,
		waterfront_features TEXT,
		water_view          TEXT,
		water_body_name     TEXT,
		view                TEXT,
		on_market_date      TEXT,
		ownership_type      TEXT,
		parcel_number       TEXT,
		is_waterfront       BOOLEAN,
		waterfront_type     TEXT,
		dock_linear_ft      INTEGER,
		no_fixed_bridges    BOOLEAN,
		dock_info           TEXT,
		bridge_height       TEXT,
		water_depth         TEXT,
		canal_info          TEXT,
		ocean_access        TEXT,
		listing_agent       TEXT,
		listing_office      TEXT,
		listing_agent_phone TEXT,
		tax_annual_amount   NUMERIC,
		tax_assessed_value  NUMERIC,
		updated_at          TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS listing_text_content (
		zpid            TEXT NOT NULL,
		content_type    TEXT NOT NULL,
		content_full    TEXT,
		content_preview TEXT,
		PRIMARY KEY (zpid, content_type)
	)`,
	`CREATE TABLE IF NOT EXISTS property_photos (
		zpid             TEXT NOT NULL,
		photo_order      INTEGER NOT NULL,
		caption          TEXT,
		main_url         TEXT,
		jpeg_resolutions TEXT,
		webp_resolutions TEXT,
		PRIMARY KEY (zpid, photo_order)
	)`,
}

// Postgres implements Store on PostgreSQL. Each listing is written in one
// transaction so a partially stored property can never be observed.
type Postgres struct {
	db     *sql.DB
	logger *logger.Logger
}

// Open connects to the database and applies the schema
func Open(databaseURL string) (*Postgres, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, errs.NewPersistence("", "opening database", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errs.NewPersistence("", "connecting to database", err)
	}
	for _, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, errs.NewPersistence("", "applying schema", err)
		}
	}
	return &Postgres{db: db, logger: logger.ForStore()}, nil
}

// Close closes the database pool
func (p *Postgres) Close() error {
	return p.db.Close()
}

// LoadZPIDs returns every stored listing identifier
func (p *Postgres) LoadZPIDs() ([]string, error) {
	rows, err := p.db.Query(`SELECT zpid FROM listings_summary`)
	if err != nil {
		return nil, errs.NewPersistence("", "scanning stored listings", err)
	}
	defer rows.Close()

	var zpids []string
	for rows.Next() {
		var z string
		if err := rows.Scan(&z); err != nil {
			return nil, errs.NewPersistence("", "scanning stored listings", err)
		}
		zpids = append(zpids, z)
	}
	return zpids, rows.Err()
}

// Upsert writes the listing in a single transaction: summary and detail rows
// are upserted, text content rows are replaced per content type, and photos
// are rewritten wholesale. The key-field comparison against the previous row
// decides the reported action; no_change still performs the full write.
func (p *Postgres) Upsert(ctx context.Context, l *record.Listing) (Result, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return Result{}, errs.NewPersistence(l.ZPID, "beginning transaction", err)
	}
	defer tx.Rollback()

	existing, found, err := p.existingKeyFields(ctx, tx, l.ZPID)
	if err != nil {
		return Result{}, err
	}

	if err := p.upsertSummary(ctx, tx, l); err != nil {
		return Result{}, err
	}
	if err := p.upsertDetail(ctx, tx, l); err != nil {
		return Result{}, err
	}
	if err := p.replaceTextContent(ctx, tx, l); err != nil {
		return Result{}, err
	}
	if err := p.replacePhotos(ctx, tx, l); err != nil {
		return Result{}, err
	}

	if err := tx.Commit(); err != nil {
		return Result{}, errs.NewPersistence(l.ZPID, "committing listing", err)
	}

	action := decideAction(existing, found, l)
	p.logger.Debug().Str("zpid", l.ZPID).Str("action", string(action)).Msg("Listing stored")
	return Result{ZPID: l.ZPID, Action: action}, nil
}

func (p *Postgres) existingKeyFields(ctx context.Context, tx *sql.Tx, zpid string) (KeyFields, bool, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT price, beds, baths, home_size_sqft, home_status, days_on_zillow
		 FROM listings_summary WHERE zpid = $1`, zpid)

	var (
		price, beds, baths, size sql.NullFloat64
		status                   sql.NullString
		days                     sql.NullInt64
	)
	err := row.Scan(&price, &beds, &baths, &size, &status, &days)
	if errors.Is(err, sql.ErrNoRows) {
		return KeyFields{}, false, nil
	}
	if err != nil {
		return KeyFields{}, false, errs.NewPersistence(zpid, "reading existing listing", err)
	}

	kf := KeyFields{HomeStatus: status.String}
	if price.Valid {
		kf.Price = &price.Float64
	}
	if beds.Valid {
		kf.Beds = &beds.Float64
	}
	if baths.Valid {
		kf.Baths = &baths.Float64
	}
	if size.Valid {
		kf.HomeSizeSqft = &size.Float64
	}
	if days.Valid {
		d := int(days.Int64)
		kf.DaysOnZillow = &d
	}
	return kf, true, nil
}

func (p *Postgres) upsertSummary(ctx context.Context, tx *sql.Tx, l *record.Listing) error {
	address := joinAddress(l)
	_, err := tx.ExecContext(ctx, `
		INSERT INTO listings_summary (
			zpid, price, beds, baths, home_size_sqft, address, city, state,
			zip_code, url, latitude, longitude, zestimate, rent_zestimate,
			monthly_hoa_fee, days_on_zillow, home_status, home_type,
			year_built, price_per_sqft, lot_size, mls_id, mls_name, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23, now()
		)
		ON CONFLICT (zpid) DO UPDATE SET
			price = EXCLUDED.price, beds = EXCLUDED.beds, baths = EXCLUDED.baths,
			home_size_sqft = EXCLUDED.home_size_sqft, address = EXCLUDED.address,
			city = EXCLUDED.city, state = EXCLUDED.state, zip_code = EXCLUDED.zip_code,
			url = EXCLUDED.url, latitude = EXCLUDED.latitude, longitude = EXCLUDED.longitude,
			zestimate = EXCLUDED.zestimate, rent_zestimate = EXCLUDED.rent_zestimate,
			monthly_hoa_fee = EXCLUDED.monthly_hoa_fee, days_on_zillow = EXCLUDED.days_on_zillow,
			home_status = EXCLUDED.home_status, home_type = EXCLUDED.home_type,
			year_built = EXCLUDED.year_built, price_per_sqft = EXCLUDED.price_per_sqft,
			lot_size = EXCLUDED.lot_size, mls_id = EXCLUDED.mls_id,
			mls_name = EXCLUDED.mls_name, updated_at = now()`,
		l.ZPID, nullFloat(l.Price), nullFloat(l.Beds), nullFloat(l.Baths),
		nullFloat(l.HomeSizeSqft), address, nullStr(l.City), nullStr(l.State),
		nullStr(l.ZipCode), l.URL, nullFloat(l.Latitude), nullFloat(l.Longitude),
		nullFloat(l.Zestimate), nullFloat(l.RentZestimate), nullFloat(l.MonthlyHoaFee),
		nullInt(l.DaysOnZillow), nullStr(l.HomeStatus), nullStr(l.HomeType),
		nullInt(l.YearBuilt), nullFloat(l.PricePerSqft), nullStr(l.LotSize),
		nullStr(l.MLSID), nullStr(l.MLSName))
	if err != nil {
		return errs.NewPersistence(l.ZPID, "upserting summary", err)
	}
	return nil
}

func (p *Postgres) upsertDetail(ctx context.Context, tx *sql.Tx, l *record.Listing) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO listings_detail (
			zpid, description_raw, waterfront_features, water_view,
			water_body_name, view, on_market_date, ownership_type,
			parcel_number, is_waterfront, waterfront_type, dock_linear_ft,
			no_fixed_bridges, dock_info, bridge_height, water_depth,
			canal_info, ocean_access, listing_agent, listing_office,
			listing_agent_phone, tax_annual_amount, tax_assessed_value, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23, now()
		)
		ON CONFLICT (zpid) DO UPDATE SET
			description_raw = EXCLUDED.description_raw,
			waterfront_features = EXCLUDED.waterfront_features,
			water_view = EXCLUDED.water_view,
			water_body_name = EXCLUDED.water_body_name,
			view = EXCLUDED.view,
			on_market_date = EXCLUDED.on_market_date,
			ownership_type = EXCLUDED.ownership_type,
			parcel_number = EXCLUDED.parcel_number,
			is_waterfront = EXCLUDED.is_waterfront,
			waterfront_type = EXCLUDED.waterfront_type,
			dock_linear_ft = EXCLUDED.dock_linear_ft,
			no_fixed_bridges = EXCLUDED.no_fixed_bridges,
			dock_info = EXCLUDED.dock_info,
			bridge_height = EXCLUDED.bridge_height,
			water_depth = EXCLUDED.water_depth,
			canal_info = EXCLUDED.canal_info,
			ocean_access = EXCLUDED.ocean_access,
			listing_agent = EXCLUDED.listing_agent,
			listing_office = EXCLUDED.listing_office,
			listing_agent_phone = EXCLUDED.listing_agent_phone,
			tax_annual_amount = EXCLUDED.tax_annual_amount,
			tax_assessed_value = EXCLUDED.tax_assessed_value,
			updated_at = now()`,
		l.ZPID, nullStr(l.Description), nullStr(l.WaterfrontFeatures),
		nullStr(l.WaterView), nullStr(l.WaterBodyName), nullStr(l.View),
		nullStr(l.OnMarketDate), nullStr(l.OwnershipType), nullStr(l.ParcelNumber),
		l.IsWaterfront, nullStr(l.WaterfrontType), nullInt(l.DockLinearFt),
		l.NoFixedBridges, nullStr(l.DockInfo), nullStr(l.BridgeHeight),
		nullStr(l.WaterDepth), nullStr(l.CanalInfo), nullStr(l.OceanAccess),
		nullStr(l.ListingAgent), nullStr(l.ListingOffice), nullStr(l.ListingAgentPhone),
		nullFloat(l.TaxAnnual), nullFloat(l.TaxAssessed))
	if err != nil {
		return errs.NewPersistence(l.ZPID, "upserting detail", err)
	}
	return nil
}

// replaceTextContent writes one satellite row per present content type,
// replacing the previous content so re-scrapes never append duplicates.
func (p *Postgres) replaceTextContent(ctx context.Context, tx *sql.Tx, l *record.Listing) error {
	contents := map[string]string{
		"description":   l.Description,
		"price_history": l.PriceHistory,
		"tax_history":   l.TaxHistory,
		"schools":       l.Schools,
		"parking_info":  l.ParkingInfo,
	}
	for name, v := range l.Extracted {
		contents["extracted_"+name] = v.Text()
	}

	for contentType, content := range contents {
		if content == "" {
			continue
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO listing_text_content (zpid, content_type, content_full, content_preview)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (zpid, content_type) DO UPDATE SET
				content_full = EXCLUDED.content_full,
				content_preview = EXCLUDED.content_preview`,
			l.ZPID, contentType, content, previewOf(content))
		if err != nil {
			return errs.NewPersistence(l.ZPID, "replacing text content", err)
		}
	}
	return nil
}

func (p *Postgres) replacePhotos(ctx context.Context, tx *sql.Tx, l *record.Listing) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM property_photos WHERE zpid = $1`, l.ZPID); err != nil {
		return errs.NewPersistence(l.ZPID, "clearing photos", err)
	}

	photos := l.Photos
	if len(photos) > maxPhotosPerListing {
		photos = photos[:maxPhotosPerListing]
	}
	for _, photo := range photos {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO property_photos (zpid, photo_order, caption, main_url, jpeg_resolutions, webp_resolutions)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			l.ZPID, photo.Order, nullStr(photo.Caption), nullStr(photo.URL),
			nullStr(photo.JpegResolutions), nullStr(photo.WebpResolutions))
		if err != nil {
			return errs.NewPersistence(l.ZPID, "inserting photo", err)
		}
	}
	return nil
}

// previewOf cuts the preview column at the length limit without splitting a
// multi-byte character; a torn rune would be rejected by the server as
// invalid UTF-8 and abort the run.
func previewOf(content string) string {
	if len(content) <= descriptionPreviewLen {
		return content
	}
	cut := descriptionPreviewLen
	for cut > 0 && !utf8.RuneStart(content[cut]) {
		cut--
	}
	return content[:cut]
}

func joinAddress(l *record.Listing) string {
	var parts []string
	for _, s := range []string{l.StreetAddress, l.City, l.State} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullInt(i *int) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*i), Valid: true}
}
