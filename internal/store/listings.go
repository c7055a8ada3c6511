// internal/store/listings.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"brickland-expert/internal/common/logger"
	"brickland-expert/internal/models"
)

// ListingStore is the write path for the listings table. The answering
// pipeline never uses it; only the import tools do. Every column is named
// explicitly so a listing field can never land in the wrong column.
type ListingStore struct {
	db     *sql.DB
	table  string
	logger logger.Logger
}

func NewListingStore(db *sql.DB, table string, log logger.Logger) *ListingStore {
	return &ListingStore{
		db:     db,
		table:  table,
		logger: log,
	}
}

var listingColumns = []string{
	models.ColPropURL,
	models.ColPropAddress,
	models.ColPropFloor,
	models.ColPropPrice,
	models.ColPropM2,
	models.ColPropRooms,
	models.ColPropBedrooms,
	models.ColPropLocation,
	models.ColPropDescription,
	models.ColPropImages,
	models.ColProjectURL,
	models.ColProjectDistrict,
	models.ColProjectAddress,
	models.ColProjectDescription,
	models.ColProjectImages,
}

// Upsert writes one listing joined with its parent project, keyed by
// prop_url. An existing row is fully overwritten with the fresh scrape.
func (s *ListingStore) Upsert(ctx context.Context, listing *models.Listing, project *models.Project) error {
	if strings.TrimSpace(listing.PropURL) == "" {
		return fmt.Errorf("listing has no %s", models.ColPropURL)
	}

	price := listing.PropPrice
	if strings.TrimSpace(price) == "" {
		price = models.PriceSentinel
	}

	propImages, err := json.Marshal(listing.PropImages)
	if err != nil {
		return fmt.Errorf("encode %s: %w", models.ColPropImages, err)
	}
	projectImages, err := json.Marshal(project.ProjectImages)
	if err != nil {
		return fmt.Errorf("encode %s: %w", models.ColProjectImages, err)
	}

	query := upsertStatement(s.table)
	_, err = s.db.ExecContext(ctx, query,
		listing.PropURL,
		listing.PropAddress,
		listing.PropFloor,
		price,
		listing.PropM2,
		listing.PropRooms,
		listing.PropBedrooms,
		listing.PropLocation,
		listing.PropDescription,
		string(propImages),
		project.ProjectURL,
		project.ProjectDistrict,
		project.ProjectAddress,
		project.ProjectDescription,
		string(projectImages),
	)
	if err != nil {
		return fmt.Errorf("upsert listing %s: %w", listing.PropURL, err)
	}

	s.logger.Debug("Listing upserted", map[string]interface{}{
		"propUrl": listing.PropURL,
	})
	return nil
}

// UpsertProject writes every listing of one project.
func (s *ListingStore) UpsertProject(ctx context.Context, project *models.Project) (int, error) {
	stored := 0
	for i := range project.Properties {
		if err := s.Upsert(ctx, &project.Properties[i], project); err != nil {
			return stored, err
		}
		stored++
	}
	return stored, nil
}

// Count reports the number of stored listings.
func (s *ListingStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", s.table)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count listings: %w", err)
	}
	return n, nil
}

func upsertStatement(table string) string {
	placeholders := make([]string, len(listingColumns))
	updates := make([]string, 0, len(listingColumns)-1)
	for i, col := range listingColumns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		if col != models.ColPropURL {
			updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
		}
	}
	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s",
		table,
		strings.Join(listingColumns, ", "),
		strings.Join(placeholders, ", "),
		models.ColPropURL,
		strings.Join(updates, ", "),
	)
}
