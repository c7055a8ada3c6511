// cmd/tools/schema-export/main.go
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"brickland-expert/internal/common/config"
	"brickland-expert/pkg/schema"
)

// Column descriptions are maintained here, not scraped from the database:
// comments are what ground query translation, and pg_catalog has none.
var descriptions = map[string]string{
	"prop_url":            "listing page url, primary key, always include in projections",
	"prop_address":        "street address of the unit",
	"prop_floor":          "floor of the unit stored as text, may be 'nan'",
	"prop_price":          "asking price in USD stored as text, 'nan' when unpublished",
	"prop_m2":             "covered surface in square meters",
	"prop_rooms":          "total room count (ambientes)",
	"prop_bedrooms":       "bedroom count (dormitorios)",
	"prop_location":       "neighborhood of the unit, match with LIKE",
	"prop_description":    "free-text unit description, amenities live here, match with LIKE",
	"prop_images":         "unit image urls as a JSON array",
	"project_url":         "project page url, always include in projections",
	"project_district":    "district of the parent project",
	"project_address":     "street address of the parent project",
	"project_description": "free-text project description, match with LIKE",
	"project_images":      "project image urls as a JSON array",
}

func main() {
	table := flag.String("table", "", "listings table to introspect (default: from config)")
	out := flag.String("out", "", "output path for the schema document (default: from config)")
	configPath := flag.String("config", "", "config file path (default: standard search locations)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}
	if *table == "" {
		*table = cfg.Expert.ListingsTable
	}
	if *out == "" {
		*out = cfg.Expert.SchemaPath
	}

	db, err := sql.Open("postgres", cfg.Database.Postgres.GetDSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "postgres open failed: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cols, err := introspect(ctx, db, *table)
	if err != nil {
		fmt.Fprintf(os.Stderr, "introspection failed: %v\n", err)
		os.Exit(1)
	}

	if err := schema.Save(*out, cols); err != nil {
		fmt.Fprintf(os.Stderr, "write failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("wrote %d columns from %s to %s\n", len(cols), *table, *out)
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

func introspect(ctx context.Context, db *sql.DB, table string) ([]schema.Column, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT column_name, data_type
		   FROM information_schema.columns
		  WHERE table_name = $1
		  ORDER BY ordinal_position`, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []schema.Column
	for rows.Next() {
		var name, dataType string
		if err := rows.Scan(&name, &dataType); err != nil {
			return nil, err
		}
		desc, ok := descriptions[name]
		if !ok {
			desc = strings.ReplaceAll(name, "_", " ")
		}
		cols = append(cols, schema.Column{
			Name:        name,
			Description: desc,
			Type:        strings.ToUpper(dataType),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("table %s has no columns", table)
	}
	return cols, nil
}
