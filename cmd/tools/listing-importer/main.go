// cmd/tools/listing-importer/main.go
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"brickland-expert/internal/common/config"
	"brickland-expert/internal/common/database"
	"brickland-expert/internal/common/logger"
	"brickland-expert/internal/models"
	"brickland-expert/internal/store"
)

func main() {
	input := flag.String("input", "", "path to a JSON array of scraped projects (required)")
	table := flag.String("table", "", "target listings table (default: from config)")
	configPath := flag.String("config", "", "config file path (default: standard search locations)")
	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "usage: listing-importer -input projects.json [-table properties]")
		os.Exit(1)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}
	if *table == "" {
		*table = cfg.Expert.ListingsTable
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	data, err := os.ReadFile(*input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read input failed: %v\n", err)
		os.Exit(1)
	}
	var projects []models.Project
	if err := json.Unmarshal(data, &projects); err != nil {
		fmt.Fprintf(os.Stderr, "decode input failed: %v\n", err)
		os.Exit(1)
	}

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		fmt.Fprintf(os.Stderr, "postgres open failed: %v\n", err)
		os.Exit(1)
	}
	defer pg.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	if err := pg.Ping(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "postgres ping failed: %v\n", err)
		os.Exit(1)
	}

	listings := store.NewListingStore(pg.DB, *table, log)

	imported, skipped := 0, 0
	for i := range projects {
		n, err := listings.UpsertProject(ctx, &projects[i])
		imported += n
		if err != nil {
			skipped++
			log.Warn("Project import failed", map[string]interface{}{
				"projectUrl": projects[i].ProjectURL,
				"error":      err.Error(),
			})
		}
	}

	total, err := listings.Count(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "count failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("imported %d listings (%d projects failed), table now holds %d rows\n", imported, skipped, total)
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}
