// Command load-redis seeds the Redis attribution store from a CSV export of
// per-address records.
//
// Input format, one row per address:
//
//	ip,country_code,country_name
//
// Usage: go run ./cmd/load-redis
package main

import (
	"encoding/csv"
	"fmt"
	"net/netip"
	"os"

	"github.com/mozilla/classify-client/internal/config"
	"github.com/mozilla/classify-client/internal/logger"
	"github.com/mozilla/classify-client/internal/models"
	"github.com/mozilla/classify-client/internal/store"
)

func main() {
	log := logger.NewDefault().WithComponent("load-redis")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	redisStore, err := store.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("Failed to connect to Redis")
	}
	defer redisStore.Close()

	count, err := loadFile(redisStore, cfg.GeoDBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.GeoDBPath).Msg("Failed to load attribution records")
	}

	log.Info().Int("records", count).Msg("Attribution records loaded")
}

func loadFile(redisStore *store.RedisStore, path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening attribution file: %w", err)
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return 0, fmt.Errorf("parsing attribution file: %w", err)
	}

	count := 0
	for i, record := range records {
		// Optional header row.
		if i == 0 && record[0] == "ip" {
			continue
		}

		if len(record) != 3 {
			return count, fmt.Errorf("row %d: expected 3 columns, got %d", i+1, len(record))
		}

		addr, err := netip.ParseAddr(record[0])
		if err != nil {
			return count, fmt.Errorf("row %d: invalid address %q: %w", i+1, record[0], err)
		}

		country := models.Country{Code: record[1], Name: record[2]}
		if err := redisStore.Set(addr, country); err != nil {
			return count, fmt.Errorf("row %d: %w", i+1, err)
		}

		count++
	}

	return count, nil
}
