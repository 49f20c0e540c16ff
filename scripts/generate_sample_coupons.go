//go:build ignore

package main

import (
	"compress/gzip"
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// generateSampleCoupons writes two gzipped catalogue files for local imports.
// SPRING10 appears in both; importing base then campaign leaves the campaign
// row in place.
//
//	go run scripts/generate_sample_coupons.go
//	go run ./cmd/couponimport data/coupons/base.csv.gz data/coupons/campaign.csv.gz
func main() {
	dataDir := "data/coupons"

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		log.Fatalf("Failed to create directory: %v", err)
	}

	catalogues := map[string][][]string{
		"base.csv.gz": {
			{"SAVE10", "10", "500"},
			{"SAVE25", "25", "100"},
			{"SPRING10", "10", "50"},
			{"FREESHIP", "3.50", "1000"},
		},
		"campaign.csv.gz": {
			{"SPRING10", "15", "200"},
			{"VIPONLY", "40", "5"},
			{"LASTONE", "20", "1"},
			{"EXPIRED", "30", "0"},
		},
	}

	for filename, rows := range catalogues {
		filePath := filepath.Join(dataDir, filename)

		if err := createCatalogueFile(filePath, rows); err != nil {
			log.Fatalf("Failed to create %s: %v", filename, err)
		}

		fmt.Printf("Created %s with %d coupons\n", filePath, len(rows))
	}

	fmt.Println("\nSample coupon catalogues created successfully!")
	fmt.Println("  - LASTONE can be redeemed exactly once")
	fmt.Println("  - EXPIRED is exhausted and fails with COUPON_EXHAUSTED")
}

func createCatalogueFile(filePath string, rows [][]string) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	gzipWriter := gzip.NewWriter(file)
	defer gzipWriter.Close()

	w := csv.NewWriter(gzipWriter)
	if err := w.Write([]string{"code", "discount", "quantity"}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write coupons: %w", err)
	}

	return nil
}
