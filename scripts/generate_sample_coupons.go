package main

import (
	"compress/gzip"
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

type sampleCoupon struct {
	code   string
	kind   string
	value  int64
	starts time.Time
	ends   time.Time
	active bool
}

// generateSampleCoupons writes the gzipped coupon catalog read at startup.
// BIENVENIDA10 and DESPACHO5000 are usable; VERANO2024 has expired and
// PAUSADO is inactive, so both are ignored at checkout.
func main() {
	dataDir := "data/coupons"

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		log.Fatalf("Failed to create directory: %v", err)
	}

	now := time.Now().UTC()
	coupons := []sampleCoupon{
		{code: "BIENVENIDA10", kind: "percent", value: 10, starts: now.AddDate(0, -1, 0), ends: now.AddDate(1, 0, 0), active: true},
		{code: "DESPACHO5000", kind: "fixed", value: 5000, starts: now.AddDate(0, -1, 0), ends: now.AddDate(0, 6, 0), active: true},
		{code: "HERRAMIENTAS15", kind: "percent", value: 15, starts: now.AddDate(0, 0, -7), ends: now.AddDate(0, 1, 0), active: true},
		{code: "VERANO2024", kind: "percent", value: 20, starts: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), ends: time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC), active: true},
		{code: "PAUSADO", kind: "fixed", value: 10000, starts: now.AddDate(0, -1, 0), ends: now.AddDate(1, 0, 0), active: false},
	}

	filePath := filepath.Join(dataDir, "catalog.csv.gz")
	if err := createCatalogFile(filePath, coupons); err != nil {
		log.Fatalf("Failed to create %s: %v", filePath, err)
	}

	fmt.Printf("Created %s with %d coupons\n", filePath, len(coupons))
	for _, c := range coupons {
		fmt.Printf("  - %-15s %-8s %6d  active=%t  until %s\n",
			c.code, c.kind, c.value, c.active, c.ends.Format(time.DateOnly))
	}
}

func createCatalogFile(filePath string, coupons []sampleCoupon) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	gzWriter := gzip.NewWriter(file)
	defer gzWriter.Close()

	w := csv.NewWriter(gzWriter)
	if err := w.Write([]string{"code", "type", "value", "starts_at", "ends_at", "active"}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, c := range coupons {
		record := []string{
			c.code,
			c.kind,
			strconv.FormatInt(c.value, 10),
			c.starts.Format(time.RFC3339),
			c.ends.Format(time.RFC3339),
			strconv.FormatBool(c.active),
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write coupon %s: %w", c.code, err)
		}
	}

	w.Flush()
	return w.Error()
}
