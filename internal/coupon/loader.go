package coupon

import (
	"compress/gzip"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"hardware-checkout/internal/model"

	"github.com/rs/zerolog"
)

// Catalog file columns, in order.
const (
	colCode = iota
	colType
	colValue
	colStartsAt
	colEndsAt
	colActive
	columnCount
)

// fileLoader implements Loader for reading gzipped coupon catalog files.
type fileLoader struct {
	logger zerolog.Logger
}

// NewFileLoader creates a new file-based coupon loader.
func NewFileLoader(logger zerolog.Logger) Loader {
	return &fileLoader{
		logger: logger.With().Str("component", "coupon-loader").Logger(),
	}
}

// Load reads a gzipped coupon catalog file and returns a CouponSet.
// Each row is `code,type,value,starts_at,ends_at,active`.
func (l *fileLoader) Load(ctx context.Context, filePath string) (CouponSet, error) {
	l.logger.Info().Str("file", filePath).Msg("loading coupon file")

	file, err := os.Open(filePath)
	if err != nil {
		l.logger.Error().Err(err).Str("file", filePath).Msg("failed to open coupon file")
		return nil, fmt.Errorf("failed to open coupon file %s: %w", filePath, err)
	}
	defer file.Close()

	set, err := readCatalog(ctx, file, filePath)
	if err != nil {
		l.logger.Error().Err(err).Str("file", filePath).Msg("error reading coupon file")
		return nil, err
	}

	l.logger.Info().
		Str("file", filePath).
		Int("coupons_loaded", set.Size()).
		Msg("coupon file loaded successfully")

	return set, nil
}

// readCatalog parses a gzipped CSV catalog. A header row whose first column is
// "code" is skipped, as are blank lines.
func readCatalog(ctx context.Context, r io.Reader, source string) (CouponSet, error) {
	gzipReader, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader for %s: %w", source, err)
	}
	defer gzipReader.Close()

	reader := csv.NewReader(gzipReader)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = true

	set := NewMapCouponSet(1024).(*mapCouponSet)

	for row := 1; ; row++ {
		if row%10_000 == 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
		}

		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading coupon file %s: %w", source, err)
		}

		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}
		if row == 1 && isHeader(record) {
			continue
		}

		c, err := parseCouponRecord(record)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", source, row, err)
		}
		set.Add(c)
	}

	return set, nil
}

func isHeader(record []string) bool {
	return len(record) > colType &&
		strings.EqualFold(strings.TrimSpace(record[colCode]), "code") &&
		strings.EqualFold(strings.TrimSpace(record[colType]), "type")
}

func parseCouponRecord(record []string) (*model.Coupon, error) {
	if len(record) != columnCount {
		return nil, fmt.Errorf("expected %d columns, got %d", columnCount, len(record))
	}

	code := model.NormalizeCouponCode(record[colCode])
	if code == "" {
		return nil, fmt.Errorf("empty coupon code")
	}

	var typ model.CouponType
	switch strings.ToLower(strings.TrimSpace(record[colType])) {
	case "percent", "pct", "%":
		typ = model.CouponPercent
	case "fixed", "amount", "fixed_amount":
		typ = model.CouponFixedAmount
	default:
		return nil, fmt.Errorf("coupon %s: unknown type %q", code, record[colType])
	}

	value, err := strconv.ParseInt(strings.TrimSpace(record[colValue]), 10, 64)
	if err != nil || value < 0 {
		return nil, fmt.Errorf("coupon %s: invalid value %q", code, record[colValue])
	}
	if typ == model.CouponPercent && value > 100 {
		return nil, fmt.Errorf("coupon %s: percent value %d exceeds 100", code, value)
	}

	startsAt, err := parseOptionalTime(record[colStartsAt])
	if err != nil {
		return nil, fmt.Errorf("coupon %s: invalid starts_at: %w", code, err)
	}
	endsAt, err := parseOptionalTime(record[colEndsAt])
	if err != nil {
		return nil, fmt.Errorf("coupon %s: invalid ends_at: %w", code, err)
	}
	if !startsAt.IsZero() && !endsAt.IsZero() && endsAt.Before(startsAt) {
		return nil, fmt.Errorf("coupon %s: ends_at before starts_at", code)
	}

	active, err := strconv.ParseBool(strings.TrimSpace(record[colActive]))
	if err != nil {
		return nil, fmt.Errorf("coupon %s: invalid active flag %q", code, record[colActive])
	}

	return &model.Coupon{
		Code:     code,
		Type:     typ,
		Value:    value,
		StartsAt: startsAt,
		EndsAt:   endsAt,
		Active:   active,
	}, nil
}

func parseOptionalTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, s)
}
