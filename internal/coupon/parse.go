package coupon

import (
	"compress/gzip"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"storefront/internal/model"

	"github.com/shopspring/decimal"
)

const cancelCheckEvery = 10_000

// readCatalogue decodes a gzipped CODE,discount,quantity stream. A first row
// whose code column reads "code" is treated as a header. Lines starting with
// '#' are ignored.
func readCatalogue(ctx context.Context, r io.Reader, source string) (*Catalogue, error) {
	gzipReader, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: gzip header of %s: %w", ErrMalformed, source, err)
	}
	defer gzipReader.Close()

	reader := csv.NewReader(gzipReader)
	reader.FieldsPerRecord = 3
	reader.Comment = '#'
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = true

	catalogue := NewCatalogue(1024)
	for row := 0; ; row++ {
		if row%cancelCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: reading %s: %w", ErrMalformed, source, err)
		}

		if row == 0 && strings.EqualFold(strings.TrimSpace(record[0]), "code") {
			continue
		}

		line, _ := reader.FieldPos(0)
		coupon, err := parseRecord(record)
		if err != nil {
			return nil, fmt.Errorf("%w: %s line %d: %w", ErrMalformed, source, line, err)
		}
		catalogue.Add(coupon)
	}

	return catalogue, nil
}

func parseRecord(record []string) (model.Coupon, error) {
	code := strings.TrimSpace(record[0])
	if code == "" {
		return model.Coupon{}, errors.New("empty coupon code")
	}

	discount, err := decimal.NewFromString(strings.TrimSpace(record[1]))
	if err != nil {
		return model.Coupon{}, fmt.Errorf("invalid discount for %s: %w", code, err)
	}
	if discount.IsNegative() {
		return model.Coupon{}, fmt.Errorf("negative discount for %s", code)
	}

	quantity, err := strconv.Atoi(strings.TrimSpace(record[2]))
	if err != nil {
		return model.Coupon{}, fmt.Errorf("invalid quantity for %s: %w", code, err)
	}
	if quantity < 0 {
		return model.Coupon{}, fmt.Errorf("negative quantity for %s", code)
	}

	return model.Coupon{Code: code, DiscountPrice: discount, Quantity: quantity}, nil
}
