package feed

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/yanun0323/errors"

	"main/internal/schema"
)

// CSVSource reads aggregated-trade dumps in the common exchange
// export layout:
//
//	aggTradeId,price,quantity,firstTradeId,lastTradeId,timestamp,isBuyerMaker
//
// Timestamps are epoch milliseconds. A header row is skipped when the
// first field is not numeric.
type CSVSource struct {
	file   *os.File
	reader *csv.Reader
	first  bool
}

// OpenCSV opens a trade dump for streaming.
func OpenCSV(path string) (*CSVSource, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open trade csv")
	}
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = 7
	reader.ReuseRecord = true
	return &CSVSource{file: file, reader: reader, first: true}, nil
}

func (s *CSVSource) Next() (schema.Tick, error) {
	for {
		row, err := s.reader.Read()
		if err != nil {
			if err == io.EOF {
				return schema.Tick{}, io.EOF
			}
			return schema.Tick{}, errors.Wrap(err, "read trade csv")
		}
		if s.first {
			s.first = false
			if _, err := strconv.ParseInt(row[0], 10, 64); err != nil {
				continue
			}
		}
		return parseRow(row)
	}
}

func parseRow(row []string) (schema.Tick, error) {
	price, err := schema.ParseScaled(row[1])
	if err != nil {
		return schema.Tick{}, errors.Wrap(err, "parse price")
	}
	qty, err := schema.ParseScaled(row[2])
	if err != nil {
		return schema.Tick{}, errors.Wrap(err, "parse quantity")
	}
	ms, err := strconv.ParseInt(row[5], 10, 64)
	if err != nil {
		return schema.Tick{}, errors.Wrap(err, "parse timestamp")
	}
	buyerMaker, err := strconv.ParseBool(row[6])
	if err != nil {
		return schema.Tick{}, errors.Wrap(err, "parse buyer maker flag")
	}
	return schema.Tick{
		TsNano:     ms * int64(time.Millisecond),
		Price:      schema.Price(price),
		Qty:        schema.Quantity(qty),
		BuyerMaker: buyerMaker,
	}, nil
}

// Close releases the underlying file.
func (s *CSVSource) Close() error { return s.file.Close() }
