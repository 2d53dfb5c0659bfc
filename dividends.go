package main

import (
	"context"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

const defaultDividendLimit = 20

// DividendService reads dividend history. Lookups never fail: any upstream
// problem degrades to an empty list.
type DividendService struct {
	fetcher RowFetcher
	logger  zerolog.Logger
}

func NewDividendService(fetcher RowFetcher) *DividendService {
	return &DividendService{
		fetcher: fetcher,
		logger:  componentLogger("dividends"),
	}
}

func (s *DividendService) Get(ctx context.Context, symbol string, limit int) []DividendItem {
	sym := strings.ToUpper(strings.TrimSpace(symbol))
	if sym == "" {
		return []DividendItem{}
	}
	if limit <= 0 {
		limit = defaultDividendLimit
	}

	rows, err := s.fetcher.GetRows(ctx, pathDividends, map[string]string{
		"identifier": sym,
		"limit":      strconv.Itoa(limit),
	})
	if err != nil {
		s.logger.Error().Err(err).Str("symbol", sym).Msg("Error getting dividends")
		return []DividendItem{}
	}

	items := make([]DividendItem, 0, len(rows))
	for _, r := range rows {
		item := DividendItem{
			Symbol:          strings.ToUpper(rowString(r, "trading_symbol")),
			Type:            rowString(r, "type"),
			DeclarationDate: rowString(r, "declaration_date"),
			ExDate:          rowString(r, "ex_date"),
			RecordDate:      rowString(r, "record_date"),
			PaymentDate:     rowString(r, "payment_date"),
		}
		if item.Symbol == "" {
			item.Symbol = sym
		}
		if v := pickNumber(r, "amount"); v != nil {
			item.Amount = *v
		}
		items = append(items, item)
	}
	return items
}

// Latest returns the most recent dividend, or nil when there is none.
func (s *DividendService) Latest(ctx context.Context, symbol string) *DividendItem {
	items := s.Get(ctx, symbol, 1)
	if len(items) == 0 {
		return nil
	}
	return &items[0]
}
