package s0_data

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/wonny/pairlab/backend/internal/contracts"
	"github.com/wonny/pairlab/backend/pkg/httputil"
	"github.com/wonny/pairlab/backend/pkg/logger"
)

// feedRow is one line of a daily OHLCV CSV (Date,Open,High,Low,Close,Volume)
type feedRow struct {
	Date  string `csv:"Date"`
	Close string `csv:"Close"`
}

// FeedClient downloads daily closes from an HTTP CSV endpoint
// ⭐ SSOT: 외부 가격 피드 호출은 여기서만
type FeedClient struct {
	client      *httputil.Client
	urlTemplate string
	logger      *logger.Logger
}

// NewFeedClient creates a feed client.
// urlTemplate placeholders: {symbol}, {from}, {to} (YYYYMMDD)
func NewFeedClient(client *httputil.Client, urlTemplate string, log *logger.Logger) *FeedClient {
	if log == nil {
		log = logger.NewNop()
	}
	return &FeedClient{
		client:      client,
		urlTemplate: urlTemplate,
		logger:      log.WithField("module", "feed"),
	}
}

// URL renders the request URL for one symbol
func (f *FeedClient) URL(symbol string, from, to time.Time) string {
	r := strings.NewReplacer(
		"{symbol}", url.QueryEscape(strings.ToLower(symbol)),
		"{from}", from.Format("20060102"),
		"{to}", to.Format("20060102"),
	)
	return r.Replace(f.urlTemplate)
}

// Fetch implements PriceSource.
// Rows whose close is missing or not a number are dropped.
func (f *FeedClient) Fetch(ctx context.Context, symbol string, from, to time.Time) ([]contracts.PriceBar, error) {
	if from.IsZero() || to.IsZero() {
		return nil, contracts.NewInputError(contracts.StagePrices, "dates", "price feed needs both from and to")
	}
	if to.Before(from) {
		return nil, contracts.NewInputError(contracts.StagePrices, "dates",
			"to (%s) before from (%s)", to.Format("2006-01-02"), from.Format("2006-01-02"))
	}

	body, err := f.client.GetBody(ctx, f.URL(symbol, from, to))
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", symbol, err)
	}

	bars, skipped, err := parseFeed(symbol, body)
	if err != nil {
		return nil, err
	}

	out := bars[:0]
	for _, bar := range bars {
		if inRange(bar.Date, from, to) {
			out = append(out, bar)
		}
	}

	f.logger.WithFields(map[string]interface{}{
		"symbol":  symbol,
		"rows":    len(out),
		"skipped": skipped,
	}).Debug("Price feed downloaded")

	return out, nil
}

// parseFeed turns a feed CSV body into bars; returns how many rows were skipped
func parseFeed(symbol string, body []byte) ([]contracts.PriceBar, int, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || !bytes.HasPrefix(trimmed, []byte("Date")) {
		first := string(trimmed)
		if i := strings.IndexByte(first, '\n'); i >= 0 {
			first = first[:i]
		}
		return nil, 0, contracts.NewInputError(contracts.StagePrices, symbol, "feed returned no price table: %q", first)
	}

	var rows []feedRow
	if err := gocsv.UnmarshalBytes(trimmed, &rows); err != nil {
		return nil, 0, contracts.NewInputError(contracts.StagePrices, symbol, "parse feed: %v", err)
	}

	bars := make([]contracts.PriceBar, 0, len(rows))
	skipped := 0
	for _, row := range rows {
		date, err := time.Parse(time.DateOnly, strings.TrimSpace(row.Date))
		if err != nil {
			skipped++
			continue
		}
		c, err := strconv.ParseFloat(strings.TrimSpace(row.Close), 64)
		if err != nil || math.IsNaN(c) || c <= 0 {
			skipped++
			continue
		}
		bars = append(bars, contracts.PriceBar{Symbol: symbol, Date: date, Close: c})
	}
	return bars, skipped, nil
}
