package repository

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"market-advisor/config"
	"market-advisor/internal/dto"
	"market-advisor/pkg/cache"
	"market-advisor/pkg/httpclient"
	"market-advisor/pkg/logger"

	"golang.org/x/time/rate"
)

// PriceRepository fetches daily price history for a symbol. Implementations
// must return dto.ErrNoPriceData when no usable bars exist.
type PriceRepository interface {
	GetHistory(ctx context.Context, symbol string, timeframeDays int) ([]dto.PricePoint, error)
}

type yahooPriceRepository struct {
	httpClient     httpclient.HTTPClient
	cfg            *config.Config
	logger         *logger.Logger
	cache          cache.Cache
	requestLimiter *rate.Limiter
	mu             sync.Mutex
}

func NewYahooPriceRepository(cfg *config.Config, log *logger.Logger, inmemoryCache cache.Cache) PriceRepository {
	secondsPerRequest := time.Minute / time.Duration(cfg.Yahoo.MaxRequestPerMinute)
	requestLimiter := rate.NewLimiter(rate.Every(secondsPerRequest), 1)

	return &yahooPriceRepository{
		httpClient:     httpclient.New(cfg.Yahoo.BaseURL, cfg.Yahoo.Timeout, ""),
		cfg:            cfg,
		logger:         log,
		cache:          inmemoryCache,
		requestLimiter: requestLimiter,
	}
}

func (r *yahooPriceRepository) GetHistory(ctx context.Context, symbol string, timeframeDays int) ([]dto.PricePoint, error) {
	cacheKey := fmt.Sprintf("price:%s:%d", symbol, timeframeDays)
	if cached, found := r.cache.Get(cacheKey); found {
		if history, ok := cached.([]dto.PricePoint); ok {
			return history, nil
		}
	}

	r.mu.Lock()
	err := r.requestLimiter.Wait(ctx)
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	lookback := lookbackDays(timeframeDays)
	period1 := now.AddDate(0, 0, -lookback).Unix()
	period2 := now.Unix()

	queryParams := map[string]string{
		"period1":        fmt.Sprintf("%d", period1),
		"period2":        fmt.Sprintf("%d", period2),
		"interval":       "1d",
		"includePrePost": "false",
		"events":         "div,split",
	}

	headers := map[string]string{
		"User-Agent": "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 Chrome/120.0.0.0 Safari/537.36",
		"Accept":     "application/json, text/plain, */*",
	}

	var chartResp dto.YahooChartResponse
	resp, err := r.httpClient.Get(ctx, "/"+symbol, queryParams, headers, &chartResp)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch data from yahoo finance: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		r.logger.ErrorContext(ctx, "Yahoo Finance API returned Non-OK status",
			logger.IntField("status_code", resp.StatusCode),
			logger.StringField("symbol", symbol),
		)
		return nil, fmt.Errorf("%w: yahoo finance returned status %d for %s", dto.ErrNoPriceData, resp.StatusCode, symbol)
	}

	if chartResp.Chart.Error != nil {
		return nil, fmt.Errorf("%w: yahoo finance error for %s: %v", dto.ErrNoPriceData, symbol, chartResp.Chart.Error)
	}

	if len(chartResp.Chart.Result) == 0 || len(chartResp.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("%w: no chart data for %s", dto.ErrNoPriceData, symbol)
	}

	result := chartResp.Chart.Result[0]
	quote := result.Indicators.Quote[0]

	history := make([]dto.PricePoint, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(quote.Open) || i >= len(quote.High) || i >= len(quote.Low) ||
			i >= len(quote.Close) || i >= len(quote.Volume) {
			continue
		}
		// Zero bars mean missing data for that day.
		if quote.Open[i] == 0 || quote.High[i] == 0 || quote.Low[i] == 0 || quote.Close[i] == 0 {
			continue
		}

		history = append(history, dto.PricePoint{
			Timestamp: time.Unix(ts, 0).UTC(),
			Open:      quote.Open[i],
			High:      quote.High[i],
			Low:       quote.Low[i],
			Close:     quote.Close[i],
			Volume:    quote.Volume[i],
		})
	}

	if len(history) == 0 {
		return nil, fmt.Errorf("%w: all bars empty for %s", dto.ErrNoPriceData, symbol)
	}

	r.logger.DebugContext(ctx, "Fetched price history",
		logger.StringField("symbol", symbol),
		logger.IntField("bars", len(history)),
	)

	r.cache.Set(cacheKey, history, r.cfg.Yahoo.CacheDuration)
	return history, nil
}

// lookbackDays extends the fetch window beyond the analysis timeframe so the
// longer indicator windows (SMA50, MACD) have enough history to work with.
func lookbackDays(timeframeDays int) int {
	switch {
	case timeframeDays <= 7:
		return timeframeDays*15 + 30
	case timeframeDays <= 30:
		return timeframeDays*12 + 30
	case timeframeDays <= 90:
		return timeframeDays*8 + 30
	default:
		return timeframeDays*5 + 30
	}
}
