package binance

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/alejandrodnm/statarb/internal/domain"
)

const (
	tickerPath = "/fapi/v1/ticker/24hr"
	klinesPath = "/fapi/v1/klines"

	klinesLimit = 1500 // máximo por request en futures
	quoteAsset  = "USDT"

	// tope de páginas por símbolo: 1 año de velas de 1m son ~351 páginas
	maxPages = 1000
)

// ticker24h es una entrada de /fapi/v1/ticker/24hr. Binance manda los números como string.
type ticker24h struct {
	Symbol      string `json:"symbol"`
	QuoteVolume string `json:"quoteVolume"`
}

// kline es una vela de /fapi/v1/klines. Binance la manda como array heterogéneo:
// [openTime, open, high, low, close, volume, closeTime, ...]; solo se usan open_time y close.
type kline struct {
	OpenTime int64
	Close    float64
}

func (k *kline) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) < 5 {
		return fmt.Errorf("kline: %d fields, want >= 5", len(raw))
	}
	if err := json.Unmarshal(raw[0], &k.OpenTime); err != nil {
		return fmt.Errorf("kline open_time: %w", err)
	}
	closeStr := string(bytes.Trim(raw[4], `"`))
	v, err := strconv.ParseFloat(closeStr, 64)
	if err != nil {
		return fmt.Errorf("kline close: %w", err)
	}
	k.Close = v
	return nil
}

// TopSymbols devuelve los n símbolos USDT con mayor volumen en quote de las últimas 24h.
func (c *Client) TopSymbols(ctx context.Context, n int) ([]string, error) {
	var tickers []ticker24h
	if err := c.get(ctx, tickerPath, nil, &tickers); err != nil {
		return nil, fmt.Errorf("binance.TopSymbols: %w", err)
	}

	type ranked struct {
		symbol string
		volume float64
	}
	var candidates []ranked
	for _, t := range tickers {
		if !strings.HasSuffix(t.Symbol, quoteAsset) {
			continue
		}
		vol, err := strconv.ParseFloat(t.QuoteVolume, 64)
		if err != nil {
			slog.Debug("skipping ticker with bad quoteVolume", "symbol", t.Symbol, "value", t.QuoteVolume)
			continue
		}
		candidates = append(candidates, ranked{symbol: t.Symbol, volume: vol})
	}

	slices.SortStableFunc(candidates, func(a, b ranked) int {
		return cmp.Compare(b.volume, a.volume)
	})
	if n > 0 && len(candidates) > n {
		candidates = candidates[:n]
	}

	out := make([]string, len(candidates))
	for i, r := range candidates {
		out[i] = r.symbol
	}

	slog.Debug("top symbols selected", "requested", n, "returned", len(out))
	return out, nil
}

// FetchCloses descarga los cierres de symbol entre from y to (inclusive).
// Pagina hacia atrás desde `to` con endTime: cada página termina justo antes de
// la vela más antigua de la anterior, hasta cubrir `from` o quedarse sin datos.
func (c *Client) FetchCloses(ctx context.Context, symbol string, from, to time.Time) (domain.PriceSeries, error) {
	if !from.Before(to) {
		return domain.PriceSeries{}, fmt.Errorf("binance.FetchCloses %s: empty range %s..%s", symbol, from, to)
	}
	fromMs, endMs := from.UnixMilli(), to.UnixMilli()

	var all []kline
	for page := 0; page < maxPages; page++ {
		q := url.Values{}
		q.Set("symbol", symbol)
		q.Set("interval", c.interval)
		q.Set("endTime", strconv.FormatInt(endMs, 10))
		q.Set("limit", strconv.Itoa(klinesLimit))

		var batch []kline
		if err := c.get(ctx, klinesPath, q, &batch); err != nil {
			return domain.PriceSeries{}, fmt.Errorf("binance.FetchCloses %s: page %d: %w", symbol, page, err)
		}
		if len(batch) == 0 {
			break
		}
		all = append(all, batch...)

		oldest := slices.MinFunc(batch, func(a, b kline) int { return cmp.Compare(a.OpenTime, b.OpenTime) })
		endMs = oldest.OpenTime - 1
		if endMs < fromMs {
			break
		}

		slog.Debug("klines page fetched",
			"symbol", symbol,
			"page", page,
			"oldest", time.UnixMilli(oldest.OpenTime).UTC().Format(time.RFC3339),
		)
	}

	series := domain.PriceSeries{Symbol: symbol, Bars: toBars(all, fromMs, to.UnixMilli())}
	slog.Info("history downloaded", "symbol", symbol, "bars", series.Len())
	return series, nil
}

// toBars filtra al rango, ordena por tiempo y elimina velas repetidas entre páginas.
func toBars(ks []kline, fromMs, toMs int64) []domain.Bar {
	slices.SortStableFunc(ks, func(a, b kline) int { return cmp.Compare(a.OpenTime, b.OpenTime) })

	bars := make([]domain.Bar, 0, len(ks))
	last := int64(-1)
	for _, k := range ks {
		if k.OpenTime < fromMs || k.OpenTime > toMs || k.OpenTime == last {
			continue
		}
		last = k.OpenTime
		bars = append(bars, domain.Bar{Time: time.UnixMilli(k.OpenTime).UTC(), Close: k.Close})
	}
	return bars
}
