package main

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

type LogoClient struct {
	client *resty.Client
	apiURL string
	imgURL string
	token  string
	logger zerolog.Logger
}

func NewLogoClient(cfg LogoConfig) *LogoClient {
	client := resty.New()
	client.SetTimeout(10 * time.Second)

	return &LogoClient{
		client: client,
		apiURL: cfg.APIURL,
		imgURL: cfg.ImgURL,
		token:  cfg.Token,
		logger: componentLogger("logo"),
	}
}

// BuildLogoURL returns the image URL for a brand name or domain.
func (l *LogoClient) BuildLogoURL(target, fallback string, size int) string {
	params := url.Values{}
	params.Set("token", l.token)
	if fallback != "" {
		params.Set("fallback", fallback)
	}
	if size > 0 {
		params.Set("size", strconv.Itoa(size))
	}
	return l.imgURL + "/" + url.PathEscape(strings.TrimSpace(target)) + "?" + params.Encode()
}

// BuildTickerLogoURL returns the image URL for a listed ticker.
func (l *LogoClient) BuildTickerLogoURL(symbol string, size int) string {
	params := url.Values{}
	params.Set("token", l.token)
	if size > 0 {
		params.Set("size", strconv.Itoa(size))
	}
	sym := url.PathEscape(strings.ToUpper(strings.TrimSpace(symbol)))
	return l.imgURL + "/ticker/" + sym + "?" + params.Encode()
}

// URLFor returns a logo URL for symbol, or "" when none could be found.
// Stocks go straight to the ticker image; other kinds are looked up through
// the brands endpoint, and a miss falls back to a monogram built from name.
func (l *LogoClient) URLFor(ctx context.Context, symbol, name string, kind Kind) string {
	sym := strings.ToUpper(strings.TrimSpace(symbol))
	if sym == "" {
		return ""
	}
	if kind == KindStock {
		return l.BuildTickerLogoURL(sym, 0)
	}
	if logo := l.brandLogo(ctx, sym); logo != "" {
		return logo
	}
	if name = strings.TrimSpace(name); name != "" {
		return l.BuildLogoURL(name, "monogram", 0)
	}
	return ""
}

func (l *LogoClient) brandLogo(ctx context.Context, sym string) string {
	resp, err := l.client.R().
		SetContext(ctx).
		SetQueryParam("symbol", sym).
		SetAuthToken(l.token).
		Get(l.apiURL + "/brands")
	if err != nil {
		l.logger.Debug().Err(err).Str("symbol", sym).Msg("Brand lookup failed")
		return ""
	}
	if !resp.IsSuccess() {
		l.logger.Debug().Int("status", resp.StatusCode()).Str("symbol", sym).Msg("Brand lookup rejected")
		return ""
	}

	var payload interface{}
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return ""
	}

	var first map[string]interface{}
	switch v := payload.(type) {
	case []interface{}:
		if len(v) > 0 {
			first, _ = v[0].(map[string]interface{})
		}
	case map[string]interface{}:
		first = v
	}
	if first == nil {
		return ""
	}

	row := Row(first)
	if logo, ok := row["logo"].(string); ok {
		return logo
	}
	if logo, ok := row["logo_url"].(string); ok {
		return logo
	}
	if domain := rowString(row, "domain", "website", "url"); domain != "" {
		return l.BuildLogoURL(domain, "monogram", 0)
	}
	return ""
}
