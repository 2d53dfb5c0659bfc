package main

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

func (ws *WebServer) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"universe": ws.explorer.UniverseStats(),
	})
}

func (ws *WebServer) getQuote(c *gin.Context) {
	symbol := strings.ToUpper(strings.TrimSpace(c.Param("symbol")))
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Symbol is required"})
		return
	}

	detail, err := ws.explorer.Detail(c.Request.Context(), symbol)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmptySymbol):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, ErrNoPriceData):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		default:
			log.Error().Err(err).Str("request_id", getRequestID(c)).Str("symbol", symbol).Msg("Error getting quote")
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, detail)
}

func (ws *WebServer) getDividends(c *gin.Context) {
	symbol := strings.ToUpper(strings.TrimSpace(c.Param("symbol")))
	limit := defaultDividendLimit
	if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 {
		limit = l
	}

	c.JSON(http.StatusOK, ws.explorer.Dividends(c.Request.Context(), symbol, limit))
}

func (ws *WebServer) getName(c *gin.Context) {
	symbol := strings.ToUpper(strings.TrimSpace(c.Param("symbol")))
	name, found := ws.explorer.Name(c.Request.Context(), symbol)

	c.JSON(http.StatusOK, NameResponse{
		Symbol: symbol,
		Name:   name,
		Found:  found,
	})
}

func (ws *WebServer) searchSymbols(c *gin.Context) {
	opts := SearchOptions{
		Query:      c.Query("q"),
		SortBy:     SortField(c.DefaultQuery("sortBy", string(SortBySymbol))),
		Direction:  SortDirection(c.DefaultQuery("direction", string(SortAsc))),
		StartsWith: c.Query("startsWith"),
		Kind:       KindFilter(c.DefaultQuery("kind", string(KindAll))),
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", strconv.Itoa(defaultPageSize)))

	results, err := ws.explorer.Search(c.Request.Context(), opts)
	if err != nil {
		log.Error().Err(err).Str("request_id", getRequestID(c)).Msg("Search failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, Paginate(results, page, pageSize))
}

func (ws *WebServer) getLogo(c *gin.Context) {
	symbol := strings.ToUpper(strings.TrimSpace(c.Param("symbol")))
	kind := Kind(strings.ToLower(c.Query("kind")))

	c.JSON(http.StatusOK, gin.H{
		"symbol": symbol,
		"url":    ws.explorer.Logo(c.Request.Context(), symbol, c.Query("name"), kind),
	})
}

func (ws *WebServer) getUniverseStats(c *gin.Context) {
	c.JSON(http.StatusOK, ws.explorer.UniverseStats())
}
