// Package api provides HTTP handlers for the REST API.
package api

import (
	"strconv"

	"github.com/go-fuego/fuego"

	"github.com/blockedby/tgstats/internal/scraper"
)

func (s *Server) healthCheck(c fuego.ContextNoBody) (HealthResponse, error) {
	storage := "unavailable"
	sessionFile := ""
	if s.deps.Session != nil {
		if s.deps.Session.Available() {
			storage = "available"
		}
		sessionFile = s.deps.Session.LocalPath()
	}

	return HealthResponse{
		Status:      "ok",
		Service:     ServiceName,
		S3Storage:   storage,
		SessionFile: sessionFile,
	}, nil
}

// scrapeChannel runs a full scrape. Any domain failure comes back as a
// 400 with the reason in detail, matching the resolve-or-reject model.
func (s *Server) scrapeChannel(c fuego.ContextWithBody[ScrapeRequest]) (*scraper.ScrapeResult, error) {
	body, err := c.Body()
	if err != nil {
		return nil, fuego.BadRequestError{Detail: err.Error()}
	}

	if body.ChannelIdentifier == "" {
		return nil, fuego.BadRequestError{Detail: "channel_identifier is required"}
	}

	result, err := s.deps.Scraper.Scrape(c.Context(), body.ChannelIdentifier, body.LimitMessages)
	if err != nil {
		return nil, fuego.BadRequestError{Detail: err.Error()}
	}

	return result, nil
}

func (s *Server) getChannelStats(c fuego.ContextNoBody) (StatsHistoryResponse, error) {
	channelID, err := strconv.ParseInt(c.PathParam("channel_id"), 10, 64)
	if err != nil {
		return StatsHistoryResponse{}, fuego.BadRequestError{Detail: "Invalid channel ID"}
	}

	limit := parseIntWithDefault(c.QueryParam("limit"), scraper.DefaultHistoryLimit)

	history, err := s.deps.Scraper.History(c.Context(), channelID, limit)
	if err != nil {
		return StatsHistoryResponse{}, fuego.InternalServerError{Detail: err.Error()}
	}

	return StatsHistoryResponse{
		ChannelID: channelID,
		History:   SnapshotsFromRepo(history),
	}, nil
}

func parseIntWithDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 {
		return def
	}
	return v
}
