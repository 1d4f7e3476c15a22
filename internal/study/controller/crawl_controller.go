package controller

import (
	"context"

	"dailystudy/internal/study/model"
	"dailystudy/internal/study/repository"
	"dailystudy/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

// CrawlRunner triggers crawls and reports on past runs.
type CrawlRunner interface {
	Run(ctx context.Context) ([]model.CrawlResult, error)
	LastCrawl(ctx context.Context) (*repository.CrawlHistory, error)
}

// CrawlController handles crawl trigger endpoints.
type CrawlController struct {
	crawlService CrawlRunner
}

// NewCrawlController creates a new CrawlController.
func NewCrawlController(crawlService CrawlRunner) *CrawlController {
	return &CrawlController{crawlService: crawlService}
}

// Trigger runs one crawl synchronously and returns its decision log.
func (h *CrawlController) Trigger(c *gin.Context) {
	results, err := h.crawlService.Run(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, CrawlResponse{Results: results})
}

// LastCrawl returns the most recent successful run.
func (h *CrawlController) LastCrawl(c *gin.Context) {
	history, err := h.crawlService.LastCrawl(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, history)
}

type CrawlResponse struct {
	Results []model.CrawlResult `json:"results"`
}
