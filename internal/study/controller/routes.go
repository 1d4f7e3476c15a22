package controller

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts the study API under /api/v1.
func RegisterRoutes(router gin.IRouter, crawl *CrawlController, study *StudyController) {
	api := router.Group("/api/v1")

	api.GET("/crawl", crawl.Trigger)
	api.POST("/crawl", crawl.Trigger)
	api.GET("/crawl/last-crawl", crawl.LastCrawl)

	api.GET("/submissions", study.Submissions)
	api.GET("/stats", study.Stats)
	api.GET("/stats/missed", study.Missed)
	api.POST("/excuse", study.CreateExcuse)
}
