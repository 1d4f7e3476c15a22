package controller

import (
	"context"
	"time"

	"dailystudy/internal/study/repository"
	"dailystudy/internal/study/rules"
	"dailystudy/internal/study/service"
	"dailystudy/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

// StudyQuerier answers read-only study questions.
type StudyQuerier interface {
	Today() time.Time
	DaySubmissions(ctx context.Context, date time.Time) (*service.DaySummary, error)
	Stats(ctx context.Context, start, end time.Time) (*service.StatsReport, error)
	MissedDays(ctx context.Context, start, end time.Time) ([]service.MissedDay, error)
}

// ExcuseCreator files manual excuses.
type ExcuseCreator interface {
	CreateExcuse(ctx context.Context, input service.ExcuseInput) (*repository.DailyRecord, error)
}

// StudyController handles submission, stats and excuse endpoints.
type StudyController struct {
	queryService  StudyQuerier
	excuseService ExcuseCreator
}

// NewStudyController creates a new StudyController.
func NewStudyController(queryService StudyQuerier, excuseService ExcuseCreator) *StudyController {
	return &StudyController{queryService: queryService, excuseService: excuseService}
}

// Submissions lists every roster user's records for ?date=, defaulting to today.
func (h *StudyController) Submissions(c *gin.Context) {
	date := h.queryService.Today()
	if raw := c.Query("date"); raw != "" {
		parsed, err := rules.ParseDate(raw)
		if err != nil {
			response.BadRequest(c, "date must be YYYY-MM-DD")
			return
		}
		date = parsed
	}

	summary, err := h.queryService.DaySubmissions(c.Request.Context(), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, summary)
}

// Stats reports missing and paid days per user over ?start=&end=.
func (h *StudyController) Stats(c *gin.Context) {
	start, end, ok := parseRange(c)
	if !ok {
		return
	}
	report, err := h.queryService.Stats(c.Request.Context(), start, end)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, report)
}

// Missed lists user-days without any record over ?start=&end=.
func (h *StudyController) Missed(c *gin.Context) {
	start, end, ok := parseRange(c)
	if !ok {
		return
	}
	missed, err := h.queryService.MissedDays(c.Request.Context(), start, end)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, MissedResponse{Missed: missed})
}

// CreateExcuse files an IMAGE record for a day without submissions.
func (h *StudyController) CreateExcuse(c *gin.Context) {
	var req CreateExcuseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}
	record, err := h.excuseService.CreateExcuse(c.Request.Context(), service.ExcuseInput{
		UserID: req.UserID,
		Date:   req.Date,
		Excuse: req.Excuse,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, record)
}

func parseRange(c *gin.Context) (time.Time, time.Time, bool) {
	rawStart, rawEnd := c.Query("start"), c.Query("end")
	if rawStart == "" || rawEnd == "" {
		response.BadRequest(c, "start and end are required")
		return time.Time{}, time.Time{}, false
	}
	start, err := rules.ParseDate(rawStart)
	if err != nil {
		response.BadRequest(c, "start must be YYYY-MM-DD")
		return time.Time{}, time.Time{}, false
	}
	end, err := rules.ParseDate(rawEnd)
	if err != nil {
		response.BadRequest(c, "end must be YYYY-MM-DD")
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

type CreateExcuseRequest struct {
	UserID string `json:"userId"`
	Date   string `json:"date"`
	Excuse string `json:"excuse"`
}

type MissedResponse struct {
	Missed []service.MissedDay `json:"missed"`
}
