package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	reportingdomain "github.com/ondasul/airtrack/internal/reporting/domain"
)

func (s *Server) ListUnaccounted(c *gin.Context) {
	from, err := parseOptionalTime("from", c.Query("from"), false)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	to, err := parseOptionalTime("to", c.Query("to"), true)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	req := reportingdomain.UnaccountedRequest{
		ProgramType: c.Query("program_type"),
	}
	if from != nil {
		req.From = *from
	}
	if to != nil {
		req.To = *to
	}

	resp, err := s.reportingSvc.ListUnaccounted(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetMonitoringSummary(c *gin.Context) {
	contractID, err := parseSnowflakeID("id", c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	refDate, err := parseOptionalTime("ref_date", c.Query("ref_date"), false)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var at time.Time
	if refDate != nil {
		at = *refDate
	}

	resp, err := s.reportingSvc.GetMonitoringSummary(c.Request.Context(), contractID, at)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) TodaySummary(c *gin.Context) {
	resp, err := s.reportingSvc.TodaySummary(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DashboardStats(c *gin.Context) {
	resp, err := s.reportingSvc.DashboardStats(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
