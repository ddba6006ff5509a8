package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	playbackdomain "github.com/ondasul/airtrack/internal/playback/domain"
)

func (s *Server) SubmitPlaybackEvent(c *gin.Context) {
	var req playbackdomain.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.playbackSvc.Submit(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.obsMetrics != nil && !resp.AlreadyExisting {
		s.obsMetrics.RecordPlaybackIngest(c.Request.Context(), string(resp.Event.Source))
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreatePlaybackBatch(c *gin.Context) {
	var req playbackdomain.BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.playbackSvc.CreateBatch(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.obsMetrics != nil && resp.Created > 0 {
		s.obsMetrics.RecordPlaybackIngest(c.Request.Context(), string(playbackdomain.SourceManual))
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetPlaybackEventByID(c *gin.Context) {
	id, err := parseSnowflakeID("id", c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.playbackSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListPlaybackEvents(c *gin.Context) {
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

	processed, err := parseOptionalBool("processed", c.Query("processed"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	counted, err := parseOptionalBool("counted", c.Query("counted"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	limit, err := parseOptionalInt64("limit", c.Query("limit"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	offset, err := parseOptionalInt64("offset", c.Query("offset"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	req := playbackdomain.ListRequest{
		Processed:   processed,
		Counted:     counted,
		ReasonCode:  playbackdomain.ReasonCode(c.Query("reason_code")),
		ProgramType: c.Query("program_type"),
	}
	if from != nil {
		req.From = *from
	}
	if to != nil {
		req.To = *to
	}
	if limit != nil {
		req.Limit = int(*limit)
	}
	if offset != nil {
		req.Offset = int(*offset)
	}

	resp, err := s.playbackSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
