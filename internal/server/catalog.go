package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	catalogdomain "github.com/ondasul/airtrack/internal/catalog/domain"
)

func (s *Server) RegisterAudioFile(c *gin.Context) {
	var req catalogdomain.RegisterFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.catalogSvc.Register(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListAudioFiles(c *gin.Context) {
	clientID, err := parseOptionalSnowflakeID("client_id", c.Query("client_id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	activeOnly, err := parseOptionalBool("active_only", c.Query("active_only"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	req := catalogdomain.ListFileRequest{}
	if clientID != nil {
		req.ClientID = *clientID
	}
	if activeOnly != nil {
		req.ActiveOnly = *activeOnly
	}

	resp, err := s.catalogSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetAudioFileByID(c *gin.Context) {
	id, err := parseSnowflakeID("id", c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.catalogSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) SetAudioFileActive(c *gin.Context) {
	id, err := parseSnowflakeID("id", c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req struct {
		Active *bool `json:"active"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Active == nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.catalogSvc.SetActive(c.Request.Context(), id, *req.Active)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
