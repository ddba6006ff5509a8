package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	reconciledomain "github.com/ondasul/airtrack/internal/reconcile/domain"
)

// reconcileDefaultWindow bounds an unqualified trigger to the recent past so
// an operator cannot accidentally rescan years of history.
const reconcileDefaultWindow = 48 * time.Hour

func (s *Server) TriggerReconcile(c *gin.Context) {
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

	force, err := parseOptionalBool("force", c.Query("force"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	req := reconciledomain.ReconcileRequest{}
	if to != nil {
		req.To = *to
	} else {
		req.To = s.clock.Now().UTC()
	}
	if from != nil {
		req.From = *from
	} else {
		req.From = req.To.Add(-reconcileDefaultWindow)
	}
	if force != nil {
		req.Force = *force
	}

	resp, err := s.reconcileSvc.Reconcile(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
