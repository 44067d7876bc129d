package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hamza/scanhub/internal/models"
	"github.com/hamza/scanhub/internal/orchestrator"
)

type createScanRequest struct {
	Target    string `json:"target" binding:"required"`
	Objective string `json:"objective" binding:"required"`
	Owner     string `json:"owner"`
	ScopeID   string `json:"scope_id"`

	// Start launches the session immediately after planning. The request
	// still fails with 409 when another session holds the execution slot.
	Start bool `json:"start"`
}

func (s *Server) createScan(c *gin.Context) {
	var req createScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	session, err := s.orch.Create(orchestrator.CreateSpec{
		Target:    req.Target,
		Objective: models.Objective(req.Objective),
		Owner:     req.Owner,
		ScopeID:   req.ScopeID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	if req.Start {
		session, err = s.orch.Start(session.ID)
		if err != nil {
			respondError(c, err)
			return
		}
		respond(c, http.StatusAccepted, session)
		return
	}
	respond(c, http.StatusCreated, session)
}

func (s *Server) startScan(c *gin.Context) {
	session, err := s.orch.Start(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusAccepted, session)
}

func (s *Server) listScans(c *gin.Context) {
	list, err := s.orch.List()
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, list)
}

func (s *Server) getScan(c *gin.Context) {
	session, err := s.orch.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, session)
}

func (s *Server) cancelScan(c *gin.Context) {
	if err := s.orch.Cancel(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	respondMessage(c, http.StatusOK, "cancellation requested")
}

func (s *Server) deleteScan(c *gin.Context) {
	if err := s.orch.Delete(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	respondMessage(c, http.StatusOK, "session deleted")
}

// scanEvents streams session status events over SSE, replaying terminal
// sessions from their stored snapshot.
func (s *Server) scanEvents(c *gin.Context) {
	id := c.Param("id")
	session, err := s.orch.Get(id)
	if err != nil {
		respondError(c, err)
		return
	}

	if session.Status.Terminal() {
		s.replayEvents(c, sessionTerminalEvents(session))
		return
	}
	s.streamEvents(c, id)
}

func sessionTerminalEvents(session *models.SmartScanSession) []models.StatusEvent {
	events := []models.StatusEvent{models.InitEvent(session)}
	if session.Status == models.SessionCompleted {
		events = append(events, models.CompletedEvent(session))
	} else {
		reason := session.Error
		if reason == "" {
			reason = string(session.Status)
		}
		events = append(events, models.FailedEvent(reason))
	}
	return events
}
