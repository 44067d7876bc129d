package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hamza/scanhub/internal/models"
	"github.com/hamza/scanhub/internal/runs"
)

type launchRunRequest struct {
	Tool    string                 `json:"tool" binding:"required"`
	Target  string                 `json:"target" binding:"required"`
	Params  map[string]interface{} `json:"params"`
	Owner   string                 `json:"owner"`
	ScopeID string                 `json:"scope_id"`
	Timeout int                    `json:"timeout"`
}

// launchRun validates the request synchronously and executes in the
// background; the pending run comes back immediately with 202.
func (s *Server) launchRun(c *gin.Context) {
	var req launchRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	run, err := s.runs.LaunchAsync(runs.LaunchSpec{
		Tool:           req.Tool,
		Target:         req.Target,
		Params:         req.Params,
		Owner:          req.Owner,
		ScopeID:        req.ScopeID,
		TimeoutSeconds: req.Timeout,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusAccepted, run)
}

func (s *Server) listRuns(c *gin.Context) {
	list, err := s.runs.List(c.Query("target"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, list)
}

func (s *Server) getRun(c *gin.Context) {
	run, err := s.runs.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, run)
}

func (s *Server) cancelRun(c *gin.Context) {
	if err := s.runs.Cancel(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	respondMessage(c, http.StatusOK, "cancellation requested")
}

func (s *Server) deleteRun(c *gin.Context) {
	if err := s.runs.Delete(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	respondMessage(c, http.StatusOK, "run deleted")
}

// runEvents streams status events for one run over SSE. Streams opened
// after the run finished replay the snapshot and terminal event so late
// subscribers still converge on the same picture.
func (s *Server) runEvents(c *gin.Context) {
	id := c.Param("id")
	run, err := s.runs.Get(id)
	if err != nil {
		respondError(c, err)
		return
	}

	if run.Status.Terminal() {
		s.replayEvents(c, runTerminalEvents(run))
		return
	}
	s.streamEvents(c, id)
}

func runTerminalEvents(run *models.Run) []models.StatusEvent {
	events := []models.StatusEvent{models.InitEvent(run)}
	if run.Stdout != "" {
		events = append(events, models.OutputChunkEvent(run.Stdout))
	}
	if run.Status == models.RunCompleted {
		events = append(events, models.CompletedEvent(run))
	} else {
		reason := run.Error
		if reason == "" {
			reason = string(run.Status)
		}
		events = append(events, models.FailedEvent(reason))
	}
	return events
}
