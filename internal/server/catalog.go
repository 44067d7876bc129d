package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hamza/scanhub/internal/models"
	"github.com/hamza/scanhub/internal/registry"
	"github.com/hamza/scanhub/internal/scope"
)

func (s *Server) listTools(c *gin.Context) {
	respond(c, http.StatusOK, s.reg.List())
}

func (s *Server) getTool(c *gin.Context) {
	m, err := s.reg.Active(c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, m)
}

func (s *Server) registerTool(c *gin.Context) {
	var m models.ToolManifest
	if err := c.ShouldBindJSON(&m); err != nil {
		respondBadRequest(c, err)
		return
	}
	if err := registry.ValidateManifest(&m); err != nil {
		respondBadRequest(c, err)
		return
	}
	version := s.reg.Register(&m)

	active, err := s.reg.Version(m.Tool, version)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, active)
}

type createScopeRequest struct {
	Name  string   `json:"name" binding:"required"`
	Hosts []string `json:"hosts"`
	CIDRs []string `json:"cidrs"`
}

func (s *Server) listScopes(c *gin.Context) {
	scopes, err := s.store.ListScopes()
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, scopes)
}

func (s *Server) createScope(c *gin.Context) {
	var req createScopeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	sc := models.NewScope(req.Name, req.Hosts, req.CIDRs)
	if err := s.store.SaveScope(sc); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, sc)
}

type checkScopeRequest struct {
	Target string `json:"target" binding:"required"`
}

type checkScopeResponse struct {
	Target     string `json:"target"`
	Authorized bool   `json:"authorized"`
	ScopeID    string `json:"scope_id,omitempty"`
	ScopeName  string `json:"scope_name,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// checkScope reports whether a target would be accepted, without running
// anything. Useful for operators validating engagement boundaries.
func (s *Server) checkScope(c *gin.Context) {
	var req checkScopeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	if err := scope.Sanitize(req.Target); err != nil {
		respond(c, http.StatusOK, checkScopeResponse{Target: req.Target, Reason: err.Error()})
		return
	}

	sc, err := s.runs.ResolveScope(req.Target, "")
	if err != nil {
		respond(c, http.StatusOK, checkScopeResponse{Target: req.Target, Reason: err.Error()})
		return
	}
	respond(c, http.StatusOK, checkScopeResponse{
		Target:     req.Target,
		Authorized: true,
		ScopeID:    sc.ID,
		ScopeName:  sc.Name,
	})
}
