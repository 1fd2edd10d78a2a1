package server

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/jonathan/learn-overlay/internal/plugin"
	"github.com/jonathan/learn-overlay/internal/types"
)

const javascriptContentType = "application/javascript; charset=utf-8"

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleLookup resolves ?key= to a function map for the plugin runtime.
func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	fm, err := s.projects.Lookup(r.Context(), r.URL.Query().Get("key"))
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, fm)
}

// handlePluginScript serves the fetching plugin variant for ?key=.
func (s *Server) handlePluginScript(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if _, err := s.projects.Lookup(r.Context(), key); err != nil {
		s.serviceError(w, err)
		return
	}

	script, err := plugin.CompileFetching(s.baseURL(r)+"/lookup", key, s.pluginOptions)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.scriptResponse(w, script)
}

// handleLogin handles operator login requests.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	s.authHandler.Login(w, r)
}

// handleCreateProject analyzes and registers a new project
func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req types.CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, extractValidationErrors(err))
		return
	}

	project, err := s.projects.Create(r.Context(), &req)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, project)
}

// handleListProjects returns a page of projects
func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	limit, ok := s.queryInt(w, r, "limit")
	if !ok {
		return
	}
	offset, ok := s.queryInt(w, r, "offset")
	if !ok {
		return
	}

	projects, err := s.projects.List(r.Context(), limit, offset)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	if projects == nil {
		projects = []types.Project{}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"projects": projects,
		"count":    len(projects),
	})
}

// handleGetProject returns one project
func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	id, ok := s.projectID(w, r)
	if !ok {
		return
	}
	project, err := s.projects.Get(r.Context(), id)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, project)
}

// handleDeleteProject removes a project and invalidates its key
func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	id, ok := s.projectID(w, r)
	if !ok {
		return
	}
	if err := s.projects.Delete(r.Context(), id); err != nil {
		s.serviceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleReanalyzeProject regenerates a project's function map
func (s *Server) handleReanalyzeProject(w http.ResponseWriter, r *http.Request) {
	id, ok := s.projectID(w, r)
	if !ok {
		return
	}
	project, err := s.projects.Reanalyze(r.Context(), id)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, project)
}

// handleProjectActivity returns a project's activity log
func (s *Server) handleProjectActivity(w http.ResponseWriter, r *http.Request) {
	id, ok := s.projectID(w, r)
	if !ok {
		return
	}
	limit, ok := s.queryInt(w, r, "limit")
	if !ok {
		return
	}

	records, err := s.projects.Activity(r.Context(), id, limit)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	if records == nil {
		records = []types.ActivityRecord{}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"activity": records,
		"count":    len(records),
	})
}

// handleProjectPlugin serves the embedded plugin variant for a project
func (s *Server) handleProjectPlugin(w http.ResponseWriter, r *http.Request) {
	id, ok := s.projectID(w, r)
	if !ok {
		return
	}
	project, err := s.projects.Get(r.Context(), id)
	if err != nil {
		s.serviceError(w, err)
		return
	}

	script, err := plugin.CompileEmbedded(project.FunctionMap, s.pluginOptions)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.scriptResponse(w, script)
}

// projectID parses the {id} path value, writing a 400 when it is not a positive integer.
func (s *Server) projectID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		s.errorResponse(w, http.StatusBadRequest, "Invalid project ID")
		return 0, false
	}
	return id, true
}

// queryInt parses an optional non-negative integer query parameter.
func (s *Server) queryInt(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		s.errorResponse(w, http.StatusBadRequest, "Invalid "+name+" parameter")
		return 0, false
	}
	return v, true
}

// baseURL is the configured public URL, or the scheme and host the request came in on.
func (s *Server) baseURL(r *http.Request) string {
	if s.publicURL != "" {
		return strings.TrimRight(s.publicURL, "/")
	}
	scheme := "http"
	if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

// serviceError maps a service error to a status and writes it.
func (s *Server) serviceError(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	if status == http.StatusInternalServerError {
		log.Printf("[ERROR] %v", err)
	}
	s.errorResponse(w, status, publicMessage(err, status))
}

func (s *Server) scriptResponse(w http.ResponseWriter, script string) {
	w.Header().Set("Content-Type", javascriptContentType)
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(script)); err != nil {
		log.Printf("Error writing script response: %v", err)
	}
}
