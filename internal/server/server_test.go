package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/jonathan/learn-overlay/internal/analysis"
	"github.com/jonathan/learn-overlay/internal/config"
	"github.com/jonathan/learn-overlay/internal/keys"
	"github.com/jonathan/learn-overlay/internal/plugin"
	"github.com/jonathan/learn-overlay/internal/server/middleware"
	"github.com/jonathan/learn-overlay/internal/server/ratelimit"
	"github.com/jonathan/learn-overlay/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testOperatorPassword = "operator-pass"

type testServer struct {
	*Server
	handler  http.Handler
	store    *fakeStore
	analyzer *fakeAnalyzer
}

func newTestServer(t *testing.T, rl *ratelimit.Config) *testServer {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(testOperatorPassword), bcrypt.MinCost)
	require.NoError(t, err)

	if rl == nil {
		rl = &ratelimit.Config{Enabled: false}
	}

	store := newFakeStore()
	analyzer := &fakeAnalyzer{}
	s, err := NewWithDeps(Deps{
		Store:     store,
		Analyzer:  analyzer,
		Passwords: &config.PasswordConfig{BcryptCost: bcrypt.MinCost, OperatorHash: string(hash)},
		JWT:       &config.JWTConfig{Secret: "test-secret-0123456789", ExpirationHours: 1, Issuer: config.DefaultJWTIssuer},
		RateLimit: rl,
		Plugin:    plugin.DefaultOptions(),
	})
	require.NoError(t, err)

	return &testServer{Server: s, handler: s.Handler(), store: store, analyzer: analyzer}
}

func (ts *testServer) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	return w
}

func (ts *testServer) token(t *testing.T) string {
	t.Helper()
	w := ts.do(t, http.MethodPost, "/auth/token", types.LoginRequest{Password: testOperatorPassword}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp types.LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Token
}

func (ts *testServer) createProject(t *testing.T, token string, req types.CreateProjectRequest) types.Project {
	t.Helper()
	w := ts.do(t, http.MethodPost, "/projects", req, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var p types.Project
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	return p
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp["error"]
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(t, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
}

func TestLogin(t *testing.T) {
	ts := newTestServer(t, nil)

	t.Run("valid password", func(t *testing.T) {
		token := ts.token(t)
		claims, err := ts.jwtService.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, OperatorID, claims.OperatorID)
	})

	t.Run("wrong password", func(t *testing.T) {
		w := ts.do(t, http.MethodPost, "/auth/token", types.LoginRequest{Password: "nope"}, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "invalid credentials", decodeError(t, w))
	})

	t.Run("missing password", func(t *testing.T) {
		w := ts.do(t, http.MethodPost, "/auth/token", map[string]string{}, "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/auth/token", bytes.NewBufferString("{"))
		w := httptest.NewRecorder()
		ts.handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestOperatorRoutesRequireToken(t *testing.T) {
	ts := newTestServer(t, nil)

	routes := []struct{ method, path string }{
		{http.MethodPost, "/projects"},
		{http.MethodGet, "/projects"},
		{http.MethodGet, "/projects/1"},
		{http.MethodDelete, "/projects/1"},
		{http.MethodPost, "/projects/1/reanalyze"},
		{http.MethodGet, "/projects/1/activity"},
		{http.MethodGet, "/projects/1/plugin.js"},
	}
	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			w := ts.do(t, rt.method, rt.path, nil, "")
			assert.Equal(t, http.StatusUnauthorized, w.Code)

			w = ts.do(t, rt.method, rt.path, nil, "not-a-token")
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
	assert.Zero(t, ts.analyzer.callCount())
}

func TestCreateProject(t *testing.T) {
	ts := newTestServer(t, nil)
	token := ts.token(t)

	p := ts.createProject(t, token, types.CreateProjectRequest{
		Name:      "  Docs Site  ",
		ScrapeURL: "https://example.com",
	})

	assert.Positive(t, p.ID)
	assert.Equal(t, "Docs Site", p.Name)
	assert.True(t, keys.Valid(p.AccessKey), "got key %q", p.AccessKey)
	require.NotNil(t, p.ScrapeURL)
	assert.Equal(t, "https://example.com", *p.ScrapeURL)
	assert.Nil(t, p.RepoURL)
	assert.Equal(t, types.FunctionMap{"main-header": "Top banner"}, p.FunctionMap)
	assert.Equal(t, []string{types.ActivityProjectCreated}, ts.store.actions(p.ID))
}

func TestCreateProject_Rejected(t *testing.T) {
	tests := []struct {
		name   string
		body   any
		status int
	}{
		{"both targets", types.CreateProjectRequest{Name: "x", ScrapeURL: "https://a.example", RepoURL: "https://b.example"}, http.StatusBadRequest},
		{"no target", types.CreateProjectRequest{Name: "x"}, http.StatusBadRequest},
		{"missing name", types.CreateProjectRequest{ScrapeURL: "https://a.example"}, http.StatusBadRequest},
		{"bad url", types.CreateProjectRequest{Name: "x", ScrapeURL: "not a url"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, nil)
			w := ts.do(t, http.MethodPost, "/projects", tt.body, ts.token(t))
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.NotEmpty(t, decodeError(t, w))
			assert.Zero(t, ts.analyzer.callCount(), "no analysis on invalid input")
			assert.Empty(t, ts.store.projects)
		})
	}
}

func TestCreateProject_AnalysisFailure(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.analyzer.err = &analysis.AnalysisError{Stage: analysis.StageExtract, Cause: assert.AnError}

	w := ts.do(t, http.MethodPost, "/projects", types.CreateProjectRequest{Name: "x", ScrapeURL: "https://a.example"}, ts.token(t))
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, decodeError(t, w), "extract")
	assert.Empty(t, ts.store.projects, "nothing persisted on failure")
}

func TestCreateProject_StoreFailureIsHidden(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.store.failCreate = assert.AnError

	w := ts.do(t, http.MethodPost, "/projects", types.CreateProjectRequest{Name: "x", ScrapeURL: "https://a.example"}, ts.token(t))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal server error", decodeError(t, w))
}

func TestLookup(t *testing.T) {
	ts := newTestServer(t, nil)
	p := ts.createProject(t, ts.token(t), types.CreateProjectRequest{Name: "Docs", ScrapeURL: "https://example.com"})

	t.Run("known key", func(t *testing.T) {
		w := ts.do(t, http.MethodGet, "/lookup?key="+p.AccessKey, nil, "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"main-header":"Top banner"}`, w.Body.String())
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("missing key", func(t *testing.T) {
		w := ts.do(t, http.MethodGet, "/lookup", nil, "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.NotEmpty(t, decodeError(t, w))
	})

	t.Run("malformed key", func(t *testing.T) {
		w := ts.do(t, http.MethodGet, "/lookup?key=abc", nil, "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown key", func(t *testing.T) {
		w := ts.do(t, http.MethodGet, "/lookup?key="+keys.MustIssue(), nil, "")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.NotEmpty(t, decodeError(t, w))
	})
}

func TestLookup_Cached(t *testing.T) {
	ts := newTestServer(t, nil)
	p := ts.createProject(t, ts.token(t), types.CreateProjectRequest{Name: "Docs", ScrapeURL: "https://example.com"})

	for i := 0; i < 3; i++ {
		w := ts.do(t, http.MethodGet, "/lookup?key="+p.AccessKey, nil, "")
		require.Equal(t, http.StatusOK, w.Code)
	}
	assert.Equal(t, 1, ts.store.keyLookups)
}

func TestPreflight(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(t, http.MethodOptions, "/lookup", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Content-Type")
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "GET")
}

func TestDeleteProject_KeyStopsResolving(t *testing.T) {
	ts := newTestServer(t, nil)
	token := ts.token(t)
	p := ts.createProject(t, token, types.CreateProjectRequest{Name: "Docs", ScrapeURL: "https://example.com"})

	// warm the cache
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/lookup?key="+p.AccessKey, nil, "").Code)

	path := "/projects/" + strconv.FormatInt(p.ID, 10)
	w := ts.do(t, http.MethodDelete, path, nil, token)
	assert.Equal(t, http.StatusNoContent, w.Code)

	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/lookup?key="+p.AccessKey, nil, "").Code)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, path, nil, token).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodDelete, path, nil, token).Code)
	assert.Empty(t, ts.store.actions(p.ID))
}

func TestReanalyzeProject(t *testing.T) {
	ts := newTestServer(t, nil)
	token := ts.token(t)
	p := ts.createProject(t, token, types.CreateProjectRequest{Name: "Docs", ScrapeURL: "https://example.com"})
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/lookup?key="+p.AccessKey, nil, "").Code)

	ts.analyzer.maps = []types.FunctionMap{{"footer": "Legal links"}}
	w := ts.do(t, http.MethodPost, "/projects/"+strconv.FormatInt(p.ID, 10)+"/reanalyze", nil, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var updated types.Project
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(t, p.AccessKey, updated.AccessKey, "key survives re-analysis")
	assert.Equal(t, types.FunctionMap{"footer": "Legal links"}, updated.FunctionMap)

	w = ts.do(t, http.MethodGet, "/lookup?key="+p.AccessKey, nil, "")
	assert.JSONEq(t, `{"footer":"Legal links"}`, w.Body.String())
	assert.Equal(t, []string{types.ActivityProjectCreated, types.ActivityProjectReanalyzed}, ts.store.actions(p.ID))
}

func TestProjectReads(t *testing.T) {
	ts := newTestServer(t, nil)
	token := ts.token(t)
	a := ts.createProject(t, token, types.CreateProjectRequest{Name: "A", ScrapeURL: "https://a.example"})
	b := ts.createProject(t, token, types.CreateProjectRequest{Name: "B", RepoURL: "https://github.com/acme/b"})

	t.Run("list", func(t *testing.T) {
		w := ts.do(t, http.MethodGet, "/projects", nil, token)
		require.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Projects []types.Project `json:"projects"`
			Count    int             `json:"count"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 2, resp.Count)

		w = ts.do(t, http.MethodGet, "/projects?limit=1&offset=1", nil, token)
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp.Projects, 1)
		assert.Equal(t, a.ID, resp.Projects[0].ID)
	})

	t.Run("bad paging", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/projects?limit=-1", nil, token).Code)
		assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/projects?offset=x", nil, token).Code)
	})

	t.Run("get", func(t *testing.T) {
		w := ts.do(t, http.MethodGet, "/projects/"+strconv.FormatInt(b.ID, 10), nil, token)
		require.Equal(t, http.StatusOK, w.Code)
		var got types.Project
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, types.TargetRepo, got.Kind())
	})

	t.Run("bad id", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/projects/abc", nil, token).Code)
		assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/projects/0", nil, token).Code)
		assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/projects/999", nil, token).Code)
	})

	t.Run("activity", func(t *testing.T) {
		w := ts.do(t, http.MethodGet, "/projects/"+strconv.FormatInt(a.ID, 10)+"/activity", nil, token)
		require.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Activity []types.ActivityRecord `json:"activity"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp.Activity, 1)
		assert.Equal(t, types.ActivityProjectCreated, resp.Activity[0].Action)

		assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/projects/999/activity", nil, token).Code)
	})
}

func TestPluginScripts(t *testing.T) {
	ts := newTestServer(t, nil)
	token := ts.token(t)
	p := ts.createProject(t, token, types.CreateProjectRequest{Name: "Docs", ScrapeURL: "https://example.com"})

	t.Run("fetching variant", func(t *testing.T) {
		w := ts.do(t, http.MethodGet, "/plugin.js?key="+p.AccessKey, nil, "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, javascriptContentType, w.Header().Get("Content-Type"))
		body := w.Body.String()
		assert.Contains(t, body, `"http://example.com/lookup"`)
		assert.Contains(t, body, `"`+p.AccessKey+`"`)
		assert.Contains(t, body, "var EMBEDDED = null;")
	})

	t.Run("fetching variant unknown key", func(t *testing.T) {
		w := ts.do(t, http.MethodGet, "/plugin.js?key="+keys.MustIssue(), nil, "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("public url", func(t *testing.T) {
		ts.publicURL = "https://learn.example.org/"
		defer func() { ts.publicURL = "" }()
		w := ts.do(t, http.MethodGet, "/plugin.js?key="+p.AccessKey, nil, "")
		assert.Contains(t, w.Body.String(), `"https://learn.example.org/lookup"`)
	})

	t.Run("embedded variant", func(t *testing.T) {
		w := ts.do(t, http.MethodGet, "/projects/"+strconv.FormatInt(p.ID, 10)+"/plugin.js", nil, token)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, javascriptContentType, w.Header().Get("Content-Type"))
		assert.Contains(t, w.Body.String(), `var EMBEDDED = {"main-header":"Top banner"};`)
	})
}

func TestRateLimit(t *testing.T) {
	ts := newTestServer(t, &ratelimit.Config{
		Enabled:       true,
		DefaultLimit:  100,
		DefaultWindow: time.Minute,
		EndpointConfigs: []ratelimit.EndpointConfig{
			{Path: "/lookup", Method: "GET", Limit: 1, Window: time.Hour, Burst: 1},
		},
	})

	key := keys.MustIssue()
	first := ts.do(t, http.MethodGet, "/lookup?key="+key, nil, "")
	assert.Equal(t, http.StatusNotFound, first.Code)
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Limit"))

	second := ts.do(t, http.MethodGet, "/lookup?key="+key, nil, "")
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))
	assert.Equal(t, "*", second.Header().Get("Access-Control-Allow-Origin"))

	// preflights are answered before the limiter
	preflight := ts.do(t, http.MethodOptions, "/lookup?key="+key, nil, "")
	assert.Equal(t, http.StatusOK, preflight.Code)
	assert.Equal(t, "*", preflight.Header().Get("Access-Control-Allow-Origin"))

	// health stays unlimited
	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/health", nil, "").Code)
}

func TestNewWithDeps_RequiresCollaborators(t *testing.T) {
	_, err := NewWithDeps(Deps{})
	assert.Error(t, err)

	_, err = NewWithDeps(Deps{Store: newFakeStore(), Analyzer: &fakeAnalyzer{}})
	assert.Error(t, err)
}
