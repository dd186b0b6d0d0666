package project

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siteshift/siteshift/internal/auth"
	"github.com/siteshift/siteshift/internal/document"
	"github.com/siteshift/siteshift/internal/engine"
	"github.com/siteshift/siteshift/internal/errors"
	"github.com/siteshift/siteshift/internal/geom"
	"github.com/siteshift/siteshift/internal/store"
)

type recordingNotifier struct {
	mu      sync.Mutex
	dirty   []document.DirtyEvent
	results []string
}

func (n *recordingNotifier) PublishDirty(ev document.DirtyEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.dirty = append(n.dirty, ev)
}

func (n *recordingNotifier) PublishResult(_, requestID string, res *engine.Result) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.results = append(n.results, requestID+":"+string(res.State))
}

type fixture struct {
	srv      *httptest.Server
	service  *Service
	store    *store.FileStore
	notifier *recordingNotifier
	token    string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st, err := store.NewFileStore(t.TempDir(), store.CodecJSON)
	require.NoError(t, err)
	n := &recordingNotifier{}
	svc := NewService(st, n)

	authSvc := auth.NewService("test-secret")
	token, err := authSvc.IssueToken("surveyor", time.Hour)
	require.NoError(t, err)

	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.Use(authSvc.AuthMiddleware)
	NewHandler(svc).Routes(api)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &fixture{srv: srv, service: svc, store: st, notifier: n, token: token}
}

func (f *fixture) do(t *testing.T, method, path, contentType, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, f.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+f.token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

type resultBody struct {
	State    string         `json:"state"`
	Version  int            `json:"version"`
	Counts   map[string]int `json:"counts"`
	Failure  *engine.Failure
	Violates []any `json:"violations"`
}

func (f *fixture) sample(t *testing.T) *document.Snapshot {
	t.Helper()
	resp := f.do(t, http.MethodPost, "/api/documents/sample", "", "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[*document.Snapshot](t, resp)
}

func TestRequiresToken(t *testing.T) {
	f := newFixture(t)
	resp, err := http.Get(f.srv.URL + "/api/documents")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCreateListGet(t *testing.T) {
	f := newFixture(t)
	snap := f.sample(t)
	assert.NotEmpty(t, snap.ID)
	assert.Equal(t, 1, snap.Version)

	resp := f.do(t, http.MethodGet, "/api/documents", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[[]Summary](t, resp)
	require.Len(t, list, 1)
	assert.Equal(t, snap.ID, list[0].ID)
	assert.Equal(t, len(snap.Entities), list[0].Entities)
	assert.True(t, list[0].Open)

	resp = f.do(t, http.MethodGet, "/api/documents/"+snap.ID, "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[*document.Snapshot](t, resp)
	assert.Len(t, got.Entities, len(snap.Entities))

	resp = f.do(t, http.MethodGet, "/api/documents/"+snap.ID+"/entities/"+snap.Entities[0].ID, "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	ent := decode[*document.Entity](t, resp)
	assert.Equal(t, snap.Entities[0].Name, ent.Name)

	resp = f.do(t, http.MethodGet, "/api/documents/doc_missing", "", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/api/documents/"+snap.ID+"/entities/nope", "", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateRejectsBadDocuments(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodPost, "/api/documents", "application/json", "{not json")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	dup := `{"name":"dup","entities":[{"id":"a","kind":"point","point":{"position":[0,0,0]}},{"id":"a","kind":"point","point":{"position":[1,0,0]}}]}`
	resp = f.do(t, http.MethodPost, "/api/documents", "application/json", dup)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	ok := `{"id":"doc_plain","name":"plain","entities":[{"id":"a","kind":"point","point":{"position":[0,0,0]}}]}`
	resp = f.do(t, http.MethodPost, "/api/documents", "application/json", ok)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/api/documents", "application/json", ok)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "IDs are unique")
}

func TestTransformCommitsAndPersists(t *testing.T) {
	f := newFixture(t)
	snap := f.sample(t)

	job := `{"name":"rotate doors","rotation":{"degrees":90},"filter":{"categories":["Doors"]}}`
	req, err := http.NewRequest(http.MethodPost, f.srv.URL+"/api/documents/"+snap.ID+"/transform", strings.NewReader(job))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+f.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", "req-1")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	res := decode[resultBody](t, resp)
	assert.Equal(t, "committed", res.State)
	assert.Equal(t, 2, res.Counts["point"])
	assert.Equal(t, 4, res.Counts["curve"])

	stored, err := f.store.Load(context.Background(), snap.ID)
	require.NoError(t, err)
	assert.Equal(t, res.Version, stored.Version)
	assert.Greater(t, stored.Version, snap.Version)

	var door *document.Entity
	for _, e := range stored.Entities {
		if e.Category == "Doors" {
			door = e
		}
	}
	require.NotNil(t, door)
	// (5,0,0) turned 90° about the origin then moved by the default (50,50,0).
	assert.InDelta(t, 50, door.Point.Position.X(), 1e-9)
	assert.InDelta(t, 55, door.Point.Position.Y(), 1e-9)

	f.notifier.mu.Lock()
	defer f.notifier.mu.Unlock()
	assert.Equal(t, []string{"req-1:committed"}, f.notifier.results)
	require.NotEmpty(t, f.notifier.dirty)
	assert.Equal(t, "rotate doors", f.notifier.dirty[0].Scope)
}

func TestTransformFromYAML(t *testing.T) {
	f := newFixture(t)
	snap := f.sample(t)

	job := "rotation:\n  degrees: 0\ntranslation: [1, 0, 0]\nfilter:\n  categories: [Windows]\n"
	resp := f.do(t, http.MethodPost, "/api/documents/"+snap.ID+"/transform", "application/yaml", job)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	res := decode[resultBody](t, resp)
	assert.Equal(t, "committed", res.State)
}

func TestTransformRollsBack(t *testing.T) {
	f := newFixture(t)
	snap := f.sample(t)

	resp := f.do(t, http.MethodPost, "/api/documents/"+snap.ID+"/transform", "application/json",
		`{"rotation":{"degrees":45},"candidates":["missing"]}`)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	res := decode[resultBody](t, resp)
	assert.Equal(t, "rolledBack", res.State)
	require.NotNil(t, res.Failure)
	assert.Equal(t, errors.ErrCodeNotFound, res.Failure.Code)

	stored, err := f.store.Load(context.Background(), snap.ID)
	require.NoError(t, err)
	assert.Equal(t, snap.Version, stored.Version, "nothing persisted")

	resp = f.do(t, http.MethodPost, "/api/documents/"+snap.ID+"/transform", "application/json",
		`{"rotation":{"degrees":45,"axis":[0,0,0]}}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "malformed transform never reaches the engine")

	resp = f.do(t, http.MethodPost, "/api/documents/doc_missing/transform", "application/json", `{}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestInspect(t *testing.T) {
	f := newFixture(t)
	snap := f.sample(t)

	resp := f.do(t, http.MethodGet, "/api/documents/"+snap.ID+"/inspect?category=Doors", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var reports []struct {
		Category    string  `json:"category"`
		FacingAngle float64 `json:"facingAngle"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&reports))
	require.Len(t, reports, 1)
	assert.Equal(t, "Doors", reports[0].Category)
	assert.InDelta(t, -90, reports[0].FacingAngle, 1e-9)
}

func TestDiagnose(t *testing.T) {
	f := newFixture(t)
	resp := f.do(t, http.MethodPost, "/api/diagnose", "application/toml",
		"translation = [0.0, 0.0, 0.0]\nprobe = [1.0, 0.0, 0.0]\n[rotation]\ndegrees = 90.0\n")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	d := decode[geom.Diagnostics](t, resp)
	assert.InDelta(t, 0, d.Image.X(), 1e-9)
	assert.InDelta(t, 1, d.Image.Y(), 1e-9)
	assert.InDelta(t, 1, d.Determinant, 1e-9)
	assert.False(t, d.TranslationOnly)
}

func TestReopenFromStore(t *testing.T) {
	f := newFixture(t)
	snap := f.sample(t)

	fresh := NewService(f.store, nil)
	got, err := fresh.Snapshot(context.Background(), snap.ID)
	require.NoError(t, err)
	assert.Equal(t, snap.Version, got.Version)

	res, err := fresh.Transform(context.Background(), snap.ID, "", engine.Request{
		Transform: geom.Translation(geom.V(0, 0, 3)),
		Filter:    &document.Filter{},
	})
	require.NoError(t, err)
	assert.True(t, res.Committed())
}

func TestStatusOf(t *testing.T) {
	cases := map[errors.Code]int{
		errors.ErrCodeNotFound:                 http.StatusNotFound,
		errors.ErrCodeMalformedTransform:       http.StatusBadRequest,
		errors.ErrCodeScopeActive:              http.StatusConflict,
		errors.ErrCodeRelationshipCycle:        http.StatusUnprocessableEntity,
		errors.ErrCodeOrientationDecomposition: http.StatusUnprocessableEntity,
		errors.ErrCodeCancelled:                http.StatusServiceUnavailable,
		"":                                     http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, statusOf(code), code)
	}
}
