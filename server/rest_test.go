package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/confscope/pkg/domain"
)

type mockService struct {
	state      domain.SettingsState
	loadResult domain.LoadResult
	checkErr   error
	changed    bool

	loads     int
	refreshes int
	seenKeys  []string
	allSeen   bool
}

func (m *mockService) BuildState(context.Context) domain.SettingsState { return m.state }
func (m *mockService) LoadConfiguration(context.Context) domain.LoadResult {
	m.loads++
	return m.loadResult
}
func (m *mockService) RefreshConfiguration(context.Context) domain.LoadResult {
	m.refreshes++
	return m.loadResult
}
func (m *mockService) CheckForRemoteUpdates(context.Context) (bool, error) {
	return m.changed, m.checkErr
}
func (m *mockService) MarkSeen(_ context.Context, keys []string) { m.seenKeys = keys }
func (m *mockService) MarkAllSeen(context.Context)               { m.allSeen = true }

type mockConfig struct{}

func (m *mockConfig) GetServerConfig() (string, time.Duration) { return ":0", 30 * time.Second }

func testServer(t *testing.T, svc SettingsService) *httptest.Server {
	t.Helper()
	s := New(&mockConfig{}, svc, "test", false)
	ts := httptest.NewServer(s.router)
	t.Cleanup(ts.Close)
	return ts
}

func TestServer_StateHandler(t *testing.T) {
	svc := &mockService{state: domain.SettingsState{
		Settings:              map[string]any{"editor.autoSave": true},
		Definitions:           []domain.SettingDefinition{{Key: "editor.autoSave", Type: domain.TypeBoolean, Group: "Editor"}},
		Groups:                []string{"Editor"},
		RecommendationSummary: domain.RecommendationSummary{Total: 1, Matching: 1},
		NewSettingsCount:      1,
		HasNewSettings:        true,
	}}
	ts := testServer(t, svc)

	resp, err := http.Get(ts.URL + "/api/v1/state")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var state domain.SettingsState
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&state))
	assert.Equal(t, []string{"Editor"}, state.Groups)
	assert.True(t, state.HasNewSettings)
	assert.Equal(t, 1, state.RecommendationSummary.Matching)
}

func TestServer_LoadAndRefresh(t *testing.T) {
	svc := &mockService{loadResult: domain.LoadResult{Source: domain.SourceRemote}}
	ts := testServer(t, svc)

	t.Run("load", func(t *testing.T) {
		resp, err := http.Post(ts.URL+"/api/v1/load", "application/json", http.NoBody)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, 1, svc.loads)
	})

	t.Run("refresh", func(t *testing.T) {
		resp, err := http.Post(ts.URL+"/api/v1/refresh", "application/json", http.NoBody)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, 1, svc.refreshes)
	})

	t.Run("load rejects GET", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/api/v1/load")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	})
}

func TestServer_CheckHandler(t *testing.T) {
	t.Run("update available", func(t *testing.T) {
		ts := testServer(t, &mockService{changed: true})
		resp, err := http.Post(ts.URL+"/api/v1/check", "application/json", http.NoBody)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]bool
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.True(t, body["updateAvailable"])
	})

	t.Run("check failure maps to bad gateway", func(t *testing.T) {
		ts := testServer(t, &mockService{checkErr: fmt.Errorf("remote unreachable")})
		resp, err := http.Post(ts.URL+"/api/v1/check", "application/json", http.NoBody)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

		var body map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Contains(t, body["error"], "remote unreachable")
	})
}

func TestServer_MarkSeen(t *testing.T) {
	t.Run("marks given keys", func(t *testing.T) {
		svc := &mockService{}
		ts := testServer(t, svc)

		resp, err := http.Post(ts.URL+"/api/v1/seen", "application/json",
			strings.NewReader(`{"keys":["a.b","c.d"]}`))
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]int
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, 2, body["marked"])
		assert.Equal(t, []string{"a.b", "c.d"}, svc.seenKeys)
	})

	t.Run("empty keys rejected", func(t *testing.T) {
		ts := testServer(t, &mockService{})
		resp, err := http.Post(ts.URL+"/api/v1/seen", "application/json",
			strings.NewReader(`{"keys":[]}`))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("invalid body rejected", func(t *testing.T) {
		ts := testServer(t, &mockService{})
		resp, err := http.Post(ts.URL+"/api/v1/seen", "application/json",
			strings.NewReader(`not json`))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("mark all", func(t *testing.T) {
		svc := &mockService{}
		ts := testServer(t, svc)

		resp, err := http.Post(ts.URL+"/api/v1/seen/all", "application/json", http.NoBody)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.True(t, svc.allSeen)
	})
}

func TestServer_Status(t *testing.T) {
	ts := testServer(t, &mockService{})

	resp, err := http.Get(ts.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "test", body["version"])
}

func TestServer_Ping(t *testing.T) {
	ts := testServer(t, &mockService{})

	resp, err := http.Get(ts.URL + "/ping")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
