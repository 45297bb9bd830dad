package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/flowcanvas/pkg/schema"
)

func TestListAgents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/agents", r.URL.Path)
		json.NewEncoder(w).Encode([]*schema.Agent{{ID: "a1", Name: "Source", Type: "input"}})
	}))
	defer srv.Close()

	agents, err := New(srv.URL).ListAgents(context.Background())
	require.NoError(t, err)
	require.Len(t, agents, 1)
	assert.Equal(t, "a1", agents[0].ID)
}

func TestCreateAgentSendsBodyAndDecodesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var in schema.Agent
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "Source", in.Name)

		in.ID = "assigned-id"
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(&in)
	}))
	defer srv.Close()

	created, err := New(srv.URL).CreateAgent(context.Background(), &schema.Agent{Name: "Source", Type: "input"})
	require.NoError(t, err)
	assert.Equal(t, "assigned-id", created.ID)
}

func TestNon2xxSurfacesUniformMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := New(srv.URL).ListAgents(context.Background())
	require.Error(t, err)

	var fe *schema.FlowError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, schema.ErrCodeRemote, fe.Code)
	assert.Equal(t, "GET /api/agents failed: 500 Internal Server Error", fe.Message)
	assert.Equal(t, http.StatusInternalServerError, fe.Details["status_code"])
}

func TestTransportFailureSurfacesSameShape(t *testing.T) {
	// Point at a server that is already closed.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	err := New(srv.URL).DeleteAgent(context.Background(), "a1")
	require.Error(t, err)

	var fe *schema.FlowError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, schema.ErrCodeRemote, fe.Code)
	assert.Contains(t, fe.Message, "DELETE /api/agents/a1 failed:")
}

func TestDeleteConnectionPath(t *testing.T) {
	var gotPath, gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method
		json.NewEncoder(w).Encode(map[string]string{"id": "c9"})
	}))
	defer srv.Close()

	require.NoError(t, New(srv.URL).DeleteConnection(context.Background(), "c9"))
	assert.Equal(t, "/api/connections/c9", gotPath)
	assert.Equal(t, http.MethodDelete, gotMethod)
}

func TestRunFlowDecodesReport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/flow/run", r.URL.Path)
		json.NewEncoder(w).Encode(&schema.RunReport{
			Message:           "Flow run simulated.",
			ExecutionOrder:    []string{"a", "b"},
			SimulationDetails: []string{"a ran", "b ran"},
		})
	}))
	defer srv.Close()

	report, err := New(srv.URL).RunFlow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, report.ExecutionOrder)
}
