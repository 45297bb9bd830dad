package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/flowcanvas/pkg/schema"
)

func testAgent(id string) *schema.Agent {
	return &schema.Agent{ID: id, Name: "Agent " + id, Type: schema.AgentTypeProcessing, Config: map[string]string{}}
}

func testConn(id, source, target string) *schema.Connection {
	return &schema.Connection{
		ID: id, SourceAgentID: source, TargetAgentID: target,
		SourcePort: schema.PortOutput, TargetPort: schema.PortInput,
	}
}

func errCode(t *testing.T, err error) string {
	t.Helper()
	var fe *schema.FlowError
	require.True(t, errors.As(err, &fe))
	return fe.Code
}

func TestAgentCRUD(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.CreateAgent(ctx, testAgent("a")))
	assert.Equal(t, schema.ErrCodeConflict, errCode(t, s.CreateAgent(ctx, testAgent("a"))))

	got, err := s.GetAgent(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "Agent a", got.Name)

	got.Name = "Renamed"
	require.NoError(t, s.UpdateAgent(ctx, got))
	got2, err := s.GetAgent(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got2.Name)

	_, err = s.GetAgent(ctx, "missing")
	assert.Equal(t, schema.ErrCodeNotFound, errCode(t, err))
	assert.Equal(t, schema.ErrCodeNotFound, errCode(t, s.UpdateAgent(ctx, testAgent("missing"))))
}

func TestGetAgentReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.CreateAgent(ctx, testAgent("a")))

	got, err := s.GetAgent(ctx, "a")
	require.NoError(t, err)
	got.Name = "mutated"
	got.Config["k"] = "v"

	fresh, err := s.GetAgent(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "Agent a", fresh.Name)
	assert.Empty(t, fresh.Config)
}

func TestDeleteAgentCascades(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.CreateAgent(ctx, testAgent("a")))
	require.NoError(t, s.CreateAgent(ctx, testAgent("b")))
	require.NoError(t, s.CreateAgent(ctx, testAgent("c")))
	require.NoError(t, s.CreateConnection(ctx, testConn("c1", "a", "b")))
	require.NoError(t, s.CreateConnection(ctx, testConn("c2", "b", "c")))
	require.NoError(t, s.CreateConnection(ctx, testConn("c3", "a", "c")))

	removed, err := s.DeleteAgent(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, []string{"c1", "c2"}, removed)

	conns, err := s.ListConnections(ctx)
	require.NoError(t, err)
	require.Len(t, conns, 1)
	assert.Equal(t, "c3", conns[0].ID)

	_, err = s.DeleteAgent(ctx, "b")
	assert.Equal(t, schema.ErrCodeNotFound, errCode(t, err))
}

func TestCreateConnectionRequiresBothAgents(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.CreateAgent(ctx, testAgent("a")))

	err := s.CreateConnection(ctx, testConn("c1", "a", "ghost"))
	assert.Equal(t, schema.ErrCodeNotFound, errCode(t, err))

	err = s.CreateConnection(ctx, testConn("c1", "ghost", "a"))
	assert.Equal(t, schema.ErrCodeNotFound, errCode(t, err))
}

func TestScheduleCRUD(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.CreateSchedule(ctx, &Schedule{ID: "s1", CronExpression: "*/5 * * * *", Enabled: true}))
	require.NoError(t, s.CreateSchedule(ctx, &Schedule{ID: "s2", CronExpression: "0 0 * * *", Enabled: false}))

	got, err := s.GetSchedule(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, got.CreatedAt.IsZero(), "created_at defaulted")

	now := time.Now().UTC()
	enabled := false
	require.NoError(t, s.UpdateSchedule(ctx, "s1", ScheduleUpdate{
		Enabled:       &enabled,
		LastRunAt:     &now,
		LastRunStatus: "success",
	}))

	got, err = s.GetSchedule(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, got.Enabled)
	assert.Equal(t, "success", got.LastRunStatus)
	require.NotNil(t, got.LastRunAt)

	onlyEnabled := true
	list, err := s.ListSchedules(ctx, ScheduleFilter{Enabled: &onlyEnabled})
	require.NoError(t, err)
	assert.Empty(t, list)

	require.NoError(t, s.DeleteSchedule(ctx, "s1"))
	_, err = s.GetSchedule(ctx, "s1")
	assert.Equal(t, schema.ErrCodeNotFound, errCode(t, err))
}
