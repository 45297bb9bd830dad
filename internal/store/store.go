package store

import (
	"context"

	"github.com/rendis/flowcanvas/pkg/schema"
)

// Store defines the Flow Store persistence contract.
// All implementations must be safe for concurrent use.
type Store interface {
	// Agents
	CreateAgent(ctx context.Context, a *schema.Agent) error
	GetAgent(ctx context.Context, id string) (*schema.Agent, error)
	UpdateAgent(ctx context.Context, a *schema.Agent) error
	// DeleteAgent removes the agent and every connection referencing it,
	// returning the ids of the removed connections.
	DeleteAgent(ctx context.Context, id string) ([]string, error)
	ListAgents(ctx context.Context) ([]*schema.Agent, error)

	// Connections
	CreateConnection(ctx context.Context, c *schema.Connection) error
	GetConnection(ctx context.Context, id string) (*schema.Connection, error)
	DeleteConnection(ctx context.Context, id string) error
	ListConnections(ctx context.Context) ([]*schema.Connection, error)

	// Scheduled runs
	CreateSchedule(ctx context.Context, s *Schedule) error
	GetSchedule(ctx context.Context, id string) (*Schedule, error)
	UpdateSchedule(ctx context.Context, id string, update ScheduleUpdate) error
	ListSchedules(ctx context.Context, filter ScheduleFilter) ([]*Schedule, error)
	DeleteSchedule(ctx context.Context, id string) error

	// Maintenance
	Migrate(ctx context.Context) error

	// Lifecycle
	Close() error
}
