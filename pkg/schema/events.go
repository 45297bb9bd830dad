package schema

// Event types published by the Flow Store Service on every mutation.
// Consumed by the SSE stream and any in-process subscriber.
const (
	EventAgentCreated      = "agent.created"
	EventAgentUpdated      = "agent.updated"
	EventAgentDeleted      = "agent.deleted"
	EventConnectionCreated = "connection.created"
	EventConnectionDeleted = "connection.deleted"
	EventFlowRan           = "flow.ran"
)
