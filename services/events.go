package services

// EventPublisher receives lifecycle events for the operational feed.
// Implementations must not block the calling workflow.
type EventPublisher interface {
	Publish(event string, fields map[string]any)
}
