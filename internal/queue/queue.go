package queue

import "context"

const (
	// PipelineQueue carries one message per ingested lead; consumers run the
	// scrape->draft->enqueue pipeline for that lead.
	PipelineQueue = "lead.pipeline"

	// PipelineDLQ receives pipeline messages rejected as unparseable.
	PipelineDLQ = "dlq.lead.pipeline"
)

// Publisher publishes lead pipeline messages to a queue.
type Publisher interface {
	Publish(ctx context.Context, queue string, msg LeadMessage) error
	Close() error
}

// MessageHandler handles a consumed queue message.
type MessageHandler func(ctx context.Context, msg LeadMessage) error

// Consumer consumes lead pipeline messages from a queue.
type Consumer interface {
	Consume(ctx context.Context, queue string, handler MessageHandler) error
	Close() error
}
