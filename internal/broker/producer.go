package broker

import "context"

// Message is one record handed to the broker. Key selects the partition.
type Message struct {
	Key   string
	Value []byte
}

// Producer submits records to the configured topic.
type Producer interface {
	// Produce submits msgs in one call. It returns once the configured
	// delivery mode considers them accepted, or with an error if any failed.
	Produce(ctx context.Context, msgs ...Message) error

	// Close flushes buffered records and releases broker connections.
	Close() error
}
