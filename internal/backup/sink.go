package backup

import "context"

// Sink stores one encoded backup under name
type Sink interface {
	Name() string
	Put(ctx context.Context, name string, data []byte) error
}

// SinkResult is the outcome of one sink in a run
type SinkResult struct {
	Sink     string `json:"sink"`
	Object   string `json:"object"`
	Bytes    int    `json:"bytes"`
	Duration string `json:"duration"`
	Error    string `json:"error,omitempty"`
}
