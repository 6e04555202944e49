package model

import "fmt"

// Result is the uniform envelope every caller-facing operation returns.
// Failures are reported as values, never as panics or errors.
type Result struct {
	Success bool   `json:"success" yaml:"success"`
	Message string `json:"message" yaml:"message"`
	Data    any    `json:"data,omitempty" yaml:"data,omitempty"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`
}

func OK(message string, data any) Result {
	return Result{Success: true, Message: message, Data: data}
}

func Fail(message string, err error) Result {
	r := Result{Message: message}
	if err != nil {
		r.Error = err.Error()
	}
	return r
}

// SyncResult is the outcome of synchronizing one subscriber. On success
// exactly one of Created and Updated is 1.
type SyncResult struct {
	Success  bool     `json:"success" yaml:"success"`
	Message  string   `json:"message" yaml:"message"`
	Username string   `json:"username,omitempty" yaml:"username,omitempty"`
	Profile  string   `json:"profile,omitempty" yaml:"profile,omitempty"`
	Created  int      `json:"created" yaml:"created"`
	Updated  int      `json:"updated" yaml:"updated"`
	Errors   []string `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// Envelope converts the result to the uniform caller envelope.
func (r SyncResult) Envelope() Result {
	out := Result{Success: r.Success, Message: r.Message, Data: r}
	if len(r.Errors) > 0 {
		out.Error = r.Errors[0]
	}
	return out
}

// SubscriberOutcome attributes one SyncResult to its subscriber.
type SubscriberOutcome struct {
	SubscriberID string     `json:"subscriber_id" yaml:"subscriber_id"`
	Result       SyncResult `json:"result" yaml:"result"`
}

// BatchResult aggregates a SyncMany run. Outcomes keep input order.
type BatchResult struct {
	Attempted int                 `json:"attempted" yaml:"attempted"`
	Created   int                 `json:"created" yaml:"created"`
	Updated   int                 `json:"updated" yaml:"updated"`
	Failed    int                 `json:"failed" yaml:"failed"`
	Errors    []string            `json:"errors,omitempty" yaml:"errors,omitempty"`
	Outcomes  []SubscriberOutcome `json:"outcomes" yaml:"outcomes"`
}

func (b BatchResult) Envelope() Result {
	out := Result{
		Success: b.Failed == 0,
		Message: batchMessage(b),
		Data:    b,
	}
	if b.Failed > 0 {
		out.Error = b.Errors[0]
	}
	return out
}

func batchMessage(b BatchResult) string {
	return fmt.Sprintf("synced %d subscribers: %d created, %d updated, %d failed",
		b.Attempted, b.Created, b.Updated, b.Failed)
}
