package metrics

import "time"

// NoopMetrics is a no-operation implementation of Recorder
// All methods are empty and do nothing, providing zero overhead when metrics are disabled
type NoopMetrics struct{}

// Ensure NoopMetrics implements Recorder interface at compile time
var _ Recorder = (*NoopMetrics)(nil)

// NewNoopMetrics creates a new no-operation metrics recorder
func NewNoopMetrics() Recorder {
	return &NoopMetrics{}
}

// Task lifecycle - noop implementations
func (n *NoopMetrics) RecordTaskCreated()                                      {}
func (n *NoopMetrics) RecordTaskFinished(status string, d time.Duration)       {}
func (n *NoopMetrics) RecordTasksReaped(count int)                             {}
func (n *NoopMetrics) SetTasksQueued(count int)                                {}

// OAuth flow - noop implementations
func (n *NoopMetrics) RecordOAuthInitiated(provider string)                    {}
func (n *NoopMetrics) RecordOAuthCallback(provider string, success bool)       {}
func (n *NoopMetrics) RecordTokenRefresh(provider string, success bool)        {}
func (n *NoopMetrics) RecordStatusCheck(provider string, valid bool)           {}

// HTTP - noop implementations
func (n *NoopMetrics) RecordHTTPRequest(method, path string, status int, d time.Duration) {}
