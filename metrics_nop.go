package cqrs

import "time"

// NopMetrics is a no-op Metrics used when a metrics with the value `nil` is passed
var NopMetrics Metrics = &nopMetrics{}

type nopMetrics struct{}

func (nm *nopMetrics) CommandDispatched(string, bool, time.Duration) {}
func (nm *nopMetrics) EventPublished(string, bool, time.Duration)    {}
func (nm *nopMetrics) EventReceived(string, bool)                    {}
func (nm *nopMetrics) EventHandled(string, bool, time.Duration)      {}
func (nm *nopMetrics) ConsumerReconnected(string, bool)              {}
