package mongodb

import (
	"context"
	"time"
)

// ContextStrategy is an interface that represents strategy for providing contexts for running MongoDB requests
type ContextStrategy interface {
	// StoreEvent is the context used for EventStore.StoreEvent() calls
	StoreEvent(parent context.Context) (context.Context, context.CancelFunc)
	// LoadEvents is the context used for EventStore.LoadEntityEvents() calls
	LoadEvents(parent context.Context) (context.Context, context.CancelFunc)
	// CreateIndices is the context used for EnsureIndexes calls
	CreateIndices(parent context.Context) (context.Context, context.CancelFunc)
}

// ParentContextStrategy is the ContextStrategy implementation that always returns the parent context and noop cancel
type ParentContextStrategy struct{}

// NewParentContextStrategy instantiates new ParentContextStrategy
func NewParentContextStrategy() *ParentContextStrategy {
	return &ParentContextStrategy{}
}

// StoreEvent is the context used for EventStore.StoreEvent() calls
func (s *ParentContextStrategy) StoreEvent(parent context.Context) (context.Context, context.CancelFunc) {
	return parent, func() {}
}

// LoadEvents is the context used for EventStore.LoadEntityEvents() calls
func (s *ParentContextStrategy) LoadEvents(parent context.Context) (context.Context, context.CancelFunc) {
	return parent, func() {}
}

// CreateIndices is the context used for EnsureIndexes calls
func (s *ParentContextStrategy) CreateIndices(parent context.Context) (context.Context, context.CancelFunc) {
	return parent, func() {}
}

// TimeoutContextStrategy is the ContextStrategy implementation that returns configurable WithTimeout context and its cancel
type TimeoutContextStrategy struct {
	storeEvent    time.Duration
	loadEvents    time.Duration
	createIndices time.Duration
}

// TimeoutContextStrategyOption is the options type to configure TimeoutContextStrategy creation
type TimeoutContextStrategyOption func(s *TimeoutContextStrategy)

// NewTimeoutContextStrategy instantiates new TimeoutContextStrategy
func NewTimeoutContextStrategy(options ...TimeoutContextStrategyOption) *TimeoutContextStrategy {
	s := &TimeoutContextStrategy{
		storeEvent:    5 * time.Second,
		loadEvents:    30 * time.Second,
		createIndices: 5 * time.Second,
	}

	for _, o := range options {
		o(s)
	}

	return s
}

// StoreEvent is the context used for EventStore.StoreEvent() calls
func (s *TimeoutContextStrategy) StoreEvent(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, s.storeEvent)
}

// LoadEvents is the context used for EventStore.LoadEntityEvents() calls
func (s *TimeoutContextStrategy) LoadEvents(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, s.loadEvents)
}

// CreateIndices is the context used for EnsureIndexes calls
func (s *TimeoutContextStrategy) CreateIndices(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, s.createIndices)
}

// NewStoreEventTimeout is the TimeoutContextStrategy configuration option to set a timeout for StoreEvent call
func NewStoreEventTimeout(timeout time.Duration) TimeoutContextStrategyOption {
	return func(s *TimeoutContextStrategy) {
		s.storeEvent = timeout
	}
}

// NewLoadEventsTimeout is the TimeoutContextStrategy configuration option to set a timeout for LoadEntityEvents call
func NewLoadEventsTimeout(timeout time.Duration) TimeoutContextStrategyOption {
	return func(s *TimeoutContextStrategy) {
		s.loadEvents = timeout
	}
}

// NewCreateIndicesTimeout is the TimeoutContextStrategy configuration option to set a timeout for EnsureIndexes call
func NewCreateIndicesTimeout(timeout time.Duration) TimeoutContextStrategyOption {
	return func(s *TimeoutContextStrategy) {
		s.createIndices = timeout
	}
}
