package mongodb

// Option is the options type to configure MongoDB EventStore implementation creation
type Option func(eventStore *EventStore)

// ContextParent sets Context Strategy for EventStore to ParentContextStrategy
func ContextParent() Option {
	return func(eventStore *EventStore) {
		eventStore.cs = NewParentContextStrategy()
	}
}

// ContextTimeout sets Context Strategy for EventStore to TimeoutContextStrategy
func ContextTimeout(options ...TimeoutContextStrategyOption) Option {
	return func(eventStore *EventStore) {
		eventStore.cs = NewTimeoutContextStrategy(options...)
	}
}
