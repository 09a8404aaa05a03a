package mongodb

import (
	"math/rand"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("MongoDB Event Store Context Parent", func() {
	Describe("when I use ContextParent option", func() {
		es := NewEventStore(nil, nil, ContextParent())

		It("should have ParentContextStrategy context strategy", func() {
			Expect(es.cs).Should(BeAssignableToTypeOf(NewParentContextStrategy()))
		})
	})

	Describe("when I use no option", func() {
		es := NewEventStore(nil, nil)

		It("should default to ParentContextStrategy context strategy", func() {
			Expect(es.cs).Should(BeAssignableToTypeOf(NewParentContextStrategy()))
		})
	})
})

var _ = Describe("MongoDB Event Store Context Timeout", func() {
	Describe("when I use ContextTimeout option", func() {
		es := NewEventStore(nil, nil, ContextTimeout())

		It("should have TimeoutContextStrategy context strategy with some predefined values", func() {
			Expect(es.cs).Should(BeAssignableToTypeOf(NewTimeoutContextStrategy()))

			csTimeout, _ := es.cs.(*TimeoutContextStrategy)
			Expect(csTimeout.storeEvent).Should(BeNumerically(">", 0))
			Expect(csTimeout.loadEvents).Should(BeNumerically(">", 0))
			Expect(csTimeout.createIndices).Should(BeNumerically(">", 0))
		})
	})

	Describe("when I use ContextTimeout option with creation options", func() {
		storeEvent := rand.Int63()
		loadEvents := rand.Int63()
		createIndices := rand.Int63()

		es := NewEventStore(nil, nil, ContextTimeout(
			NewStoreEventTimeout(time.Duration(storeEvent)),
			NewLoadEventsTimeout(time.Duration(loadEvents)),
			NewCreateIndicesTimeout(time.Duration(createIndices)),
		))

		It("should have all the timeouts set respectively", func() {
			Expect(es.cs).Should(BeAssignableToTypeOf(NewTimeoutContextStrategy()))

			csTimeout, _ := es.cs.(*TimeoutContextStrategy)
			Expect(csTimeout.storeEvent).Should(BeEquivalentTo(storeEvent))
			Expect(csTimeout.loadEvents).Should(BeEquivalentTo(loadEvents))
			Expect(csTimeout.createIndices).Should(BeEquivalentTo(createIndices))
		})
	})
})
