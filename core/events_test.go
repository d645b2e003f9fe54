package core

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
)

func TestEventBusSubscribe(t *testing.T) {
	bus := NewEventBus(prometheus.NewRegistry())

	var got []Event
	id := bus.Subscribe(EventVoteCast, func(evt Event) {
		got = append(got, evt)
	})

	bus.Publish(EventVoteCast, VoteCastData{ID: 1, Support: true})
	bus.Publish(EventProposalSubmitted, ProposalSubmittedData{ID: 1})

	assert.Len(t, got, 1)
	assert.Equal(t, EventVoteCast, got[0].Type)
	assert.True(t, got[0].Data.(VoteCastData).Support)

	bus.Unsubscribe(EventVoteCast, id)
	bus.Publish(EventVoteCast, VoteCastData{ID: 2})
	assert.Len(t, got, 1)
}

func TestJournalPublishesInOrder(t *testing.T) {
	bus := NewEventBus(nil)

	var order []EventType
	for _, eventType := range []EventType{EventDepositCollected, EventProposalSubmitted} {
		bus.Subscribe(eventType, func(evt Event) {
			order = append(order, evt.Type)
		})
	}

	j := &journal{}
	j.emit(EventDepositCollected, DepositMovedData{ID: 1})
	j.emit(EventProposalSubmitted, ProposalSubmittedData{ID: 1})

	// nothing reaches subscribers until the operation commits
	assert.Empty(t, order)

	j.publish(bus)
	assert.Equal(t, []EventType{EventDepositCollected, EventProposalSubmitted}, order)
}
