package core

import (
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
)

type EventType string

const (
	EventProposalSubmitted  EventType = "proposal.submitted"
	EventVoteCast           EventType = "proposal.vote_cast"
	EventProposalFinalized  EventType = "proposal.finalized"
	EventQuorumFailure      EventType = "proposal.quorum_failure"
	EventExecutionScheduled EventType = "proposal.scheduled"
	EventProposalExecuted   EventType = "proposal.executed"
	EventDepositCollected   EventType = "deposit.collected"
	EventDepositReturned    EventType = "deposit.returned"
	EventConfigChanged      EventType = "config.changed"
)

type Event struct {
	Type      EventType
	Timestamp time.Time
	Data      any
}

type ProposalSubmittedData struct {
	ID          uint64
	Proposer    common.Address
	Description string
	Deposit     *big.Int
}

type VoteCastData struct {
	ID      uint64
	Voter   common.Address
	Support bool
	Weight  *big.Int
}

type ProposalFinalizedData struct {
	ID       uint64
	Approved bool
}

type QuorumFailureData struct {
	ID         uint64
	TotalVotes *big.Int
	Required   *big.Int
}

type ExecutionScheduledData struct {
	ID  uint64
	Eta int64
}

type ProposalExecutedData struct {
	ID uint64
}

type DepositMovedData struct {
	ID      uint64
	Account common.Address
	Amount  *big.Int
}

type ConfigChangedData struct {
	Param string
	Value string
}

type SubscriberID int

type EventHandlerFunc func(Event)

// EventBus fans committed lifecycle events out to in-process subscribers.
// Delivery is synchronous and in publish order; a terminal outcome event is
// published exactly once per proposal.
type EventBus struct {
	subscribers map[EventType]map[SubscriberID]EventHandlerFunc
	lastSubID   SubscriberID
	published   *prometheus.CounterVec
	lock        sync.RWMutex
}

func NewEventBus(registerer prometheus.Registerer) *EventBus {
	bus := &EventBus{
		subscribers: make(map[EventType]map[SubscriberID]EventHandlerFunc),
		published: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "governance",
				Name:      "events_published_total",
				Help:      "Total lifecycle events published, by type",
			},
			[]string{"type"},
		),
	}
	if registerer != nil {
		registerer.MustRegister(bus.published)
	}
	return bus
}

func (b *EventBus) Subscribe(eventType EventType, handler EventHandlerFunc) SubscriberID {
	b.lock.Lock()
	defer b.lock.Unlock()

	b.lastSubID++
	if b.subscribers[eventType] == nil {
		b.subscribers[eventType] = make(map[SubscriberID]EventHandlerFunc)
	}
	b.subscribers[eventType][b.lastSubID] = handler
	return b.lastSubID
}

func (b *EventBus) Unsubscribe(eventType EventType, id SubscriberID) {
	b.lock.Lock()
	defer b.lock.Unlock()
	delete(b.subscribers[eventType], id)
}

func (b *EventBus) Publish(eventType EventType, data any) {
	evt := Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}

	b.lock.RLock()
	handlers := make([]EventHandlerFunc, 0, len(b.subscribers[eventType]))
	for _, handler := range b.subscribers[eventType] {
		handlers = append(handlers, handler)
	}
	b.lock.RUnlock()

	b.published.WithLabelValues(string(eventType)).Inc()
	for _, handler := range handlers {
		handler(evt)
	}
}

// journal buffers events raised inside one operation so nothing is
// published unless the operation commits.
type journal struct {
	events []Event
}

func (j *journal) emit(eventType EventType, data any) {
	j.events = append(j.events, Event{Type: eventType, Timestamp: time.Now(), Data: data})
}

func (j *journal) publish(bus *EventBus) {
	for _, evt := range j.events {
		bus.Publish(evt.Type, evt.Data)
	}
}
