package events

import (
	"github.com/rs/zerolog"

	"github.com/cuemby/guildsync/pkg/log"
)

// Requester is anything that can be asked to reconcile soon
type Requester interface {
	RequestSynchronization()
}

// Trigger turns structural workspace events into synchronization requests.
// Role changes request both families because channel grants reference roles.
type Trigger struct {
	broker   *Broker
	roles    Requester
	channels Requester
	sub      Subscriber
	done     chan struct{}
	logger   zerolog.Logger
}

// NewTrigger creates a trigger listening on broker
func NewTrigger(broker *Broker, roles, channels Requester) *Trigger {
	return &Trigger{
		broker:   broker,
		roles:    roles,
		channels: channels,
		done:     make(chan struct{}),
		logger:   log.WithComponent("trigger"),
	}
}

// Start subscribes to the broker and begins forwarding
func (t *Trigger) Start() {
	t.sub = t.broker.Subscribe()
	go t.run()
}

// Stop unsubscribes and waits for the forwarding loop to exit
func (t *Trigger) Stop() {
	if t.sub == nil {
		return
	}
	t.broker.Unsubscribe(t.sub)
	<-t.done
}

func (t *Trigger) run() {
	defer close(t.done)
	for event := range t.sub {
		t.handle(event)
	}
}

func (t *Trigger) handle(event *Event) {
	switch event.Type {
	case EventRoleCreated, EventRoleUpdated, EventRoleDeleted:
		t.roles.RequestSynchronization()
		t.channels.RequestSynchronization()
	case EventCategoryCreated, EventCategoryUpdated, EventCategoryDeleted,
		EventChannelCreated, EventChannelUpdated, EventChannelDeleted:
		t.channels.RequestSynchronization()
	case EventGuildReady:
		t.roles.RequestSynchronization()
		t.channels.RequestSynchronization()
	default:
		return
	}
	t.logger.Debug().
		Str("event", string(event.Type)).
		Str("entity", event.Metadata["name"]).
		Msg("Synchronization requested by workspace event")
}
