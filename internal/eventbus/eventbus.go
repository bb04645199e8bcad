package eventbus

// Event represents an arbitrary event passed on the bus.
type Event interface{}

// EventBus implements a simple publish/subscribe event bus.
type EventBus interface {
	Publish(Event)
	Subscribe() <-chan Event
	Unsubscribe(<-chan Event)
	Close()
}

// Bus is the default EventBus implementation using fan-out channels.
type Bus = TypedBus[Event]

// New creates a new Bus.
func New() *Bus { return NewTyped[Event]() }

// NewWithBuffer creates a Bus with n slots per subscriber.
func NewWithBuffer(n int) *Bus { return NewTypedWithBuffer[Event](n) }

var _ EventBus = (*Bus)(nil)
