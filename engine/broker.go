package engine

import "time"

type (
	// Broker carries messages from the player to the model. The player runs
	// on the transport's goroutines and never blocks on the model: if the
	// channel is full, playhead updates are dropped. The model detects the end
	// of playback also by polling Player.Active, so a lost completion message
	// is not fatal.
	Broker struct {
		ToModel chan MsgToModel
	}

	// MsgToModel is a message sent by the player. Session identifies the
	// playback session that produced it; the model ignores messages of any
	// session other than the current one.
	MsgToModel struct {
		Session   int
		Kind      MsgKind
		Index     int
		Frequency float64
	}

	MsgKind int
)

const (
	MsgPlayhead MsgKind = iota
	MsgFinished
)

func NewBroker() *Broker {
	return &Broker{
		ToModel: make(chan MsgToModel, 1024),
	}
}

// TrySend is a helper function to send a value to a channel if it is not full.
// It is guaranteed to be non-blocking. Return true if the value was sent, false
// otherwise.
func TrySend[T any](c chan<- T, v T) bool {
	select {
	case c <- v:
	default:
		return false
	}
	return true
}

// TimeoutReceive is a helper function to block until a value is received from a
// channel, or timing out after t. ok will be false if the timeout occurred or
// if the channel is closed.
func TimeoutReceive[T any](c <-chan T, t time.Duration) (v T, ok bool) {
	select {
	case v, ok = <-c:
		return v, ok
	case <-time.After(t):
		return v, false
	}
}
