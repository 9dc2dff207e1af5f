package model

import "math/rand"

// SimContext is the handle every simulated component holds on the discrete
// event loop: the current virtual time, timer registration, and the trial's
// deterministic random source.
type SimContext interface {
	Now() VirtualTime
	SetTimer(expireAt VirtualTime, name string, callback func()) (cancel func())
	Later(name string, callback func()) (cancel func())
	Rand() *rand.Rand
}

type EventSource interface {
	Subscribe(callback func()) (cancel func())
}
