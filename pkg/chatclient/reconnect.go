package chatclient

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ReconnectPolicy controls redialing after the connection drops on its own.
// A deliberate Disconnect or a normal close from the server never triggers it.
type ReconnectPolicy struct {
	Enabled         bool
	InitialInterval time.Duration
	MaxInterval     time.Duration
	// MaxElapsedTime bounds one reconnect episode. Zero retries until
	// Disconnect is called.
	MaxElapsedTime time.Duration
}

func DefaultReconnectPolicy() ReconnectPolicy {
	return ReconnectPolicy{
		Enabled:         true,
		InitialInterval: 5 * time.Second,
		MaxInterval:     time.Minute,
	}
}

func (p ReconnectPolicy) backOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}
	b.MaxElapsedTime = p.MaxElapsedTime
	b.Reset()
	return b
}
