package commdev

import (
	"context"
	"sync"
)

// Envelope carries one request from a caller to a port worker and the
// response back. It is completed exactly once.
type Envelope struct {
	DeviceType DeviceType
	DeviceID   int // physical id
	Request    []byte
	Session    uint16

	once     sync.Once
	done     chan struct{}
	response Response
}

// NewEnvelope copies req into a new envelope.
func NewEnvelope(t DeviceType, id int, req []byte, session uint16) *Envelope {
	return &Envelope{
		DeviceType: t,
		DeviceID:   id,
		Request:    append([]byte(nil), req...),
		Session:    session,
		done:       make(chan struct{}),
	}
}

// Complete stores a copy of resp and wakes the waiting caller. Only the first
// call has an effect; it reports whether this call completed the envelope.
func (e *Envelope) Complete(resp Response) bool {
	completed := false
	e.once.Do(func() {
		e.response = append(Response(nil), resp...)
		close(e.done)
		completed = true
	})
	return completed
}

// Done is closed once the envelope is completed.
func (e *Envelope) Done() <-chan struct{} {
	return e.done
}

// Wait blocks until the envelope is completed or ctx ends.
func (e *Envelope) Wait(ctx context.Context) (Response, error) {
	select {
	case <-e.done:
		return e.response, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
