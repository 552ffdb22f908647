package sync

import (
	"time"

	"github.com/jazbelrose/mylg-chat/tools/errs"
	"github.com/jazbelrose/mylg-chat/tools/retry"
)

// Delivery retry bounds: a send attempted while the channel stays closed is
// tried SendAttempts times at SendInterval spacing, then abandoned.
const (
	SendAttempts = 5
	SendInterval = time.Second
)

// DeliveryPipe pushes locally originated actions over the channel, retrying
// while the channel is not yet ready. A half-open handle is reset before
// each retry so a wedged connection cannot absorb the whole budget.
type DeliveryPipe struct {
	ch     Channel
	policy retry.Policy
}

// NewDeliveryPipe wires the pipe to a channel. A zero-attempt policy selects
// the default bounds.
func NewDeliveryPipe(ch Channel, policy retry.Policy) *DeliveryPipe {
	if policy.Attempts == 0 {
		policy = retry.Fixed(SendAttempts, SendInterval)
	}
	return &DeliveryPipe{ch: ch, policy: policy}
}

// Deliver transmits one payload. On readiness exhaustion it returns
// errs.ErrSendExhausted; the caller decides what happens to the optimistic
// record (it is never dropped here).
func (p *DeliveryPipe) Deliver(payload []byte) error {
	err := p.policy.Run(func(int) error {
		if !p.ch.Ready() {
			_ = p.ch.Reset()
			return errs.ErrChannelNotReady
		}
		return p.ch.Send(payload)
	}, func(err error) bool {
		return errs.IsCode(err, errs.CodeChannelNotReady)
	})
	if errs.IsCode(err, errs.CodeChannelNotReady) {
		return errs.ErrSendExhausted
	}
	return err
}
