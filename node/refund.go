package node

import (
	"context"
	"time"

	"etomic.dev/swap/swap"

	"github.com/cenkalti/backoff/v4"
)

// RefundPolicy controls how RefundWhenExpired paces its attempts.
type RefundPolicy struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	// MaxWait bounds the total time spent retrying. Zero uses the node's
	// refund_max_wait_seconds.
	MaxWait time.Duration
}

var DefaultRefundPolicy = RefundPolicy{
	InitialInterval: 2 * time.Second,
	MaxInterval:     time.Minute,
}

// RefundWhenExpired submits a SenderRefund for t and retries while the
// engine reports that the lock time has not passed. Any other rejection
// ends the loop immediately.
func (n *Node) RefundWhenExpired(ctx context.Context, key *Key, t SwapTerms, policy RefundPolicy) (*swap.Effect, error) {
	b := backoff.NewExponentialBackOff()
	if policy.InitialInterval > 0 {
		b.InitialInterval = policy.InitialInterval
	}
	if policy.MaxInterval > 0 {
		b.MaxInterval = policy.MaxInterval
	}
	b.MaxElapsedTime = policy.MaxWait
	if b.MaxElapsedTime == 0 {
		b.MaxElapsedTime = time.Duration(n.cfg.RefundMaxWaitSeconds) * time.Second // #nosec G115 -- validated config value.
	}

	var eff *swap.Effect
	err := backoff.RetryNotify(func() error {
		e, err := n.Refund(key, t)
		if err != nil {
			if swap.IsRetriable(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		eff = e
		return nil
	}, backoff.WithContext(b, ctx), func(e error, d time.Duration) {
		n.log.Debugf("Refund for lock_time=%d not yet possible, retrying in %v", t.LockTime, d)
	})
	if err != nil {
		return nil, err
	}
	return eff, nil
}
