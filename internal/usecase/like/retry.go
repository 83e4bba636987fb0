package like

import (
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Guyuepp/artfeed/domain"
)

// RetryPolicy decides how failed flushes are retried.
type RetryPolicy struct {
	// MaxAttempts is the number of consecutive failures after which the
	// failing actions are dead-lettered. Zero or less retries forever.
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration

	// OnExhausted receives the actions dropped after MaxAttempts failures.
	OnExhausted func(actions []domain.PendingLikeAction, err error)
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 10,
		BaseDelay:   time.Second,
		MaxDelay:    5 * time.Minute,
		OnExhausted: logExhausted,
	}
}

// Backoff returns the wait before the next attempt after n consecutive failures
func (p RetryPolicy) Backoff(n int) time.Duration {
	if n <= 0 || p.BaseDelay <= 0 {
		return 0
	}
	d := p.BaseDelay
	for i := 1; i < n; i++ {
		if d > math.MaxInt64/2 {
			return d
		}
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

func (p RetryPolicy) exhausted(failures int) bool {
	return p.MaxAttempts > 0 && failures >= p.MaxAttempts
}

func logExhausted(actions []domain.PendingLikeAction, err error) {
	for _, a := range actions {
		logrus.WithFields(logrus.Fields{
			"user_id": a.UserID,
			"post_id": a.PostID,
			"action":  a.Action.String(),
		}).Errorf("dropping like action after repeated flush failures: %v", err)
	}
}
