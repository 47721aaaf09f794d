package checkout

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// poll runs op until it succeeds or attempts are used up, sleeping delay
// between tries. It returns op's last error on exhaustion.
func poll(ctx context.Context, attempts uint, delay time.Duration, op func() error) error {
	_, err := backoff.Retry(ctx,
		func() (struct{}, error) {
			return struct{}{}, op()
		},
		backoff.WithBackOff(backoff.NewConstantBackOff(delay)),
		backoff.WithMaxTries(attempts),
		backoff.WithMaxElapsedTime(0),
	)
	return err
}
