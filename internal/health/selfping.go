package health

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"
)

// StartSelfPing requests url every interval. Shut the returned scheduler
// down to stop.
func StartSelfPing(url string, interval time.Duration, client *http.Client) (gocron.Scheduler, error) {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create self-ping scheduler: %w", err)
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			if err := ping(client, url); err != nil {
				log.Warn().Err(err).Str("url", url).Msg("Self-ping failed")
				return
			}
			log.Debug().Str("url", url).Msg("Self-ping ok")
		}),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, fmt.Errorf("failed to schedule self-ping: %w", err)
	}

	sched.Start()
	return sched, nil
}

func ping(client *http.Client, url string) error {
	timeout := client.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
