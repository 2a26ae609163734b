package featureflags

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sidd-007/eppo-go/pkg/evalconfig"
)

// poller periodically fetches a configuration document over HTTP and
// publishes it to a snapshotHolder. Fetch failures are logged and
// retried on the next tick; they never tear down an already-published
// snapshot, so evaluation keeps working against the last good config.
type poller struct {
	httpClient *http.Client
	url        string
	apiKey     string
	interval   time.Duration
	logger     zerolog.Logger

	holder *snapshotHolder

	onFetch func(ok bool, warnings []evalconfig.LoadWarning)

	stopChan chan struct{}
	doneChan chan struct{}
}

func newPoller(cfg *Config, holder *snapshotHolder, logger zerolog.Logger) *poller {
	return &poller{
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
		url:        cfg.BaseURL,
		apiKey:     cfg.APIKey,
		interval:   cfg.PollInterval,
		logger:     logger.With().Str("component", "poller").Logger(),
		holder:     holder,
		stopChan:   make(chan struct{}),
		doneChan:   make(chan struct{}),
	}
}

// start fetches once synchronously so the client has a snapshot before
// it returns from NewClient, then continues fetching in the
// background on cfg.PollInterval until stop is called.
func (p *poller) start(ctx context.Context) error {
	if err := p.fetchOnce(ctx); err != nil {
		p.logger.Warn().Err(err).Msg("initial configuration fetch failed, starting with an empty snapshot")
	}

	go p.run(ctx)
	return nil
}

func (p *poller) run(ctx context.Context) {
	defer close(p.doneChan)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.fetchOnce(ctx); err != nil {
				p.logger.Warn().Err(err).Msg("configuration fetch failed, keeping previous snapshot")
			}
		}
	}
}

func (p *poller) fetchOnce(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return fmt.Errorf("build configuration request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		if p.onFetch != nil {
			p.onFetch(false, nil)
		}
		return fmt.Errorf("fetch configuration: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if p.onFetch != nil {
			p.onFetch(false, nil)
		}
		return fmt.Errorf("fetch configuration: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if p.onFetch != nil {
			p.onFetch(false, nil)
		}
		return fmt.Errorf("read configuration body: %w", err)
	}

	snap, warnings, err := evalconfig.Parse(body)
	if err != nil {
		if p.onFetch != nil {
			p.onFetch(false, warnings)
		}
		return fmt.Errorf("parse configuration: %w", err)
	}
	for _, w := range warnings {
		p.logger.Warn().Str("entity", w.Entity).Msg(w.Message)
	}

	p.holder.publish(snap)
	if p.onFetch != nil {
		p.onFetch(true, warnings)
	}
	return nil
}

func (p *poller) stop() {
	close(p.stopChan)
	<-p.doneChan
}
