package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/amparo-saude/amparo-core/internal/care"
	"github.com/amparo-saude/amparo-core/internal/event"
)

// Logger is the minimal logging interface the fanout needs.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Fanout resolves the caregivers of an assistido and delivers an alert
// to each through a bounded worker pool.
type Fanout struct {
	links          care.Repository
	channel        Channel
	workers        int
	attemptTimeout time.Duration
	log            Logger
}

// FanoutConfig carries the fanout's collaborators and tuning.
type FanoutConfig struct {
	Links          care.Repository
	Channel        Channel
	Workers        int
	AttemptTimeout time.Duration
	Logger         Logger
}

// NewFanout creates a notification fanout.
func NewFanout(cfg FanoutConfig) *Fanout {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = 5 * time.Second
	}
	return &Fanout{
		links:          cfg.Links,
		channel:        cfg.Channel,
		workers:        cfg.Workers,
		attemptTimeout: cfg.AttemptTimeout,
		log:            cfg.Logger,
	}
}

// Dispatch delivers the fall event to every caregiver linked to the
// assistido and waits for all outcomes.
//
// A caregiver without a usable push destination counts as failed
// without a delivery attempt. Delivery failures are counted, logged and
// returned as data; they never become errors on the ingestion path.
func (f *Fanout) Dispatch(ctx context.Context, assistidoID string, e *event.FallEvent) event.Notifications {
	caregiverIDs, err := f.links.ListCaregiverIDs(ctx, assistidoID)
	if err != nil {
		f.log.Warn("resolving caregivers failed", "assistido_id", assistidoID, "error", err)
		return event.Notifications{}
	}
	if len(caregiverIDs) == 0 {
		f.log.Warn("no caregivers linked for alert", "assistido_id", assistidoID, "event_id", e.ID)
		return event.Notifications{}
	}

	alert := Alert{
		AssistidoID: assistidoID,
		DeviceID:    e.DispositivoID,
		EventID:     e.ID,
		EventType:   e.EventType,
		OccurredAt:  e.OccurredAt,
		TotalAcc:    e.TotalAcc,
	}
	if a, err := f.links.GetAssistido(ctx, assistidoID); err == nil {
		alert.AssistidoName = a.Name
	}

	jobs := make(chan string)
	var mu sync.Mutex
	var out event.Notifications

	var wg sync.WaitGroup
	for range f.workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for caregiverID := range jobs {
				ok := f.deliver(ctx, caregiverID, alert)
				mu.Lock()
				if ok {
					out.Sent++
				} else {
					out.Failed++
				}
				mu.Unlock()
			}
		}()
	}

	for _, id := range caregiverIDs {
		jobs <- id
	}
	close(jobs)
	wg.Wait()

	f.log.Info("alert fanout finished",
		"assistido_id", assistidoID,
		"event_id", e.ID,
		"sent", out.Sent,
		"failed", out.Failed,
	)
	return out
}

// deliver attempts one caregiver's delivery under the per-attempt
// timeout.
func (f *Fanout) deliver(ctx context.Context, caregiverID string, alert Alert) bool {
	dest, err := f.links.GetDestination(ctx, caregiverID)
	if err != nil {
		if !errors.Is(err, care.ErrNoDestination) {
			f.log.Warn("loading push destination failed", "caregiver_id", caregiverID, "error", err)
		}
		return false
	}
	if dest.Token == "" {
		return false
	}

	attemptCtx, cancel := context.WithTimeout(ctx, f.attemptTimeout)
	defer cancel()

	if err := f.channel.Send(attemptCtx, dest, alert); err != nil {
		f.log.Warn("alert delivery failed",
			"caregiver_id", caregiverID,
			"event_id", alert.EventID,
			"error", err,
		)
		return false
	}
	return true
}
