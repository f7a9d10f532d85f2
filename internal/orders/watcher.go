package orders

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/quickmed/storefront/internal/domain/order"
	"github.com/quickmed/storefront/internal/logging"
)

const defaultPollSpec = "@every 30s"

// Watcher periodically re-fetches one order and reports status changes. It
// stops on its own once the order reaches a terminal status. Cancelling the
// Start context abandons interest in the order; any in-flight fetch result is
// discarded.
type Watcher struct {
	service  *Service
	orderID  int64
	schedule cron.Schedule
	onChange func(order.Order)
	log      *logging.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool

	lastStatus order.Status
}

// NewWatcher creates a watcher for orderID. spec is a cron schedule such as
// "@every 30s"; empty means the default.
func NewWatcher(service *Service, orderID int64, spec string, onChange func(order.Order), log *logging.Logger) (*Watcher, error) {
	if spec == "" {
		spec = defaultPollSpec
	}
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("orders: parse poll schedule %q: %w", spec, err)
	}
	if log == nil {
		log = logging.NewDefault("order-watcher")
	}
	return &Watcher{
		service:  service,
		orderID:  orderID,
		schedule: schedule,
		onChange: onChange,
		log:      log.With("order", fmt.Sprintf("%d", orderID)),
	}, nil
}

// Start begins polling. Calling Start on a running watcher is a no-op.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.running = true
	w.mu.Unlock()

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer w.markStopped()

		for {
			next := w.schedule.Next(time.Now())
			timer := time.NewTimer(time.Until(next))
			select {
			case <-runCtx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
			if done := w.poll(runCtx); done {
				return
			}
		}
	}()

	w.log.Info("order watcher started")
	return nil
}

// Stop halts polling and waits for any in-flight poll to finish.
func (w *Watcher) Stop() {
	w.mu.Lock()
	cancel := w.cancel
	w.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	w.wg.Wait()
}

func (w *Watcher) markStopped() {
	w.mu.Lock()
	w.running = false
	w.mu.Unlock()
}

// poll fetches the order once. Returns true when watching should end.
func (w *Watcher) poll(ctx context.Context) bool {
	ord, err := w.service.Get(ctx, w.orderID)
	if err != nil {
		if ctx.Err() != nil {
			// Interest abandoned; discard the result.
			return true
		}
		w.log.Error(err, "poll order")
		return false
	}

	w.mu.Lock()
	changed := ord.Status != w.lastStatus
	w.lastStatus = ord.Status
	w.mu.Unlock()

	if changed && w.onChange != nil {
		w.onChange(ord)
	}
	return ord.Status.Terminal()
}
