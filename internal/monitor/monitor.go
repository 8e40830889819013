package monitor

import (
	"context"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/freshcart/basket/internal/api"
	"github.com/freshcart/basket/internal/cache"
	"github.com/freshcart/basket/internal/config"
	"github.com/freshcart/basket/internal/ui/messages"
)

// Catalog fetches current product data.
type Catalog interface {
	BatchGetProducts(ctx context.Context, ids []int) ([]*api.Product, error)
}

// Notifier receives messages for the TUI. *tea.Program satisfies it.
type Notifier interface {
	Send(msg tea.Msg)
}

// Monitor polls the catalog for price changes on watched products.
type Monitor struct {
	client Catalog
	cache  *cache.DB
	cfg    config.Config
	log    logrus.FieldLogger
	now    func() time.Time

	mu     sync.Mutex
	notify Notifier
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a new background monitor.
func New(cfg config.Config, client Catalog, db *cache.DB, log logrus.FieldLogger) *Monitor {
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		log = l
	}
	return &Monitor{
		client: client,
		cache:  db,
		cfg:    cfg,
		log:    log.WithField("component", "monitor"),
		now:    time.Now,
	}
}

// Start begins the background polling loop. Starting a running monitor
// only replaces its notifier.
func (m *Monitor) Start(n Notifier) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notify = n
	if m.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.done = make(chan struct{})
	go m.loop(ctx, m.done)
	m.log.WithField("interval", m.cfg.MonitorInterval).Debug("price monitor started")
}

// Stop halts the background polling and waits for the loop to exit. It is
// safe to call on a stopped monitor, and Start may be called again after.
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	m.log.Debug("price monitor stopped")
}

// Running reports whether the polling loop is active.
func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cancel != nil
}

func (m *Monitor) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(m.cfg.MonitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := m.Poll(ctx); err != nil && ctx.Err() == nil {
				m.log.WithError(err).Warn("price poll failed")
			}
		}
	}
}

// Poll checks the watched products that are most overdue and records an
// alert for each price change. It returns the number of new alerts.
func (m *Monitor) Poll(ctx context.Context) (int, error) {
	due, err := m.cache.GetDueWatches(m.cfg.MonitorBatch)
	if err != nil || len(due) == 0 {
		return 0, err
	}

	ids := make([]int, len(due))
	for i, w := range due {
		ids[i] = w.ProductID
	}
	products, err := m.client.BatchGetProducts(ctx, ids)
	if err != nil {
		return 0, err
	}

	now := m.now()
	alerts := 0
	for i, w := range due {
		p := products[i]
		if p == nil {
			continue
		}
		if err := m.cache.PutProduct(p); err != nil {
			m.log.WithError(err).WithField("product", p.ID).Warn("caching product")
		}

		if p.PriceCents != w.LastPriceCents {
			alert := cache.PriceAlert{
				ProductID:     p.ID,
				ProductName:   p.Name,
				OldPriceCents: w.LastPriceCents,
				NewPriceCents: p.PriceCents,
				Currency:      p.Currency,
				CreatedAt:     now,
			}
			if err := m.cache.AddPriceAlert(alert); err != nil {
				m.log.WithError(err).WithField("product", p.ID).Warn("recording price alert")
			} else {
				alerts++
				m.log.WithFields(logrus.Fields{
					"product": p.ID,
					"old":     w.LastPriceCents,
					"new":     p.PriceCents,
				}).Info("price changed")
			}
		}

		if err := m.cache.UpdateWatch(p.ID, p.PriceCents, now); err != nil {
			m.log.WithError(err).WithField("product", p.ID).Warn("updating watch")
		}
	}

	if alerts > 0 {
		m.mu.Lock()
		n := m.notify
		m.mu.Unlock()
		if n != nil {
			n.Send(messages.PriceAlertMsg{UnreadCount: m.cache.UnreadAlertCount()})
		}
	}
	return alerts, nil
}
