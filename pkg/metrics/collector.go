package metrics

import (
	"time"

	"github.com/cuemby/nostrd/pkg/storage"
)

// Collector periodically samples the migration level gauge, which isn't
// naturally updated on the request path. Blob store gauges are not
// sampled here.
type Collector struct {
	store  *storage.Store
	stopCh chan struct{}
}

// NewCollector creates a new metrics collector bound to store.
func NewCollector(store *storage.Store) *Collector {
	return &Collector{
		store:  store,
		stopCh: make(chan struct{}),
	}
}

// Start begins collecting metrics on a 15s tick.
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		c.collect()

		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	c.collectMigrationLevel()
}

func (c *Collector) collectMigrationLevel() {
	level, err := c.store.MigrationLevel()
	if err != nil {
		return
	}
	MigrationLevel.Set(float64(level))
}
