package task

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/vieilles-charrues/mintauction/internal/models"
)

// ExpiredLister lists auctions past their deadline that are still unclaimed.
type ExpiredLister interface {
	ListExpiredUnclaimed(ctx context.Context, now int64) ([]models.AuctionRecord, error)
}

// ExpiryWatcher reports each expired, unclaimed auction once. It only reads;
// deadlines are enforced by the operations themselves.
type ExpiryWatcher struct {
	lister ExpiredLister
	nowFn  func() time.Time

	mu       sync.Mutex
	reported map[string]struct{}
}

// NewExpiryWatcher constructs an ExpiryWatcher.
func NewExpiryWatcher(lister ExpiredLister, nowFn func() time.Time) *ExpiryWatcher {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &ExpiryWatcher{lister: lister, nowFn: nowFn, reported: make(map[string]struct{})}
}

// Task wraps the watcher as a scheduled task.
func (w *ExpiryWatcher) Task(interval time.Duration) Task {
	return Task{
		Name:     "auction-expiry",
		Duration: interval,
		Task: func(ctx context.Context) error {
			_, err := w.Run(ctx)
			return err
		},
	}
}

// Run logs newly expired auctions and returns how many it reported. Auctions
// no longer listed, such as claimed ones, are forgotten.
func (w *ExpiryWatcher) Run(ctx context.Context) (int, error) {
	records, err := w.lister.ListExpiredUnclaimed(ctx, w.nowFn().Unix())
	if err != nil {
		return 0, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	reported := 0
	current := make(map[string]struct{}, len(records))
	for _, record := range records {
		current[record.Address] = struct{}{}
		if _, seen := w.reported[record.Address]; seen {
			continue
		}
		w.reported[record.Address] = struct{}{}
		reported++
		fields := log.Fields{
			"auction":  record.Address,
			"mint":     record.TokenMint,
			"end_time": record.EndTime,
		}
		if record.HighestBidder == "" {
			log.WithFields(fields).Info("auction expired without bids")
			continue
		}
		fields["winner"] = record.HighestBidder
		fields["amount"] = record.HighestBid
		log.WithFields(fields).Info("auction expired, awaiting claim")
	}
	for address := range w.reported {
		if _, listed := current[address]; !listed {
			delete(w.reported, address)
		}
	}
	return reported, nil
}
