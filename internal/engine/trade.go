package engine

import (
	"fmt"
	"time"

	"studydex/internal/clock"
	"studydex/internal/collection"
	"studydex/internal/ledger"
	"studydex/internal/model"
)

type TradeResult struct {
	Instance model.OwnedInstance
	Bucket   clock.Bucket
	At       time.Time
}

// Trade gives an instance away for TradeValue coins. At most one trade is
// allowed per local half-day (before noon, from noon on).
func (e *Engine) Trade(s model.State, instanceID string) (model.State, TradeResult, error) {
	now := e.clock.Now()
	if err := checkTrade(s, instanceID, now); err != nil {
		return s, TradeResult{}, err
	}
	c, removed, err := collection.Remove(s.Collection, instanceID)
	if err != nil {
		return s, TradeResult{}, fmt.Errorf("instance %s: %w", instanceID, err)
	}

	at := model.Timestamp(now)
	out := s.Clone()
	out.Collection = c
	out.Ledger = ledger.Credit(s.Ledger, TradeValue)
	out.Trades = append(out.Trades, model.TradeRecord{Timestamp: at})
	return out, TradeResult{Instance: removed, Bucket: clock.BucketOf(now), At: at}, nil
}

// CheckTrade reports the error Trade would return right now, if any.
func (e *Engine) CheckTrade(s model.State, instanceID string) error {
	return checkTrade(s, instanceID, e.clock.Now())
}

// UsedBuckets reports which halves of now's local day already hold a trade.
func UsedBuckets(trades []model.TradeRecord, now time.Time) map[clock.Bucket]bool {
	used := make(map[clock.Bucket]bool, 2)
	loc := now.Location()
	for _, t := range trades {
		if clock.SameDay(t.Timestamp, now, loc) {
			used[clock.BucketOf(t.Timestamp.In(loc))] = true
		}
	}
	return used
}

func checkTrade(s model.State, instanceID string, now time.Time) error {
	bucket := clock.BucketOf(now)
	if UsedBuckets(s.Trades, now)[bucket] {
		return &RateLimitError{Bucket: bucket}
	}
	if _, _, ok := collection.Find(s.Collection, instanceID); !ok {
		return fmt.Errorf("instance %s: %w", instanceID, ErrNotFound)
	}
	return nil
}
