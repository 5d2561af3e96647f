package server

import (
	"context"
	"log"
	"time"

	"github.com/gorhill/cronexpr"
	"github.com/redis/go-redis/v9"

	"github.com/scribechat/scribechat/internal/store"
)

// Retention prunes archived conversation turns on a cron schedule. The redis
// lock keeps multiple instances from pruning at once.
type Retention struct {
	Store         *store.Store
	Rdb           *redis.Client
	CronSpec      string
	RetentionDays int
	Stop          chan struct{}

	lastRun *time.Time
	logger  *log.Logger
}

func (r *Retention) Start() {
	if r.logger == nil {
		r.logger = log.New(log.Writer(), "[RETENTION] ", log.LstdFlags)
	}
	ticker := time.NewTicker(10 * time.Minute)
	go func() {
		for {
			select {
			case <-r.Stop:
				ticker.Stop()
				return
			case <-ticker.C:
				r.tick()
			}
		}
	}()
}

func (r *Retention) tick() {
	if !isDue(r.CronSpec, r.lastRun) {
		return
	}
	ctx := context.Background()
	if r.Rdb != nil {
		ok, _ := r.Rdb.SetNX(ctx, "retention:lock", "1", 5*time.Minute).Result()
		if !ok {
			return
		}
		defer r.Rdb.Del(ctx, "retention:lock")
	}
	now := time.Now()
	r.lastRun = &now

	cutoff := now.AddDate(0, 0, -r.RetentionDays)
	n, err := r.Store.PruneTurns(ctx, cutoff)
	if err != nil {
		r.logger.Printf("prune failed: %v", err)
		return
	}
	if n > 0 {
		turnsPruned.Add(float64(n))
		r.logger.Printf("pruned %d archived turns older than %s", n, cutoff.Format(time.RFC3339))
	}
}

// isDue determines if a job with cronSpec should run now based on its last
// run time. Supports "@daily", "@hourly", and standard 5-field cron
// expressions.
func isDue(cronSpec string, last *time.Time) bool {
	now := time.Now()
	switch cronSpec {
	case "@daily":
		if last == nil {
			return true
		}
		return now.Sub(*last) >= 24*time.Hour
	case "@hourly":
		if last == nil {
			return true
		}
		return now.Sub(*last) >= time.Hour
	default:
		expr, err := cronexpr.Parse(cronSpec)
		if err != nil {
			// Fallback: treat as @daily if invalid
			if last == nil {
				return true
			}
			return now.Sub(*last) >= 24*time.Hour
		}
		if last == nil {
			return true
		}
		next := expr.Next(*last)
		return !next.After(now)
	}
}
