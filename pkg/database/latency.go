package database

import (
	"time"

	"gorm.io/gorm"
)

const latencyCallbackName = "pulse:latency"

// Latency is a GORM plugin that holds every statement for a fixed delay
// before it reaches the driver. It simulates a remote backend when the
// service runs against an in-process database.
type Latency struct {
	Delay time.Duration
}

// Name implements gorm.Plugin.
func (l *Latency) Name() string {
	return "pulse:latency"
}

// Initialize implements gorm.Plugin.
func (l *Latency) Initialize(db *gorm.DB) error {
	if l.Delay <= 0 {
		return nil
	}

	cb := db.Callback()
	if err := cb.Create().Before("gorm:create").Register(latencyCallbackName, l.wait); err != nil {
		return err
	}
	if err := cb.Query().Before("gorm:query").Register(latencyCallbackName, l.wait); err != nil {
		return err
	}
	if err := cb.Update().Before("gorm:update").Register(latencyCallbackName, l.wait); err != nil {
		return err
	}
	if err := cb.Delete().Before("gorm:delete").Register(latencyCallbackName, l.wait); err != nil {
		return err
	}
	if err := cb.Row().Before("gorm:row").Register(latencyCallbackName, l.wait); err != nil {
		return err
	}
	return cb.Raw().Before("gorm:raw").Register(latencyCallbackName, l.wait)
}

func (l *Latency) wait(db *gorm.DB) {
	ctx := db.Statement.Context
	timer := time.NewTimer(l.Delay)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
		_ = db.AddError(ctx.Err())
	}
}
