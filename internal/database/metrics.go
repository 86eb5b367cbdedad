package database

import (
	"time"

	"profileapi/internal/observability"

	"gorm.io/gorm"
)

const startedAtKey = "profileapi:started_at"

// RegisterMetrics hooks GORM callbacks so every statement's latency lands in
// observability.DatabaseQueryLatency, labelled by operation and table.
func RegisterMetrics(db *gorm.DB) error {
	cb := db.Callback()

	steps := []struct {
		name string
		err  error
	}{
		{"create:before", cb.Create().Before("*").Register("metrics:before_create", startTimer)},
		{"create:after", cb.Create().After("*").Register("metrics:after_create", observe("create"))},
		{"query:before", cb.Query().Before("*").Register("metrics:before_query", startTimer)},
		{"query:after", cb.Query().After("*").Register("metrics:after_query", observe("query"))},
		{"update:before", cb.Update().Before("*").Register("metrics:before_update", startTimer)},
		{"update:after", cb.Update().After("*").Register("metrics:after_update", observe("update"))},
		{"delete:before", cb.Delete().Before("*").Register("metrics:before_delete", startTimer)},
		{"delete:after", cb.Delete().After("*").Register("metrics:after_delete", observe("delete"))},
		{"row:before", cb.Row().Before("*").Register("metrics:before_row", startTimer)},
		{"row:after", cb.Row().After("*").Register("metrics:after_row", observe("row"))},
	}
	for _, s := range steps {
		if s.err != nil {
			return s.err
		}
	}
	return nil
}

func startTimer(tx *gorm.DB) {
	tx.InstanceSet(startedAtKey, time.Now())
}

func observe(op string) func(*gorm.DB) {
	return func(tx *gorm.DB) {
		v, ok := tx.InstanceGet(startedAtKey)
		if !ok {
			return
		}
		started, ok := v.(time.Time)
		if !ok {
			return
		}
		table := tx.Statement.Table
		if table == "" {
			table = "unknown"
		}
		observability.DatabaseQueryLatency.WithLabelValues(op, table).Observe(time.Since(started).Seconds())
	}
}
