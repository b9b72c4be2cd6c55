// Package migrations provides embedded SQL migration files.
package migrations

import (
	_ "embed"
)

// EventsSQL creates the decision history schema. It is idempotent.
//
//go:embed sql/001_events.sql
var EventsSQL string
