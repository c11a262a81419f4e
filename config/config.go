package config

import (
	"time"
)

// Defaults for the counter workload. The CLI overrides them from flags and
// PARKLOCK_* environment variables.
var (
	Workers  = 20
	Workload = 1_000_000
	Stagger  = time.Millisecond * 10
	Spawner  = "ants"
)
