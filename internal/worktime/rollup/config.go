// Package rollup precomputes per-user daily totals into worktime_rollups so
// dashboards avoid replaying the ledger on every page load. Summaries served
// by the API are still computed from the ledger; rollups are advisory.
package rollup

import "time"

// Config controls the rollup worker loop.
type Config struct {
	PollInterval time.Duration
	// Lookback is how many past days get recomputed each pass, so late
	// corrections (forced pointages) are picked up.
	Lookback int
}

func DefaultConfig() Config {
	return Config{
		PollInterval: 5 * time.Minute,
		Lookback:     2,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.PollInterval <= 0 {
		c.PollInterval = defaults.PollInterval
	}
	if c.Lookback <= 0 {
		c.Lookback = defaults.Lookback
	}
	return c
}
