package config

import (
	"fmt"

	"github.com/spf13/pflag"
)

// Flags são overrides de linha de comando sobre o ambiente.
type Flags struct {
	Once bool
}

// ParseFlags aplica --ranger, --row-cap, --threshold e --interval sobre cfg.
// Só flags informadas explicitamente sobrescrevem o valor do ambiente.
func ParseFlags(name string, args []string, cfg *Config) (Flags, error) {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)

	var f Flags
	ranger := fs.Float64("ranger", cfg.PriceCeiling, "maximum back price kept in snapshots and comparisons")
	rowCap := fs.Int("row-cap", cfg.RowCap, "rows kept after ranking")
	threshold := fs.Float64("threshold", cfg.AlertThreshold, "delta at or below which a runner is alerted")
	interval := fs.Duration("interval", cfg.PollInterval, "polling interval")
	fs.BoolVar(&f.Once, "once", false, "run a single cycle and exit")

	if err := fs.Parse(args); err != nil {
		return f, err
	}

	if fs.Changed("ranger") {
		cfg.PriceCeiling = *ranger
	}
	if fs.Changed("row-cap") {
		cfg.RowCap = *rowCap
	}
	if fs.Changed("threshold") {
		cfg.AlertThreshold = *threshold
	}
	if fs.Changed("interval") {
		if *interval <= 0 {
			return f, fmt.Errorf("--interval must be positive, got %s", *interval)
		}
		cfg.PollInterval = *interval
	}
	return f, nil
}
