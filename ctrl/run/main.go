package main

import (
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nocfab/nocsim/ctrl/trial"
)

var opt trial.Options

var rootCmd = &cobra.Command{
	Use:   "nocsim-run",
	Short: "Run one randomized link trial and check it against the requirements",
	Run: func(_ *cobra.Command, args []string) {
		log.WithFields(log.Fields{
			"seed":  opt.Seed,
			"depth": opt.Depth,
			"ticks": opt.Ticks,
		}).Info("starting trial")

		result, err := trial.Run(opt)
		if err != nil {
			log.Fatalf("trial did not complete: %v", err)
		}

		log.WithFields(log.Fields{
			"packets":   result.Started,
			"streamed":  result.Streamed,
			"dropped":   result.Dropped,
			"delivered": result.Delivered,
			"simulated": result.SimTime,
			"wall":      result.WallTime,
		}).Info("trial complete")
		fmt.Println(result.Explanation)

		if result.Failed {
			log.Error("requirement failures detected")
			os.Exit(1)
		}
		log.Info("all requirements held")
	},
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&opt.Label, "label", "L0", "link label used in logs and waveform scopes")
	f.IntVar(&opt.Depth, "depth", 256, "buffer depth in flits (power of two)")
	f.DurationVar(&opt.Period, "period", 10*time.Microsecond, "tick period")
	f.Int64Var(&opt.Seed, "seed", 1, "seed for the traffic generator")
	f.Int64Var(&opt.Ticks, "ticks", 100000, "number of ticks to simulate")
	f.IntVar(&opt.MinLength, "min-length", 1, "minimum generated packet length in flits")
	f.IntVar(&opt.MaxLength, "max-length", 8, "maximum generated packet length in flits")
	f.IntVar(&opt.StallPercent, "stall", 20, "per-tick percent chance to stall the feed")
	f.IntVar(&opt.CommandPercent, "command", 50, "per-tick percent chance to command when ready")
	f.IntVar(&opt.DropPercent, "drop", 25, "percent of commands that dump instead of stream")
	f.IntVar(&opt.MaxPackets, "packets", 0, "stop generating after this many packets (0 = unlimited)")
	f.StringVar(&opt.TracePath, "trace", "", "write a per-tick CSV trace to this path")
	f.StringVar(&opt.VCDPath, "vcd", "", "write a waveform dump to this path")
	f.StringVar(&opt.ReqLogPath, "req-log", "", "write the raw requirement log to this path")
	f.DurationVar(&opt.Window, "window", time.Millisecond, "validation window for per-tick requirement checks")
	f.BoolVarP(&opt.Verbose, "verbose", "v", false, "log link state transitions")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
