package main

import (
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nocfab/nocsim/ctrl/results"
	"github.com/nocfab/nocsim/ctrl/trial"
)

var (
	dbPath       string
	depths       []int
	drops        []int
	seedBase     int64
	trialsPer    int
	workers      int
	ticks        int64
	period       time.Duration
	stallPercent int
	maxPackets   int
)

var rootCmd = &cobra.Command{
	Use:   "nocsim-batch",
	Short: "Run a matrix of randomized link trials and store the results",
	Run:   runBatch,
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&dbPath, "db", "trials.db", "results database to create or append to")
	f.IntSliceVar(&depths, "depths", []int{16, 256}, "buffer depths to sweep")
	f.IntSliceVar(&drops, "drops", []int{0, 25, 100}, "dump percentages to sweep")
	f.Int64Var(&seedBase, "seed-base", 1, "first seed; later trials count up from here")
	f.IntVar(&trialsPer, "trials", 10, "trials per matrix cell")
	f.IntVar(&workers, "workers", runtime.NumCPU(), "concurrent trials")
	f.Int64Var(&ticks, "ticks", 50000, "ticks per trial")
	f.DurationVar(&period, "period", 10*time.Microsecond, "tick period")
	f.IntVar(&stallPercent, "stall", 20, "per-tick percent chance to stall the feed")
	f.IntVar(&maxPackets, "packets", 0, "packets per trial (0 = unlimited)")
}

// runOne executes a single trial, converting errors and panics into failed
// results so that one bad cell cannot take down the rest of the batch.
func runOne(opt trial.Options) (rec results.Record) {
	rec.ID = uuid.New().String()
	rec.When = time.Now()
	rec.Options = opt
	defer func() {
		if p := recover(); p != nil {
			rec.Result = trial.Result{
				Label:       opt.Label,
				Seed:        opt.Seed,
				Depth:       opt.Depth,
				Failed:      true,
				Explanation: fmt.Sprintf("panic during trial: %v", p),
			}
		}
	}()
	result, err := trial.Run(opt)
	if err != nil {
		rec.Result = trial.Result{
			Label:       opt.Label,
			Seed:        opt.Seed,
			Depth:       opt.Depth,
			Failed:      true,
			Explanation: fmt.Sprintf("trial did not complete: %v", err),
		}
		return rec
	}
	rec.Result = result
	return rec
}

func runBatch(_ *cobra.Command, _ []string) {
	store, err := results.Open(dbPath)
	if err != nil {
		log.Fatalf("cannot open results database: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Errorf("cannot close results database: %v", err)
		}
	}()

	var jobs []trial.Options
	seed := seedBase
	for _, depth := range depths {
		for _, drop := range drops {
			for i := 0; i < trialsPer; i++ {
				jobs = append(jobs, trial.Options{
					Label:        fmt.Sprintf("d%d-p%d-s%d", depth, drop, seed),
					Depth:        depth,
					Period:       period,
					Seed:         seed,
					Ticks:        ticks,
					StallPercent: stallPercent,
					DropPercent:  drop,
					MaxPackets:   maxPackets,
				})
				seed++
			}
		}
	}
	log.WithFields(log.Fields{
		"trials":  len(jobs),
		"workers": workers,
		"db":      dbPath,
	}).Info("starting batch")

	jobCh := make(chan trial.Options)
	recordCh := make(chan results.Record)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for opt := range jobCh {
				recordCh <- runOne(opt)
			}
		}()
	}
	go func() {
		for _, opt := range jobs {
			jobCh <- opt
		}
		close(jobCh)
		wg.Wait()
		close(recordCh)
	}()

	var done, failed int
	for rec := range recordCh {
		if err := store.Put(rec); err != nil {
			log.Fatalf("cannot store trial result: %v", err)
		}
		done++
		if rec.Result.Failed {
			failed++
			log.WithFields(log.Fields{
				"label": rec.Result.Label,
				"seed":  rec.Result.Seed,
			}).Warn("trial failed")
		}
		if done%10 == 0 || done == len(jobs) {
			log.WithFields(log.Fields{
				"done":   done,
				"total":  len(jobs),
				"failed": failed,
			}).Info("progress")
		}
	}

	log.WithFields(log.Fields{
		"trials": done,
		"failed": failed,
		"db":     dbPath,
	}).Info("batch complete")
	if failed > 0 {
		os.Exit(1)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
