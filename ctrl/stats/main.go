package main

import (
	"bytes"
	"encoding/csv"
	"io/ioutil"
	"log"
	"os"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/nocfab/nocsim/ctrl/results"
	"github.com/nocfab/nocsim/ctrl/util"
)

type cellKey struct {
	Depth       int
	DropPercent int
}

type cellStats struct {
	Trials    int
	Failures  int
	Packets   int
	Delivered int
	SimTime   time.Duration
	WallTime  time.Duration
}

func scanDatabase(dbPath string, explain bool) (map[cellKey]*cellStats, error) {
	store, err := results.Open(dbPath)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("Error while closing %q: %v", dbPath, err)
		}
	}()
	cells := map[cellKey]*cellStats{}
	err = store.Each(func(rec results.Record) error {
		key := cellKey{Depth: rec.Result.Depth, DropPercent: rec.Options.DropPercent}
		cell := cells[key]
		if cell == nil {
			cell = &cellStats{}
			cells[key] = cell
		}
		cell.Trials += 1
		cell.Packets += rec.Result.Started
		cell.Delivered += rec.Result.Delivered
		cell.SimTime += rec.Result.SimTime
		cell.WallTime += rec.Result.WallTime
		if rec.Result.Failed {
			cell.Failures += 1
			if explain {
				log.Printf("Failed trial %s (seed %d) in %q:\n%s",
					rec.Result.Label, rec.Result.Seed, dbPath, rec.Result.Explanation)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cells, nil
}

func ScanStats(dbPaths []string, explain bool) string {
	var data bytes.Buffer
	c := csv.NewWriter(&data)
	fields := []string{
		"Database", "Depth", "DropPercent", "Trials", "Failures", "OkPercent",
		"MeanPackets", "MeanDelivered", "MeanSimSeconds", "MeanWallSeconds",
	}
	if err := c.Write(fields); err != nil {
		panic(err)
	}
	for _, dbPath := range dbPaths {
		if !util.Exists(dbPath) {
			log.Printf("No such database: %q", dbPath)
			continue
		}
		cells, err := scanDatabase(dbPath, explain)
		if err != nil {
			log.Printf("Error while scanning %q: %v", dbPath, err)
			continue
		}
		keys := make([]cellKey, 0, len(cells))
		for key := range cells {
			keys = append(keys, key)
		}
		sort.Slice(keys, func(i, j int) bool {
			if keys[i].Depth != keys[j].Depth {
				return keys[i].Depth < keys[j].Depth
			}
			return keys[i].DropPercent < keys[j].DropPercent
		})
		for _, key := range keys {
			cell := cells[key]
			trials := float64(cell.Trials)
			columns := []string{
				dbPath,
				strconv.Itoa(key.Depth),
				strconv.Itoa(key.DropPercent),
				strconv.Itoa(cell.Trials),
				strconv.Itoa(cell.Failures),
				strconv.FormatFloat(100*float64(cell.Trials-cell.Failures)/trials, 'f', 1, 64),
				strconv.FormatFloat(float64(cell.Packets)/trials, 'f', 1, 64),
				strconv.FormatFloat(float64(cell.Delivered)/trials, 'f', 1, 64),
				strconv.FormatFloat(cell.SimTime.Seconds()/trials, 'f', 3, 64),
				strconv.FormatFloat(cell.WallTime.Seconds()/trials, 'f', 3, 64),
			}
			if err := c.Write(columns); err != nil {
				panic(err)
			}
		}
	}
	c.Flush()
	if err := c.Error(); err != nil {
		panic(err)
	}
	return data.String()
}

func main() {
	var dbPaths []string
	for _, arg := range os.Args[1:] {
		if !strings.HasPrefix(arg, "--") {
			dbPaths = append(dbPaths, arg)
		}
	}
	if len(dbPaths) == 0 {
		log.Fatalf("Usage: %s [--explain] <trials.db> [...]", path.Base(os.Args[0]))
	}
	stats := ScanStats(dbPaths, util.HasArg("--explain"))
	err := ioutil.WriteFile("stats.csv", []byte(stats), 0o644)
	if err != nil {
		log.Fatalln(err)
	}
	log.Print("Generated stats.csv.")
}
