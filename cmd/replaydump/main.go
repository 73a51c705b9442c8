package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/brensch/gridsnake/store"
)

func main() {
	replayPath := flag.String("replay", "", "Replay parquet file written by gridsnake -replay-dir")
	onlyTick := flag.Int("tick", -1, "Print only this tick")
	delay := flag.Duration("delay", 0, "Pause between ticks, e.g. 200ms, to watch the replay")
	listDir := flag.String("dir", "", "List the sessions recorded in this replay directory and exit")
	flag.Parse()

	if *listDir != "" {
		listSessions(*listDir)
		return
	}

	if *replayPath == "" && flag.NArg() > 0 {
		*replayPath = flag.Arg(0)
	}
	if *replayPath == "" {
		fmt.Fprintln(os.Stderr, "usage: replaydump [-tick N] [-delay D] <replay.parquet> | replaydump -dir <replay-dir>")
		os.Exit(2)
	}

	rows, err := store.ReadReplay(*replayPath)
	if err != nil {
		log.Fatalf("Failed to read replay: %v", err)
	}
	if len(rows) == 0 {
		log.Fatalf("Replay %s has no rows", *replayPath)
	}
	log.Printf("Replay %s: session=%s rows=%d", *replayPath, rows[0].SessionID, len(rows))

	for _, row := range rows {
		if *onlyTick >= 0 && int(row.Tick) != *onlyTick {
			continue
		}
		snap := store.RowSnapshot(row)
		fmt.Print(snap.String())
		for _, d := range snap.Report.Deaths {
			if d.Other != "" {
				fmt.Printf("  %s died at %s (%s with %s)\n", d.Snake, d.Cell, d.Cause, d.Other)
			} else {
				fmt.Printf("  %s died at %s (%s)\n", d.Snake, d.Cell, d.Cause)
			}
		}
		if snap.Report.Starved > 0 {
			fmt.Printf("  no space for %d food\n", snap.Report.Starved)
		}
		fmt.Println()
		if *delay > 0 {
			time.Sleep(*delay)
		}
	}

	last := rows[len(rows)-1]
	fmt.Printf("Final: tick=%d status=%s quit=%v snakes=%d\n", last.Tick, last.Status, last.Quit, len(last.Snakes))
}

func listSessions(dir string) {
	ids, err := store.ReadIndex(filepath.Join(dir, store.IndexFile))
	if err != nil {
		log.Fatalf("Failed to read replay index: %v", err)
	}
	for _, id := range ids {
		path := store.ReplayPath(dir, id)
		rows, err := store.ReadReplay(path)
		if err != nil {
			fmt.Printf("%s  (unreadable: %v)\n", id, err)
			continue
		}
		if len(rows) == 0 {
			fmt.Printf("%s  empty\n", id)
			continue
		}
		last := rows[len(rows)-1]
		fmt.Printf("%s  ticks=%d status=%s quit=%v  %s\n", id, last.Tick, last.Status, last.Quit, path)
	}
}
