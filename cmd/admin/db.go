package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/stfwi/rsgauges-sub000/internal/persistence/indexdb"
)

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "", "world id (required unless -db)")
	dbPath := fs.String("db", "", "sqlite db path (optional)")
	limit := fs.Int("limit", 50, "result limit")
	source := fs.String("source", "", "links: source position x,y,z")
	action := fs.String("action", "", "links: LINK_ASSIGN, LINK_REMOVE or LINK_FAILURE")
	reason := fs.String("reason", "", "links: failure reason, e.g. TOO_FAR")
	since := fs.Uint64("since_tick", 0, "links: first tick (inclusive)")
	typeID := fs.String("type", "", "devices: type filter")
	_ = fs.Parse(args)

	q := "links"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		if strings.TrimSpace(*worldID) == "" {
			fmt.Fprintln(os.Stderr, "missing -world or -db")
			os.Exit(2)
		}
		path = filepath.Join(*dataDir, "worlds", *worldID, "index", "world.sqlite")
	}
	db, err := indexdb.OpenQuery(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()

	switch q {
	case "links":
		f := indexdb.LinkEventFilter{Action: *action, Reason: *reason, FromTick: *since, Limit: *limit}
		if *source != "" {
			p, err := parseVec3(*source)
			if err != nil {
				fmt.Fprintln(os.Stderr, "bad -source:", err)
				os.Exit(2)
			}
			f.Source = &p
		}
		evs, err := indexdb.QueryLinkEvents(db, f)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		for _, e := range evs {
			printJSON(e)
		}

	case "devices":
		devs, err := indexdb.QueryDevices(db, *typeID)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		for _, d := range devs {
			printJSON(d)
		}

	case "snapshots":
		rows, err := db.Query(`SELECT tick,path,devices,links FROM snapshots ORDER BY tick DESC LIMIT ?`, *limit)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Tick    int64  `json:"tick"`
				Path    string `json:"path"`
				Devices int    `json:"devices"`
				Links   int    `json:"links"`
			}
			if err := rows.Scan(&r.Tick, &r.Path, &r.Devices, &r.Links); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			printJSON(r)
		}
		if err := rows.Err(); err != nil {
			fmt.Fprintln(os.Stderr, "rows:", err)
			os.Exit(1)
		}

	default:
		fmt.Fprintln(os.Stderr, "unknown query (links|devices|snapshots):", q)
		os.Exit(2)
	}
}
