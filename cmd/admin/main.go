package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	persistlog "github.com/stfwi/rsgauges-sub000/internal/persistence/log"
	"github.com/stfwi/rsgauges-sub000/internal/persistence/snapshot"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "snapshot":
			snapshotCmd(os.Args[2:])
			return
		case "db":
			dbCmd(os.Args[2:])
			return
		case "audit":
			auditCmd(os.Args[2:])
			return
		case "state":
			stateCmd(os.Args[2:])
			return
		case "save":
			saveCmd(os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

func listCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	_ = fs.Parse(args)

	entries, err := os.ReadDir(filepath.Join(*dataDir, "worlds"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	for _, e := range entries {
		if e.IsDir() {
			fmt.Println(e.Name())
		}
	}
}

// deviceLine is one device of a snapshot as printed by `snapshot`.
type deviceLine struct {
	Pos      [3]int     `json:"pos"`
	TypeID   string     `json:"type_id"`
	Facing   string     `json:"facing"`
	Powered  bool       `json:"powered"`
	OnPower  int        `json:"on_power"`
	OffPower int        `json:"off_power"`
	Flags    []string   `json:"flags,omitempty"`
	Links    []linkLine `json:"links,omitempty"`
}

type linkLine struct {
	Target     [3]int `json:"target"`
	TargetType string `json:"target_type"`
	Mode       string `json:"mode"`
	Analog     bool   `json:"analog,omitempty"`
}

func snapshotCmd(args []string) {
	fs := flag.NewFlagSet("snapshot", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "", "world id (uses its latest snapshot)")
	snapPath := fs.String("snapshot", "", "snapshot path (overrides -world)")
	typeID := fs.String("type", "", "only devices of this type")
	linkedOnly := fs.Bool("linked", false, "only devices with outbound links")
	_ = fs.Parse(args)

	path := strings.TrimSpace(*snapPath)
	if path == "" {
		if strings.TrimSpace(*worldID) == "" {
			fmt.Fprintln(os.Stderr, "missing -world or -snapshot")
			os.Exit(2)
		}
		p, err := snapshot.Latest(filepath.Join(*dataDir, "worlds", *worldID, "snapshots"))
		if err != nil {
			fmt.Fprintln(os.Stderr, "latest snapshot:", err)
			os.Exit(1)
		}
		path = p
	}
	snap, err := snapshot.ReadSnapshot(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read snapshot:", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "snapshot=%s world=%s tick=%d devices=%d\n", filepath.Base(path), snap.Header.WorldID, snap.Header.Tick, len(snap.Devices))
	for _, d := range describeSnapshot(snap, *typeID, *linkedOnly) {
		printJSON(d)
	}
}

func describeSnapshot(snap snapshot.SnapshotV1, typeID string, linkedOnly bool) []deviceLine {
	var out []deviceLine
	for _, d := range snap.Devices {
		r := d.Record
		if typeID != "" && r.TypeID != typeID {
			continue
		}
		if linkedOnly && len(r.Links) == 0 {
			continue
		}
		line := deviceLine{
			Pos:      d.Pos,
			TypeID:   r.TypeID,
			Facing:   d.Facing,
			Powered:  r.Powered,
			OnPower:  r.OnPower,
			OffPower: r.OffPower,
		}
		if r.Inverted {
			line.Flags = append(line.Flags, "inverted")
		}
		if r.Weak {
			line.Flags = append(line.Flags, "weak")
		}
		if r.NoOutput {
			line.Flags = append(line.Flags, "nooutput")
		}
		for _, l := range r.Links {
			line.Links = append(line.Links, linkLine{Target: l.Target, TargetType: l.TargetType, Mode: l.Mode, Analog: l.Analog})
		}
		out = append(out, line)
	}
	return out
}

func auditCmd(args []string) {
	fs := flag.NewFlagSet("audit", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "", "world id (required)")
	action := fs.String("action", "", "action filter, e.g. LINK_FAILURE")
	pos := fs.String("pos", "", "position filter x,y,z")
	since := fs.Uint64("since_tick", 0, "first tick (inclusive)")
	_ = fs.Parse(args)

	if strings.TrimSpace(*worldID) == "" {
		fmt.Fprintln(os.Stderr, "missing -world")
		os.Exit(2)
	}
	var at *[3]int
	if *pos != "" {
		p, err := parseVec3(*pos)
		if err != nil {
			fmt.Fprintln(os.Stderr, "bad -pos:", err)
			os.Exit(2)
		}
		at = &p
	}
	entries, err := persistlog.ReadAudit(filepath.Join(*dataDir, "worlds", *worldID))
	if err != nil {
		fmt.Fprintln(os.Stderr, "read audit:", err)
		os.Exit(1)
	}
	for _, e := range entries {
		if e.Tick < *since || (*action != "" && e.Action != *action) || (at != nil && e.Pos != *at) {
			continue
		}
		printJSON(e)
	}
}

func parseVec3(s string) ([3]int, error) {
	var v [3]int
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 3 {
		return v, fmt.Errorf("expected x,y,z")
	}
	for i := 0; i < 3; i++ {
		n, err := strconv.Atoi(strings.TrimSpace(parts[i]))
		if err != nil {
			return v, err
		}
		v[i] = n
	}
	return v, nil
}

func printJSON(v any) {
	b, _ := json.Marshal(v)
	fmt.Println(string(b))
}
