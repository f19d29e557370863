package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	persistlog "github.com/stfwi/rsgauges-sub000/internal/persistence/log"
	"github.com/stfwi/rsgauges-sub000/internal/persistence/snapshot"
	"github.com/stfwi/rsgauges-sub000/internal/protocol"
	"github.com/stfwi/rsgauges-sub000/internal/sim/catalogs"
	"github.com/stfwi/rsgauges-sub000/internal/sim/world"
)

// replay re-runs a world from a snapshot and checks that it plays the same
// cues as the recorded effect log. Only stretches without admin requests
// replay exactly; timers in flight at the snapshot tick restart on import.
func main() {
	var (
		snapPath   = flag.String("snapshot", "", "path to .snap.zst")
		effectsDir = flag.String("effects", "", "effects dir containing effects-*.jsonl.zst (optional)")
		configDir  = flag.String("configs", "./configs", "config directory")
		toTick     = flag.Uint64("to_tick", 0, "stop at tick (inclusive, optional; defaults to the last logged tick)")
	)
	flag.Parse()

	if *snapPath == "" {
		fmt.Fprintln(os.Stderr, "missing -snapshot")
		os.Exit(2)
	}
	snap, err := snapshot.ReadSnapshot(*snapPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read snapshot:", err)
		os.Exit(1)
	}
	fmt.Printf("snapshot v%d world=%s tick=%d seed=%d devices=%d blocks=%d\n",
		snap.Header.Version, snap.Header.WorldID, snap.Header.Tick, snap.Seed, len(snap.Devices), len(snap.Blocks))
	if *effectsDir == "" {
		return
	}

	cats, err := catalogs.Load(*configDir, catalogs.Options{})
	if err != nil {
		fmt.Fprintln(os.Stderr, "load catalogs:", err)
		os.Exit(1)
	}
	recorded, err := readEffects(*effectsDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read effects:", err)
		os.Exit(1)
	}

	w := world.New(world.Config{ID: snap.Header.WorldID, TickRateHz: snap.TickRate}, cats)
	col := &collector{}
	w.SetEffectLogger(col)
	if err := w.ImportSnapshot(snap); err != nil {
		fmt.Fprintln(os.Stderr, "import snapshot:", err)
		os.Exit(1)
	}

	checked, err := verify(w, col, recorded, *toTick)
	if err != nil {
		fmt.Fprintln(os.Stderr, "replay:", err)
		os.Exit(1)
	}
	fmt.Printf("replay ok: checked=%d ticks (from snapshot tick=%d)\n", checked, snap.Header.Tick)
}

type collector struct{ msgs []protocol.EffectMsg }

func (c *collector) WriteEffect(m protocol.EffectMsg) error {
	c.msgs = append(c.msgs, m)
	return nil
}

func readEffects(dir string) ([]protocol.EffectMsg, error) {
	files, err := persistlog.Files(dir, "effects")
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no effects files found in %s", dir)
	}
	var out []protocol.EffectMsg
	for _, p := range files {
		err := persistlog.ReadFile(p, func(line []byte) error {
			var m protocol.EffectMsg
			if err := json.Unmarshal(line, &m); err != nil {
				return fmt.Errorf("%s: unmarshal: %w", filepath.Base(p), err)
			}
			out = append(out, m)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// verify steps w up to toTick (or the last recorded tick) and compares the
// cues played on every tick with the recorded ones.
func verify(w *world.World, col *collector, recorded []protocol.EffectMsg, toTick uint64) (uint64, error) {
	start := w.CurrentTick()
	byTick := map[uint64][]protocol.EffectMsg{}
	last := start
	for _, m := range recorded {
		if m.Tick < start || (toTick != 0 && m.Tick > toTick) {
			continue
		}
		byTick[m.Tick] = append(byTick[m.Tick], m)
		if m.Tick > last {
			last = m.Tick
		}
	}
	if toTick != 0 {
		last = toTick
	}

	var checked uint64
	for w.CurrentTick() <= last {
		col.msgs = col.msgs[:0]
		tick := w.StepOnce()
		want := byTick[tick]
		if len(col.msgs) != len(want) {
			return checked, fmt.Errorf("tick %d: played %d cues, log has %d", tick, len(col.msgs), len(want))
		}
		for i := range want {
			got := col.msgs[i]
			if got.Cue != want[i].Cue || got.Pos != want[i].Pos {
				return checked, fmt.Errorf("tick %d cue %d: got %s@%v, log has %s@%v", tick, i, got.Cue, got.Pos, want[i].Cue, want[i].Pos)
			}
		}
		checked++
	}
	return checked, nil
}
