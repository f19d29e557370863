// Package archive keeps the snapshot directory bounded: the snapshot that
// closes an in-game day is copied aside, older rolling snapshots are pruned.
package archive

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/stfwi/rsgauges-sub000/internal/persistence/snapshot"
)

type DayMeta struct {
	Day       int    `json:"day"`
	EndTick   uint64 `json:"end_tick"`
	Seed      int64  `json:"seed"`
	Snapshot  string `json:"snapshot"`
	Devices   int    `json:"devices"`
	CreatedAt string `json:"created_at"`
	DayTicks  int    `json:"day_ticks"`
}

// ArchiveDaySnapshot copies a day-end snapshot into worldDir/archives/day_<NNNN>/.
// A snapshot ends a day when tick+1 is a multiple of DayTicks.
func ArchiveDaySnapshot(worldDir, snapshotPath string, snap snapshot.SnapshotV1) (day int, archivedPath string, archived bool, err error) {
	if snap.DayTicks <= 0 {
		return 0, "", false, nil
	}
	dayLen := uint64(snap.DayTicks)
	if (snap.Header.Tick+1)%dayLen != 0 {
		return 0, "", false, nil
	}
	day = int((snap.Header.Tick + 1) / dayLen)

	dir := filepath.Join(worldDir, "archives", fmt.Sprintf("day_%04d", day))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, "", false, err
	}
	dst := filepath.Join(dir, filepath.Base(snapshotPath))
	if err := copyFile(snapshotPath, dst); err != nil {
		return 0, "", false, err
	}

	meta := DayMeta{
		Day:       day,
		EndTick:   snap.Header.Tick,
		Seed:      snap.Seed,
		Snapshot:  filepath.Base(dst),
		Devices:   len(snap.Devices),
		CreatedAt: time.Now().UTC().Format(time.RFC3339Nano),
		DayTicks:  snap.DayTicks,
	}
	b, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return 0, "", false, err
	}
	if err := os.WriteFile(filepath.Join(dir, "meta.json"), b, 0o644); err != nil {
		return 0, "", false, err
	}
	return day, dst, true, nil
}

// Prune removes all but the newest keep snapshots in dir and returns the
// removed paths. keep <= 0 disables pruning.
func Prune(dir string, keep int) ([]string, error) {
	if keep <= 0 {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	type cand struct {
		tick uint64
		path string
	}
	var cands []cand
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".snap.zst") {
			continue
		}
		n, err := strconv.ParseUint(strings.TrimSuffix(name, ".snap.zst"), 10, 64)
		if err != nil {
			continue
		}
		cands = append(cands, cand{tick: n, path: filepath.Join(dir, name)})
	}
	if len(cands) <= keep {
		return nil, nil
	}
	sort.Slice(cands, func(i, j int) bool { return cands[i].tick < cands[j].tick })
	var removed []string
	for _, c := range cands[:len(cands)-keep] {
		if err := os.Remove(c.path); err != nil {
			return removed, err
		}
		removed = append(removed, c.path)
	}
	return removed, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
