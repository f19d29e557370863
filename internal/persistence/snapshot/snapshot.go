package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/stfwi/rsgauges-sub000/internal/sim/device"
)

const Version = 1

type Header struct {
	Version int    `json:"version"`
	WorldID string `json:"world_id"`
	Tick    uint64 `json:"tick"`
	Devices int    `json:"devices"`
}

type SnapshotV1 struct {
	Header Header `json:"header"`

	// Tuning echo, so a resumed world runs with the settings it was saved with.
	Seed            int64 `json:"seed"`
	TickRate        int   `json:"tick_rate_hz"`
	DayTicks        int   `json:"day_ticks"`
	TickBase        int   `json:"tick_base"`
	LinksEnabled    bool  `json:"links_enabled"`
	MaxLinkDistance int   `json:"max_link_distance"`

	CatalogDigest string `json:"catalog_digest,omitempty"`

	World   WorldV1    `json:"world"`
	Blocks  []BlockV1  `json:"blocks,omitempty"`
	Devices []DeviceV1 `json:"devices"`
}

type WorldV1 struct {
	TimeOfDay  int  `json:"time_of_day"`
	Raining    bool `json:"raining"`
	Thundering bool `json:"thundering"`
}

type BlockV1 struct {
	Pos   [3]int `json:"pos"`
	Block string `json:"block"`
	Light int    `json:"light,omitempty"`
}

type DeviceV1 struct {
	Pos    [3]int        `json:"pos"`
	Facing string        `json:"facing"`
	Record device.Record `json:"record"`
}

func WriteSnapshot(path string, snap SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	defer enc.Close()

	bw := bufio.NewWriterSize(enc, 256*1024)
	defer bw.Flush()

	snap.Header.Version = Version
	snap.Header.Devices = len(snap.Devices)
	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}

	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	return nil
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	line, err := br.ReadBytes('\n')
	if err != nil {
		return snap, fmt.Errorf("header: %w", err)
	}
	var h Header
	if err := json.Unmarshal(line, &h); err != nil {
		return snap, fmt.Errorf("header: %w", err)
	}
	if h.Version != Version {
		return snap, fmt.Errorf("unsupported snapshot version %d", h.Version)
	}

	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	return snap, nil
}

// ReadHeader reads only the JSON header line.
func ReadHeader(path string) (Header, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, err
	}
	defer dec.Close()
	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return h, err
	}
	err = json.Unmarshal(line, &h)
	return h, err
}

// Name is the file name of the snapshot taken at tick.
func Name(tick uint64) string { return fmt.Sprintf("%d.snap.zst", tick) }

// Latest returns the snapshot with the highest tick in dir, or "" if there is none.
func Latest(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	type cand struct {
		tick uint64
		name string
	}
	var cands []cand
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".snap.zst") {
			continue
		}
		t, err := strconv.ParseUint(strings.TrimSuffix(name, ".snap.zst"), 10, 64)
		if err != nil {
			continue
		}
		cands = append(cands, cand{tick: t, name: name})
	}
	if len(cands) == 0 {
		return "", nil
	}
	sort.Slice(cands, func(i, j int) bool { return cands[i].tick < cands[j].tick })
	return filepath.Join(dir, cands[len(cands)-1].name), nil
}
