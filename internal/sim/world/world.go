package world

import (
	"context"
	"log"
	"sort"
	"sync/atomic"
	"time"

	"github.com/stfwi/rsgauges-sub000/internal/persistence/snapshot"
	"github.com/stfwi/rsgauges-sub000/internal/sim/catalogs"
	"github.com/stfwi/rsgauges-sub000/internal/sim/device"
	"github.com/stfwi/rsgauges-sub000/internal/sim/host"
)

type Config struct {
	ID                 string
	TickRateHz         int
	DayTicks           int
	SnapshotEveryTicks int
	Device             device.Settings

	Logger *log.Logger
}

// World is the reference host for the switch engine: an in-memory block and
// entity store that owns every device instance.
// All state must be accessed only from the world loop goroutine.
type World struct {
	cfg  Config
	cats *catalogs.Catalogs
	env  *device.Env

	tick atomic.Uint64

	blocks     map[host.Pos]string
	light      map[host.Pos]int
	signals    map[host.Pos]int
	containers map[host.Pos]container
	comparator map[host.Pos]int
	unloaded   map[chunkKey]bool
	entities   map[string]host.Entity

	timeOfDay  int
	raining    bool
	thundering bool

	devices  map[host.Pos]*device.Instance
	order    []host.Pos
	orderOK  bool
	detached map[string]detachedLink

	requests chan request
	stop     chan struct{}

	// Optional sinks (may be nil).
	effectLog    EffectLogger
	auditLog     AuditLogger
	stream       Broadcaster
	metrics      Metrics
	snapshotSink chan<- snapshot.SnapshotV1
}

type container struct {
	Used  int
	Total int
}

func New(cfg Config, cats *catalogs.Catalogs) *World {
	if cfg.TickRateHz <= 0 {
		cfg.TickRateHz = 20
	}
	if cfg.DayTicks <= 0 {
		cfg.DayTicks = 24000
	}
	if cfg.Device.TickBase <= 0 {
		cfg.Device = device.DefaultSettings()
	}
	w := &World{
		cfg:        cfg,
		cats:       cats,
		blocks:     map[host.Pos]string{},
		light:      map[host.Pos]int{},
		signals:    map[host.Pos]int{},
		containers: map[host.Pos]container{},
		comparator: map[host.Pos]int{},
		unloaded:   map[chunkKey]bool{},
		entities:   map[string]host.Entity{},
		devices:    map[host.Pos]*device.Instance{},
		detached:   map[string]detachedLink{},
		requests:   make(chan request, 256),
		stop:       make(chan struct{}),
	}
	w.env = &device.Env{
		World:    w,
		Effects:  w,
		Notifier: w,
		Resolver: w,
		Observer: w,
		Logger:   cfg.Logger,
		Settings: cfg.Device,
	}
	if cats != nil {
		w.env.Categories = cats.Blocks
	}
	return w
}

func (w *World) SetEffectLogger(l EffectLogger)                { w.effectLog = l }
func (w *World) SetAuditLogger(l AuditLogger)                  { w.auditLog = l }
func (w *World) SetBroadcaster(b Broadcaster)                  { w.stream = b }
func (w *World) SetMetrics(m Metrics)                          { w.metrics = m }
func (w *World) SetSnapshotSink(ch chan<- snapshot.SnapshotV1) { w.snapshotSink = ch }

func (w *World) ID() string          { return w.cfg.ID }
func (w *World) Config() Config      { return w.cfg }
func (w *World) CurrentTick() uint64 { return w.tick.Load() }

// DeviceTypes lists the placeable type ids. The catalog is immutable, so this
// is safe from any goroutine.
func (w *World) DeviceTypes() []string {
	if w.cats == nil {
		return nil
	}
	return append([]string(nil), w.cats.Devices.IDs...)
}

func (w *World) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(w.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pending []request
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case req := <-w.requests:
			pending = append(pending, req)
		case <-ticker.C:
			w.step(pending)
			pending = pending[:0]
		}
	}
}

func (w *World) Stop() { close(w.stop) }

// StepOnce advances the world by a single tick using the same ordering
// semantics as Run. It is intended for tests and tools.
func (w *World) StepOnce() uint64 {
	tick := w.tick.Load()
	w.step(nil)
	return tick
}

func (w *World) step(reqs []request) {
	now := w.tick.Load()

	// Requests apply at the tick boundary in arrival order.
	for _, r := range reqs {
		w.apply(now, r)
	}

	for _, p := range w.sortedPositions() {
		inst := w.devices[p]
		if inst == nil {
			continue
		}
		inst.Tick(now)
		if fall := inst.TakeShock(); fall > 0 {
			w.propagateShock(now, inst, fall)
		}
	}

	w.timeOfDay = (w.timeOfDay + 1) % w.cfg.DayTicks

	if w.metrics != nil {
		w.metrics.SetTick(now)
		w.metrics.SetDevices(len(w.devices))
	}

	if w.snapshotSink != nil && w.cfg.SnapshotEveryTicks > 0 && now != 0 && now%uint64(w.cfg.SnapshotEveryTicks) == 0 {
		snap := w.ExportSnapshot(now)
		select {
		case w.snapshotSink <- snap:
		default:
			w.logf("snapshot sink backed up, dropping tick %d", now)
		}
	}

	w.tick.Add(1)
}

// propagateShock hands a landing to the same-type shock sensitive contacts
// in the 3x3 horizontal neighbourhood.
func (w *World) propagateShock(now uint64, src *device.Instance, fall float64) {
	p := src.Pos()
	for dx := -1; dx <= 1; dx++ {
		for dz := -1; dz <= 1; dz++ {
			if dx == 0 && dz == 0 {
				continue
			}
			n := w.devices[host.Pos{X: p.X + dx, Y: p.Y, Z: p.Z + dz}]
			if n == nil || n.TypeID() != src.TypeID() {
				continue
			}
			n.Shock(now, fall)
		}
	}
}

func (w *World) sortedPositions() []host.Pos {
	if w.orderOK {
		return w.order
	}
	// Fresh slice: a caller may still iterate the previous order.
	order := make([]host.Pos, 0, len(w.devices))
	for p := range w.devices {
		order = append(order, p)
	}
	sort.Slice(order, func(i, j int) bool { return host.Less(order[i], order[j]) })
	w.order = order
	w.orderOK = true
	return order
}

func (w *World) logf(format string, args ...any) {
	if w.cfg.Logger != nil {
		w.cfg.Logger.Printf(format, args...)
	}
}
