package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/stfwi/rsgauges-sub000/internal/metrics"
	"github.com/stfwi/rsgauges-sub000/internal/persistence/archive"
	"github.com/stfwi/rsgauges-sub000/internal/persistence/indexdb"
	persistlog "github.com/stfwi/rsgauges-sub000/internal/persistence/log"
	"github.com/stfwi/rsgauges-sub000/internal/persistence/snapshot"
	"github.com/stfwi/rsgauges-sub000/internal/sim/catalogs"
	"github.com/stfwi/rsgauges-sub000/internal/sim/device"
	"github.com/stfwi/rsgauges-sub000/internal/sim/link"
	"github.com/stfwi/rsgauges-sub000/internal/sim/tuning"
	"github.com/stfwi/rsgauges-sub000/internal/sim/world"
	"github.com/stfwi/rsgauges-sub000/internal/transport/observer"
)

func main() {
	var (
		addr       = flag.String("addr", "127.0.0.1:8080", "http listen address")
		worldID    = flag.String("world", "world_1", "world id")
		configDir  = flag.String("configs", "./configs", "config directory")
		schemaPath = flag.String("schema", "./schemas/devices.schema.json", "devices.json schema (empty to skip validation)")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite index (link events, device table, snapshot metadata)")
		keepSnaps  = flag.Int("keep_snapshots", 24, "rolling snapshots to keep (0 keeps all)")

		snapPath   = flag.String("snapshot", "", "path to snapshot to load (optional)")
		loadLatest = flag.Bool("load_latest_snapshot", true, "load latest snapshot from data dir if present (when -snapshot is empty)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cats, err := catalogs.Load(*configDir, catalogs.Options{SchemaPath: *schemaPath, Logger: logger})
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}
	logger.Printf("device catalog: %d types (%d rejected) digest=%s", len(cats.Devices.IDs), len(cats.Devices.Rejected), cats.Devices.Digest[:12])

	worldDir := filepath.Join(*dataDir, "worlds", *worldID)
	snapDir := filepath.Join(worldDir, "snapshots")
	_ = os.MkdirAll(worldDir, 0o755)

	snapshotToLoad := strings.TrimSpace(*snapPath)
	if snapshotToLoad == "" && *loadLatest {
		if p, err := snapshot.Latest(snapDir); err == nil {
			snapshotToLoad = p
		}
	}

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		// A resumed world carries its tuning in the snapshot.
		if snapshotToLoad == "" || !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
	}

	var idx *indexdb.SQLiteIndex
	if !*disableDB {
		idx, err = indexdb.OpenSQLite(filepath.Join(worldDir, "index", "world.sqlite"))
		if err != nil {
			logger.Fatalf("open index: %v", err)
		}
		defer idx.Close()
		if err := idx.UpsertCatalogs(*configDir, cats, tune); err != nil {
			logger.Printf("index: upsert catalogs: %v", err)
		}
	}

	w := world.New(worldConfig(*worldID, tune, logger), cats)
	if snapshotToLoad != "" {
		snap, err := snapshot.ReadSnapshot(snapshotToLoad)
		if err != nil {
			logger.Fatalf("read snapshot: %v", err)
		}
		if snap.Header.WorldID != "" && snap.Header.WorldID != *worldID {
			logger.Fatalf("snapshot world id mismatch: flag=%s snap=%s", *worldID, snap.Header.WorldID)
		}
		if err := w.ImportSnapshot(snap); err != nil {
			logger.Fatalf("import snapshot: %v", err)
		}
		logger.Printf("resumed from snapshot=%s tick=%d devices=%d", filepath.Base(snapshotToLoad), w.CurrentTick(), len(snap.Devices))
	}

	ctx, cancel := signalContext()
	defer cancel()

	effectLog := persistlog.NewEffectLogger(worldDir)
	auditLog := persistlog.NewAuditLogger(worldDir)
	defer effectLog.Close()
	defer auditLog.Close()
	w.SetEffectLogger(effectLog)
	if idx != nil {
		w.SetAuditLogger(persistlog.MultiAudit{auditLog, idx})
	} else {
		w.SetAuditLogger(auditLog)
	}

	m := metrics.New(*worldID)
	w.SetMetrics(m)
	hub := observer.NewHub()
	w.SetBroadcaster(hub)
	m.Gauge("observer_sessions", "Connected observer sessions.", func() float64 { return float64(hub.Sessions()) })
	m.Gauge("observer_dropped_total", "Observer messages dropped on full session queues.", func() float64 { return float64(hub.Dropped()) })
	if idx != nil {
		m.Gauge("index_queue_depth", "Pending index writes.", func() float64 { return float64(idx.Stats().QueueDepth) })
	}

	snapCh := make(chan snapshot.SnapshotV1, 2)
	w.SetSnapshotSink(snapCh)
	go runSnapshotWriter(ctx, snapCh, snapshotWriter{
		worldDir: worldDir,
		keep:     *keepSnaps,
		idx:      idx,
		logger:   logger,
	})

	go func() {
		if err := w.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("world stopped: %v", err)
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.Handle("/metrics", m.Handler())

	obsSrv := observer.NewServer(w, hub, logger)
	mux.HandleFunc("/observer/bootstrap", obsSrv.BootstrapHandler())
	mux.HandleFunc("/observer/ws", obsSrv.WSHandler())

	if envBool("RSG_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP()) {
		registerAdmin(mux, w)
	} else {
		logger.Printf("admin endpoints disabled (RSG_ENABLE_ADMIN_HTTP=false)")
	}
	if envBool("RSG_ENABLE_PPROF_HTTP", false) {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

func worldConfig(id string, tune tuning.Tuning, logger *log.Logger) world.Config {
	return world.Config{
		ID:                 id,
		TickRateHz:         tune.TickRateHz,
		DayTicks:           tune.DayTicks,
		SnapshotEveryTicks: tune.SnapshotEveryTicks,
		Device: device.Settings{
			TickBase: tune.TickBase,
			Links: link.Settings{
				Enabled:     tune.LinksEnabled,
				MaxDistance: tune.MaxLinkDistance,
			},
			MaxLinks:       tune.MaxLinksPerDevice,
			FailureBackoff: tune.FailureBackoffTicks,
			Seed:           tune.Seed,
		},
		Logger: logger,
	}
}

type snapshotWriter struct {
	worldDir string
	keep     int
	idx      *indexdb.SQLiteIndex
	logger   *log.Logger
}

func runSnapshotWriter(ctx context.Context, ch <-chan snapshot.SnapshotV1, sw snapshotWriter) {
	for {
		select {
		case <-ctx.Done():
			return
		case snap := <-ch:
			sw.write(snap)
		}
	}
}

func (sw snapshotWriter) write(snap snapshot.SnapshotV1) {
	dir := filepath.Join(sw.worldDir, "snapshots")
	path := filepath.Join(dir, snapshot.Name(snap.Header.Tick))
	if err := snapshot.WriteSnapshot(path, snap); err != nil {
		sw.logger.Printf("snapshot write: %v", err)
		return
	}
	if sw.idx != nil {
		sw.idx.RecordSnapshot(path, snap)
	}
	if day, _, ok, err := archive.ArchiveDaySnapshot(sw.worldDir, path, snap); err != nil {
		sw.logger.Printf("archive day snapshot: %v", err)
	} else if ok {
		sw.logger.Printf("archived day %d snapshot tick=%d", day, snap.Header.Tick)
	}
	if removed, err := archive.Prune(dir, sw.keep); err != nil {
		sw.logger.Printf("prune snapshots: %v", err)
	} else if len(removed) > 0 {
		sw.logger.Printf("pruned %d snapshots", len(removed))
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func defaultEnableAdminHTTP() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV"))) {
	case "staging", "production":
		return false
	default:
		return true
	}
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
