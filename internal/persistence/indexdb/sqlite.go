package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"github.com/stfwi/rsgauges-sub000/internal/persistence/snapshot"
	"github.com/stfwi/rsgauges-sub000/internal/protocol"
	"github.com/stfwi/rsgauges-sub000/internal/sim/catalogs"
	"github.com/stfwi/rsgauges-sub000/internal/sim/tuning"
)

// SQLiteIndex is a queryable read model next to the JSONL logs and the
// snapshots. Writes are queued and applied by a single writer goroutine; a
// full queue drops the write and counts it.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropAudit    atomic.Uint64
	dropSnapshot atomic.Uint64
}

type reqKind int

const (
	reqAudit reqKind = iota + 1
	reqSnapshot
)

type req struct {
	kind reqKind

	audit    protocol.AuditEntry
	snapshot snapshotRow
}

type snapshotRow struct {
	Tick    uint64
	Path    string
	WorldID string
	Devices []snapshot.DeviceV1
	Links   int
}

type Stats struct {
	QueueDepth        int
	QueueCapacity     int
	DropAuditTotal    uint64
	DropSnapshotTotal uint64
}

// LinkEvent is one row of link_events.
type LinkEvent struct {
	Tick   uint64
	Seq    int
	Action string
	Source [3]int
	Target [3]int
	Mode   string
	Code   string
	Reason string
}

// DeviceRow is one row of devices.
type DeviceRow struct {
	Pos     [3]int
	TypeID  string
	Facing  string
	Powered bool
	Links   int
	Tick    uint64
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS link_events (
			tick INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			action TEXT NOT NULL,
			sx INTEGER NOT NULL,
			sy INTEGER NOT NULL,
			sz INTEGER NOT NULL,
			tx INTEGER NOT NULL,
			ty INTEGER NOT NULL,
			tz INTEGER NOT NULL,
			mode TEXT NOT NULL,
			code TEXT NOT NULL,
			reason TEXT NOT NULL,
			raw_json TEXT NOT NULL,
			PRIMARY KEY (tick, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_link_events_source ON link_events(sx, sz, sy, tick);`,
		`CREATE INDEX IF NOT EXISTS idx_link_events_reason ON link_events(reason, tick);`,
		`CREATE TABLE IF NOT EXISTS devices (
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			z INTEGER NOT NULL,
			type_id TEXT NOT NULL,
			facing TEXT NOT NULL,
			powered INTEGER NOT NULL,
			links INTEGER NOT NULL,
			record_json TEXT NOT NULL,
			tick INTEGER NOT NULL,
			PRIMARY KEY (x, y, z)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_devices_type ON devices(type_id);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			tick INTEGER PRIMARY KEY,
			path TEXT NOT NULL,
			world_id TEXT NOT NULL,
			devices INTEGER NOT NULL,
			links INTEGER NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:        len(s.ch),
		QueueCapacity:     cap(s.ch),
		DropAuditTotal:    s.dropAudit.Load(),
		DropSnapshotTotal: s.dropSnapshot.Load(),
	}
}

// WriteAudit indexes link related audit entries. Other actions stay in the
// JSONL audit log only.
func (s *SQLiteIndex) WriteAudit(entry protocol.AuditEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	if !isLinkAction(entry.Action) {
		return nil
	}
	select {
	case s.ch <- req{kind: reqAudit, audit: entry}:
	default:
		s.dropAudit.Add(1)
	}
	return nil
}

func isLinkAction(a string) bool {
	switch a {
	case "LINK_ASSIGN", "LINK_REMOVE", "LINK_FAILURE":
		return true
	}
	return false
}

// RecordSnapshot replaces the devices table with the snapshot's devices and
// adds a snapshots row.
func (s *SQLiteIndex) RecordSnapshot(path string, snap snapshot.SnapshotV1) {
	if s == nil || s.closed.Load() {
		return
	}
	r := snapshotRow{
		Tick:    snap.Header.Tick,
		Path:    path,
		WorldID: snap.Header.WorldID,
		Devices: snap.Devices,
	}
	for _, d := range snap.Devices {
		r.Links += len(d.Record.Links)
	}
	select {
	case s.ch <- req{kind: reqSnapshot, snapshot: r}:
	default:
		s.dropSnapshot.Add(1)
	}
}

// UpsertCatalogs stores the device catalog and the applied tuning with their
// digests. It runs synchronously at startup.
func (s *SQLiteIndex) UpsertCatalogs(configDir string, cats *catalogs.Catalogs, tune tuning.Tuning) error {
	if s == nil || cats == nil {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	type kv struct {
		name   string
		digest string
		json   []byte
	}
	var rows []kv
	if configDir != "" {
		if b, err := os.ReadFile(filepath.Join(configDir, "devices.json")); err == nil {
			rows = append(rows, kv{name: "devices", digest: cats.Devices.Digest, json: b})
		}
	}
	if b, _ := json.Marshal(cats.Blocks.ByName); len(b) > 0 {
		rows = append(rows, kv{name: "block_categories", digest: cats.Blocks.Digest, json: b})
	}
	{
		b, _ := json.Marshal(tune)
		sum := sha256.Sum256(b)
		rows = append(rows, kv{name: "tuning", digest: hex.EncodeToString(sum[:]), json: b})
	}

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if r.digest == "" || len(r.json) == 0 {
			continue
		}
		if _, err := stmt.Exec(r.name, r.digest, string(r.json), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 500
		commitMaxWait = time.Second

		lastAuditTick uint64
		auditSeq      int
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqAudit:
			a := r.audit
			if a.Tick != lastAuditTick {
				lastAuditTick = a.Tick
				auditSeq = 0
			}
			seq := auditSeq
			auditSeq++
			if err := insertLinkEvent(tx, a, seq); err != nil {
				rollback()
				continue
			}
			opCount++

		case reqSnapshot:
			n, err := replaceDevices(tx, r.snapshot)
			if err != nil {
				rollback()
				continue
			}
			opCount += n
			// A snapshot is a consistent point; make it visible right away.
			commit()
			continue
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	commit()
}

func insertLinkEvent(tx *sql.Tx, a protocol.AuditEntry, seq int) error {
	target := posDetail(a.Details["target"])
	mode, _ := a.Details["mode"].(string)
	reason := a.Reason
	raw, _ := json.Marshal(a)
	_, err := tx.Exec(
		`INSERT OR REPLACE INTO link_events(tick,seq,action,sx,sy,sz,tx,ty,tz,mode,code,reason,raw_json) VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		int64(a.Tick), seq, a.Action,
		a.Pos[0], a.Pos[1], a.Pos[2],
		target[0], target[1], target[2],
		mode, a.Code, reason, string(raw),
	)
	return err
}

// posDetail reads a position from an audit detail. Entries built in process
// carry [3]int; entries decoded from JSON carry []any of float64.
func posDetail(v any) [3]int {
	switch p := v.(type) {
	case [3]int:
		return p
	case []any:
		var out [3]int
		for i := 0; i < 3 && i < len(p); i++ {
			if f, ok := p[i].(float64); ok {
				out[i] = int(f)
			}
		}
		return out
	}
	return [3]int{}
}

func replaceDevices(tx *sql.Tx, sn snapshotRow) (int, error) {
	if _, err := tx.Exec(`DELETE FROM devices`); err != nil {
		return 0, err
	}
	stmt, err := tx.Prepare(`INSERT INTO devices(x,y,z,type_id,facing,powered,links,record_json,tick) VALUES(?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()
	for _, d := range sn.Devices {
		raw, _ := json.Marshal(d.Record)
		powered := 0
		if d.Record.Powered {
			powered = 1
		}
		if _, err := stmt.Exec(d.Pos[0], d.Pos[1], d.Pos[2], d.Record.TypeID, d.Facing, powered, len(d.Record.Links), string(raw), int64(sn.Tick)); err != nil {
			return 0, err
		}
	}
	if _, err := tx.Exec(`INSERT OR REPLACE INTO snapshots(tick,path,world_id,devices,links) VALUES(?,?,?,?,?)`,
		int64(sn.Tick), sn.Path, sn.WorldID, len(sn.Devices), sn.Links); err != nil {
		return 0, err
	}
	return len(sn.Devices) + 1, nil
}
