package indexdb

import (
	"database/sql"
	"fmt"
	"os"
	"strings"
)

// LinkEventFilter narrows QueryLinkEvents. Zero values match everything.
type LinkEventFilter struct {
	Source   *[3]int
	Action   string
	Reason   string
	FromTick uint64
	Limit    int
}

// OpenQuery opens an existing index for queries (admin tools).
func OpenQuery(path string) (*sql.DB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open index %s: %w", path, err)
	}
	return db, nil
}

func QueryLinkEvents(db *sql.DB, f LinkEventFilter) ([]LinkEvent, error) {
	var (
		where []string
		args  []any
	)
	if f.Source != nil {
		where = append(where, "sx=? AND sy=? AND sz=?")
		args = append(args, f.Source[0], f.Source[1], f.Source[2])
	}
	if f.Action != "" {
		where = append(where, "action=?")
		args = append(args, f.Action)
	}
	if f.Reason != "" {
		where = append(where, "reason=?")
		args = append(args, f.Reason)
	}
	if f.FromTick > 0 {
		where = append(where, "tick>=?")
		args = append(args, int64(f.FromTick))
	}
	q := `SELECT tick,seq,action,sx,sy,sz,tx,ty,tz,mode,code,reason FROM link_events`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY tick, seq"
	if f.Limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	rows, err := db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LinkEvent
	for rows.Next() {
		var (
			e    LinkEvent
			tick int64
		)
		if err := rows.Scan(&tick, &e.Seq, &e.Action,
			&e.Source[0], &e.Source[1], &e.Source[2],
			&e.Target[0], &e.Target[1], &e.Target[2],
			&e.Mode, &e.Code, &e.Reason); err != nil {
			return nil, err
		}
		e.Tick = uint64(tick)
		out = append(out, e)
	}
	return out, rows.Err()
}

func QueryDevices(db *sql.DB, typeID string) ([]DeviceRow, error) {
	q := `SELECT x,y,z,type_id,facing,powered,links,tick FROM devices`
	var args []any
	if typeID != "" {
		q += ` WHERE type_id=?`
		args = append(args, typeID)
	}
	q += ` ORDER BY x,y,z`
	rows, err := db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []DeviceRow
	for rows.Next() {
		var (
			d       DeviceRow
			powered int
			tick    int64
		)
		if err := rows.Scan(&d.Pos[0], &d.Pos[1], &d.Pos[2], &d.TypeID, &d.Facing, &powered, &d.Links, &tick); err != nil {
			return nil, err
		}
		d.Powered = powered != 0
		d.Tick = uint64(tick)
		out = append(out, d)
	}
	return out, rows.Err()
}
