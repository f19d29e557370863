// Package host declares the collaborator surface the switch engine consumes from
// the world it is embedded in. The engine never reaches past these interfaces.
package host

import "math"

type Pos struct {
	X int
	Y int
	Z int
}

func (p Pos) ToArray() [3]int { return [3]int{p.X, p.Y, p.Z} }

func PosFromArray(a [3]int) Pos { return Pos{X: a[0], Y: a[1], Z: a[2]} }

func (p Pos) Add(o Pos) Pos { return Pos{X: p.X + o.X, Y: p.Y + o.Y, Z: p.Z + o.Z} }

func (p Pos) Offset(f Facing, n int) Pos {
	d := f.Dir()
	return Pos{X: p.X + d.X*n, Y: p.Y + d.Y*n, Z: p.Z + d.Z*n}
}

// Center is the middle of the block cell.
func (p Pos) Center() Vec3 {
	return Vec3{X: float64(p.X) + 0.5, Y: float64(p.Y) + 0.5, Z: float64(p.Z) + 0.5}
}

// DistanceSq is the squared euclidean block distance.
func DistanceSq(a, b Pos) int {
	dx, dy, dz := a.X-b.X, a.Y-b.Y, a.Z-b.Z
	return dx*dx + dy*dy + dz*dz
}

func Less(a, b Pos) bool {
	if a.X != b.X {
		return a.X < b.X
	}
	if a.Y != b.Y {
		return a.Y < b.Y
	}
	return a.Z < b.Z
}

type Facing uint8

const (
	Down Facing = iota
	Up
	North
	South
	West
	East
)

var facingNames = [...]string{"down", "up", "north", "south", "west", "east"}

func (f Facing) String() string {
	if int(f) < len(facingNames) {
		return facingNames[f]
	}
	return "?"
}

func ParseFacing(s string) (Facing, bool) {
	for i, n := range facingNames {
		if n == s {
			return Facing(i), true
		}
	}
	return Down, false
}

func (f Facing) Dir() Pos {
	switch f {
	case Down:
		return Pos{Y: -1}
	case Up:
		return Pos{Y: 1}
	case North:
		return Pos{Z: -1}
	case South:
		return Pos{Z: 1}
	case West:
		return Pos{X: -1}
	default:
		return Pos{X: 1}
	}
}

func (f Facing) Opposite() Facing {
	switch f {
	case Down:
		return Up
	case Up:
		return Down
	case North:
		return South
	case South:
		return North
	case West:
		return East
	default:
		return West
	}
}

func (f Facing) Vertical() bool { return f == Down || f == Up }

var AllFacings = []Facing{Down, Up, North, South, West, East}

type Vec3 struct {
	X float64
	Y float64
	Z float64
}

func (v Vec3) Add(o Vec3) Vec3      { return Vec3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z} }
func (v Vec3) Sub(o Vec3) Vec3      { return Vec3{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z} }
func (v Vec3) Scale(k float64) Vec3 { return Vec3{X: v.X * k, Y: v.Y * k, Z: v.Z * k} }
func (v Vec3) Dot(o Vec3) float64   { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }
func (v Vec3) Length() float64      { return math.Sqrt(v.Dot(v)) }

func (v Vec3) Cell() Pos {
	return Pos{X: int(math.Floor(v.X)), Y: int(math.Floor(v.Y)), Z: int(math.Floor(v.Z))}
}

func FacingVec(f Facing) Vec3 {
	d := f.Dir()
	return Vec3{X: float64(d.X), Y: float64(d.Y), Z: float64(d.Z)}
}

func (v Vec3) Normalize() (Vec3, bool) {
	l := v.Length()
	if l < 1e-9 {
		return Vec3{}, false
	}
	return v.Scale(1 / l), true
}

// Box is an axis aligned volume, Min inclusive and Max exclusive.
type Box struct {
	Min Vec3
	Max Vec3
}

func BlockBox(p Pos) Box {
	return Box{
		Min: Vec3{X: float64(p.X), Y: float64(p.Y), Z: float64(p.Z)},
		Max: Vec3{X: float64(p.X + 1), Y: float64(p.Y + 1), Z: float64(p.Z + 1)},
	}
}

func (b Box) Contains(v Vec3) bool {
	return v.X >= b.Min.X && v.X < b.Max.X &&
		v.Y >= b.Min.Y && v.Y < b.Max.Y &&
		v.Z >= b.Min.Z && v.Z < b.Max.Z
}

// Union grows the box to include o.
func (b Box) Union(o Box) Box {
	return Box{
		Min: Vec3{X: math.Min(b.Min.X, o.Min.X), Y: math.Min(b.Min.Y, o.Min.Y), Z: math.Min(b.Min.Z, o.Min.Z)},
		Max: Vec3{X: math.Max(b.Max.X, o.Max.X), Y: math.Max(b.Max.Y, o.Max.Y), Z: math.Max(b.Max.Z, o.Max.Z)},
	}
}

func (b Box) Grow(dx, dy, dz float64) Box {
	return Box{
		Min: Vec3{X: b.Min.X - dx, Y: b.Min.Y - dy, Z: b.Min.Z - dz},
		Max: Vec3{X: b.Max.X + dx, Y: b.Max.Y + dy, Z: b.Max.Z + dz},
	}
}

// EntityClass is the category filter used by entity sensors. The order is
// persisted as filter_index.
type EntityClass uint8

const (
	ClassAny EntityClass = iota
	ClassPlayer
	ClassMob
	ClassAnimal
	ClassHostile
	ClassItem
)

var entityClassNames = [...]string{"any", "player", "mob", "animal", "hostile", "item"}

func (c EntityClass) String() string {
	if int(c) < len(entityClassNames) {
		return entityClassNames[c]
	}
	return "?"
}

func NumEntityClasses() int { return len(entityClassNames) }

func ParseEntityClass(s string) (EntityClass, bool) {
	for i, n := range entityClassNames {
		if n == s {
			return EntityClass(i), true
		}
	}
	return ClassAny, false
}

// Matches reports whether an entity of class e passes filter c.
func (c EntityClass) Matches(e EntityClass) bool {
	switch c {
	case ClassAny:
		return e != ClassItem
	case ClassMob:
		return e == ClassMob || e == ClassAnimal || e == ClassHostile
	default:
		return c == e
	}
}

type Entity struct {
	ID           string
	Class        EntityClass
	Pos          Vec3
	EyeHeight    float64
	Look         Vec3
	FallDistance float64
}

func (e Entity) Eye() Vec3 { return Vec3{X: e.Pos.X, Y: e.Pos.Y + e.EyeHeight, Z: e.Pos.Z} }

// WorldQuery is the read side of the host world.
type WorldQuery interface {
	Loaded(p Pos) bool
	BlockAt(p Pos) string
	// SignalAt is the signal level entering p from the neighbour on side.
	SignalAt(p Pos, side Facing) int
	AmbientLight(p Pos) int
	Raining() bool
	Thundering() bool
	TimeOfDay() int
	DayTicks() int
	EntitiesIn(box Box, filter EntityClass) []Entity
	LineOfSight(from, to Vec3) bool
	ContainerFill(p Pos) (used, total int, ok bool)
	ComparatorSignal(p Pos) (int, bool)
}

// EffectsPort plays a named audio/visual cue.
type EffectsPort interface {
	Play(cue string, p Pos)
}

// NeighborNotifier tells the blocks around p that its output changed. mount
// is the side of p holding the block the device is attached to.
type NeighborNotifier interface {
	NotifyNeighbors(p Pos, mount Facing)
}

const CueLinkFailure = "link_failure"
