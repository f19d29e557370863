package protocol

// SUBSCRIBE (client -> server). First message on the observer connection.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`

	// Optional filters; empty means everything.
	Cues   []string `json:"cues,omitempty"`
	Center *[3]int  `json:"center,omitempty"`
	Radius int      `json:"radius,omitempty"`
	Power  bool     `json:"power,omitempty"`
	Links  bool     `json:"links,omitempty"`
}

// EFFECT (server -> client). A cue played by a device.
type EffectMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Tick            uint64 `json:"tick"`
	Cue             string `json:"cue"`
	Pos             [3]int `json:"pos"`
	DeviceID        string `json:"device_id,omitempty"`
}

// POWER (server -> client). Output level of a device after a change.
type PowerMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Tick            uint64 `json:"tick"`
	DeviceID        string `json:"device_id"`
	Pos             [3]int `json:"pos"`
	Powered         bool   `json:"powered"`
	Power           int    `json:"power"`
}

// LINK (server -> client). One link trigger outcome.
type LinkMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Tick            uint64 `json:"tick"`
	Source          [3]int `json:"source"`
	Target          [3]int `json:"target"`
	Mode            string `json:"mode"`
	Result          string `json:"result"`
}

// AuditEntry is one durable record of a state affecting decision.
type AuditEntry struct {
	Tick    uint64 `json:"tick"`
	Action  string `json:"action"`
	Pos     [3]int `json:"pos"`
	Code    string `json:"code,omitempty"`
	Reason  string `json:"reason,omitempty"`
	Details Event  `json:"details,omitempty"`
}

// HTTP response for GET /observer/bootstrap.
type BootstrapResponse struct {
	ProtocolVersion string   `json:"protocol_version"`
	WorldID         string   `json:"world_id"`
	Tick            uint64   `json:"tick"`
	TickRateHz      int      `json:"tick_rate_hz"`
	DayTicks        int      `json:"day_ticks"`
	DeviceTypes     []string `json:"device_types"`
}

// Admin requests. Codes in responses come from errors.go.

type PlaceReq struct {
	TypeID string `json:"type_id"`
	Pos    [3]int `json:"pos"`
	Facing string `json:"facing,omitempty"`
}

type PosReq struct {
	Pos [3]int `json:"pos"`
}

type LinkReq struct {
	Source [3]int `json:"source"`
	Target [3]int `json:"target"`
	Mode   string `json:"mode"`
	Analog bool   `json:"analog,omitempty"`
}

type ConfigureReq struct {
	Pos   [3]int `json:"pos"`
	Field string `json:"field"`
	Delta int    `json:"delta"`
}

type Response struct {
	OK      bool   `json:"ok"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}
