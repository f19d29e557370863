package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/stfwi/rsgauges-sub000/internal/protocol"
)

// watch subscribes to the observer stream of a running server and prints one
// line per event.
func main() {
	var (
		url    = flag.String("url", "ws://127.0.0.1:8080/observer/ws", "observer ws url")
		cues   = flag.String("cues", "", "comma separated cue filter (empty: all)")
		center = flag.String("center", "", "x,y,z; only events within -radius")
		radius = flag.Int("radius", 16, "filter radius around -center")
		power  = flag.Bool("power", true, "include power changes")
		links  = flag.Bool("links", true, "include link outcomes")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[watch] ", log.LstdFlags|log.Lmicroseconds)
	sub, err := subscription(*cues, *center, *radius, *power, *links)
	if err != nil {
		logger.Fatalf("%v", err)
	}

	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if err := conn.WriteJSON(sub); err != nil {
		logger.Fatalf("send SUBSCRIBE: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	go func() {
		<-stop
		_ = conn.Close()
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
				logger.Printf("rejected: %v", err)
			}
			return
		}
		if line, ok := format(msg); ok {
			logger.Print(line)
		}
	}
}

func subscription(cues, center string, radius int, power, links bool) (protocol.SubscribeMsg, error) {
	sub := protocol.SubscribeMsg{
		Type:            protocol.TypeSubscribe,
		ProtocolVersion: protocol.Version,
		Power:           power,
		Links:           links,
	}
	for _, c := range strings.Split(cues, ",") {
		if c = strings.TrimSpace(c); c != "" {
			sub.Cues = append(sub.Cues, c)
		}
	}
	if center != "" {
		var p [3]int
		if _, err := fmt.Sscanf(strings.ReplaceAll(center, " ", ""), "%d,%d,%d", &p[0], &p[1], &p[2]); err != nil {
			return sub, fmt.Errorf("bad -center %q: %w", center, err)
		}
		sub.Center = &p
		sub.Radius = radius
	}
	return sub, nil
}

func format(msg []byte) (string, bool) {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return "", false
	}
	switch base.Type {
	case protocol.TypeEffect:
		var m protocol.EffectMsg
		if json.Unmarshal(msg, &m) != nil {
			return "", false
		}
		return fmt.Sprintf("tick=%d EFFECT %s at %v", m.Tick, m.Cue, m.Pos), true
	case protocol.TypePower:
		var m protocol.PowerMsg
		if json.Unmarshal(msg, &m) != nil {
			return "", false
		}
		return fmt.Sprintf("tick=%d POWER %v powered=%t level=%d", m.Tick, m.Pos, m.Powered, m.Power), true
	case protocol.TypeLink:
		var m protocol.LinkMsg
		if json.Unmarshal(msg, &m) != nil {
			return "", false
		}
		return fmt.Sprintf("tick=%d LINK %v -> %v %s %s", m.Tick, m.Source, m.Target, m.Mode, m.Result), true
	}
	return "", false
}
