package api

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dc-labs/bgpd/internal/fsm"
	"github.com/dc-labs/bgpd/internal/msg"
	"github.com/dc-labs/bgpd/internal/nlri"
)

// Encoder selects the API process's output rendering (spec §4.8 "text/
// JSON run mode").
type Encoder string

const (
	EncoderText Encoder = "text"
	EncoderJSON Encoder = "json"
)

// jsonEvent is the stable-field-name structured record (spec §6 "stable
// field names: neighbor.address.peer, message.update.announce,
// message.update.withdraw, message.eor, state").
type jsonEvent struct {
	Type     string          `json:"type"`
	Neighbor jsonNeighbor    `json:"neighbor"`
	State    string          `json:"state,omitempty"`
	Message  *jsonMessage    `json:"message,omitempty"`
}

type jsonNeighbor struct {
	Address jsonAddress `json:"address"`
}

type jsonAddress struct {
	Peer string `json:"peer"`
}

type jsonMessage struct {
	Update *jsonUpdate `json:"update,omitempty"`
	EOR    *jsonFamily `json:"eor,omitempty"`
	Notify *jsonNotify `json:"notification,omitempty"`
}

type jsonUpdate struct {
	Announce []string `json:"announce,omitempty"`
	Withdraw []string `json:"withdraw,omitempty"`
}

type jsonFamily struct {
	Family string `json:"family"`
}

type jsonNotify struct {
	Code    uint8 `json:"code"`
	Subcode uint8 `json:"subcode"`
}

// RenderEvent turns one FSM event into a single newline-terminated
// record in the requested encoding.
func RenderEvent(enc Encoder, ev fsm.Event) string {
	if enc == EncoderJSON {
		return renderJSON(ev)
	}
	return renderText(ev)
}

func renderJSON(ev fsm.Event) string {
	je := jsonEvent{Neighbor: jsonNeighbor{Address: jsonAddress{Peer: ev.Peer}}}

	switch m := ev.Msg.(type) {
	case nil:
		je.Type = "state"
		je.State = ev.State.String()
	case msg.Update:
		je.Type = "update"
		je.Message = &jsonMessage{Update: &jsonUpdate{
			Announce: withPathStrings(m.NLRIs),
			Withdraw: withPathStrings(m.WithdrawnRoutes),
		}}
	case msg.Notification:
		je.Type = "notification"
		je.Message = &jsonMessage{Notify: &jsonNotify{Code: uint8(m.Code), Subcode: m.Subcode}}
	case msg.Keepalive:
		je.Type = "keepalive"
	default:
		je.Type = "message"
	}

	b, err := json.Marshal(je)
	if err != nil {
		return fmt.Sprintf(`{"type":"error","reason":%q}`, err.Error())
	}
	return string(b)
}

func renderText(ev fsm.Event) string {
	switch m := ev.Msg.(type) {
	case nil:
		return fmt.Sprintf("neighbor %s state %s", ev.Peer, ev.State.String())
	case msg.Update:
		var parts []string
		for _, w := range m.NLRIs {
			parts = append(parts, fmt.Sprintf("neighbor %s announced route %s", ev.Peer, w.NLRI))
		}
		for _, w := range m.WithdrawnRoutes {
			parts = append(parts, fmt.Sprintf("neighbor %s withdrawn route %s", ev.Peer, w.NLRI))
		}
		if len(parts) == 0 {
			return fmt.Sprintf("neighbor %s eor", ev.Peer)
		}
		return strings.Join(parts, "\n")
	case msg.Notification:
		return fmt.Sprintf("neighbor %s notification %d/%d", ev.Peer, m.Code, m.Subcode)
	case msg.Keepalive:
		return fmt.Sprintf("neighbor %s keepalive", ev.Peer)
	default:
		return fmt.Sprintf("neighbor %s message", ev.Peer)
	}
}

func withPathStrings(ws []nlri.WithPathID) []string {
	if len(ws) == 0 {
		return nil
	}
	out := make([]string, len(ws))
	for i, w := range ws {
		out[i] = w.NLRI.String()
	}
	return out
}
