package h3

import (
	"testing"

	"github.com/hface-go/hface"
)

func drainEvents(eng hface.QUICProtocol) []hface.Event {
	var out []hface.Event
	for {
		ev := eng.NextEvent()
		if ev == nil {
			return out
		}
		out = append(out, ev)
	}
}

// settle repeatedly exchanges whatever datagrams each side has queued
// until both run dry, carrying the initial SETTINGS exchange and one or
// two request/response legs to quiescence.
func settle(a, b hface.QUICProtocol) {
	for i := 0; i < 8; i++ {
		ad, _ := a.DatagramsToSend()
		for _, dg := range ad {
			b.DatagramReceived(dg.Payload, nil)
		}
		bd, _ := b.DatagramsToSend()
		for _, dg := range bd {
			a.DatagramReceived(dg.Payload, nil)
		}
		if len(ad) == 0 && len(bd) == 0 {
			break
		}
	}
}

func requestHeaders(path string) hface.Headers {
	return hface.Headers{
		{Name: ":method", Value: "GET"},
		{Name: ":scheme", Value: "https"},
		{Name: ":authority", Value: "example.test"},
		{Name: ":path", Value: path},
	}
}

// TestHTTP3RequestResponse implements scenario S4: over a paired HTTP/3
// engine, the client opens its first stream with a GET and the server
// responds with a 200 status and three 10-byte data frames, EndStream set
// only on the last.
func TestHTTP3RequestResponse(t *testing.T) {
	client := NewEngine(hface.RoleClient)
	server := NewEngine(hface.RoleServer)

	id, err := client.AvailableStreamID()
	if err != nil {
		t.Fatalf("AvailableStreamID: %v", err)
	}
	if id != 0 {
		t.Fatalf("first client stream id = %d, want 0", id)
	}
	if err := client.SubmitHeaders(id, requestHeaders("/"), true); err != nil {
		t.Fatalf("SubmitHeaders: %v", err)
	}

	settle(client, server)

	serverEvents := drainEvents(server)
	if len(serverEvents) != 1 {
		t.Fatalf("server events = %#v, want exactly one HeadersReceived", serverEvents)
	}
	hr, ok := serverEvents[0].(hface.HeadersReceived)
	if !ok || hr.StreamID != id || !hr.EndStream {
		t.Fatalf("server event = %#v, want HeadersReceived{StreamID: %d, EndStream: true}", serverEvents[0], id)
	}

	if err := server.SubmitHeaders(id, hface.Headers{{Name: ":status", Value: "200"}}, false); err != nil {
		t.Fatalf("server.SubmitHeaders: %v", err)
	}
	chunk := make([]byte, 10)
	for i := range chunk {
		chunk[i] = byte('a' + i%5)
	}
	if err := server.SubmitData(id, chunk, false); err != nil {
		t.Fatalf("server.SubmitData(1): %v", err)
	}
	if err := server.SubmitData(id, chunk, false); err != nil {
		t.Fatalf("server.SubmitData(2): %v", err)
	}
	if err := server.SubmitData(id, chunk, true); err != nil {
		t.Fatalf("server.SubmitData(3): %v", err)
	}

	settle(client, server)

	clientEvents := drainEvents(client)
	if len(clientEvents) != 4 {
		t.Fatalf("client events = %#v, want 1 HeadersReceived + 3 DataReceived", clientEvents)
	}
	if _, ok := clientEvents[0].(hface.HeadersReceived); !ok {
		t.Fatalf("clientEvents[0] = %#v, want HeadersReceived", clientEvents[0])
	}
	for i := 1; i < 4; i++ {
		dr, ok := clientEvents[i].(hface.DataReceived)
		if !ok {
			t.Fatalf("clientEvents[%d] = %#v, want DataReceived", i, clientEvents[i])
		}
		wantEnd := i == 3
		if dr.EndStream != wantEnd {
			t.Fatalf("clientEvents[%d].EndStream = %v, want %v", i, dr.EndStream, wantEnd)
		}
		if len(dr.Data) != 10 {
			t.Fatalf("clientEvents[%d].Data length = %d, want 10", i, len(dr.Data))
		}
	}
}

// TestHTTP3StreamIDParity checks that successive client and server
// allocations land on their respective mod-4 residue classes.
func TestHTTP3StreamIDParity(t *testing.T) {
	client := NewEngine(hface.RoleClient)
	server := NewEngine(hface.RoleServer)

	wantClient := []hface.StreamID{0, 4, 8}
	for _, want := range wantClient {
		id, err := client.AvailableStreamID()
		if err != nil {
			t.Fatalf("client.AvailableStreamID: %v", err)
		}
		if id != want {
			t.Fatalf("client stream id = %d, want %d", id, want)
		}
	}

	wantServer := []hface.StreamID{1, 5, 9}
	for _, want := range wantServer {
		id, err := server.AvailableStreamID()
		if err != nil {
			t.Fatalf("server.AvailableStreamID: %v", err)
		}
		if id != want {
			t.Fatalf("server stream id = %d, want %d", id, want)
		}
	}
}

// TestHTTP3StreamReset checks that a reset envelope surfaces
// StreamResetReceived and blocks further submission on that stream.
func TestHTTP3StreamReset(t *testing.T) {
	client := NewEngine(hface.RoleClient)
	server := NewEngine(hface.RoleServer)

	id, err := client.AvailableStreamID()
	if err != nil {
		t.Fatalf("AvailableStreamID: %v", err)
	}
	if err := client.SubmitHeaders(id, requestHeaders("/"), false); err != nil {
		t.Fatalf("SubmitHeaders: %v", err)
	}
	settle(client, server)
	drainEvents(server)

	if err := server.SubmitStreamReset(id, hface.ErrCodeCancel); err != nil {
		t.Fatalf("server.SubmitStreamReset: %v", err)
	}
	settle(client, server)

	var resetEv *hface.StreamResetReceived
	for _, ev := range drainEvents(client) {
		if rr, ok := ev.(hface.StreamResetReceived); ok {
			resetEv = &rr
		}
	}
	if resetEv == nil {
		t.Fatalf("client never observed StreamResetReceived")
	}
	if resetEv.StreamID != id || resetEv.ErrorCode != hface.ErrCodeCancel {
		t.Fatalf("StreamResetReceived = %+v, want stream %d / cancel", resetEv, id)
	}

	err = client.SubmitData(id, []byte("x"), true)
	if !hface.IsKind(err, hface.KindProtocolMisuse) {
		t.Fatalf("SubmitData after reset: err = %v, want KindProtocolMisuse", err)
	}
}

// TestHTTP3Goaway checks that a graceful shutdown after one completed
// exchange surfaces GoawayReceived and makes the client unavailable.
func TestHTTP3Goaway(t *testing.T) {
	client := NewEngine(hface.RoleClient)
	server := NewEngine(hface.RoleServer)

	id, err := client.AvailableStreamID()
	if err != nil {
		t.Fatalf("AvailableStreamID: %v", err)
	}
	if err := client.SubmitHeaders(id, requestHeaders("/"), true); err != nil {
		t.Fatalf("SubmitHeaders: %v", err)
	}
	settle(client, server)
	drainEvents(server)

	if err := server.SubmitHeaders(id, hface.Headers{{Name: ":status", Value: "200"}}, true); err != nil {
		t.Fatalf("server.SubmitHeaders: %v", err)
	}
	settle(client, server)
	drainEvents(client)

	ec := hface.ErrCodeNoError
	if err := server.SubmitClose(&ec); err != nil {
		t.Fatalf("server.SubmitClose: %v", err)
	}
	settle(client, server)

	found := false
	for _, ev := range drainEvents(client) {
		if ga, ok := ev.(hface.GoawayReceived); ok {
			found = true
			if ga.LastStreamID != id {
				t.Fatalf("GoawayReceived.LastStreamID = %d, want %d", ga.LastStreamID, id)
			}
		}
	}
	if !found {
		t.Fatalf("client never observed GoawayReceived")
	}
	if _, err := client.AvailableStreamID(); !hface.IsKind(err, hface.KindNotAvailable) {
		t.Fatalf("AvailableStreamID after GOAWAY: err = %v, want KindNotAvailable", err)
	}
}

// TestHTTP3ConnectionIDs checks that each engine carries a non-empty
// connection ID, per §4.3's connection_ids property.
func TestHTTP3ConnectionIDs(t *testing.T) {
	e := NewEngine(hface.RoleClient)
	ids := e.ConnectionIDs()
	if len(ids) != 1 || len(ids[0]) == 0 {
		t.Fatalf("ConnectionIDs() = %#v, want exactly one non-empty id", ids)
	}
}
