package h2

import (
	"testing"

	"github.com/hface-go/hface"
)

func drainEvents(eng hface.TCPProtocol) []hface.Event {
	var out []hface.Event
	for {
		ev := eng.NextEvent()
		if ev == nil {
			return out
		}
		out = append(out, ev)
	}
}

// settle repeatedly exchanges whatever bytes each side has queued until
// both run dry, which is enough to carry the connection preface, initial
// SETTINGS exchange, and one or two request/response legs to quiescence.
func settle(a, b hface.TCPProtocol) {
	for i := 0; i < 8; i++ {
		ab := a.BytesToSend()
		if len(ab) > 0 {
			b.BytesReceived(ab)
		}
		ba := b.BytesToSend()
		if len(ba) > 0 {
			a.BytesReceived(ba)
		}
		if len(ab) == 0 && len(ba) == 0 {
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

// TestHTTP2ConcurrentStreams implements scenario S2: the client opens two
// streams before either gets a response, and the server's replies arrive
// to the client in the order the server sent them, not the order the
// streams were opened.
func TestHTTP2ConcurrentStreams(t *testing.T) {
	client := NewEngine(hface.RoleClient)
	server := NewEngine(hface.RoleServer)

	id1, err := client.AvailableStreamID()
	if err != nil {
		t.Fatalf("AvailableStreamID (1st): %v", err)
	}
	id3, err := client.AvailableStreamID()
	if err != nil {
		t.Fatalf("AvailableStreamID (2nd): %v", err)
	}
	if id1 != 1 || id3 != 3 {
		t.Fatalf("ids = %d, %d, want 1, 3", id1, id3)
	}

	if err := client.SubmitHeaders(id1, requestHeaders("/one"), true); err != nil {
		t.Fatalf("SubmitHeaders(1): %v", err)
	}
	if err := client.SubmitHeaders(id3, requestHeaders("/three"), true); err != nil {
		t.Fatalf("SubmitHeaders(3): %v", err)
	}

	settle(client, server)

	serverEvents := drainEvents(server)
	var seen []hface.StreamID
	for _, ev := range serverEvents {
		if hr, ok := ev.(hface.HeadersReceived); ok {
			seen = append(seen, hr.StreamID)
		}
	}
	if len(seen) != 2 || seen[0] != 1 || seen[1] != 3 {
		t.Fatalf("server saw HeadersReceived for streams %v, want [1 3]", seen)
	}

	// Server responds to stream 3 first, then 1.
	if err := server.SubmitHeaders(3, hface.Headers{{Name: ":status", Value: "200"}}, true); err != nil {
		t.Fatalf("server.SubmitHeaders(3): %v", err)
	}
	if err := server.SubmitHeaders(1, hface.Headers{{Name: ":status", Value: "200"}}, true); err != nil {
		t.Fatalf("server.SubmitHeaders(1): %v", err)
	}

	settle(client, server)

	clientEvents := drainEvents(client)
	seen = nil
	for _, ev := range clientEvents {
		if hr, ok := ev.(hface.HeadersReceived); ok {
			seen = append(seen, hr.StreamID)
		}
	}
	if len(seen) != 2 || seen[0] != 3 || seen[1] != 1 {
		t.Fatalf("client saw HeadersReceived for streams %v, want [3 1]", seen)
	}
}

// TestHTTP2RSTStream implements scenario S3: a server-initiated
// RST_STREAM forces the matching stream closed and any subsequent
// submit_data on it fails with ProtocolMisuse.
func TestHTTP2RSTStream(t *testing.T) {
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

	clientEvents := drainEvents(client)
	var resetEv *hface.StreamResetReceived
	for i := range clientEvents {
		if rr, ok := clientEvents[i].(hface.StreamResetReceived); ok {
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

// TestHTTP2Goaway checks that a graceful shutdown after one completed
// exchange surfaces GoawayReceived and makes the client unavailable.
func TestHTTP2Goaway(t *testing.T) {
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

	clientEvents := drainEvents(client)
	found := false
	for _, ev := range clientEvents {
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
