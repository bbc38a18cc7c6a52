package h1

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/hface-go/hface"
)

// drainEvents pops every event eng currently has ready and returns them in
// order. deliver, below, carries one engine's pending outbound bytes to its
// paired peer.
func drainEvents(t *testing.T, eng hface.TCPProtocol) []hface.Event {
	t.Helper()
	var out []hface.Event
	for {
		ev := eng.NextEvent()
		if ev == nil {
			return out
		}
		out = append(out, ev)
	}
}

func deliver(t *testing.T, from, to hface.TCPProtocol) {
	t.Helper()
	b := from.BytesToSend()
	if len(b) == 0 {
		return
	}
	to.BytesReceived(b)
}

// TestHTTP1GET implements scenario S1 from the specification: a plain GET
// with a small response body over a paired client/server engine.
func TestHTTP1GET(t *testing.T) {
	client := NewEngine(hface.RoleClient, false)
	server := NewEngine(hface.RoleServer, false)

	reqHeaders := hface.Headers{
		{Name: ":method", Value: "GET"},
		{Name: ":scheme", Value: "http"},
		{Name: ":authority", Value: "example.test"},
		{Name: ":path", Value: "/"},
	}
	if err := client.SubmitHeaders(1, reqHeaders, true); err != nil {
		t.Fatalf("client.SubmitHeaders: %v", err)
	}

	deliver(t, client, server)

	serverEvents := drainEvents(t, server)
	if len(serverEvents) != 1 {
		t.Fatalf("server got %d events, want 1: %#v", len(serverEvents), serverEvents)
	}
	hr, ok := serverEvents[0].(hface.HeadersReceived)
	if !ok {
		t.Fatalf("server event = %T, want HeadersReceived", serverEvents[0])
	}
	if !hr.EndStream {
		t.Fatalf("server HeadersReceived.EndStream = false, want true")
	}
	if v, _ := hr.Headers.Get(":method"); v != "GET" {
		t.Fatalf(":method = %q, want GET", v)
	}
	if v, _ := hr.Headers.Get(":authority"); v != "example.test" {
		t.Fatalf(":authority = %q, want example.test", v)
	}

	respHeaders := hface.Headers{{Name: ":status", Value: "200"}}
	if err := server.SubmitHeaders(1, respHeaders, false); err != nil {
		t.Fatalf("server.SubmitHeaders: %v", err)
	}
	if err := server.SubmitData(1, []byte("hi"), true); err != nil {
		t.Fatalf("server.SubmitData: %v", err)
	}

	deliver(t, server, client)

	clientEvents := drainEvents(t, client)
	if len(clientEvents) != 2 {
		t.Fatalf("client got %d events, want 2: %#v", len(clientEvents), clientEvents)
	}
	statusEv, ok := clientEvents[0].(hface.HeadersReceived)
	if !ok {
		t.Fatalf("client event[0] = %T, want HeadersReceived", clientEvents[0])
	}
	if v, _ := statusEv.Headers.Get(":status"); v != "200" {
		t.Fatalf(":status = %q, want 200", v)
	}
	dataEv, ok := clientEvents[1].(hface.DataReceived)
	if !ok {
		t.Fatalf("client event[1] = %T, want DataReceived", clientEvents[1])
	}
	if string(dataEv.Data) != "hi" || !dataEv.EndStream {
		t.Fatalf("DataReceived = %q/%v, want \"hi\"/true", dataEv.Data, dataEv.EndStream)
	}

	if !client.IsAvailable() {
		t.Fatalf("client.IsAvailable() = false after completed exchange, want true")
	}
	if !server.IsAvailable() {
		t.Fatalf("server.IsAvailable() = false after completed exchange, want true")
	}
}

// TestKeepAliveReusesStream1 runs two exchanges back to back and checks the
// connection stays open and reuses stream 1 both times.
func TestKeepAliveReusesStream1(t *testing.T) {
	client := NewEngine(hface.RoleClient, false)
	server := NewEngine(hface.RoleServer, false)

	for i := 0; i < 2; i++ {
		id, err := client.AvailableStreamID()
		if err != nil {
			t.Fatalf("round %d: AvailableStreamID: %v", i, err)
		}
		if id != 1 {
			t.Fatalf("round %d: AvailableStreamID = %d, want 1", i, id)
		}
		req := hface.Headers{
			{Name: ":method", Value: "GET"},
			{Name: ":scheme", Value: "http"},
			{Name: ":authority", Value: "example.test"},
			{Name: ":path", Value: "/"},
		}
		if err := client.SubmitHeaders(id, req, true); err != nil {
			t.Fatalf("round %d: SubmitHeaders: %v", i, err)
		}
		deliver(t, client, server)
		drainEvents(t, server)

		resp := hface.Headers{{Name: ":status", Value: "204"}}
		if err := server.SubmitHeaders(1, resp, true); err != nil {
			t.Fatalf("round %d: server.SubmitHeaders: %v", i, err)
		}
		deliver(t, server, client)
		drainEvents(t, client)

		if !client.IsAvailable() || !server.IsAvailable() {
			t.Fatalf("round %d: connection not reusable after exchange", i)
		}
	}
}

// TestConnectionCloseHeaderEndsConnection checks that a Connection: close
// response header terminates the connection instead of being reused.
func TestConnectionCloseHeaderEndsConnection(t *testing.T) {
	client := NewEngine(hface.RoleClient, false)
	server := NewEngine(hface.RoleServer, false)

	req := hface.Headers{
		{Name: ":method", Value: "GET"},
		{Name: ":scheme", Value: "http"},
		{Name: ":authority", Value: "example.test"},
		{Name: ":path", Value: "/"},
	}
	if err := client.SubmitHeaders(1, req, true); err != nil {
		t.Fatalf("SubmitHeaders: %v", err)
	}
	deliver(t, client, server)
	drainEvents(t, server)

	resp := hface.Headers{
		{Name: ":status", Value: "200"},
		{Name: "Connection", Value: "close"},
		{Name: "Content-Length", Value: "0"},
	}
	if err := server.SubmitHeaders(1, resp, true); err != nil {
		t.Fatalf("server.SubmitHeaders: %v", err)
	}

	serverEvents := drainEvents(t, server)
	foundTerminated := false
	for _, ev := range serverEvents {
		if ct, ok := ev.(hface.ConnectionTerminated); ok {
			foundTerminated = true
			if ct.ErrorCode != hface.ErrCodeNoError {
				t.Fatalf("ConnectionTerminated.ErrorCode = %v, want no_error", ct.ErrorCode)
			}
		}
	}
	if !foundTerminated {
		t.Fatalf("server did not emit ConnectionTerminated after Connection: close response")
	}
	if server.IsAvailable() {
		t.Fatalf("server.IsAvailable() = true after Connection: close, want false")
	}

	deliver(t, server, client)
	clientEvents := drainEvents(t, client)
	foundTerminated = false
	for _, ev := range clientEvents {
		if _, ok := ev.(hface.ConnectionTerminated); ok {
			foundTerminated = true
		}
	}
	if !foundTerminated {
		t.Fatalf("client did not observe connection termination")
	}
}

// TestChunkedBodyRoundTrip exercises the chunked transfer-coding path end to
// end, through the terminating zero-size chunk.
func TestChunkedBodyRoundTrip(t *testing.T) {
	client := NewEngine(hface.RoleClient, false)
	server := NewEngine(hface.RoleServer, false)

	req := hface.Headers{
		{Name: ":method", Value: "POST"},
		{Name: ":scheme", Value: "http"},
		{Name: ":authority", Value: "example.test"},
		{Name: ":path", Value: "/upload"},
	}
	if err := client.SubmitHeaders(1, req, false); err != nil {
		t.Fatalf("SubmitHeaders: %v", err)
	}
	if err := client.SubmitData(1, []byte("hello "), false); err != nil {
		t.Fatalf("SubmitData 1: %v", err)
	}
	if err := client.SubmitData(1, []byte("world"), true); err != nil {
		t.Fatalf("SubmitData 2: %v", err)
	}

	deliver(t, client, server)
	events := drainEvents(t, server)

	var got []byte
	var sawHeaders, sawFinalData bool
	for _, ev := range events {
		switch e := ev.(type) {
		case hface.HeadersReceived:
			sawHeaders = true
			if e.EndStream {
				t.Fatalf("HeadersReceived.EndStream = true, want false (body follows)")
			}
		case hface.DataReceived:
			got = append(got, e.Data...)
			if e.EndStream {
				sawFinalData = true
			}
		}
	}
	if !sawHeaders {
		t.Fatalf("server never saw HeadersReceived")
	}
	if !sawFinalData {
		t.Fatalf("server never saw a final DataReceived")
	}
	if diff := cmp.Diff("hello world", string(got)); diff != "" {
		t.Fatalf("body mismatch (-want +got):\n%s", diff)
	}
}

// TestSubmitDataBeforeHeadersIsMisuse checks the ProtocolMisuse contract
// from protocol.go.
func TestSubmitDataBeforeHeadersIsMisuse(t *testing.T) {
	client := NewEngine(hface.RoleClient, false)
	err := client.SubmitData(1, []byte("x"), true)
	if !hface.IsKind(err, hface.KindProtocolMisuse) {
		t.Fatalf("SubmitData before headers: err = %v, want KindProtocolMisuse", err)
	}
}

// TestAvailableStreamIDBusy checks §3 invariant 5's "fails if a stream is
// already open" half.
func TestAvailableStreamIDBusy(t *testing.T) {
	client := NewEngine(hface.RoleClient, false)
	req := hface.Headers{
		{Name: ":method", Value: "GET"},
		{Name: ":scheme", Value: "http"},
		{Name: ":authority", Value: "example.test"},
		{Name: ":path", Value: "/"},
	}
	if err := client.SubmitHeaders(1, req, true); err != nil {
		t.Fatalf("SubmitHeaders: %v", err)
	}
	if _, err := client.AvailableStreamID(); !hface.IsKind(err, hface.KindNotAvailable) {
		t.Fatalf("AvailableStreamID while busy: err = %v, want KindNotAvailable", err)
	}
}
