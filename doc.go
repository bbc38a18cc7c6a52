// Package hface is the sans-I/O core of a multi-version HTTP toolkit.
//
// It defines a single event-driven, stream-multiplexing protocol
// abstraction shared by the HTTP/1.1, HTTP/2 and HTTP/3 engines in the h1,
// h2 and h3 subpackages. Callers feed a Protocol raw transport bytes or QUIC
// datagrams and submit actions (SubmitHeaders, SubmitData, ...); the
// protocol emits Events and hands back outbound bytes/datagrams. The core
// performs no I/O of its own: no sockets, no files, no blocking calls, no
// goroutines started on the caller's behalf.
package hface
