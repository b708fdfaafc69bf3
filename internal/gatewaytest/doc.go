// Package gatewaytest runs an in-process gateway server for
// integration tests and the load harness.
//
// The server speaks the real wire protocol over a loopback WebSocket:
// it sends Hello on connect, acknowledges heartbeats, answers identify
// with READY and resume with RESUMED, and lets the caller broadcast
// dispatch events or inject failures (dropped connections, reconnect
// requests, invalidated sessions).
//
// # Usage
//
//	srv := gatewaytest.NewServer(gatewaytest.Options{})
//	defer srv.Close()
//
//	cfg := gateway.DefaultConfig().
//	    WithToken("test-token").
//	    WithGatewayURL(srv.URL)
//
// The zero Options value accepts any token and acknowledges every
// heartbeat.
package gatewaytest
