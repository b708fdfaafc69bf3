// Package gateway maintains resilient WebSocket sessions against a
// chat platform's real-time gateway.
//
// A Session owns one shard's connection end to end: the dial, the
// Hello/Identify handshake, the heartbeat schedule, sequence tracking,
// resume across disconnects, and the reconnect ladder when the
// connection is lost. Dispatch events mutate an in-memory entity cache
// and are then delivered to registered handlers.
//
// # Lifecycle
//
// A session moves through a fixed set of states:
//
//	Disconnected -> Connecting -> AwaitingHello -> Identifying -> Ready
//	                                            \> Resuming   -/
//
// Transport loss from any state returns to Disconnected, and most
// closes schedule an automatic reconnect. Early attempts retry
// quickly, later attempts back off to a long delay, and after enough
// consecutive failures the gateway URL itself is re-resolved. Fatal
// closes stop the session instead, and a rate-limited close is only
// logged, leaving the next move to the caller.
//
// # Event delivery
//
// Handlers never run on the socket read loop or a timer goroutine.
// Events are queued and delivered in order by a dedicated goroutine
// per session, so handlers may block briefly and may call back into
// the session. A handler panic is recovered and logged; it costs only
// that one invocation.
//
//	s, _ := gateway.NewSession(gateway.DefaultConfig().
//		WithToken(token).
//		WithResolver(rest.NewClient(token)))
//	s.On(gateway.EventMessageCreate, func(ev gateway.Event) {
//		msg := ev.Data.(*state.Message)
//		log.Println(msg.Content)
//	})
//	if err := s.Open(ctx); err != nil {
//		log.Fatal(err)
//	}
//	defer s.Close()
//
// # Heartbeats
//
// The server's Hello frame sets the heartbeat interval. Each tick
// sends the last seen sequence number; if the previous beat was never
// acknowledged the connection is declared a zombie and force-closed so
// a resume can replace it. A tick that finds no live transport at all
// schedules a reconnect, which makes the session self-healing even if
// a close event was somehow lost.
//
// # Sharding
//
// Manager runs one Session per shard, discovers the recommended shard
// count from the REST API, and paces the handshakes to respect the
// gateway's identify rate limit.
package gateway
