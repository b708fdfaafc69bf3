package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"runtime"
	"runtime/debug"
	"runtime/metrics"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gatewire-dev/gatewire/internal/gatewaytest"
	"github.com/gatewire-dev/gatewire/pkg/gateway"
	"github.com/gatewire-dev/gatewire/pkg/state"
)

const (
	gib = int64(1024 * 1024 * 1024)
)

type profile struct {
	Name          string
	Clients       int
	Duration      time.Duration
	RPS           float64
	PayloadBytes  int
	Heartbeat     time.Duration
	Guilds        int
	MaxProcs      int
	MemLimitBytes int64
}

var profiles = map[string]profile{
	"fast": {
		Name:         "fast",
		Clients:      25,
		Duration:     10 * time.Second,
		RPS:          20,
		PayloadBytes: 64,
		Heartbeat:    5 * time.Second,
		Guilds:       8,
	},
	"standard": {
		Name:         "standard",
		Clients:      100,
		Duration:     30 * time.Second,
		RPS:          50,
		PayloadBytes: 256,
		Heartbeat:    2 * time.Second,
		Guilds:       32,
	},
	"stress": {
		Name:          "stress",
		Clients:       250,
		Duration:      60 * time.Second,
		RPS:           200,
		PayloadBytes:  1024,
		Heartbeat:     1 * time.Second,
		Guilds:        128,
		MaxProcs:      4,
		MemLimitBytes: 2 * gib,
	},
}

type benchConfig struct {
	Profile       string
	Clients       int
	Duration      time.Duration
	RPS           float64
	PayloadBytes  int
	Heartbeat     time.Duration
	Guilds        int
	EventBuffer   int
	MaxProcs      int
	MemLimitBytes int64
	JSONOutput    string
}

type benchCounters struct {
	dispatchesSent  atomic.Uint64
	dispatchBytes   atomic.Uint64
	eventsDelivered atomic.Uint64
}

type benchErrors struct {
	connectFailures     atomic.Uint64
	sampleParseFailures atomic.Uint64
}

// gatewayTotals is the per-session Stats summed across every client.
type gatewayTotals struct {
	eventsReceived uint64
	heartbeatsSent uint64
	acksReceived   uint64
	reconnects     uint64
	eventsDropped  uint64
}

func main() {
	log.SetFlags(0)

	cfg, err := parseConfig()
	if err != nil {
		log.Fatal(err)
	}

	if cfg.MaxProcs > 0 {
		runtime.GOMAXPROCS(cfg.MaxProcs)
	}
	if cfg.MemLimitBytes > 0 {
		debug.SetMemoryLimit(cfg.MemLimitBytes)
	}

	debug.SetGCPercent(100)

	srv := gatewaytest.NewServer(gatewaytest.Options{
		HeartbeatInterval: cfg.Heartbeat,
		GuildCount:        cfg.Guilds,
	})
	defer srv.Close()

	// Session internals log every reconnect decision; at this volume
	// that would dominate the run.
	quiet := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))

	samplesCh := make(chan time.Duration, sampleBuffer(cfg.Clients))
	var samples []time.Duration
	var samplesMu sync.Mutex
	collectorDone := make(chan struct{})
	go func() {
		defer close(collectorDone)
		for lat := range samplesCh {
			samplesMu.Lock()
			samples = append(samples, lat)
			samplesMu.Unlock()
		}
	}()

	var counters benchCounters
	var errCounts benchErrors

	sessions := connectClients(srv.URL, quiet, cfg, &counters, &errCounts, samplesCh)
	defer func() {
		for _, s := range sessions {
			_ = s.Close()
		}
	}()
	if len(sessions) == 0 {
		log.Fatal("no client connected")
	}
	if err := srv.WaitReady(len(sessions), 30*time.Second); err != nil {
		log.Fatalf("clients not ready: %v", err)
	}

	var before runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&before)
	beforeMetrics := readRuntimeMetrics()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	start := time.Now()
	produceDispatches(ctx, srv, cfg, &counters)
	cancel()

	// Let the emitter queues flush before reading the counters.
	time.Sleep(500 * time.Millisecond)
	elapsed := time.Since(start)

	totals := sumStats(sessions)
	for _, s := range sessions {
		_ = s.Close()
	}

	close(samplesCh)
	<-collectorDone

	var after runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&after)
	afterMetrics := readRuntimeMetrics()

	samplesMu.Lock()
	latencies := append([]time.Duration(nil), samples...)
	samplesMu.Unlock()
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	report := buildReport(cfg, elapsed, len(sessions), latencies,
		&counters, &errCounts, totals, before, after, beforeMetrics, afterMetrics)

	writeSummary(os.Stderr, report)
	if err := writeJSON(cfg.JSONOutput, report); err != nil {
		log.Fatalf("write json: %v", err)
	}
}

// connectClients opens one session per client against the in-process
// gateway, each with a handler that turns the dispatch payload back
// into a delivery latency sample.
func connectClients(
	url string,
	logger *slog.Logger,
	cfg benchConfig,
	counters *benchCounters,
	errCounts *benchErrors,
	samples chan<- time.Duration,
) []*gateway.Session {
	openCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var mu sync.Mutex
	var sessions []*gateway.Session

	var wg sync.WaitGroup
	wg.Add(cfg.Clients)
	for i := 0; i < cfg.Clients; i++ {
		go func() {
			defer wg.Done()

			sc := gateway.DefaultConfig().
				WithToken("bench").
				WithLogger(logger)
			sc.GatewayURL = url
			if cfg.EventBuffer > 0 {
				sc.EventBuffer = cfg.EventBuffer
			}

			s, err := gateway.NewSession(sc)
			if err != nil {
				errCounts.connectFailures.Add(1)
				return
			}
			s.On(gateway.EventMessageCreate, func(e gateway.Event) {
				m, ok := e.Data.(*state.Message)
				if !ok {
					errCounts.sampleParseFailures.Add(1)
					return
				}
				sentAt, err := parseSentAt(m.Content)
				if err != nil {
					errCounts.sampleParseFailures.Add(1)
					return
				}
				counters.eventsDelivered.Add(1)
				samples <- time.Since(sentAt)
			})
			if err := s.Open(openCtx); err != nil {
				errCounts.connectFailures.Add(1)
				_ = s.Close()
				return
			}

			mu.Lock()
			sessions = append(sessions, s)
			mu.Unlock()
		}()
	}
	wg.Wait()

	return sessions
}

// produceDispatches broadcasts MESSAGE_CREATE at the target rate until
// the context expires. The payload carries its send time so receivers
// can measure end-to-end delivery.
func produceDispatches(ctx context.Context, srv *gatewaytest.Server, cfg benchConfig, counters *benchCounters) {
	period := time.Duration(float64(time.Second) / cfg.RPS)
	var seq uint64

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		seq++
		sentAt := time.Now()
		msg := state.Message{
			ID:        fmt.Sprintf("bench-%d", seq),
			ChannelID: fmt.Sprintf("chan-%d", seq%16),
			GuildID:   "guild-0",
			Content:   makeContent(sentAt.UnixNano(), cfg.PayloadBytes),
			Timestamp: sentAt.UTC().Format(time.RFC3339Nano),
		}
		raw, err := json.Marshal(msg)
		if err != nil {
			continue
		}
		srv.Dispatch(gateway.EventMessageCreate, json.RawMessage(raw))
		counters.dispatchesSent.Add(1)
		counters.dispatchBytes.Add(uint64(len(raw)))

		if sleep := period - time.Since(sentAt); sleep > 0 {
			timer := time.NewTimer(sleep)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}
	}
}

// makeContent prefixes the send time so the receiver can recover it,
// then pads to the configured payload size.
func makeContent(nanos int64, payloadBytes int) string {
	base := strconv.FormatInt(nanos, 10) + ":"
	if len(base) >= payloadBytes {
		return base
	}
	return base + strings.Repeat("x", payloadBytes-len(base))
}

func parseSentAt(content string) (time.Time, error) {
	idx := strings.IndexByte(content, ':')
	if idx <= 0 {
		return time.Time{}, fmt.Errorf("no timestamp prefix in %q", truncateContent(content))
	}
	nanos, err := strconv.ParseInt(content[:idx], 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(0, nanos), nil
}

func truncateContent(s string) string {
	if len(s) <= 32 {
		return s
	}
	return s[:32] + "..."
}

func sumStats(sessions []*gateway.Session) gatewayTotals {
	var t gatewayTotals
	for _, s := range sessions {
		st := s.Stats()
		t.eventsReceived += st.EventsReceived
		t.heartbeatsSent += st.HeartbeatsSent
		t.acksReceived += st.AcksReceived
		t.reconnects += st.Reconnects
		t.eventsDropped += st.EventsDropped
	}
	return t
}

func sampleBuffer(clients int) int {
	if clients < 1 {
		return 1024
	}
	buf := clients * 4
	if buf < 1024 {
		buf = 1024
	}
	return buf
}

func parseConfig() (benchConfig, error) {
	profileFlag := flag.String("profile", "standard", "profile: fast|standard|stress")
	clientsFlag := flag.Int("clients", -1, "number of concurrent gateway sessions")
	durationFlag := flag.String("duration", "", "benchmark duration, e.g. 30s")
	rpsFlag := flag.Float64("rps", -1, "dispatch broadcasts per second")
	payloadFlag := flag.Int("payload-bytes", -1, "bytes of message content per dispatch")
	heartbeatFlag := flag.String("heartbeat", "", "heartbeat interval the server advertises, e.g. 2s")
	guildsFlag := flag.Int("guilds", -1, "guilds in each READY payload")
	bufferFlag := flag.Int("event-buffer", 0, "session event queue size (0 for the library default)")
	maxProcsFlag := flag.Int("max-procs", -1, "GOMAXPROCS cap (0 to leave unchanged)")
	memLimitFlag := flag.String("mem-limit", "", "GOMEMLIMIT (e.g. 2GiB)")
	jsonFlag := flag.String("json", "-", "JSON output path ('-' for stdout)")
	flag.Parse()

	name := strings.ToLower(strings.TrimSpace(*profileFlag))
	if name == "" {
		name = "standard"
	}

	base, ok := profiles[name]
	if !ok {
		return benchConfig{}, fmt.Errorf("unknown profile %q", name)
	}

	cfg := benchConfig{
		Profile:       base.Name,
		Clients:       base.Clients,
		Duration:      base.Duration,
		RPS:           base.RPS,
		PayloadBytes:  base.PayloadBytes,
		Heartbeat:     base.Heartbeat,
		Guilds:        base.Guilds,
		EventBuffer:   *bufferFlag,
		MaxProcs:      base.MaxProcs,
		MemLimitBytes: base.MemLimitBytes,
		JSONOutput:    strings.TrimSpace(*jsonFlag),
	}

	if *clientsFlag != -1 {
		cfg.Clients = *clientsFlag
	}
	if *durationFlag != "" {
		d, err := time.ParseDuration(*durationFlag)
		if err != nil {
			return benchConfig{}, fmt.Errorf("invalid -duration: %w", err)
		}
		cfg.Duration = d
	}
	if *rpsFlag != -1 {
		cfg.RPS = *rpsFlag
	}
	if *payloadFlag != -1 {
		cfg.PayloadBytes = *payloadFlag
	}
	if *heartbeatFlag != "" {
		d, err := time.ParseDuration(*heartbeatFlag)
		if err != nil {
			return benchConfig{}, fmt.Errorf("invalid -heartbeat: %w", err)
		}
		cfg.Heartbeat = d
	}
	if *guildsFlag != -1 {
		cfg.Guilds = *guildsFlag
	}
	if *maxProcsFlag != -1 {
		cfg.MaxProcs = *maxProcsFlag
	}
	if *memLimitFlag != "" {
		limit, err := parseBytes(*memLimitFlag)
		if err != nil {
			return benchConfig{}, fmt.Errorf("invalid -mem-limit: %w", err)
		}
		cfg.MemLimitBytes = limit
	}
	if cfg.JSONOutput == "" {
		cfg.JSONOutput = "-"
	}

	if cfg.Clients <= 0 {
		return benchConfig{}, errors.New("-clients must be > 0")
	}
	if cfg.Duration <= 0 {
		return benchConfig{}, errors.New("-duration must be > 0")
	}
	if cfg.RPS <= 0 {
		return benchConfig{}, errors.New("-rps must be > 0")
	}
	if cfg.PayloadBytes <= 0 {
		return benchConfig{}, errors.New("-payload-bytes must be > 0")
	}
	if cfg.Heartbeat <= 0 {
		return benchConfig{}, errors.New("-heartbeat must be > 0")
	}
	if cfg.Guilds < 0 {
		return benchConfig{}, errors.New("-guilds must be >= 0")
	}
	if cfg.EventBuffer < 0 {
		return benchConfig{}, errors.New("-event-buffer must be >= 0")
	}
	if cfg.MaxProcs < 0 {
		return benchConfig{}, errors.New("-max-procs must be >= 0")
	}
	if cfg.MemLimitBytes < 0 {
		return benchConfig{}, errors.New("-mem-limit must be >= 0")
	}

	return cfg, nil
}

func parseBytes(input string) (int64, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return 0, errors.New("empty size")
	}

	var i int
	for i < len(s) {
		c := s[i]
		if (c >= '0' && c <= '9') || c == '.' {
			i++
			continue
		}
		break
	}
	if i == 0 {
		return 0, fmt.Errorf("invalid size %q", input)
	}

	numPart := strings.TrimSpace(s[:i])
	suffix := strings.ToLower(strings.TrimSpace(s[i:]))

	value, err := strconv.ParseFloat(numPart, 64)
	if err != nil {
		return 0, err
	}

	multiplier := float64(1)
	switch suffix {
	case "", "b":
		multiplier = 1
	case "kb":
		multiplier = 1e3
	case "mb":
		multiplier = 1e6
	case "gb":
		multiplier = 1e9
	case "tb":
		multiplier = 1e12
	case "kib":
		multiplier = 1024
	case "mib":
		multiplier = 1024 * 1024
	case "gib":
		multiplier = 1024 * 1024 * 1024
	case "tib":
		multiplier = 1024 * 1024 * 1024 * 1024
	default:
		return 0, fmt.Errorf("unknown size suffix %q", suffix)
	}

	bytes := value * multiplier
	if bytes < 0 {
		return 0, fmt.Errorf("invalid size %q", input)
	}

	return int64(bytes + 0.5), nil
}

type runtimeMetricsSnapshot struct {
	cpuTotalSeconds float64
	cpuGCSeconds    float64

	heapAllocsBytes   uint64
	heapAllocsObjects uint64
}

func readRuntimeMetrics() runtimeMetricsSnapshot {
	samples := []metrics.Sample{
		{Name: "/cpu/classes/total:cpu-seconds"},
		{Name: "/cpu/classes/gc/total:cpu-seconds"},
		{Name: "/gc/heap/allocs:bytes"},
		{Name: "/gc/heap/allocs:objects"},
	}
	metrics.Read(samples)

	var out runtimeMetricsSnapshot
	for _, s := range samples {
		switch s.Name {
		case "/cpu/classes/total:cpu-seconds":
			out.cpuTotalSeconds = s.Value.Float64()
		case "/cpu/classes/gc/total:cpu-seconds":
			out.cpuGCSeconds = s.Value.Float64()
		case "/gc/heap/allocs:bytes":
			out.heapAllocsBytes = s.Value.Uint64()
		case "/gc/heap/allocs:objects":
			out.heapAllocsObjects = s.Value.Uint64()
		}
	}
	return out
}

func cpuFraction(after, before runtimeMetricsSnapshot) float64 {
	total := after.cpuTotalSeconds - before.cpuTotalSeconds
	if total <= 0 {
		return 0
	}
	gc := after.cpuGCSeconds - before.cpuGCSeconds
	if gc < 0 {
		return 0
	}
	return gc / total
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[len(sorted)-1]
	}
	idx := int(math.Ceil(float64(len(sorted))*p)) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func avgPause(after, before runtime.MemStats) time.Duration {
	gcCount := after.NumGC - before.NumGC
	if gcCount == 0 {
		return 0
	}
	return time.Duration((after.PauseTotalNs - before.PauseTotalNs) / uint64(gcCount))
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

type benchReport struct {
	Version    string         `json:"version"`
	Run        runInfo        `json:"run"`
	Workload   workloadInfo   `json:"workload"`
	LatencyMS  latencyInfo    `json:"latency_ms"`
	Throughput throughputInfo `json:"throughput"`
	GC         gcInfo         `json:"gc"`
	Gateway    gatewayInfo    `json:"gateway"`
	Errors     errorInfo      `json:"errors"`
}

type runInfo struct {
	Timestamp string `json:"timestamp"`
	Go        string `json:"go"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
	CPUCount  int    `json:"cpu_count"`
	GitCommit string `json:"git_commit,omitempty"`
}

type workloadInfo struct {
	Profile       string  `json:"profile"`
	Clients       int     `json:"clients"`
	Connected     int     `json:"connected"`
	DurationMS    int64   `json:"duration_ms"`
	DispatchRPS   float64 `json:"dispatch_rps"`
	PayloadBytes  int     `json:"payload_bytes"`
	HeartbeatMS   int64   `json:"heartbeat_ms"`
	Guilds        int     `json:"guilds"`
	EventBuffer   int     `json:"event_buffer"`
	MaxProcs      int     `json:"max_procs"`
	MemLimitBytes int64   `json:"mem_limit_bytes"`
}

type latencyInfo struct {
	Min float64 `json:"min"`
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
	Max float64 `json:"max"`
}

type throughputInfo struct {
	DispatchesTotal    uint64  `json:"dispatches_total"`
	EventsDelivered    uint64  `json:"events_delivered"`
	EventsPerSec       float64 `json:"events_per_sec"`
	EventsPerSecClient float64 `json:"events_per_sec_per_client"`
	DeliveryRatio      float64 `json:"delivery_ratio"`
}

type gcInfo struct {
	AllocMB       float64 `json:"alloc_mb"`
	HeapLiveMB    float64 `json:"heap_live_mb"`
	NumGC         uint32  `json:"num_gc"`
	PauseTotalMS  float64 `json:"pause_total_ms"`
	PauseAvgMS    float64 `json:"pause_avg_ms"`
	GCCPUFraction float64 `json:"gc_cpu_fraction"`
	AllocsObjects uint64  `json:"allocs_objects"`
}

type gatewayInfo struct {
	DispatchBytesTotal uint64  `json:"dispatch_bytes_total"`
	AvgDispatchBytes   float64 `json:"avg_dispatch_bytes"`
	EventsReceived     uint64  `json:"events_received_wire"`
	HeartbeatsSent     uint64  `json:"heartbeats_sent"`
	AcksReceived       uint64  `json:"acks_received"`
	Reconnects         uint64  `json:"reconnects"`
	EventsDropped      uint64  `json:"events_dropped_queue"`
}

type errorInfo struct {
	TotalErrors         uint64 `json:"total_errors"`
	ConnectFailures     uint64 `json:"connect_failures"`
	SampleParseFailures uint64 `json:"sample_parse_failures"`
}

func buildReport(
	cfg benchConfig,
	elapsed time.Duration,
	connected int,
	latencies []time.Duration,
	counters *benchCounters,
	errCounts *benchErrors,
	totals gatewayTotals,
	before runtime.MemStats,
	after runtime.MemStats,
	beforeMetrics runtimeMetricsSnapshot,
	afterMetrics runtimeMetricsSnapshot,
) benchReport {
	dispatches := counters.dispatchesSent.Load()
	delivered := counters.eventsDelivered.Load()
	dispatchBytes := counters.dispatchBytes.Load()

	elapsedSeconds := math.Max(0.001, elapsed.Seconds())
	eventsPerSec := float64(delivered) / elapsedSeconds
	eventsPerSecClient := 0.0
	if connected > 0 {
		eventsPerSecClient = eventsPerSec / float64(connected)
	}

	deliveryRatio := 0.0
	if expected := dispatches * uint64(connected); expected > 0 {
		deliveryRatio = float64(delivered) / float64(expected)
	}

	latency := latencyInfo{}
	if len(latencies) > 0 {
		latency = latencyInfo{
			Min: ms(latencies[0]),
			P50: ms(percentile(latencies, 0.50)),
			P95: ms(percentile(latencies, 0.95)),
			P99: ms(percentile(latencies, 0.99)),
			Max: ms(latencies[len(latencies)-1]),
		}
	}

	avgDispatchBytes := 0.0
	if dispatches > 0 {
		avgDispatchBytes = float64(dispatchBytes) / float64(dispatches)
	}

	pauseTotal := time.Duration(after.PauseTotalNs - before.PauseTotalNs)
	pauseAvg := avgPause(after, before)

	connectFailures := errCounts.connectFailures.Load()
	parseFailures := errCounts.sampleParseFailures.Load()

	return benchReport{
		Version: "1",
		Run: runInfo{
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
			Go:        runtime.Version(),
			OS:        runtime.GOOS,
			Arch:      runtime.GOARCH,
			CPUCount:  runtime.NumCPU(),
			GitCommit: gitCommit(),
		},
		Workload: workloadInfo{
			Profile:       cfg.Profile,
			Clients:       cfg.Clients,
			Connected:     connected,
			DurationMS:    cfg.Duration.Milliseconds(),
			DispatchRPS:   cfg.RPS,
			PayloadBytes:  cfg.PayloadBytes,
			HeartbeatMS:   cfg.Heartbeat.Milliseconds(),
			Guilds:        cfg.Guilds,
			EventBuffer:   cfg.EventBuffer,
			MaxProcs:      cfg.MaxProcs,
			MemLimitBytes: cfg.MemLimitBytes,
		},
		LatencyMS: latency,
		Throughput: throughputInfo{
			DispatchesTotal:    dispatches,
			EventsDelivered:    delivered,
			EventsPerSec:       eventsPerSec,
			EventsPerSecClient: eventsPerSecClient,
			DeliveryRatio:      deliveryRatio,
		},
		GC: gcInfo{
			AllocMB:       float64(after.TotalAlloc-before.TotalAlloc) / (1024 * 1024),
			HeapLiveMB:    float64(after.HeapAlloc) / (1024 * 1024),
			NumGC:         after.NumGC - before.NumGC,
			PauseTotalMS:  ms(pauseTotal),
			PauseAvgMS:    ms(pauseAvg),
			GCCPUFraction: cpuFraction(afterMetrics, beforeMetrics),
			AllocsObjects: afterMetrics.heapAllocsObjects - beforeMetrics.heapAllocsObjects,
		},
		Gateway: gatewayInfo{
			DispatchBytesTotal: dispatchBytes,
			AvgDispatchBytes:   avgDispatchBytes,
			EventsReceived:     totals.eventsReceived,
			HeartbeatsSent:     totals.heartbeatsSent,
			AcksReceived:       totals.acksReceived,
			Reconnects:         totals.reconnects,
			EventsDropped:      totals.eventsDropped,
		},
		Errors: errorInfo{
			TotalErrors:         connectFailures + parseFailures,
			ConnectFailures:     connectFailures,
			SampleParseFailures: parseFailures,
		},
	}
}

func writeSummary(w io.Writer, report benchReport) {
	fmt.Fprintln(w, "=== Gatewire Dispatch Benchmark ===")
	fmt.Fprintf(w, "Profile: %s\n", report.Workload.Profile)
	fmt.Fprintf(w, "Clients: %d (%d connected)\n", report.Workload.Clients, report.Workload.Connected)
	fmt.Fprintf(w, "Duration: %s\n", time.Duration(report.Workload.DurationMS)*time.Millisecond)
	fmt.Fprintf(w, "Dispatch rate: %.2f broadcasts/s\n", report.Workload.DispatchRPS)
	fmt.Fprintf(w, "Payload bytes: %d\n", report.Workload.PayloadBytes)
	fmt.Fprintf(w, "Heartbeat interval: %s\n", time.Duration(report.Workload.HeartbeatMS)*time.Millisecond)
	fmt.Fprintf(w, "Guilds per READY: %d\n", report.Workload.Guilds)
	if report.Workload.MaxProcs > 0 {
		fmt.Fprintf(w, "GOMAXPROCS cap: %d\n", report.Workload.MaxProcs)
	}
	if report.Workload.MemLimitBytes > 0 {
		fmt.Fprintf(w, "GOMEMLIMIT cap: %.2f GiB\n", float64(report.Workload.MemLimitBytes)/float64(gib))
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Dispatches: %d\n", report.Throughput.DispatchesTotal)
	fmt.Fprintf(w, "Delivered: %d (%.2f%% of expected)\n", report.Throughput.EventsDelivered, report.Throughput.DeliveryRatio*100)
	fmt.Fprintf(w, "Throughput: %.1f events/s (%.2f per client)\n", report.Throughput.EventsPerSec, report.Throughput.EventsPerSecClient)
	fmt.Fprintf(w, "Errors: %d\n", report.Errors.TotalErrors)
	fmt.Fprintln(w)

	if report.LatencyMS.Max == 0 {
		fmt.Fprintln(w, "No latency samples recorded.")
	} else {
		fmt.Fprintln(w, "Delivery latency (server dispatch -> handler invocation):")
		fmt.Fprintf(w, "  min: %.2f ms\n", report.LatencyMS.Min)
		fmt.Fprintf(w, "  p50: %.2f ms\n", report.LatencyMS.P50)
		fmt.Fprintf(w, "  p95: %.2f ms\n", report.LatencyMS.P95)
		fmt.Fprintf(w, "  p99: %.2f ms\n", report.LatencyMS.P99)
		fmt.Fprintf(w, "  max: %.2f ms\n", report.LatencyMS.Max)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Gateway (summed over sessions):")
	fmt.Fprintf(w, "  frames received: %d\n", report.Gateway.EventsReceived)
	fmt.Fprintf(w, "  heartbeats sent: %d\n", report.Gateway.HeartbeatsSent)
	fmt.Fprintf(w, "  acks received:   %d\n", report.Gateway.AcksReceived)
	fmt.Fprintf(w, "  reconnects:      %d\n", report.Gateway.Reconnects)
	fmt.Fprintf(w, "  queue drops:     %d\n", report.Gateway.EventsDropped)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Go runtime / GC (process-wide):")
	fmt.Fprintf(w, "  alloc:     %.2f MB\n", report.GC.AllocMB)
	fmt.Fprintf(w, "  heap_live: %.2f MB\n", report.GC.HeapLiveMB)
	fmt.Fprintf(w, "  num_gc:    %d\n", report.GC.NumGC)
	fmt.Fprintf(w, "  gc_pause:  %.2f ms (total)\n", report.GC.PauseTotalMS)
	fmt.Fprintf(w, "  gc_pause:  %.2f ms (avg)\n", report.GC.PauseAvgMS)
	fmt.Fprintf(w, "  gc_cpu:    %.2f%%\n", report.GC.GCCPUFraction*100)
}

func writeJSON(path string, report benchReport) error {
	var out io.Writer
	if path == "-" {
		out = os.Stdout
	} else {
		file, err := os.Create(path)
		if err != nil {
			return err
		}
		defer file.Close()
		out = file
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func gitCommit() string {
	if val := strings.TrimSpace(os.Getenv("GATEWIRE_GIT_COMMIT")); val != "" {
		return val
	}
	if val := strings.TrimSpace(os.Getenv("GIT_COMMIT")); val != "" {
		return val
	}
	cmd := exec.Command("git", "rev-parse", "HEAD")
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}
