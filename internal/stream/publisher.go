// Package stream fans pose frames out to gRPC subscribers.
//
// The Publisher owns the listener and the broadcast loop; the Server in
// grpc.go implements the questrig.PoseStream service on top of it. Frames
// are dropped rather than queued without bound: a slow viewer must never
// back-pressure the intake path.
package stream

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"google.golang.org/grpc"

	"github.com/questrig/questrig/internal/monitoring"
	"github.com/questrig/questrig/internal/quest/pb"
)

// Config holds configuration for the pose stream server.
type Config struct {
	// ListenAddr is the address to listen on (e.g. "localhost:50051")
	ListenAddr string

	// QueueDepth is the intake buffer between Publish and the broadcast
	// loop.
	QueueDepth int

	// ClientQueueDepth is the per-client buffer; a client that falls
	// this far behind starts losing frames.
	ClientQueueDepth int

	// StatsInterval is how often the publisher logs throughput stats.
	StatsInterval time.Duration
}

// DefaultConfig returns settings sized for a local headset link.
func DefaultConfig() Config {
	return Config{
		ListenAddr:       "localhost:50051",
		QueueDepth:       100,
		ClientQueueDepth: 10,
		StatsInterval:    5 * time.Second,
	}
}

// Publisher manages the gRPC server and frame fan-out.
type Publisher struct {
	config   Config
	server   *grpc.Server
	listener net.Listener

	// Fan-out state
	frameChan chan *pb.StreamFrame
	clients   map[string]*clientStream
	clientsMu sync.RWMutex

	// Throughput counters
	frameCount    atomic.Uint64
	clientCount   atomic.Int32
	droppedFrames atomic.Uint64
	statsAt       time.Time
	statsFrames   uint64
	statsMu       sync.Mutex

	// Lifecycle
	running atomic.Bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// clientStream is one subscriber's buffered view of the frame feed.
type clientStream struct {
	id            string
	includeDevice bool
	frameCh       chan *pb.StreamFrame
	doneCh        chan struct{}
}

// NewPublisher creates a Publisher with the given configuration. The gRPC
// server exists from construction so services are registered before
// Start begins serving.
func NewPublisher(cfg Config) *Publisher {
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = DefaultConfig().QueueDepth
	}
	if cfg.ClientQueueDepth <= 0 {
		cfg.ClientQueueDepth = DefaultConfig().ClientQueueDepth
	}
	if cfg.StatsInterval <= 0 {
		cfg.StatsInterval = DefaultConfig().StatsInterval
	}
	return &Publisher{
		config:    cfg,
		server:    grpc.NewServer(grpc.ForceServerCodec(rawCodec{})),
		frameChan: make(chan *pb.StreamFrame, cfg.QueueDepth),
		clients:   make(map[string]*clientStream),
		stopCh:    make(chan struct{}),
	}
}

// GRPCServer exposes the server so callers can attach services. All
// registration must happen before Start.
func (p *Publisher) GRPCServer() *grpc.Server {
	return p.server
}

// Start binds the listener and starts the broadcast loop and the gRPC
// server.
func (p *Publisher) Start() error {
	if p.running.Load() {
		return fmt.Errorf("publisher is already started")
	}

	lis, err := net.Listen("tcp", p.config.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", p.config.ListenAddr, err)
	}
	p.listener = lis
	p.running.Store(true)

	p.wg.Add(1)
	go p.broadcastLoop()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		monitoring.Logf("[Stream] gRPC server listening on %s", lis.Addr())
		if err := p.server.Serve(lis); err != nil && p.running.Load() {
			monitoring.Logf("[Stream] gRPC server error: %v", err)
		}
	}()

	return nil
}

// Stop gracefully stops the gRPC server and the broadcast loop.
func (p *Publisher) Stop() {
	if !p.running.Load() {
		return
	}
	p.running.Store(false)
	close(p.stopCh)

	p.server.GracefulStop()
	if p.listener != nil {
		p.listener.Close()
	}

	p.wg.Wait()
	monitoring.Logf("[Stream] gRPC server stopped")
}

// Addr returns the bound listener address, or the configured address
// before Start.
func (p *Publisher) Addr() string {
	if p.listener != nil {
		return p.listener.Addr().String()
	}
	return p.config.ListenAddr
}

// Publish queues a frame for fan-out. If the intake queue is full the
// frame is dropped and counted.
func (p *Publisher) Publish(frame *pb.StreamFrame) {
	if frame == nil || !p.running.Load() {
		return
	}

	select {
	case p.frameChan <- frame:
		count := p.frameCount.Add(1)
		p.logPeriodicStats(count)
	default:
		dropped := p.droppedFrames.Add(1)
		monitoring.Logf("[Stream] DROPPED frame (total dropped: %d), intake queue full", dropped)
	}
}

// logPeriodicStats emits a throughput line at most once per stats interval.
func (p *Publisher) logPeriodicStats(total uint64) {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()

	now := time.Now()
	if p.statsAt.IsZero() {
		p.statsAt = now
		p.statsFrames = total
		return
	}

	elapsed := now.Sub(p.statsAt)
	if elapsed < p.config.StatsInterval {
		return
	}
	delta := total - p.statsFrames
	rate := float64(delta) / elapsed.Seconds()
	monitoring.Logf("[Stream] Stats: fps=%.1f frames=%d dropped=%d clients=%d queue=%d/%d",
		rate, delta, p.droppedFrames.Load(), p.clientCount.Load(),
		len(p.frameChan), p.config.QueueDepth)
	p.statsAt = now
	p.statsFrames = total
}

// broadcastLoop moves frames from the intake queue to every subscriber.
func (p *Publisher) broadcastLoop() {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopCh:
			return
		case frame := <-p.frameChan:
			p.clientsMu.RLock()
			for _, client := range p.clients {
				select {
				case client.frameCh <- frame:
				default:
					// Client is slow; drop this frame for it.
					p.droppedFrames.Add(1)
				}
			}
			p.clientsMu.RUnlock()
		}
	}
}

// addClient inserts a subscriber into the fan-out set.
func (p *Publisher) addClient(id string, includeDevice bool) *clientStream {
	client := &clientStream{
		id:            id,
		includeDevice: includeDevice,
		frameCh:       make(chan *pb.StreamFrame, p.config.ClientQueueDepth),
		doneCh:        make(chan struct{}),
	}

	p.clientsMu.Lock()
	p.clients[id] = client
	p.clientsMu.Unlock()

	p.clientCount.Add(1)
	monitoring.Logf("[Stream] Client connected: %s (total: %d)", id, p.clientCount.Load())
	return client
}

// removeClient drops a subscriber and signals its done channel.
func (p *Publisher) removeClient(id string) {
	p.clientsMu.Lock()
	client, ok := p.clients[id]
	if ok {
		close(client.doneCh)
		delete(p.clients, id)
	}
	p.clientsMu.Unlock()

	if ok {
		p.clientCount.Add(-1)
		monitoring.Logf("[Stream] Client disconnected: %s (remaining: %d)", id, p.clientCount.Load())
	}
}

// Stats snapshots the publisher counters.
func (p *Publisher) Stats() PublisherStats {
	return PublisherStats{
		FrameCount:    p.frameCount.Load(),
		DroppedFrames: p.droppedFrames.Load(),
		ClientCount:   p.clientCount.Load(),
		Running:       p.running.Load(),
	}
}

// PublisherStats is a point-in-time snapshot of the counters.
type PublisherStats struct {
	FrameCount    uint64
	DroppedFrames uint64
	ClientCount   int32
	Running       bool
}
