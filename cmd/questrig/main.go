package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/questrig/questrig/internal/api"
	"github.com/questrig/questrig/internal/config"
	"github.com/questrig/questrig/internal/db"
	"github.com/questrig/questrig/internal/quest"
	"github.com/questrig/questrig/internal/quest/pb"
	"github.com/questrig/questrig/internal/stream"
	"github.com/questrig/questrig/internal/units"
	"github.com/questrig/questrig/internal/version"
)

var (
	listen     = flag.String("listen", "", "HTTP listen address (default from config)")
	grpcListen = flag.String("grpc-listen", "", "gRPC stream listen address (default from config)")
	source     = flag.String("source", "", "Upstream headset stream to bridge (host:port)")
	dbFile     = flag.String("db", "", "Path to the SQLite trace database (default from config)")
	configFile = flag.String("config", "", "Path to a JSON config file")
	devMode    = flag.Bool("dev", false, "Run with the synthetic headset instead of a live source")
	unitsFlag  = flag.String("units", "", "Angle display units: radians or degrees")
	showVer    = flag.Bool("version", false, "Print build version and exit")
)

// orDefault prefers the flag value when one was given.
func orDefault(flagValue, configValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return configValue
}

// ingest feeds one stream frame into the tracker.
func ingest(tracker *quest.Tracker, frame *pb.StreamFrame) {
	if frame == nil {
		return
	}
	tracker.IngestFrame(frame.Frame)
	if frame.Device != nil {
		tracker.IngestDevice(frame.Device)
	}
}

// bridgeSource subscribes to an upstream headset stream and republishes
// every frame locally. It resubscribes until the context is cancelled.
func bridgeSource(ctx context.Context, addr string, client *stream.PoseStreamClient, tracker *quest.Tracker, publisher *stream.Publisher) error {
	for {
		sub, err := client.Subscribe(ctx, &pb.StreamRequest{
			DeviceID:          "questrig-bridge",
			IncludeDeviceData: true,
		})
		if err != nil {
			log.Printf("[Intake] Subscribe to %s failed: %v", addr, err)
		} else {
			log.Printf("[Intake] Subscribed to headset stream at %s", addr)
			for {
				frame, err := sub.Recv()
				if err != nil {
					log.Printf("[Intake] Stream ended: %v", err)
					break
				}
				ingest(tracker, frame)
				publisher.Publish(frame)
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
}

// Main
func main() {
	flag.Parse()

	if *showVer {
		fmt.Printf("questrig %s\n", version.String())
		return
	}
	log.Printf("QuestRig %s", version.String())

	cfg := config.EmptyConfig()
	if *configFile != "" {
		var err error
		cfg, err = config.LoadConfig(*configFile)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}

	dbPath := orDefault(*dbFile, cfg.GetDatabasePath())
	db.DevMode = *devMode

	// The migrate subcommand manages the schema and exits.
	if flag.Arg(0) == "migrate" {
		db.RunMigrateCommand(flag.Args()[1:], dbPath)
		return
	}

	if !*devMode && *source == "" {
		log.Fatal("Either -dev or -source is required")
	}

	database, err := db.NewDB(dbPath)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	// Settings written through the HTTP API outlive restarts, so they win
	// over the config file; an explicit flag wins over both.
	angleUnits, err := database.GetSetting(db.SettingAngleUnits, cfg.GetAngleUnits())
	if err != nil {
		log.Fatalf("Failed to read settings: %v", err)
	}
	if *unitsFlag != "" {
		if !units.IsValidAngleUnit(*unitsFlag) {
			log.Fatalf("Invalid -units %q, valid units are: %s", *unitsFlag, units.GetValidAngleUnitsString())
		}
		angleUnits = *unitsFlag
	}
	distanceUnits, err := database.GetSetting(db.SettingDistanceUnits, cfg.GetDistanceUnits())
	if err != nil {
		log.Fatalf("Failed to read settings: %v", err)
	}

	commandTTL := cfg.GetCommandTTL()
	if v, err := database.GetSetting(db.SettingResetTTLMs, ""); err == nil && v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			commandTTL = time.Duration(ms) * time.Millisecond
		}
	}

	tracker := quest.NewTracker(quest.TrackerConfig{
		RingCapacity: cfg.GetRingCapacity(),
		Liveness:     cfg.GetConnectionTimeout(),
	}, nil)
	commands := quest.NewCommandQueue(commandTTL, nil)

	streamCfg := stream.DefaultConfig()
	streamCfg.ListenAddr = orDefault(*grpcListen, cfg.GetStreamListen())
	publisher := stream.NewPublisher(streamCfg)

	// In dev mode the synthetic generator is the frame source and applies
	// resets itself; in bridge mode resets are relayed to the upstream
	// headset server.
	var reset stream.ResetHandler
	var gen *stream.SyntheticGenerator
	var upstream *stream.PoseStreamClient
	if *devMode {
		gen = stream.NewSyntheticGenerator(0)
		gen.FrameRate = cfg.GetSampleRate()
		reset = gen
	} else {
		conn, err := grpc.NewClient(*source, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			log.Fatalf("Failed to create upstream client for %s: %v", *source, err)
		}
		defer conn.Close()
		upstream = stream.NewPoseStreamClient(conn)
		reset = stream.NewResetForwarder(upstream)
	}

	stream.RegisterService(publisher.GRPCServer(), stream.NewServer(publisher, tracker, commands, reset))
	if err := publisher.Start(); err != nil {
		log.Fatalf("Failed to start stream server: %v", err)
	}
	defer publisher.Stop()

	recorder := db.NewRecorder(database, tracker, cfg.GetDeviceID())
	recorder.Interval = cfg.GetFlushInterval()
	recorder.Start()
	defer recorder.Stop()

	// Create a wait group for the HTTP server and intake routines
	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Intake routine: frames flow into the tracker and out to subscribers
	wg.Add(1)
	go func() {
		defer wg.Done()
		if *devMode {
			log.Printf("[Intake] Synthetic headset at %.0f Hz", gen.FrameRate)
			gen.Run(ctx, func(frame *pb.StreamFrame) {
				ingest(tracker, frame)
				publisher.Publish(frame)
			})
		} else {
			if err := bridgeSource(ctx, *source, upstream, tracker, publisher); err != nil && err != context.Canceled {
				log.Printf("[Intake] Source bridge error: %v", err)
			}
		}
		log.Print("intake routine terminated")
	}()

	// HTTP API routine
	wg.Add(1)
	go func() {
		defer wg.Done()

		// API handlers plus the admin debugging routes on one mux
		mux := api.NewServer(tracker, commands, reset, database, angleUnits, distanceUnits).ServeMux()
		database.AttachAdminRoutes(mux)

		apiListen := orDefault(*listen, cfg.GetAPIListen())
		server := &http.Server{
			Addr:    apiListen,
			Handler: api.LoggingMiddleware(mux),
		}

		go func() {
			log.Printf("Starting HTTP server on %s", apiListen)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		// A second is plenty for in-flight API requests to drain.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
			if err := server.Close(); err != nil {
				log.Printf("HTTP server force close error: %v", err)
			}
		}

		log.Printf("HTTP server routine stopped")
	}()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
