// Package main provides the unified mint-intel service:
// - Migration detector (continuous): WebSocket log subscription on the
//   pump.fun migrator, journaled to PostgreSQL
// - Per-migration analysis: holder aggregation, lock check, bundle check
// - Bundle sweeper (scheduled): evicts idle bundle lifecycle state
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"solana-mint-intel/internal/bundle"
	"solana-mint-intel/internal/holders"
	"solana-mint-intel/internal/locks"
	"solana-mint-intel/internal/market"
	"solana-mint-intel/internal/migration"
	"solana-mint-intel/internal/observability"
	"solana-mint-intel/internal/solana"
	"solana-mint-intel/internal/storage"
	chstore "solana-mint-intel/internal/storage/clickhouse"
	"solana-mint-intel/internal/storage/memory"
	"solana-mint-intel/internal/storage/migrations"
	pgstore "solana-mint-intel/internal/storage/postgres"
)

// journalWarmLimit bounds how many journaled migration events are loaded
// back into the detector cache at startup.
const journalWarmLimit = 1000

// Server holds all components of the unified service.
type Server struct {
	logger *log.Logger

	analyzer     *holders.Analyzer
	lockDetector *locks.Detector
	migrations   *migration.Detector
	bundles      *bundle.Monitor

	// State
	mu             sync.Mutex
	started        time.Time
	eventsObserved int
	lastEventAt    time.Time
}

// stores holds the storage implementations behind the service.
type stores struct {
	journal   storage.MigrationEventStore
	snapshots storage.HolderSnapshotStore
}

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	rpcEndpoint := flag.String("rpc-endpoint", os.Getenv("SOLANA_RPC_ENDPOINT"), "Solana RPC HTTP endpoint")
	wsEndpoint := flag.String("ws-endpoint", os.Getenv("SOLANA_WS_ENDPOINT"), "Solana WebSocket endpoint")
	heliusEndpoint := flag.String("helius-endpoint", os.Getenv("HELIUS_RPC_ENDPOINT"), "Enhanced RPC endpoint for holder lookups (optional)")
	birdeyeKey := flag.String("birdeye-api-key", os.Getenv("BIRDEYE_API_KEY"), "Birdeye API key (optional)")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	// Validate required flags
	if *rpcEndpoint == "" {
		logger.Fatal("--rpc-endpoint is required")
	}
	if *wsEndpoint == "" {
		logger.Fatal("--ws-endpoint is required")
	}
	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
	}

	ctx, cancel := context.WithCancel(context.Background())

	// Create stores
	st, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	// Solana clients
	rpc := solana.NewHTTPClient(*rpcEndpoint)

	ws, err := solana.NewWSClient(ctx, *wsEndpoint, nil)
	if err != nil {
		logger.Fatalf("Failed to connect websocket: %v", err)
	}
	defer ws.Close()

	// Holder analyzer with its fallback sources
	analyzerOpts := []holders.AnalyzerOption{
		holders.WithFlagSource(market.NewGMGNClient()),
		holders.WithSnapshotStore(st.snapshots),
		holders.WithLogger(log.New(os.Stdout, "[holders] ", log.LstdFlags)),
	}
	if *birdeyeKey != "" {
		analyzerOpts = append(analyzerOpts, holders.WithRankedSource(market.NewBirdeyeClient(*birdeyeKey)))
	}
	if *heliusEndpoint != "" {
		analyzerOpts = append(analyzerOpts, holders.WithHeliusRPC(solana.NewHTTPClient(*heliusEndpoint)))
	}
	analyzer := holders.NewAnalyzer(rpc, analyzerOpts...)

	lockDetector := locks.NewDetector(rpc,
		locks.WithLogger(log.New(os.Stdout, "[locks] ", log.LstdFlags)))

	migDetector := migration.NewDetector(ws, rpc,
		migration.WithPairIndex(market.NewDexScreenerClient()),
		migration.WithJournal(st.journal),
		migration.WithLogger(log.New(os.Stdout, "[migration] ", log.LstdFlags)))

	bundleMonitor := bundle.NewMonitor(rpc,
		bundle.WithLogger(log.New(os.Stdout, "[bundle] ", log.LstdFlags)))

	server := &Server{
		logger:       logger,
		analyzer:     analyzer,
		lockDetector: lockDetector,
		migrations:   migDetector,
		bundles:      bundleMonitor,
		started:      time.Now(),
	}

	// Channel to signal completion
	done := make(chan error, 1)

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	// Start HTTP server
	go server.startHTTPServer(*metricsAddr)

	err = server.Run(ctx)
	done <- err
	cancel()

	if err != nil && err != context.Canceled {
		logger.Fatalf("Server error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// createStores creates the journal and snapshot stores.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (*stores, func(), error) {
	if useMemory {
		st := &stores{
			journal:   memory.NewMigrationEventStore(),
			snapshots: memory.NewHolderSnapshotStore(),
		}
		return st, func() {}, nil
	}

	// PostgreSQL
	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("run postgres migrations: %w", err)
	}

	// ClickHouse (migrations create the database and return a connection)
	chConn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("run clickhouse migrations: %w", err)
	}

	st := &stores{
		journal:   pgstore.NewMigrationEventStore(pool),
		snapshots: chstore.NewHolderSnapshotStore(chConn),
	}

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}

	return st, cleanup, nil
}

// Run starts the detector, the bundle sweeper, and the analysis loop, then
// blocks until the context is canceled.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Println("Starting mint-intel server...")

	if err := s.migrations.WarmFromJournal(ctx, journalWarmLimit); err != nil {
		s.logger.Printf("Journal warm-up failed: %v", err)
	}

	events, unsubscribe := s.migrations.Subscribe()
	defer unsubscribe()

	if err := s.migrations.Start(ctx); err != nil {
		return fmt.Errorf("start migration detector: %w", err)
	}
	defer s.migrations.Stop()

	s.bundles.StartSweeper(ctx)

	s.logger.Println("Migration detector subscribed, waiting for events")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-events:
			if !ok {
				return nil
			}
			s.analyzeMigration(ctx, event.Mint, event.TxSignature)
		}
	}
}

// analyzeMigration runs the full analysis suite against a freshly migrated
// mint and logs a one-line summary per component.
func (s *Server) analyzeMigration(ctx context.Context, mint, signature string) {
	s.mu.Lock()
	s.eventsObserved++
	s.lastEventAt = time.Now()
	s.mu.Unlock()

	s.logger.Printf("Migration observed: mint=%s tx=%s", mint, signature)

	holdersRes, err := s.analyzer.AnalyzeHolders(ctx, mint)
	if err != nil {
		s.logger.Printf("Holder analysis rejected mint %s: %v", mint, err)
		return
	}
	s.logger.Printf("Holders: mint=%s count=%d top10=%.2f%% exchange=%.2f%% lp=%.2f%% source=%s",
		mint, holdersRes.HolderCount, holdersRes.Top10Percent,
		holdersRes.ExchangePercent, holdersRes.LPPercent, holdersRes.Source)

	lockRes, err := s.lockDetector.CheckTokenLocks(ctx, mint)
	if err != nil {
		s.logger.Printf("Lock check rejected mint %s: %v", mint, err)
		return
	}
	s.logger.Printf("Locks: mint=%s locked=%v lockedPct=%.2f%% locks=%d",
		mint, lockRes.IsLocked, lockRes.TotalLockedPercent, len(lockRes.Locks))

	detection := s.bundles.DetectBundleFromTransaction(ctx, signature, nil)
	s.logger.Printf("Bundle: tx=%s isBundle=%v confidence=%s tip=%d",
		signature, detection.IsBundle, detection.Confidence, detection.TipLamports)
}

// startHTTPServer starts the HTTP server for health/metrics/status.
func (s *Server) startHTTPServer(addr string) {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Prometheus metrics
	mux.Handle("/metrics", observability.Handler())

	// Status endpoint
	mux.HandleFunc("/status", s.handleStatus)

	s.logger.Printf("Starting HTTP server on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		s.logger.Printf("HTTP server error: %v", err)
	}
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status         string    `json:"status"`
	Uptime         string    `json:"uptime"`
	EventsObserved int       `json:"events_observed"`
	LastEventAt    time.Time `json:"last_event_at,omitempty"`
}

// handleStatus returns server status as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	resp := StatusResponse{
		Status:         "running",
		Uptime:         time.Since(s.started).String(),
		EventsObserved: s.eventsObserved,
		LastEventAt:    s.lastEventAt,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
