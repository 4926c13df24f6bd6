package cli

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/andrescamacho/mrta-go/internal/adapters/bus"
	"github.com/andrescamacho/mrta-go/internal/adapters/metrics"
	"github.com/andrescamacho/mrta-go/internal/adapters/persistence"
	"github.com/andrescamacho/mrta-go/internal/application/auction"
	"github.com/andrescamacho/mrta-go/internal/domain/temporal"
	"github.com/andrescamacho/mrta-go/internal/domain/timetable"
	"github.com/andrescamacho/mrta-go/internal/infrastructure/config"
	"github.com/andrescamacho/mrta-go/internal/infrastructure/database"
	"github.com/andrescamacho/mrta-go/internal/infrastructure/pidfile"
)

// auctioneerPeer is the bus peer name bidders address their bids to.
const auctioneerPeer = "auctioneer"

// NewDaemonCommand creates the daemon command
func NewDaemonCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run the allocation daemon",
		Long: `Run the allocation daemon: the auctioneer plus one bidder per
configured robot, ticking until interrupted.

Tasks submitted with "mrta task submit" (or inserted directly into the
store) are picked up on the next tick and auctioned.

Example:
  mrta daemon`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.MustLoadConfig(configPath)
			return runDaemon(cmd.Context(), cfg)
		},
	}
}

func runDaemon(parent context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Daemon.PIDFile != "" {
		pf := pidfile.New(cfg.Daemon.PIDFile)
		if err := pf.Acquire(); err != nil {
			return err
		}
		defer func() {
			if err := pf.Release(); err != nil {
				fmt.Printf("Warning: %v\n", err)
			}
		}()
	}

	fmt.Printf("Connecting to %s database...\n", cfg.Database.Type)
	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close(db)
	if err := database.AutoMigrate(db); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	taskRepo := persistence.NewGormTaskRepository(db)
	timetableRepo := persistence.NewGormTimetableRepository(db)

	solver, err := temporal.NewSolver(cfg.Allocation.STPSolver)
	if err != nil {
		return err
	}
	rule, err := auction.NewBiddingRule(cfg.Allocation.BiddingRule.Robustness, cfg.Allocation.BiddingRule.Temporal)
	if err != nil {
		return err
	}

	var recorder auction.MetricsRecorder
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		recorder = metrics.NewAllocationMetricsCollector(metrics.GetRegistry())
		go serveMetrics(&cfg.Metrics)
	}

	// Bus endpoints: one inbox for the auctioneer, one per bidder.
	endpoints, closeBus, err := connectBus(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeBus()

	auctioneer := auction.NewAuctioneer(auction.AuctioneerConfig{
		RoundTime:            cfg.Allocation.RoundTime,
		AlternativeTimeslots: cfg.Allocation.AlternativeTimeslots,
		Solver:               solver,
	}, endpoints[auctioneerPeer].publisher, endpoints[auctioneerPeer].inbox, taskRepo, timetableRepo, nil, recorder, nil)
	rm := auction.NewResourceManager(auctioneer, taskRepo)

	bidders := make([]*auction.Bidder, 0, len(cfg.Fleet.RobotIDs))
	for _, robotID := range cfg.Fleet.RobotIDs {
		rm.RegisterRobot(ctx, robotID)

		tt, err := timetableRepo.Get(ctx, robotID)
		if err != nil {
			return fmt.Errorf("failed to load timetable for %s: %w", robotID, err)
		}
		if tt == nil {
			tt = timetable.New(robotID, solver)
		} else {
			tt.SetSolver(solver)
		}
		ep := endpoints[robotID]
		bidders = append(bidders, auction.NewBidder(robotID, tt, rule, auctioneerPeer, ep.publisher, ep.inbox, taskRepo, timetableRepo))
	}

	fmt.Printf("Allocation daemon running: %d robots, %s rounds, solver %s\n",
		len(bidders), cfg.Allocation.RoundTime, cfg.Allocation.STPSolver)
	fmt.Println("Press Ctrl+C to stop")

	ticker := time.NewTicker(cfg.Daemon.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			fmt.Println("\nDaemon stopped")
			return nil
		case <-ticker.C:
			rm.Tick(ctx)
			for _, b := range bidders {
				b.Tick(ctx)
			}
		}
	}
}

// endpoint pairs a component's publisher with its inbox.
type endpoint struct {
	publisher auction.Publisher
	inbox     *bus.Inbox
}

// connectBus creates one bus endpoint per component. The in-process bus is
// shared; the Redis bus gets one connection per component so each has its
// own subscription.
func connectBus(ctx context.Context, cfg *config.Config) (map[string]endpoint, func(), error) {
	peers := append([]string{auctioneerPeer}, cfg.Fleet.RobotIDs...)
	endpoints := make(map[string]endpoint, len(peers))

	switch cfg.Bus.Type {
	case "redis":
		closers := make([]*bus.Redis, 0, len(peers))
		closeAll := func() {
			for _, c := range closers {
				_ = c.Close()
			}
		}
		for _, peer := range peers {
			conn := bus.NewRedis(cfg.Bus.RedisAddr)
			inbox, err := conn.Subscribe(ctx, peer, auction.GroupTaskAllocation)
			if err != nil {
				closeAll()
				return nil, nil, fmt.Errorf("failed to subscribe %s: %w", peer, err)
			}
			closers = append(closers, conn)
			endpoints[peer] = endpoint{publisher: conn, inbox: inbox}
		}
		return endpoints, closeAll, nil

	default:
		inproc := bus.NewInProc()
		for _, peer := range peers {
			inbox := inproc.Subscribe(peer, auction.GroupTaskAllocation)
			endpoints[peer] = endpoint{publisher: inproc, inbox: inbox}
		}
		return endpoints, func() {}, nil
	}
}

func serveMetrics(cfg *config.MetricsConfig) {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	fmt.Printf("Metrics served on http://%s%s\n", addr, cfg.Path)
	if err := http.ListenAndServe(addr, mux); err != nil {
		fmt.Printf("Warning: metrics server stopped: %v\n", err)
	}
}
