package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/adamwoolhether/rollup/app/services/rollup/handlers"
	"github.com/adamwoolhether/rollup/app/services/rollup/handlers/v1/public"
	"github.com/adamwoolhether/rollup/business/web/v1/mid"
	"github.com/adamwoolhether/rollup/foundation/logger"
	"github.com/adamwoolhether/rollup/foundation/retry"
	"github.com/adamwoolhether/rollup/foundation/rollup/consensus"
	"github.com/adamwoolhether/rollup/foundation/rollup/devnet"
	"github.com/adamwoolhether/rollup/foundation/rollup/executor"
	"github.com/adamwoolhether/rollup/foundation/rollup/genesis"
	"github.com/adamwoolhether/rollup/foundation/rollup/ledger"
	"github.com/adamwoolhether/rollup/foundation/rollup/settlement"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {
	// Construct app logger.
	log, err := logger.New("ROLLUP", os.Getenv("ROLLUP_LOG_LEVEL"))
	if err != nil {
		fmt.Fprint(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		var fault *executor.FatalFault
		if errors.As(err, &fault) {
			log.Errorw("executor", "status", "fatal fault, restart from a trusted checkpoint", "kind", fault.Kind, "block", fault.Block, "ERROR", fault.Err)
		} else {
			log.Errorw("startup", "ERROR", err)
		}
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {

	// /////////////////////////////////////////////////////////////////////////////////////////////////////////////////
	// Configuration

	cfg := struct {
		conf.Version
		Web struct {
			ReadTimeout     time.Duration `conf:"default:5s"`
			WriteTimeout    time.Duration `conf:"default:10s"`
			IdleTimeout     time.Duration `conf:"default:120s"`
			ShutdownTimeout time.Duration `conf:"default:20s"`
			PublicHost      string        `conf:"default:0.0.0.0:8080"`
			DebugHost       string        `conf:"default:0.0.0.0:7080"`
		}
		Rollup struct {
			GenesisPath    string        `conf:"default:zblock/genesis.json"`
			ProofCacheSize int           `conf:"default:1024"`
			RetryInterval  time.Duration `conf:"default:1s"`
			RetryMaxWait   time.Duration `conf:"default:30s"`
			RetryAttempts  int           `conf:"default:0"`
		}
		Devnet struct {
			Enabled       bool          `conf:"default:true"`
			BlockInterval time.Duration `conf:"default:2s"`
			RangeSize     int           `conf:"default:4"`
			SequencerHost string        `conf:"default:0.0.0.0:6080"`
		}
		Consensus struct {
			URL          string        `conf:"default:http://localhost:6080"`
			RetryMax     int           `conf:"default:4"`
			RetryWaitMin time.Duration `conf:"default:500ms"`
			RetryWaitMax time.Duration `conf:"default:5s"`
			Timeout      time.Duration `conf:"default:10s"`
		}
		Settlement struct {
			URL              string `conf:"default:ws://localhost:8545"`
			SequencerAddress string
			RollupAddress    string
			KeyPath          string `conf:"default:zblock/accounts/alice.ecdsa"`
			StartBlock       uint64 `conf:"default:0,help:layer one block to replay range events from"`
			FromHead         bool   `conf:"default:false,help:follow new range events only, skipping replay"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "rollup executor node",
		},
	}

	const prefix = "ROLLUP"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}

		return fmt.Errorf("parsing config: %w", err)
	}

	// /////////////////////////////////////////////////////////////////////////////////////////////////////////////////
	// App Starting

	log.Infow("starting service", "version", build)
	defer log.Infow("shutdown complete")

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	// /////////////////////////////////////////////////////////////////////////////////////////////////////////////////
	// Ledger Support

	gen, err := genesis.Load(cfg.Rollup.GenesisPath)
	if err != nil {
		return fmt.Errorf("unable to load genesis: %w", err)
	}

	balances, err := gen.Accounts()
	if err != nil {
		return fmt.Errorf("unable to read genesis balances: %w", err)
	}

	led := ledger.New(ledger.NewState(gen.Namespace, balances))

	log.Infow("startup", "status", "ledger loaded", "namespace", gen.Namespace, "accounts", len(balances), "state", led.Commit())

	// /////////////////////////////////////////////////////////////////////////////////////////////////////////////////
	// Metrics Support

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// /////////////////////////////////////////////////////////////////////////////////////////////////////////////////
	// Service Start/Stop Support

	// Make a channel to listen for an interrupt or terminal signal
	// from the OS. Signal package requires a buffered channel.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	// /////////////////////////////////////////////////////////////////////////////////////////////////////////////////
	// Consensus and Settlement Support

	var (
		cons      executor.Consensus
		settle    executor.Settlement
		sequencer public.Sequencer
		servers   []*http.Server
	)

	if cfg.Devnet.Enabled {
		log.Infow("startup", "status", "starting devnet", "block_interval", cfg.Devnet.BlockInterval, "range_size", cfg.Devnet.RangeSize)

		seq := consensus.NewMemory(clockwork.NewRealClock())
		defer seq.Close()

		l1 := settlement.NewMemory()
		defer l1.Close()

		worker, err := devnet.Run(devnet.Config{
			Sequencer:     seq,
			L1:            l1,
			BlockInterval: cfg.Devnet.BlockInterval,
			RangeSize:     cfg.Devnet.RangeSize,
			EvHandler:     logger.EvHandler(log, "00000000-0000-0000-0000-000000000000"),
		})
		if err != nil {
			return fmt.Errorf("starting devnet: %w", err)
		}
		defer worker.Shutdown()

		// The sequencer api lets external wallets and executors use the devnet.
		servers = append(servers, &http.Server{
			Addr:        cfg.Devnet.SequencerHost,
			Handler:     seq.Handler(),
			ReadTimeout: cfg.Web.ReadTimeout,
			IdleTimeout: cfg.Web.IdleTimeout,
			ErrorLog:    zap.NewStdLog(log.Desugar()),
		})

		cons, settle, sequencer = seq, l1.NewRollup(led.Commit()), seq
	} else {
		log.Infow("startup", "status", "connecting to layer one", "url", cfg.Settlement.URL)

		privateKey, err := crypto.LoadECDSA(cfg.Settlement.KeyPath)
		if err != nil {
			return fmt.Errorf("unable to load private key for settlement: %w", err)
		}

		ccfg := settlement.ContractConfig{
			URL:              cfg.Settlement.URL,
			SequencerAddress: common.HexToAddress(cfg.Settlement.SequencerAddress),
			RollupAddress:    common.HexToAddress(cfg.Settlement.RollupAddress),
			PrivateKey:       privateKey,
			StartBlock:       cfg.Settlement.StartBlock,
			FromHead:         cfg.Settlement.FromHead,
		}

		contract, err := settlement.Dial(ctx, ccfg, log)
		if err != nil {
			return fmt.Errorf("connecting to settlement: %w", err)
		}
		defer contract.Close()

		// The ledger starts from genesis, a contract that moved on will fail
		// the first verification.
		state, err := contract.StateCommitment(ctx)
		if err != nil {
			return fmt.Errorf("reading settlement state: %w", err)
		}
		verified, err := contract.Verified(ctx)
		if err != nil {
			return fmt.Errorf("reading verified blocks: %w", err)
		}
		log.Infow("startup", "status", "settlement contract", "verified", verified, "state", state)
		if state != led.Commit() {
			log.Warnw("startup", "status", "settlement state differs from genesis", "settlement", state, "genesis", led.Commit())
		}

		client, err := consensus.NewClient(cfg.Consensus.URL, consensus.ClientConfig{
			RetryMax:     cfg.Consensus.RetryMax,
			RetryWaitMin: cfg.Consensus.RetryWaitMin,
			RetryWaitMax: cfg.Consensus.RetryWaitMax,
			Timeout:      cfg.Consensus.Timeout,
		}, log)
		if err != nil {
			return fmt.Errorf("constructing consensus client: %w", err)
		}

		cons, settle, sequencer = client, contract, client
	}

	// /////////////////////////////////////////////////////////////////////////////////////////////////////////////////
	// Executor Support

	exec, err := executor.New(executor.Config{
		Namespace:  gen.Namespace,
		Ledger:     led,
		Consensus:  cons,
		Settlement: settle,
		Retry: retry.Policy{
			Interval:    cfg.Rollup.RetryInterval,
			Multiplier:  2,
			MaxInterval: cfg.Rollup.RetryMaxWait,
			Jitter:      0.1,
			MaxAttempts: cfg.Rollup.RetryAttempts,
		},
		Log:     log,
		Metrics: executor.NewMetrics(reg),
	})
	if err != nil {
		return fmt.Errorf("constructing executor: %w", err)
	}

	proofs, err := public.NewProofs(cfg.Rollup.ProofCacheSize)
	if err != nil {
		return err
	}

	// Subscribe before the executor starts so no block is missed.
	_, updates := exec.Subscribe(cfg.Rollup.ProofCacheSize)

	var running atomic.Bool
	running.Store(true)

	g.Go(func() error {
		proofs.Feed(updates)
		return nil
	})

	g.Go(func() error {
		defer running.Store(false)

		err := exec.Run(gctx)
		switch {
		case err == nil:
			log.Infow("executor", "status", "settlement stream closed, stopping")
			cancel()
			return nil
		case errors.Is(err, context.Canceled):
			return nil
		default:
			return err
		}
	})

	// /////////////////////////////////////////////////////////////////////////////////////////////////////////////////
	// Start API Services

	log.Infow("startup", "status", "initializing V1 public API support")

	publicMux := handlers.PublicMux(handlers.MuxConfig{
		Shutdown:  shutdown,
		Log:       log,
		Metrics:   mid.NewHTTPMetrics(reg),
		Ledger:    led,
		Sequencer: sequencer,
		Proofs:    proofs,
		Observer:  exec,
	})

	servers = append(servers, &http.Server{
		Addr:         cfg.Web.PublicHost,
		Handler:      publicMux,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	})

	ready := func() error {
		if !running.Load() {
			return errors.New("executor stopped")
		}
		return nil
	}

	servers = append(servers, &http.Server{
		Addr:        cfg.Web.DebugHost,
		Handler:     handlers.DebugMux(build, log, reg, ready),
		ReadTimeout: cfg.Web.ReadTimeout,
		IdleTimeout: cfg.Web.IdleTimeout,
		ErrorLog:    zap.NewStdLog(log.Desugar()),
	})

	for _, srv := range servers {
		srv := srv
		g.Go(func() error {
			log.Infow("startup", "status", "api router started", "host", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server %s: %w", srv.Addr, err)
			}
			return nil
		})
	}

	// /////////////////////////////////////////////////////////////////////////////////////////////////////////////////
	// Shutdown

	g.Go(func() error {
		select {
		case sig := <-shutdown:
			log.Infow("shutdown", "status", "shutdown started", "signal", sig)
		case <-gctx.Done():
			log.Infow("shutdown", "status", "shutdown started", "reason", context.Cause(gctx))
		}
		cancel()

		// Give outstanding requests a deadline for completion.
		ctx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancelShutdown()

		for _, srv := range servers {
			if err := srv.Shutdown(ctx); err != nil {
				srv.Close()
				log.Errorw("shutdown", "status", "could not stop server gracefully", "host", srv.Addr, "ERROR", err)
			}
		}

		return nil
	})

	return g.Wait()
}
