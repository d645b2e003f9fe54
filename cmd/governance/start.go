package main

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/Rican7/retry"
	"github.com/Rican7/retry/backoff"
	"github.com/Rican7/retry/strategy"
	"github.com/axiomesh/axiom-kit/log"
	"github.com/axiomesh/axiom-kit/storage/leveldb"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"

	governance "github.com/axiomesh/governance"
	"github.com/axiomesh/governance/api"
	"github.com/axiomesh/governance/core"
	"github.com/axiomesh/governance/repo"
	"github.com/axiomesh/governance/token"
)

func start(ctx *cli.Context) error {
	p, err := getRootPath(ctx)
	if err != nil {
		return err
	}
	r, err := repo.Load(p)
	if err != nil {
		return err
	}

	err = log.Initialize(
		log.WithReportCaller(r.Config.Log.ReportCaller),
		log.WithPersist(true),
		log.WithFilePath(filepath.Join(r.Config.RepoRoot, repo.LogsDirName)),
		log.WithFileName(r.Config.Log.Filename),
		log.WithMaxAge(r.Config.Log.MaxAge),
		log.WithRotationTime(r.Config.Log.RotationTime),
	)
	if err != nil {
		return fmt.Errorf("log initialize: %w", err)
	}

	logger := log.New()
	logger.SetLevel(log.ParseLevel(r.Config.Log.Level))

	printVersion()

	db, err := leveldb.New(filepath.Join(r.Config.RepoRoot, repo.StorageDirName))
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}

	ledger := token.NewLedger(common.HexToAddress(repo.TreasuryAddr))
	for addr, amount := range r.Config.Token.Balances {
		ledger.SetBalance(common.HexToAddress(addr), new(big.Int).SetUint64(amount))
	}

	invoker, err := buildInvoker(ctx.Context, r.Config)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()

	engine, err := core.NewEngine(core.EngineConfig{
		Store:    core.NewStore(db),
		Ledger:   ledger,
		Invoker:  invoker,
		Admin:    common.HexToAddress(r.Config.Admin),
		Treasury: common.HexToAddress(repo.TreasuryAddr),
		Params: core.Params{
			QuorumPercent:  r.Config.Governance.QuorumPercent,
			DepositAmount:  new(big.Int).SetUint64(r.Config.Governance.DepositAmount),
			VotingPeriod:   r.Config.Governance.VotingPeriod,
			TimelockPeriod: r.Config.Governance.TimelockPeriod,
		},
		Bus:    core.NewEventBus(registry),
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("new engine error: %w", err)
	}

	server := api.NewServer(engine, r.Config.API.Port, registry, logger)

	var wg sync.WaitGroup
	wg.Add(1)
	handleShutdown(server, &wg)

	go func() {
		if err := server.Start(); err != nil {
			logger.Errorf("api server stopped: %s", err)
		}
	}()

	fmt.Println("=============Governance is ready=============")

	wg.Wait()

	return nil
}

// buildInvoker dials the configured ledger node, falling back to the mock
// invoker when none is configured.
func buildInvoker(ctx context.Context, config *repo.Config) (core.Invoker, error) {
	if config.Ledger.DialUrl == "" {
		return core.NewMockInvoker(), nil
	}

	var client *ethclient.Client
	var err error

	action := func(attempt uint) error {
		client, err = ethclient.DialContext(ctx, config.Ledger.DialUrl)
		if err != nil {
			return err
		}

		return nil
	}

	if err = retry.Retry(action, strategy.Limit(5), strategy.Backoff(backoff.Fibonacci(5*time.Second))); err != nil {
		return nil, err
	}

	return core.NewEthCallInvoker(client), nil
}

func printVersion() {
	fmt.Printf("Governance version: %s-%s-%s\n", governance.CurrentVersion, governance.CurrentBranch, governance.CurrentCommit)
	fmt.Printf("App build date: %s\n", governance.BuildDate)
	fmt.Printf("System version: %s\n", governance.Platform)
	fmt.Printf("Golang version: %s\n", governance.GoVersion)
	fmt.Println()
}

func handleShutdown(server *api.Server, wg *sync.WaitGroup) {
	var stop = make(chan os.Signal, 2)
	signal.Notify(stop, syscall.SIGTERM)
	signal.Notify(stop, syscall.SIGINT)

	go func() {
		<-stop
		fmt.Println("received interrupt signal, shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Stop(shutdownCtx); err != nil {
			panic(err)
		}
		wg.Done()
		os.Exit(0)
	}()
}
