package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"campuschain/config"
	"campuschain/core"
	"campuschain/core/events"
	"campuschain/crypto"
	"campuschain/native/degree"
	"campuschain/native/enrollment"
	"campuschain/native/term"
	"campuschain/observability"
	"campuschain/observability/logging"
	"campuschain/rpc"
	"campuschain/storage"
)

const envPrefix = "CAMPUS_ENV"

// metricsEmitter forwards committed domain events into Prometheus counters.
type metricsEmitter struct{}

func (metricsEmitter) Emit(evt events.Event) {
	observability.Events().RecordEvent(evt.EventType())
	switch e := evt.(type) {
	case events.TermStarted:
		observability.TermMetrics().RecordTermStarted()
	case events.TermClosed:
		observability.TermMetrics().RecordTermClosed()
	case events.TermAdvanced:
		phase := term.Phase(e.To)
		observability.TermMetrics().RecordTransition(phase.String())
		observability.TermMetrics().SetPhase("campus", uint8(phase))
	}
}

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	genesisFlag := flag.String("genesis", "", "Path to a genesis YAML file (overrides config GenesisFile)")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv(envPrefix))

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	logger := logging.Setup("campusd", env, logging.Options{
		Level:      cfg.LogLevel,
		Format:     cfg.LogFormat,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogFileMaxSizeMB,
		MaxBackups: cfg.LogFileMaxBackups,
	})

	genesisPath := strings.TrimSpace(*genesisFlag)
	if genesisPath == "" {
		genesisPath = strings.TrimSpace(cfg.GenesisFile)
	}
	if genesisPath == "" {
		logger.Error("no genesis file configured")
		os.Exit(1)
	}
	gen, err := config.LoadGenesis(genesisPath)
	if err != nil {
		logger.Error("failed to load genesis", slog.Any("error", err))
		os.Exit(1)
	}
	adminAddr, err := crypto.DecodeAddress(gen.Admin)
	if err != nil {
		logger.Error("invalid genesis admin address", slog.Any("error", err))
		os.Exit(1)
	}
	var admin [20]byte
	copy(admin[:], adminAddr.Bytes())

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		panic(fmt.Sprintf("Failed to open database: %v", err))
	}
	defer db.Close()

	markMode := enrollment.MarkOverwrite
	if cfg.MarkAccumulate {
		markMode = enrollment.MarkAccumulate
	}

	uni := core.NewUniversity(db, core.Config{
		Admin:               admin,
		MarkMode:            markMode,
		GraduationThreshold: cfg.GraduationThreshold,
		CreditPolicy:        degree.DefaultCreditPolicy,
		Emitter:             metricsEmitter{},
		Logger:              logger,
	})

	if err := uni.ApplyGenesis(gen); err != nil {
		logger.Error("failed to apply genesis", slog.Any("error", err))
		os.Exit(1)
	}

	secret := strings.TrimSpace(os.Getenv(cfg.AuthSecretEnv))
	if secret == "" {
		logger.Warn("RPC auth secret not set; administrative methods are disabled", "env", cfg.AuthSecretEnv)
	} else {
		logger.Info("RPC auth secret loaded", logging.MaskField("secret", secret))
	}

	server := rpc.NewServer(uni, rpc.Options{
		AuthSecret:         []byte(secret),
		RateLimitPerSecond: cfg.RateLimitPerSecond,
		RateLimitBurst:     cfg.RateLimitBurst,
		Logger:             logger,
	})

	logger.Info("campus daemon starting",
		"network", cfg.NetworkName,
		"rpc", cfg.RPCAddress,
		"admin", gen.Admin,
	)
	if err := server.Start(cfg.RPCAddress); err != nil {
		logger.Error("RPC server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
