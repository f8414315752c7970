package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/superfeelapi/goEmotionFusion/business/analysis"
	"github.com/superfeelapi/goEmotionFusion/business/api"
	"github.com/superfeelapi/goEmotionFusion/business/heartrate"
	"github.com/superfeelapi/goEmotionFusion/business/history"
	"github.com/superfeelapi/goEmotionFusion/business/session"
	"github.com/superfeelapi/goEmotionFusion/business/speech"
	"github.com/superfeelapi/goEmotionFusion/business/worker"
	"github.com/superfeelapi/goEmotionFusion/foundation/config"
	"github.com/superfeelapi/goEmotionFusion/foundation/external/voiceAnalysis"
	"github.com/superfeelapi/goEmotionFusion/foundation/health"
	"github.com/superfeelapi/goEmotionFusion/foundation/kv"
	"github.com/superfeelapi/goEmotionFusion/foundation/logger"
	"github.com/superfeelapi/goEmotionFusion/foundation/redis"
	"github.com/superfeelapi/goEmotionFusion/foundation/retry"
	"github.com/superfeelapi/goEmotionFusion/foundation/state"
	"go.uber.org/zap"
)

var (
	version   string
	buildTime string
)

type appConfig struct {
	conf.Version
	Web struct {
		APIHost         string        `conf:"default:0.0.0.0:8080"`
		GRPCHost        string        `conf:"default:0.0.0.0:9090"`
		ReadTimeout     time.Duration `conf:"default:10s"`
		WriteTimeout    time.Duration `conf:"default:30s"`
		ShutdownTimeout time.Duration `conf:"default:20s"`
	}
	Profile struct {
		Path string `conf:"default:/etc/goEmotion/profiles.yaml"`
		ID   string `conf:"default:default"`
	}
	Store struct {
		Directory string `conf:"default:/var/lib/goEmotion/history"`
		InMemory  bool   `conf:"default:false"`
	}
	Redis struct {
		Enabled        bool   `conf:"default:false"`
		Address        string `conf:"default:localhost:6379"`
		Password       string `conf:"mask"`
		HistoryChannel string `conf:"default:goEmotion:history"`
	}
	VoiceAnalysis struct {
		Endpoint string
		ApiKey   string `conf:"mask"`
	}
	Monitor struct {
		Platform string `conf:"default:android"`
		Seed     uint64
		AlwaysOn bool   `conf:"default:false"`
	}
	Worker struct {
		Enabled        bool          `conf:"default:false"`
		SpeechInterval time.Duration `conf:"default:30s"`
	}
	Audio struct {
		Directory string `conf:"default:/var/lib/goEmotion/audio"`
	}
	Logger struct {
		LogDirectory string `conf:"noprint"`
	}
}

func main() {
	// =================================================================================================================
	// Configuration

	cfg := appConfig{
		Version: conf.Version{
			Build: version,
			Desc:  buildTime,
		},
	}

	// Configuration Parsing
	const prefix = "EMOTION"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			os.Exit(0)
		}
		fmt.Println("ERROR:", err)
		os.Exit(1)
	}

	// =================================================================================================================
	// Version Checking Support

	displayVersion := flag.Bool("version", false, "Display version and exit")
	flag.Parse()

	if *displayVersion {
		fmt.Printf("Version:\t%s\n", version)
		fmt.Printf("Build time:\t%s\n", buildTime)
		os.Exit(0)
	}

	// =================================================================================================================
	// Application Logger

	log, err := logger.New(cfg.Logger.LogDirectory, "goEmotion")
	if err != nil {
		fmt.Println("ERROR:", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(log, &cfg); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger, cfg *appConfig) error {

	// =================================================================================================================
	// Configuration Stringify

	out, err := conf.String(cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	// =================================================================================================================
	// Analysis Profile

	profile, err := config.GetProfile(cfg.Profile.Path, cfg.Profile.ID)
	if err != nil {
		return fmt.Errorf("loading profile: %w", err)
	}
	log.Infow("startup", "profile", profile.ID)

	st := state.NewState()

	// =================================================================================================================
	// History Store

	store, err := kv.NewBadger(kv.BadgerOptions{
		Dir:      cfg.Store.Directory,
		InMemory: cfg.Store.InMemory,
		Logger:   log,
	})
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Errorw("shutdown", "ERROR", err)
		}
	}()

	// =================================================================================================================
	// Redis

	var redisClient *redis.Redis
	var publisher history.Publisher

	if cfg.Redis.Enabled {
		redisClient, err = redis.New(context.Background(), cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.HistoryChannel, log)
		if err != nil {
			log.Errorw("startup", "ERROR", err)
		}
	}
	if redisClient != nil {
		publisher = redisClient
		defer redisClient.Close()
	} else {
		st.Set(state.Redis, false)
	}

	hist := history.New(history.Options{
		Store:     store,
		Publisher: publisher,
		State:     st,
		Logger:    log,
	})

	// =================================================================================================================
	// Producers

	// The remote producer uploads the recorded file, so recordings are
	// written to the audio directory.
	writeAudio := cfg.VoiceAnalysis.Endpoint != ""

	var speechProducer analysis.SpeechProducer = speech.NewSimulator(cfg.Monitor.Seed, log)
	if writeAudio {
		speechProducer = speech.NewRemote(voiceAnalysis.New(cfg.VoiceAnalysis.Endpoint, cfg.VoiceAnalysis.ApiKey, retry.DefaultConfig(), log))
		log.Infow("startup", "speech", "remote", "endpoint", cfg.VoiceAnalysis.Endpoint)
	}

	analyzer := analysis.New(speechProducer, heartrate.NewClassifier(profile.Bands, cfg.Monitor.Seed, nil), log)

	monitor := heartrate.NewMonitor(heartrate.MonitorOptions{
		Simulator: profile.Simulator,
		Platform:  heartrate.Platform(cfg.Monitor.Platform),
		Seed:      cfg.Monitor.Seed,
		Logger:    log,
	})

	// Otherwise the monitor samples only while a session, stream or worker
	// holds it.
	if cfg.Monitor.AlwaysOn {
		if err := monitor.Start(context.Background()); err != nil {
			log.Errorw("startup", "status", "monitor unavailable", "ERROR", err)
			st.Set(state.Monitor, false)
		}
		defer monitor.Stop()
	}

	// =================================================================================================================
	// gRPC Health

	grpcListener, err := net.Listen("tcp", cfg.Web.GRPCHost)
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	healthServer := health.New(st, log)

	serverErrors := make(chan error, 2)

	go func() {
		log.Infow("startup", "status", "grpc health started", "host", cfg.Web.GRPCHost)
		serverErrors <- healthServer.Serve(grpcListener)
	}()
	defer healthServer.Stop()

	// =================================================================================================================
	// HTTP API

	router := api.NewRouter(api.Config{
		Analyzer: analyzer,
		History:  hist,
		Monitor:  monitor,
		State:    st,
		Logger:   log,
		Sessions: session.Deps{
			Analyzer: analyzer,
			Monitor:  monitor,
			History:  hist,
			State:    st,
			Capture:  profile.Capture,
			AudioDir: cfg.Audio.Directory,
			Logger:   log,

			WriteAudio: writeAudio,
		},
	})

	apiServer := http.Server{
		Addr:         cfg.Web.APIHost,
		Handler:      router,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	go func() {
		log.Infow("startup", "status", "api router started", "host", apiServer.Addr)
		serverErrors <- apiServer.ListenAndServe()
	}()

	// =================================================================================================================
	// Run Worker

	var workerErrors <-chan error
	if cfg.Worker.Enabled {
		w := worker.Run(worker.Settings{
			Logger:   log,
			State:    st,
			Analyzer: analyzer,
			Monitor:  monitor,
			History:  hist,
			Redis:    redisClient,
			Config: worker.Config{
				SpeechInterval: cfg.Worker.SpeechInterval,
				Capture:        profile.Capture,
				AudioDir:       cfg.Audio.Directory,
				WriteAudio:     writeAudio,
			},
		})
		defer w.Shutdown(nil)
		workerErrors = w.Errors()
	}

	// =================================================================================================================
	// Shutdown

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	// Blocking main and waiting for error or shutdown.
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case err := <-workerErrors:
		return fmt.Errorf("worker error: %w", err)

	case sig := <-shutdown:
		log.Infow("shutdown", "status", "shutdown started", "signal", sig)
		defer log.Infow("shutdown", "status", "shutdown complete", "signal", sig)

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()

		if err := apiServer.Shutdown(ctx); err != nil {
			apiServer.Close()
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
	}

	return nil
}
