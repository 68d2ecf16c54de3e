package main

import (
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"

	"cardioserve/db"
	qhttp "cardioserve/http"
	"cardioserve/logging"
	"cardioserve/ml"
	"cardioserve/monitoring"
	"cardioserve/schema"
)

type Config struct {
	Artifact struct {
		PipelineKind string `yaml:"pipeline_kind"`
		PipelinePath string `yaml:"pipeline_path"`
		ConfigPath   string `yaml:"config_path"`
	} `yaml:"artifact"`
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	Http struct {
		Port int `yaml:"port"`
	} `yaml:"http"`
	Log     logging.Config `yaml:"log"`
	Serving struct {
		OnInvalid string `yaml:"on_invalid"`
		CacheSize int    `yaml:"cache_size"`
	} `yaml:"serving"`
}

func main() {
	// 1. Load config
	config, err := loadConfig("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.Init(config.Log)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	qhttp.SetLogger(logger)

	// 2. Initialize audit database
	if err := db.InitDB(config.Database.Path); err != nil {
		logger.Fatal("initialize database", zap.Error(err))
	}
	logger.Info("database initialized", zap.String("path", config.Database.Path))

	// 3. Load the prediction artifact. Any failure here is fatal: the
	// process must not serve with a missing or inconsistent model.
	kind := config.Artifact.PipelineKind
	if kind == "" {
		kind = "logreg"
	}
	pipeline, err := ml.LoadPipeline(kind, config.Artifact.PipelinePath)
	if err != nil {
		logger.Fatal("load pipeline artifact", zap.Error(err))
	}
	decisionConfig, err := ml.LoadDecisionConfig(config.Artifact.ConfigPath)
	if err != nil {
		logger.Fatal("load decision config", zap.Error(err))
	}
	if err := schema.ValidateOrder(decisionConfig.FeatureOrder); err != nil {
		logger.Fatal("decision config disagrees with feature schema", zap.Error(err))
	}
	if err := decisionConfig.CheckArity(pipeline); err != nil {
		logger.Fatal("artifact arity mismatch", zap.Error(err))
	}
	logger.Info("artifact loaded",
		zap.String("kind", kind),
		zap.Int("n_features", pipeline.NumFeatures()),
		zap.Float64("threshold", decisionConfig.Threshold),
	)

	serving := pipeline
	if config.Serving.CacheSize > 0 {
		cached, err := ml.NewCachedPipeline(pipeline, config.Serving.CacheSize)
		if err != nil {
			logger.Fatal("initialize score cache", zap.Error(err))
		}
		serving = cached
	}

	initializeServices(config, logger, serving, decisionConfig, kind)

	// 4. Warn when artifacts change on disk. Hot reload is deliberately
	// unsupported; a new artifact requires a restart.
	stopWatch, err := watchArtifacts(logger, config.Artifact.PipelinePath, config.Artifact.ConfigPath)
	if err != nil {
		logger.Warn("artifact watcher unavailable", zap.Error(err))
	} else {
		defer stopWatch()
	}

	// 5. Start HTTP server
	serverConfig := qhttp.DefaultServerConfig()
	if config.Http.Port > 0 {
		serverConfig.Port = config.Http.Port
	}
	server := qhttp.NewServer(serverConfig)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// 6. Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	if err := server.Stop(); err != nil {
		logger.Warn("server forced to shutdown", zap.Error(err))
	}

	logger.Info("exiting")
}

func loadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

func initializeServices(config *Config, logger *zap.Logger, pipeline ml.Pipeline, decisionConfig *ml.DecisionConfig, kind string) {
	qhttp.SetArtifact(pipeline, decisionConfig, kind)

	if config.Serving.OnInvalid == string(qhttp.Annotate) {
		qhttp.SetBatchPolicy(qhttp.Annotate)
	}

	metrics := monitoring.NewMetricsCollector()
	qhttp.SetMetrics(metrics)

	hub := monitoring.NewHub(logger)
	go hub.Start()
	qhttp.SetHub(hub)
}

func watchArtifacts(logger *zap.Logger, paths ...string) (func(), error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := watcher.Add(path); err != nil {
			watcher.Close()
			return nil, err
		}
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
					logger.Warn("artifact changed on disk; restart required to pick it up",
						zap.String("file", event.Name),
						zap.String("op", event.Op.String()),
					)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("artifact watcher error", zap.Error(err))
			}
		}
	}()

	return func() { watcher.Close() }, nil
}
