package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"

	"gitlab.com/quantport.net/internal/adapter/crypto"
	"gitlab.com/quantport.net/internal/adapter/logging"
	memoryregistry "gitlab.com/quantport.net/internal/adapter/memory/registryport"
	redisregistry "gitlab.com/quantport.net/internal/adapter/redis/registryport"
	"gitlab.com/quantport.net/internal/config"
	"gitlab.com/quantport.net/internal/core/ports/primary"
	"gitlab.com/quantport.net/internal/core/ports/secondary"
	"gitlab.com/quantport.net/internal/core/services/command"
	"gitlab.com/quantport.net/internal/core/services/registry"
	logger2 "gitlab.com/quantport.net/internal/global/logger"
	http2 "gitlab.com/quantport.net/internal/http"
	"gitlab.com/quantport.net/internal/sweepengine"
	"gitlab.com/quantport.net/internal/tcp"
	"gitlab.com/quantport.net/internal/tcp/publishers"
)

func main() {
	InitReader()
	// Set up graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	logger2.Info("Starting controller service")

	logger := logger2.Logger

	sysCfg := config.NewSystemConfig()

	// SECONDARY PORTS
	registryRepo := setupRegistryRepo(sysCfg, logger)

	// services
	registrySvc := registry.NewRegistryService(registryRepo, logger,
		registry.WithPortRange(sysCfg.ControllerCfg.PortRangeStart, sysCfg.ControllerCfg.PortRangeEnd),
		registry.WithStaleAfter(sysCfg.ControllerCfg.StaleAfter),
	)
	invoker := publishers.NewCommandPublisher(logger, sysCfg.ControllerCfg.CommandTimeout)
	commandSvc := command.NewCommandService(registrySvc, invoker, logger)
	tokenSvc := crypto.NewTokenService(sysCfg.JwtConfig)
	serviceProvider := http2.NewServiceProvider(registrySvc, commandSvc, tokenSvc)

	// servers
	tcpServer := tcp.NewControlServer(registrySvc, logging.NewZapLogger(),
		tcp.WithAddress(sysCfg.ControllerCfg.ControlAddr))
	httpServer := http2.NewServer(sysCfg.APICfg, sysCfg.JwtConfig, "controller", *serviceProvider, logger)
	if err := httpServer.Init(); err != nil {
		panic(err)
	}

	ctxBg := context.Background()
	httpServer.Start(ctxBg)
	if err := tcpServer.Start(); err != nil {
		panic(err)
	}

	sweeper := sweepengine.NewSweepEngine(sysCfg.ControllerCfg, registrySvc, logger)
	sweepCtx, stopSweep := context.WithCancel(ctxBg)
	sweeper.StartStaleWorkerSweep(sweepCtx)

	<-quit
	logger.Info("Shutting down server...")

	stopSweep()
	ctx, cancel := context.WithTimeout(ctxBg, 5*time.Second)
	defer cancel()
	_ = tcpServer.Stop(ctx)
	httpServer.Stop(ctx)

	logger.Info("successfully shutdown server")
}

// setupRegistryRepo picks the registry store. Redis is the default, memory
// serves single-process deployments.
func setupRegistryRepo(sysCfg *config.AppConfig, logger primary.Logger) secondary.RegistryRepository {
	if sysCfg.ControllerCfg.RegistryStore == "memory" {
		logger.Info("Using in-memory registry store")
		return memoryregistry.NewRegistryRepository()
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     sysCfg.RedisConfig.Url,
		Password: sysCfg.RedisConfig.Password, // no password set
		DB:       sysCfg.RedisConfig.DB,       // use default DB
	})
	return redisregistry.NewRegistryRepository(redisClient, logger)
}

func InitReader() {
	environment := ""
	if len(os.Args) < 2 {
		log.Fatalf("Env not supplied in argument")
	} else {
		environment = os.Args[1]
	}

	err := godotenv.Load(environment + ".env")
	if err != nil {
		log.Fatalf("Error loading %s.env file", environment)
	}
}
