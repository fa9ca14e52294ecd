package config

import (
	"os"
	"strconv"
	"time"
)

type WorkerCfg struct {
	Name                string
	ControllerAddr      string
	RequiredPorts       int
	RegistrationTimeout time.Duration
	HeartbeatInterval   time.Duration
	HeartbeatTimeout    time.Duration
	LogDir              string
}

func NewWorkerCfg() *WorkerCfg {
	name := os.Getenv("WORKER_NAME")
	controllerAddr := os.Getenv("CONTROLLER_ADDR")
	if controllerAddr == "" {
		controllerAddr = "localhost:9000"
	}
	logDir := os.Getenv("WORKER_LOG_DIR")
	if logDir == "" {
		logDir = "logs"
	}

	requiredPorts, err := strconv.Atoi(os.Getenv("REQUIRED_PORTS"))
	if err != nil {
		requiredPorts = 1
	}
	registrationTimeoutSec, err := strconv.Atoi(os.Getenv("REGISTRATION_TIMEOUT_SEC"))
	if err != nil {
		registrationTimeoutSec = 10
	}
	heartbeatIntervalSec, err := strconv.Atoi(os.Getenv("HEARTBEAT_INTERVAL_SEC"))
	if err != nil {
		heartbeatIntervalSec = 15
	}
	heartbeatTimeoutSec, err := strconv.Atoi(os.Getenv("HEARTBEAT_TIMEOUT_SEC"))
	if err != nil {
		heartbeatTimeoutSec = 5
	}

	return &WorkerCfg{
		Name:                name,
		ControllerAddr:      controllerAddr,
		RequiredPorts:       requiredPorts,
		RegistrationTimeout: time.Duration(registrationTimeoutSec) * time.Second,
		HeartbeatInterval:   time.Duration(heartbeatIntervalSec) * time.Second,
		HeartbeatTimeout:    time.Duration(heartbeatTimeoutSec) * time.Second,
		LogDir:              logDir,
	}
}
