package config

import (
	"os"
	"strconv"
	"time"
)

type ControllerCfg struct {
	ControlAddr    string
	RegistryStore  string
	PortRangeStart int
	PortRangeEnd   int
	StaleAfter     time.Duration
	SweepInterval  time.Duration
	CommandTimeout time.Duration
}

func NewControllerCfg() *ControllerCfg {
	controlAddr := os.Getenv("CONTROL_ADDR")
	if controlAddr == "" {
		controlAddr = ":9000"
	}
	registryStore := os.Getenv("REGISTRY_STORE")
	if registryStore == "" {
		registryStore = "redis"
	}

	portRangeStart, err := strconv.Atoi(os.Getenv("PORT_RANGE_START"))
	if err != nil {
		portRangeStart = 20000
	}
	portRangeEnd, err := strconv.Atoi(os.Getenv("PORT_RANGE_END"))
	if err != nil {
		portRangeEnd = 25000
	}

	staleAfterSec, err := strconv.Atoi(os.Getenv("STALE_AFTER_SEC"))
	if err != nil {
		staleAfterSec = 120
	}
	sweepIntervalSec, err := strconv.Atoi(os.Getenv("SWEEP_INTERVAL_SEC"))
	if err != nil {
		sweepIntervalSec = 60
	}
	commandTimeoutSec, err := strconv.Atoi(os.Getenv("COMMAND_TIMEOUT_SEC"))
	if err != nil {
		commandTimeoutSec = 10
	}

	return &ControllerCfg{
		ControlAddr:    controlAddr,
		RegistryStore:  registryStore,
		PortRangeStart: portRangeStart,
		PortRangeEnd:   portRangeEnd,
		StaleAfter:     time.Duration(staleAfterSec) * time.Second,
		SweepInterval:  time.Duration(sweepIntervalSec) * time.Second,
		CommandTimeout: time.Duration(commandTimeoutSec) * time.Second,
	}
}
