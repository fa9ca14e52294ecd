package domain

import (
	"net"
	"strconv"
	"time"
)

// WorkerRecord represents a registered satellite worker as tracked by the controller
type WorkerRecord struct {
	Name          string    `json:"name"`
	RequiredPorts int       `json:"required_ports"`
	BasePort      int       `json:"base_port"`
	Host          string    `json:"host"`
	LeaseID       string    `json:"lease_id"`
	RegisteredAt  time.Time `json:"registered_at"`
	LastHeartbeat time.Time `json:"last_heartbeat"`
	IsAlive       bool      `json:"is_alive"`
}

// CommandAddr returns the dial address of the worker's command channel.
// Workers bind their command listener on the first port of the assigned block.
func (w *WorkerRecord) CommandAddr() string {
	return net.JoinHostPort(w.Host, strconv.Itoa(w.BasePort))
}

// DataServerRecord represents a worker that announced itself as the market
// data server for a broker
type DataServerRecord struct {
	Broker      Broker    `json:"broker"`
	WorkerName  string    `json:"worker_name"`
	Port        int       `json:"port"`
	AnnouncedAt time.Time `json:"announced_at"`
}
