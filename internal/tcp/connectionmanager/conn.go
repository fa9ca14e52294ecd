package connectionmanager

import (
	"fmt"
	"net"
	"sync"

	"gitlab.com/quantport.net/internal/core/ports/primary"
	"gitlab.com/quantport.net/internal/tcp/defs"
)

// ConnectionManager tracks live control-channel connections by worker name.
type ConnectionManager struct {
	Connections map[string]net.Conn
	ConnMutex   sync.RWMutex
	Logger      primary.Logger
}

// NewConnectionManager creates a new connection manager
func NewConnectionManager(logger primary.Logger) *ConnectionManager {
	return &ConnectionManager{
		Connections: make(map[string]net.Conn),
		Logger:      logger,
	}
}

// RegisterWorker records a worker's control connection after a successful
// registration handshake.
func (cm *ConnectionManager) RegisterWorker(name string, conn net.Conn) {
	cm.ConnMutex.Lock()
	cm.Connections[name] = conn
	cm.ConnMutex.Unlock()
}

// RemoveWorker removes a worker when its connection is closed
func (cm *ConnectionManager) RemoveWorker(name string) {
	cm.ConnMutex.Lock()
	delete(cm.Connections, name)
	cm.ConnMutex.Unlock()
}

// GetConnection returns the control connection for a specific worker
func (cm *ConnectionManager) GetConnection(name string) (net.Conn, bool) {
	cm.ConnMutex.RLock()
	defer cm.ConnMutex.RUnlock()

	conn, exists := cm.Connections[name]
	return conn, exists
}

// ActiveNames returns the names of all workers with a live control connection.
func (cm *ConnectionManager) ActiveNames() []string {
	cm.ConnMutex.RLock()
	defer cm.ConnMutex.RUnlock()

	names := make([]string, 0, len(cm.Connections))
	for name := range cm.Connections {
		names = append(names, name)
	}
	return names
}

// SendReply writes a reply line to a worker connection.
func SendReply(conn net.Conn, reply defs.Reply) error {
	return WriteLine(conn, defs.EncodeReply(reply))
}

// WriteLine sends one newline-terminated protocol line.
func WriteLine(conn net.Conn, line string) error {
	if _, err := conn.Write([]byte(line + "\n")); err != nil {
		return fmt.Errorf("failed to write protocol line: %w", err)
	}
	return nil
}
