package tcp

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"gitlab.com/quantport.net/internal/core/ports/primary"
	"gitlab.com/quantport.net/internal/core/services/registry"
	"gitlab.com/quantport.net/internal/tcp/connectionmanager"
	"gitlab.com/quantport.net/internal/tcp/defs"
	"gitlab.com/quantport.net/internal/tcp/handlers"
)

// ControlServer accepts control-channel connections from satellite workers.
// Requests are single text lines; each request is answered with exactly one
// reply line.
type ControlServer struct {
	address         string
	registryService registry.IRegistryService
	logger          primary.Logger
	listener        net.Listener
	connectionMgr   *connectionmanager.ConnectionManager
	stopCh          chan struct{}
	handlers        map[defs.RequestKind]primary.RequestHandler
}

// ControlServerOption configures a ControlServer
type ControlServerOption func(*ControlServer)

// WithAddress sets the server address
func WithAddress(address string) ControlServerOption {
	return func(s *ControlServer) {
		s.address = address
	}
}

// NewControlServer creates a new control server
func NewControlServer(
	registryService registry.IRegistryService,
	logger primary.Logger,
	options ...ControlServerOption,
) *ControlServer {
	server := &ControlServer{
		address:         ":9000", // Default address
		registryService: registryService,
		logger:          logger,
		connectionMgr:   connectionmanager.NewConnectionManager(logger),
		stopCh:          make(chan struct{}),
	}

	// Apply options
	for _, option := range options {
		option(server)
	}

	// Register request handlers
	server.setupRequestHandlers()

	return server
}

// setupRequestHandlers registers all request handlers
func (s *ControlServer) setupRequestHandlers() {
	s.handlers = map[defs.RequestKind]primary.RequestHandler{
		defs.KindRegistration:       &handlers.WorkerRegistrationHandler{RegistryService: s.registryService, ConnectionMgr: s.connectionMgr, Logger: s.logger},
		defs.KindHeartbeat:          &handlers.WorkerHeartbeatHandler{RegistryService: s.registryService, Logger: s.logger},
		defs.KindDataServerAnnounce: &handlers.DataServerAnnounceHandler{RegistryService: s.registryService, Logger: s.logger},
		defs.KindDataServerLookup:   &handlers.DataServerLookupHandler{RegistryService: s.registryService, Logger: s.logger},
	}
}

// Start starts the control server
func (s *ControlServer) Start() error {
	var err error
	s.listener, err = net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("failed to start control server: %w", err)
	}

	s.logger.Info("Control server listening", "address", s.listener.Addr().String())

	// Accept connections in a goroutine
	go s.acceptConnections()

	return nil
}

// Addr returns the bound listen address. Useful when the server was started
// on port 0.
func (s *ControlServer) Addr() string {
	if s.listener == nil {
		return s.address
	}
	return s.listener.Addr().String()
}

// Stop stops the control server and closes every worker connection
func (s *ControlServer) Stop(ctx context.Context) error {
	close(s.stopCh)

	// Close listener
	if s.listener != nil {
		if err := s.listener.Close(); err != nil {
			s.logger.Error("Failed to close listener", "error", err)
		}
	}

	// Close all connections
	s.closeAllConnections()

	return nil
}

// closeAllConnections closes all worker connections
func (s *ControlServer) closeAllConnections() {
	s.connectionMgr.ConnMutex.Lock()
	defer s.connectionMgr.ConnMutex.Unlock()

	for name, conn := range s.connectionMgr.Connections {
		if err := conn.Close(); err != nil {
			s.logger.Error("Failed to close connection", "name", name, "error", err)
		}
	}
}

// acceptConnections accepts incoming connections
func (s *ControlServer) acceptConnections() {
	for {
		select {
		case <-s.stopCh:
			return
		default:
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.stopCh:
					return
				default:
					s.logger.Error("Failed to accept connection", "error", err)
					time.Sleep(defs.ConnectionRetryDelay) // Avoid tight loop on error
					continue
				}
			}

			// Handle connection in a goroutine
			go s.handleConnection(conn)
		}
	}
}

// handleConnection handles a single worker control connection
func (s *ControlServer) handleConnection(conn net.Conn) {
	defer conn.Close()

	// A connection that never completes a registration gets dropped
	conn.SetDeadline(time.Now().Add(defs.InitialRequestTimeout))

	reader := bufio.NewReader(conn)

	// Read and process requests
	var workerName string
	for {
		select {
		case <-s.stopCh:
			return
		default:
			line, err := readRequestLine(reader)
			if err != nil {
				if err != io.EOF {
					s.logger.Error("Failed to read request", "error", err)
				}
				// Remove connection on error
				if workerName != "" {
					s.connectionMgr.RemoveWorker(workerName)
					s.logger.Info("Worker disconnected", "name", workerName)
				}
				return
			}

			req := defs.ParseControlRequest(line)

			// Find handler for request kind
			handler, exists := s.handlers[req.Kind]
			if !exists {
				s.logger.Warn("Unknown request", "raw", req.Raw)
				if err := connectionmanager.SendReply(conn, defs.CodeReply(defs.UnknownRequest)); err != nil {
					s.logger.Error("Failed to send reply", "error", err)
					return
				}
				continue
			}

			// Create context for request handling
			ctx := context.Background()

			// Handle request
			reply, err := handler.HandleRequest(ctx, conn, req, &workerName)
			if err != nil {
				s.logger.Error("Error handling request", "kind", req.Kind.String(), "error", err)
				if workerName != "" {
					s.connectionMgr.RemoveWorker(workerName)
					s.logger.Info("Worker disconnected due to error", "name", workerName)
				}
				return
			}

			if err := connectionmanager.SendReply(conn, reply); err != nil {
				s.logger.Error("Failed to send reply", "kind", req.Kind.String(), "error", err)
				if workerName != "" {
					s.connectionMgr.RemoveWorker(workerName)
				}
				return
			}

			// After successful registration the connection stays open for
			// the worker's lifetime
			if req.Kind == defs.KindRegistration && workerName != "" {
				conn.SetDeadline(time.Time{}) // No timeout
			}
		}
	}
}

// readRequestLine reads one newline-terminated request line
func readRequestLine(reader *bufio.Reader) (string, error) {
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
