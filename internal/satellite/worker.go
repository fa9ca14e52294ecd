package satellite

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"gitlab.com/quantport.net/internal/adapter/logging"
	"gitlab.com/quantport.net/internal/core/ports/primary"
	"gitlab.com/quantport.net/internal/domain"
	"gitlab.com/quantport.net/internal/tcp"
	"gitlab.com/quantport.net/internal/tcp/defs"
)

// State represents the worker lifecycle stage.
type State string

const (
	StateIdle        State = "idle"
	StateRegistering State = "registering"
	StateRunning     State = "running"
	StateTerminated  State = "terminated"
)

// Options configures a worker.
type Options struct {
	// ControllerAddr is the controller's control-channel endpoint
	ControllerAddr string
	// RequiredPorts is how many consecutive ports the worker asks the
	// controller to allocate (default: 1)
	RequiredPorts int
	// RegistrationTimeout bounds the whole connect-and-register phase
	// (default: 10s)
	RegistrationTimeout time.Duration
	// HeartbeatInterval is the gap between liveness pings (default: 15s)
	HeartbeatInterval time.Duration
	// HeartbeatTimeout bounds each wait for a heartbeat reply (default: 5s)
	HeartbeatTimeout time.Duration
	// DispatchAddr overrides where the command listener binds. Empty means
	// the controller-assigned base port on all interfaces.
	DispatchAddr string
	// AnnounceBroker, when set, announces this worker as the data server
	// for the broker right after registration
	AnnounceBroker string
	// AnnouncePortOffset is added to the assigned base port to form the
	// announced data port
	AnnouncePortOffset int
	// Logger receives lifecycle logging
	Logger primary.Logger
}

// DefaultOptions returns options with the documented defaults.
func DefaultOptions() Options {
	return Options{
		RequiredPorts:       1,
		RegistrationTimeout: 10 * time.Second,
		HeartbeatInterval:   15 * time.Second,
		HeartbeatTimeout:    5 * time.Second,
	}
}

// Worker coordinates one satellite process. It registers with the controller,
// then keeps two concurrent duties alive, periodic heartbeats and command
// dispatch, until either fails. The first fatal failure stops both duties and
// is returned as the single terminal error.
type Worker struct {
	name     string
	registry *Registry
	opts     Options
	logger   primary.Logger

	state atomic.Value // State

	mu           sync.RWMutex
	basePort     int
	dispatchAddr string

	control *tcp.ReqChannel
}

// NewWorker creates a worker with the given identity and command registry.
// The registry must be fully populated before Run is called.
func NewWorker(name string, registry *Registry, opts Options) *Worker {
	defaults := DefaultOptions()

	if opts.RequiredPorts == 0 {
		opts.RequiredPorts = defaults.RequiredPorts
	}
	if opts.RegistrationTimeout == 0 {
		opts.RegistrationTimeout = defaults.RegistrationTimeout
	}
	if opts.HeartbeatInterval == 0 {
		opts.HeartbeatInterval = defaults.HeartbeatInterval
	}
	if opts.HeartbeatTimeout == 0 {
		opts.HeartbeatTimeout = defaults.HeartbeatTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewZapLogger()
	}
	if registry == nil {
		registry = NewRegistry()
	}

	w := &Worker{
		name:     name,
		registry: registry,
		opts:     opts,
		logger:   opts.Logger,
	}
	w.state.Store(StateIdle)

	return w
}

// Name returns the worker identity.
func (w *Worker) Name() string { return w.name }

// State returns the current lifecycle stage.
func (w *Worker) State() State {
	return w.state.Load().(State)
}

func (w *Worker) setState(s State) {
	w.state.Store(s)
}

// BasePort returns the controller-assigned base port, valid once Running.
func (w *Worker) BasePort() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.basePort
}

// DispatchAddr returns the bound command listener address, empty when the
// worker exposes no commands.
func (w *Worker) DispatchAddr() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.dispatchAddr
}

// Run drives the full lifecycle: connect, register, then heartbeat and serve
// commands concurrently until either duty fails. It returns the terminal
// error, or nil when the context was cancelled by the host. A worker instance
// runs once; a terminated worker is not restartable in place.
func (w *Worker) Run(ctx context.Context) error {
	if w.State() != StateIdle {
		return fmt.Errorf("worker %s already started", w.name)
	}

	w.setState(StateRegistering)

	basePort, err := w.register(ctx)
	if err != nil {
		w.closeControl()
		w.setState(StateTerminated)
		if ctx.Err() != nil {
			w.logger.Info("Worker stopped during registration", "name", w.name)
			return nil
		}
		w.logger.Error("Worker failed to register", "name", w.name, "error", err)
		return err
	}

	w.mu.Lock()
	w.basePort = basePort
	w.mu.Unlock()

	if w.opts.AnnounceBroker != "" {
		if err := w.announce(basePort); err != nil {
			w.closeControl()
			w.setState(StateTerminated)
			w.logger.Error("Worker failed to announce data server", "name", w.name, "error", err)
			return err
		}
	}

	listener, err := w.bindDispatch(basePort)
	if err != nil {
		w.closeControl()
		w.setState(StateTerminated)
		return err
	}

	w.setState(StateRunning)
	w.logger.Info("Worker running", "name", w.name, "basePort", basePort, "commands", w.registry.Commands())

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		errCh <- w.heartbeatLoop(runCtx)
	}()

	if listener != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errCh <- w.dispatchLoop(runCtx, listener)
		}()
	}

	// The first result decides the outcome; the other duty is cancelled and
	// drained before the error is surfaced.
	first := <-errCh
	cancel()
	wg.Wait()

	var second error
	select {
	case second = <-errCh:
	default:
	}

	w.closeControl()
	w.setState(StateTerminated)

	if first == nil {
		first = second
	}
	if first != nil {
		w.logger.Error("Worker terminated", "name", w.name, "error", first)
		return first
	}

	w.logger.Info("Worker stopped", "name", w.name)
	return nil
}

// register connects the control channel and performs the one-shot
// registration handshake. The whole phase, including connect retries against
// a controller that is not up yet, is bounded by RegistrationTimeout.
func (w *Worker) register(ctx context.Context) (int, error) {
	deadline := time.Now().Add(w.opts.RegistrationTimeout)

	for {
		dialCtx, cancel := context.WithDeadline(ctx, deadline)
		ch, err := tcp.DialReqChannel(dialCtx, w.opts.ControllerAddr)
		cancel()
		if err == nil {
			w.control = ch
			break
		}
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			w.logger.Error("Controller never became reachable", "name", w.name, "addr", w.opts.ControllerAddr)
			return 0, domain.NewRegistrationTimeout()
		}

		wait := defs.ConnectionRetryDelay
		if remaining < wait {
			wait = remaining
		}
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(wait):
		}
	}

	remaining := time.Until(deadline)
	if remaining <= 0 {
		return 0, domain.NewRegistrationTimeout()
	}

	w.logger.Info("Registering with controller", "name", w.name, "addr", w.opts.ControllerAddr, "ports", w.opts.RequiredPorts)

	reply, err := w.control.Request(defs.EncodeRegistration(w.name, w.opts.RequiredPorts), remaining)
	if err != nil {
		if errors.Is(err, tcp.ErrReplyTimeout) {
			return 0, domain.NewRegistrationTimeout()
		}
		// A garbled or severed reply is as fatal as a rejection.
		return 0, domain.NewRegistrationRejected(err.Error())
	}

	if reply.Rejected() {
		return 0, domain.NewRegistrationRejected(reply.Code.Message(w.name))
	}

	w.logger.Info("Registration accepted", "name", w.name, "assigned", reply.Value)
	return reply.Value, nil
}

// announce publishes this worker as the data server for the configured
// broker. It runs on the control channel after registration and before the
// concurrent duties start.
func (w *Worker) announce(basePort int) error {
	port := basePort + w.opts.AnnouncePortOffset
	msg := defs.EncodeDataServerAnnounce(w.name, w.opts.AnnounceBroker, port)

	reply, err := w.control.Request(msg, w.opts.RegistrationTimeout)
	if err != nil {
		if errors.Is(err, tcp.ErrReplyTimeout) {
			return domain.NewRegistrationTimeout()
		}
		return domain.NewRegistrationRejected(err.Error())
	}
	if reply.Rejected() {
		return domain.NewRegistrationRejected(reply.Code.Message(w.name))
	}

	w.logger.Info("Data server announced", "name", w.name, "broker", w.opts.AnnounceBroker, "port", port)
	return nil
}

// LookupDataServer asks the controller which port serves market data for
// broker. The query runs on a dedicated short-lived channel rather than the
// control channel, so callers never contend with the heartbeat duty and the
// lookup works whether or not the worker is running.
func (w *Worker) LookupDataServer(ctx context.Context, broker string) (int, error) {
	ch, err := tcp.DialReqChannel(ctx, w.opts.ControllerAddr)
	if err != nil {
		return 0, fmt.Errorf("failed to reach controller for lookup: %w", err)
	}
	defer ch.Close()

	reply, err := ch.Request(defs.EncodeDataServerLookup(w.name, broker), w.opts.HeartbeatTimeout)
	if err != nil {
		return 0, fmt.Errorf("data server lookup failed: %w", err)
	}
	if reply.Rejected() {
		return 0, fmt.Errorf("data server lookup refused: %s", reply.Code.Message(w.name))
	}

	w.logger.Debug("Data server located", "name", w.name, "broker", broker, "port", reply.Value)
	return reply.Value, nil
}

// heartbeatLoop pings the controller every HeartbeatInterval. The first ping
// goes out immediately on entering Running; each later round starts on the
// interval tick, so rounds never overlap. Any round that fails, by timeout,
// refusal or a broken channel, is fatal.
func (w *Worker) heartbeatLoop(ctx context.Context) error {
	msg := defs.EncodeHeartbeat(w.name)

	timer := time.NewTimer(w.opts.HeartbeatInterval)
	defer timer.Stop()

	for {
		reply, err := w.control.Request(msg, w.opts.HeartbeatTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, tcp.ErrReplyTimeout) {
				w.logger.Error("Heartbeat went unanswered", "name", w.name, "timeout", w.opts.HeartbeatTimeout)
				return domain.NewControllerUnreachable()
			}
			w.logger.Error("Heartbeat failed", "name", w.name, "error", err)
			unreachable := domain.NewControllerUnreachable()
			unreachable.Err = err
			return unreachable
		}
		if reply.Rejected() {
			w.logger.Error("Controller refused heartbeat", "name", w.name, "reason", reply.Code.Message(w.name))
			return &domain.WorkerError{
				Kind:    domain.KindControllerUnreachable,
				Message: reply.Code.Message(w.name),
			}
		}

		w.logger.Debug("Heartbeat acknowledged", "name", w.name)

		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
			timer.Reset(w.opts.HeartbeatInterval)
		}
	}
}

// bindDispatch opens the command listener. A worker that exposes no commands
// and has no explicit dispatch address runs the heartbeat duty only.
func (w *Worker) bindDispatch(basePort int) (net.Listener, error) {
	addr := w.opts.DispatchAddr
	if addr == "" {
		if w.registry.Len() == 0 {
			return nil, nil
		}
		addr = fmt.Sprintf(":%d", basePort)
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		w.logger.Error("Failed to bind dispatch listener", "name", w.name, "addr", addr, "error", err)
		return nil, fmt.Errorf("failed to bind dispatch listener on %s: %w", addr, err)
	}

	w.mu.Lock()
	w.dispatchAddr = listener.Addr().String()
	w.mu.Unlock()

	return listener, nil
}

func (w *Worker) closeControl() {
	if w.control != nil {
		if err := w.control.Close(); err != nil {
			w.logger.Debug("Control channel close", "name", w.name, "error", err)
		}
	}
}
