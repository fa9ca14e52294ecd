package satellite

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"gitlab.com/quantport.net/internal/domain"
	"gitlab.com/quantport.net/internal/tcp/connectionmanager"
	"gitlab.com/quantport.net/internal/tcp/defs"
)

// dispatchLoop serves command invocations one at a time: accept a connection,
// read the command line, run the handler, write the result line. An unknown
// command is answered with a coded refusal and never stops the loop; a
// failing handler does.
func (w *Worker) dispatchLoop(ctx context.Context, listener net.Listener) error {
	// Unblock Accept when the worker is being stopped.
	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.logger.Error("Dispatch listener failed", "name", w.name, "error", err)
			return fmt.Errorf("dispatch listener failed: %w", err)
		}

		if err := w.serveCommand(ctx, conn); err != nil {
			return err
		}
	}
}

// serveCommand handles a single invocation on a fresh connection.
func (w *Worker) serveCommand(ctx context.Context, conn net.Conn) error {
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(defs.InitialRequestTimeout))

	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		// A caller that connects and says nothing is its own problem.
		w.logger.Warn("Dropped command connection", "name", w.name, "error", err)
		return nil
	}
	command := strings.TrimRight(line, "\r\n")

	handler, ok := w.registry.Lookup(command)
	if !ok {
		w.logger.Warn("Unknown command", "name", w.name, "command", command)
		if err := connectionmanager.SendReply(conn, defs.CodeReply(defs.UnknownRequest)); err != nil {
			w.logger.Warn("Failed to refuse command", "name", w.name, "error", err)
		}
		return nil
	}

	w.logger.Info("Command received", "name", w.name, "command", command)

	result, err := handler(ctx)
	if err != nil {
		w.logger.Error("Command handler failed", "name", w.name, "command", command, "error", err)
		return domain.NewHandlerFailure(command, err)
	}

	if err := connectionmanager.WriteLine(conn, result); err != nil {
		// The result is lost but the worker stays healthy.
		w.logger.Warn("Failed to send command result", "name", w.name, "command", command, "error", err)
	}
	return nil
}
