package changefeed

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/specialistvlad/fieldgraph/internal/ctxlog"
	"github.com/specialistvlad/fieldgraph/internal/field"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// EventName is the socket.io event carrying a Payload.
const EventName = "field_changes"

const defaultConnectTimeout = 15 * time.Second

// PublisherConfig locates the socket.io server.
type PublisherConfig struct {
	URL                string
	Namespace          string
	InsecureSkipVerify bool
	// ConnectTimeout defaults to 15s.
	ConnectTimeout time.Duration
	// RunID tags every payload. A random UUID is used when empty.
	RunID string
}

// Publisher forwards change batches to a socket.io server. Batches that
// arrive while the connection is down are dropped and logged.
type Publisher struct {
	logger    *slog.Logger
	runID     string
	emit      func(event string, payload Payload)
	connected func() bool
	close     func()
}

var _ field.Observer = (*Publisher)(nil)

// Dial connects to the server and waits for the connection to be
// established, ctx to end or the connect timeout to pass.
func Dial(ctx context.Context, cfg PublisherConfig) (*Publisher, error) {
	logger := ctxlog.FromContext(ctx).With("component", "changefeed", "url", cfg.URL)

	parsedURL, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse change feed URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("change feed URL %q needs a scheme and host", cfg.URL)
	}
	runID := cfg.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}

	opts := socket.DefaultOptions()
	opts.SetPath(parsedURL.Path)
	if cfg.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(cfg.Namespace, opts)

	connectChan := make(chan error, 1)
	io.Once(types.EventName("connect"), func(...any) {
		connectChan <- nil
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		err, ok := errs[0].(error)
		if !ok {
			err = fmt.Errorf("%v", errs[0])
		}
		connectChan <- err
	})

	logger.Debug("Connecting change feed.")
	io.Connect()

	select {
	case err := <-connectChan:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("socket.io connection failed: %w", err)
		}
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("context cancelled while waiting for socket.io connection: %w", ctx.Err())
	case <-time.After(timeout):
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %s waiting for socket.io connection", timeout)
	}
	logger.Info("Change feed connected.", "sid", io.Id(), "run", runID)

	return &Publisher{
		logger:    logger,
		runID:     runID,
		emit:      func(event string, payload Payload) { io.Emit(event, payload) },
		connected: io.Connected,
		close:     func() { io.Disconnect() },
	}, nil
}

// FieldsChanged emits one EventName event per batch.
func (p *Publisher) FieldsChanged(ev *field.ChangeEvent) {
	payload := EncodePayload(ev)
	payload.Run = p.runID
	if !p.connected() {
		p.logger.Warn("Change feed disconnected, dropping batch.", "module", payload.Module, "changes", len(payload.Changes))
		return
	}
	p.logger.Debug("Publishing field changes.", "module", payload.Module, "changes", len(payload.Changes))
	p.emit(EventName, payload)
}

// Close disconnects from the server.
func (p *Publisher) Close() {
	p.close()
}
