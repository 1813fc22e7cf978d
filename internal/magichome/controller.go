package magichome

import (
	"context"
	"fmt"
	"net"
	"time"
)

// Default timeouts for bulb communication.
const (
	// defaultConnectTimeout bounds TCP connection establishment.
	defaultConnectTimeout = 3 * time.Second

	// defaultReadTimeout bounds status response reads.
	defaultReadTimeout = 2 * time.Second

	// maxResponseSize is the read buffer size for status responses.
	// Status frames are 14 bytes; some firmware revisions append extra
	// bytes, so the buffer is generous.
	maxResponseSize = 1024
)

// Logger defines the logging interface for the controller.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Controller sends commands to a single bulb over TCP.
//
// Each operation opens a fresh connection, performs one exchange and
// closes the connection. Bulb firmware drops idle connections after a
// few seconds, so pooling connections is counterproductive.
//
// Controller is safe for concurrent use; callers that need command
// serialisation per bulb enforce it at a higher level.
type Controller struct {
	address        string
	connectTimeout time.Duration
	readTimeout    time.Duration
	logger         Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithConnectTimeout overrides the TCP connect timeout.
func WithConnectTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.connectTimeout = d
		}
	}
}

// WithReadTimeout overrides the status response read timeout.
func WithReadTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.readTimeout = d
		}
	}
}

// WithLogger sets the logger for the controller.
func WithLogger(logger Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewController creates a controller for the bulb at the given address.
// The address may include a port; if it does not, the default protocol
// port 5577 is appended.
func NewController(address string, opts ...Option) *Controller {
	if _, _, err := net.SplitHostPort(address); err != nil {
		address = net.JoinHostPort(address, fmt.Sprintf("%d", DefaultPort))
	}

	c := &Controller{
		address:        address,
		connectTimeout: defaultConnectTimeout,
		readTimeout:    defaultReadTimeout,
		logger:         noopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Address returns the bulb address including port.
func (c *Controller) Address() string {
	return c.address
}

// SetPower turns the bulb on or off.
func (c *Controller) SetPower(ctx context.Context, on bool) error {
	return c.send(ctx, powerFrame(on))
}

// SetColor sets the bulb to an RGB colour. Sending a colour frame
// also switches the bulb out of warm white mode.
func (c *Controller) SetColor(ctx context.Context, r, g, b uint8) error {
	return c.send(ctx, colorFrame(r, g, b))
}

// SetWarmWhite sets the warm white channel level. Sending a warm
// white frame zeroes the RGB channels on the device.
func (c *Controller) SetWarmWhite(ctx context.Context, level uint8) error {
	return c.send(ctx, warmWhiteFrame(level))
}

// QueryStatus requests the bulb's current state.
func (c *Controller) QueryStatus(ctx context.Context) (*Status, error) {
	conn, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if _, err := conn.Write(statusQueryFrame()); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrWriteFailed, c.address, err)
	}

	if err := conn.SetReadDeadline(time.Now().Add(c.readTimeout)); err != nil {
		return nil, fmt.Errorf("%w: %s: set deadline: %v", ErrReadFailed, c.address, err)
	}

	buf := make([]byte, maxResponseSize)
	n, err := conn.Read(buf)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrReadFailed, c.address, err)
	}

	status, err := parseStatus(buf[:n])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.address, err)
	}

	c.logger.Debug("status received",
		"address", c.address,
		"power_on", status.PowerOn,
		"red", status.Red,
		"green", status.Green,
		"blue", status.Blue,
		"warm_white", status.WarmWhite,
	)

	return status, nil
}

// send opens a connection, writes a single command frame and closes.
// Command frames do not produce a response.
func (c *Controller) send(ctx context.Context, frame []byte) error {
	conn, err := c.dial(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	if _, err := conn.Write(frame); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrWriteFailed, c.address, err)
	}

	return nil
}

// dial establishes a TCP connection bounded by the connect timeout
// and the caller's context.
func (c *Controller) dial(ctx context.Context) (net.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, c.connectTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(dialCtx, "tcp", c.address)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConnectFailed, c.address, err)
	}
	return conn, nil
}
