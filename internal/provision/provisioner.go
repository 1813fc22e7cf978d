package provision

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/wrenfold/bulbsync/internal/infrastructure/config"
)

// Provisioning flow timings.
const (
	defaultWatchInterval = 30 * time.Second

	// provisionCooldown suppresses reprovisioning an SSID that was just
	// handled; the bulb's AP lingers briefly while it reboots.
	provisionCooldown = 5 * time.Minute

	// lanProbeTimeout bounds the wait for a rebooted bulb to join the LAN.
	lanProbeTimeout  = 60 * time.Second
	lanProbeInterval = 3 * time.Second
	lanDialTimeout   = 2 * time.Second

	// ledPort is the bulb's TCP control port, probed to confirm the bulb
	// came back on the home network.
	ledPort = 5577

	// ssidPrefix identifies a bulb access point.
	ssidPrefix = "LEDnet"
)

// Logger defines the logging interface used by the provisioner.
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

// Provisioner joins bulb access points and pushes home network
// credentials over the AT command interface.
//
// Thread Safety: Start, Stop and IsRunning are safe for concurrent use.
// Provision and Scan must not be called while the watch loop runs; they
// share the single wireless interface.
type Provisioner struct {
	cfg    config.ProvisionerConfig
	bulbs  map[string]string // bulb name -> expected LAN address
	runner CommandRunner
	at     ATExchanger
	dial   func(ctx context.Context, address string) error
	logger Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}

	// recent tracks SSIDs provisioned within the cooldown window.
	recent map[string]time.Time
}

// NewProvisioner creates a provisioner.
//
// Parameters:
//   - cfg: provisioner settings (interface, credentials, watch interval)
//   - bulbs: configured bulb name to LAN address map, used for the
//     post-provision reachability probe
func NewProvisioner(cfg config.ProvisionerConfig, bulbs map[string]string) *Provisioner {
	copied := make(map[string]string, len(bulbs))
	for name, addr := range bulbs {
		copied[name] = addr
	}

	p := &Provisioner{
		cfg:    cfg,
		bulbs:  copied,
		at:     udpExchanger{},
		logger: noopLogger{},
		recent: make(map[string]time.Time),
	}
	p.runner = &execRunner{logger: p.logger}
	p.dial = p.dialLED
	return p
}

// SetLogger sets the logger for the provisioner.
func (p *Provisioner) SetLogger(logger Logger) {
	p.logger = logger
	if r, ok := p.runner.(*execRunner); ok {
		r.logger = logger
	}
}

// Scan lists bulb access points visible to the wireless interface.
func (p *Provisioner) Scan(ctx context.Context) ([]string, error) {
	out, err := p.runner.Run(ctx, "nmcli",
		"--terse", "--fields", "SSID",
		"device", "wifi", "list",
		"ifname", p.cfg.Interface,
		"--rescan", "yes",
	)
	if err != nil {
		return nil, fmt.Errorf("scanning for bulb APs: %w", err)
	}

	seen := make(map[string]struct{})
	var ssids []string
	for _, line := range strings.Split(out, "\n") {
		ssid := strings.TrimSpace(line)
		if !strings.HasPrefix(ssid, ssidPrefix) {
			continue
		}
		if _, dup := seen[ssid]; dup {
			continue
		}
		seen[ssid] = struct{}{}
		ssids = append(ssids, ssid)
	}

	if len(ssids) > 0 {
		p.logger.Info("found bulb APs", "ssids", ssids)
	}
	return ssids, nil
}

// Provision runs the full provisioning flow for one bulb AP: join the
// AP, discover the bulb, push credentials, reboot it into station mode
// and wait for it to reappear on the LAN.
func (p *Provisioner) Provision(ctx context.Context, ssid string) error {
	if !p.cfg.Enabled {
		return ErrDisabled
	}
	if p.cfg.SSID == "" || p.cfg.Key == "" {
		return ErrNotConfigured
	}

	p.logger.Info("provisioning bulb", "ap", ssid)

	if err := p.connectToAP(ctx, ssid); err != nil {
		p.disconnect(ctx)
		return err
	}

	info, err := p.configureBulb(ctx)
	p.disconnect(ctx)
	if err != nil {
		return err
	}

	name := p.cfg.MACToName[info.MAC]
	if name == "" {
		p.logger.Info("provisioned unknown bulb; check DHCP leases for its address",
			"mac", info.MAC, "model", info.Model)
		return nil
	}

	address, known := p.bulbs[name]
	if !known {
		p.logger.Warn("provisioned bulb has no configured address", "bulb", name, "mac", info.MAC)
		return nil
	}

	p.logger.Info("waiting for bulb on LAN", "bulb", name, "address", address)
	if err := p.probeLAN(ctx, address); err != nil {
		return fmt.Errorf("bulb %s did not reappear at %s: %w", name, address, err)
	}

	p.logger.Info("bulb back online", "bulb", name, "address", address)
	return nil
}

// connectToAP joins the bulb's open access point and assigns the static
// address the AT interface expects peers to use.
func (p *Provisioner) connectToAP(ctx context.Context, ssid string) error {
	if _, err := p.runner.Run(ctx, "nmcli", "device", "wifi", "connect", ssid, "ifname", p.cfg.Interface); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrAssociateFailed, ssid, err)
	}

	// The bulb AP has no DHCP server; use the fixed peer address.
	if _, err := p.runner.Run(ctx, "ip", "addr", "flush", "dev", p.cfg.Interface); err != nil {
		return fmt.Errorf("%w: flushing %s: %v", ErrAssociateFailed, p.cfg.Interface, err)
	}
	if _, err := p.runner.Run(ctx, "ip", "addr", "add", localAPIP+"/24", "dev", p.cfg.Interface); err != nil {
		return fmt.Errorf("%w: addressing %s: %v", ErrAssociateFailed, p.cfg.Interface, err)
	}

	p.logger.Info("associated with bulb AP", "ap", ssid, "interface", p.cfg.Interface)
	return nil
}

// disconnect restores the wireless interface. Best effort; errors are
// logged and swallowed so cleanup never masks the provisioning result.
func (p *Provisioner) disconnect(ctx context.Context) {
	if _, err := p.runner.Run(ctx, "nmcli", "device", "disconnect", p.cfg.Interface); err != nil {
		p.logger.Debug("interface disconnect failed", "error", err)
	}
	if _, err := p.runner.Run(ctx, "ip", "addr", "flush", "dev", p.cfg.Interface); err != nil {
		p.logger.Debug("interface flush failed", "error", err)
	}
}

// configureBulb talks to the associated bulb over the AT interface:
// discovery handshake, credential push, cloud disable, reboot.
func (p *Provisioner) configureBulb(ctx context.Context) (*DeviceInfo, error) {
	resp, err := p.at.Exchange(ctx, atAddress(), []byte(discoveryMessage), discoveryTimeout)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDiscoveryFailed, err)
	}

	info, err := parseDiscovery(resp)
	if err != nil {
		return nil, err
	}
	p.logger.Info("discovered bulb", "ip", info.IP, "mac", info.MAC, "model", info.Model)

	if fw, err := p.atCommand(ctx, "AT+LVER"); err == nil {
		p.logger.Info("bulb firmware", "version", fw)
	}

	if _, err := p.atCommand(ctx, "AT+WSSSID="+p.cfg.SSID); err != nil {
		return nil, fmt.Errorf("%w: setting SSID: %v", ErrCommandFailed, err)
	}
	if _, err := p.atCommand(ctx, "AT+WSKEY=WPA2PSK,AES,"+p.cfg.Key); err != nil {
		return nil, fmt.Errorf("%w: setting key: %v", ErrCommandFailed, err)
	}

	// Keep the bulb off the vendor cloud; control stays on the LAN.
	if _, err := p.atCommand(ctx, "AT+SOCKB=NONE"); err != nil {
		p.logger.Warn("failed to disable cloud connection", "error", err)
	}

	if _, err := p.atCommand(ctx, "AT+WMODE=STA"); err != nil {
		return nil, fmt.Errorf("%w: setting station mode: %v", ErrCommandFailed, err)
	}

	// The module reboots immediately on AT+Z and never answers.
	//nolint:errcheck // No response expected from the reboot command
	p.atCommand(ctx, "AT+Z")
	p.logger.Info("reboot command sent", "mac", info.MAC)

	return info, nil
}

// atCommand sends one AT command, appending the trailing CR the module
// requires.
func (p *Provisioner) atCommand(ctx context.Context, cmd string) (string, error) {
	if !strings.HasSuffix(cmd, "\r") {
		cmd += "\r"
	}
	return p.at.Exchange(ctx, atAddress(), []byte(cmd), atTimeout)
}

// probeLAN retries a TCP connection to the bulb's control port until it
// answers or the probe window elapses.
func (p *Provisioner) probeLAN(ctx context.Context, address string) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		host = address
	}
	target := fmt.Sprintf("%s:%d", host, ledPort)

	deadline := time.Now().Add(lanProbeTimeout)
	for time.Now().Before(deadline) {
		if err := p.dial(ctx, target); err == nil {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(lanProbeInterval):
		}
	}

	return fmt.Errorf("no answer on %s within %v", target, lanProbeTimeout)
}

// dialLED makes one TCP connection attempt to the bulb's control port.
func (p *Provisioner) dialLED(ctx context.Context, address string) error {
	dialCtx, cancel := context.WithTimeout(ctx, lanDialTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(dialCtx, "tcp", address)
	if err != nil {
		return err
	}
	return conn.Close()
}

// Start launches the watch loop: scan for bulb APs on the configured
// interval and provision any that appear.
//
// Returns ErrWatcherRunning if the loop is already active.
func (p *Provisioner) Start(ctx context.Context) error {
	if !p.cfg.Enabled {
		return ErrDisabled
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return ErrWatcherRunning
	}

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	p.cancel = cancel
	p.done = done
	p.running = true

	go p.watch(loopCtx, done)

	interval := p.watchInterval()
	p.logger.Info("provisioner watch started", "interval", interval)
	return nil
}

// Stop terminates the watch loop and waits for it to exit. Idempotent.
func (p *Provisioner) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}

	p.cancel()
	<-p.done
	p.running = false
	p.logger.Info("provisioner watch stopped")
}

// IsRunning reports whether the watch loop is active.
func (p *Provisioner) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// watch is the watch loop body.
func (p *Provisioner) watch(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.watchInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.watchCycle(ctx)
		}
	}
}

// watchCycle runs one scan-and-provision pass.
func (p *Provisioner) watchCycle(ctx context.Context) {
	ssids, err := p.Scan(ctx)
	if err != nil {
		p.logger.Warn("AP scan failed", "error", err)
		return
	}

	now := time.Now()
	for _, ssid := range ssids {
		if last, seen := p.recent[ssid]; seen && now.Sub(last) < provisionCooldown {
			p.logger.Debug("skipping recently provisioned AP", "ap", ssid, "since", now.Sub(last))
			continue
		}

		if err := p.Provision(ctx, ssid); err != nil {
			p.logger.Error("provisioning failed", "ap", ssid, "error", err)
			continue
		}
		p.recent[ssid] = time.Now()
	}

	// Drop stale cooldown entries.
	for ssid, t := range p.recent {
		if time.Since(t) >= provisionCooldown {
			delete(p.recent, ssid)
		}
	}
}

// watchInterval returns the configured scan interval with its default.
func (p *Provisioner) watchInterval() time.Duration {
	if p.cfg.WatchInterval > 0 {
		return time.Duration(p.cfg.WatchInterval) * time.Second
	}
	return defaultWatchInterval
}
