package provision

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"
)

// AT command interface constants. The bulb listens on a fixed address
// when hosting its access point.
const (
	bulbAPAddress = "10.10.123.3"
	localAPIP     = "10.10.123.4"
	atPort        = 48899

	// discoveryMessage is the HF-LPB100 module wakeup probe. The module
	// only accepts AT commands after answering it.
	discoveryMessage = "HF-A11ASSISTHREAD"

	atTimeout        = 3 * time.Second
	discoveryTimeout = 5 * time.Second
)

// ATExchanger sends one UDP datagram and returns the trimmed response.
type ATExchanger interface {
	Exchange(ctx context.Context, address string, payload []byte, timeout time.Duration) (string, error)
}

// udpExchanger is the production ATExchanger over a throwaway UDP socket.
type udpExchanger struct{}

func (udpExchanger) Exchange(ctx context.Context, address string, payload []byte, timeout time.Duration) (string, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "udp", address)
	if err != nil {
		return "", fmt.Errorf("dialling %s: %w", address, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return "", fmt.Errorf("setting deadline: %w", err)
	}

	if _, err := conn.Write(payload); err != nil {
		return "", fmt.Errorf("writing to %s: %w", address, err)
	}

	buf := make([]byte, 1024)
	n, err := conn.Read(buf)
	if err != nil {
		return "", fmt.Errorf("reading from %s: %w", address, err)
	}

	return strings.TrimSpace(string(buf[:n])), nil
}

// DeviceInfo is the parsed discovery response.
type DeviceInfo struct {
	IP    string
	MAC   string // colon-separated, upper case
	Model string
}

// atAddress returns the bulb's AT endpoint while associated with its AP.
func atAddress() string {
	return fmt.Sprintf("%s:%d", bulbAPAddress, atPort)
}

// parseDiscovery parses the "ip,mac,model" discovery response.
func parseDiscovery(resp string) (*DeviceInfo, error) {
	parts := strings.Split(resp, ",")
	if len(parts) < 3 {
		return nil, fmt.Errorf("%w: unexpected discovery response %q", ErrDiscoveryFailed, resp)
	}

	mac := strings.ToUpper(strings.ReplaceAll(parts[1], ":", ""))
	if len(mac) != 12 {
		return nil, fmt.Errorf("%w: malformed MAC %q", ErrDiscoveryFailed, parts[1])
	}

	pretty := make([]string, 0, 6)
	for i := 0; i < 12; i += 2 {
		pretty = append(pretty, mac[i:i+2])
	}

	return &DeviceInfo{
		IP:    parts[0],
		MAC:   strings.Join(pretty, ":"),
		Model: parts[2],
	}, nil
}
