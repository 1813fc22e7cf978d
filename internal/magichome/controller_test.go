package magichome

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"
)

// fakeBulb is a minimal TCP server that records received frames and
// optionally replies with a canned status response.
type fakeBulb struct {
	listener net.Listener
	received chan []byte
	response []byte
}

func newFakeBulb(t *testing.T, response []byte) *fakeBulb {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}

	fb := &fakeBulb{
		listener: ln,
		received: make(chan []byte, 16),
		response: response,
	}

	go fb.serve()
	t.Cleanup(func() { ln.Close() })

	return fb
}

func (fb *fakeBulb) serve() {
	for {
		conn, err := fb.listener.Accept()
		if err != nil {
			return
		}
		go fb.handle(conn)
	}
}

func (fb *fakeBulb) handle(conn net.Conn) {
	defer conn.Close()

	buf := make([]byte, 64)
	n, err := conn.Read(buf)
	if err != nil {
		return
	}

	frame := make([]byte, n)
	copy(frame, buf[:n])
	fb.received <- frame

	if fb.response != nil {
		conn.Write(fb.response)
	}
}

func (fb *fakeBulb) addr() string {
	return fb.listener.Addr().String()
}

// waitForFrame returns the next frame the fake bulb received, failing
// the test if none arrives in time.
func (fb *fakeBulb) waitForFrame(t *testing.T) []byte {
	t.Helper()

	select {
	case frame := <-fb.received:
		return frame
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for frame")
		return nil
	}
}

func TestChecksum(t *testing.T) {
	tests := []struct {
		name  string
		frame []byte
		want  byte
	}{
		{
			name:  "power on",
			frame: []byte{0x71, 0x23, 0x0F},
			want:  0xA3,
		},
		{
			name:  "power off",
			frame: []byte{0x71, 0x24, 0x0F},
			want:  0xA4,
		},
		{
			name:  "overflow wraps modulo 256",
			frame: []byte{0xFF, 0xFF, 0xFF},
			want:  0xFD,
		},
		{
			name:  "empty frame",
			frame: []byte{},
			want:  0x00,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := checksum(tt.frame); got != tt.want {
				t.Errorf("checksum() = 0x%02X, want 0x%02X", got, tt.want)
			}
		})
	}
}

func TestFrameEncoding(t *testing.T) {
	tests := []struct {
		name  string
		frame []byte
		want  []byte
	}{
		{
			name:  "power on",
			frame: powerFrame(true),
			want:  []byte{0x71, 0x23, 0x0F, 0xA3},
		},
		{
			name:  "power off",
			frame: powerFrame(false),
			want:  []byte{0x71, 0x24, 0x0F, 0xA4},
		},
		{
			name:  "colour orange",
			frame: colorFrame(255, 128, 0),
			want:  []byte{0x31, 0xFF, 0x80, 0x00, 0x00, 0x00, 0xF0, 0x0F, 0xAF},
		},
		{
			name:  "warm white full",
			frame: warmWhiteFrame(255),
			want:  []byte{0x31, 0x00, 0x00, 0x00, 0xFF, 0x00, 0x0F, 0xF0, 0x2F},
		},
		{
			name:  "status query",
			frame: statusQueryFrame(),
			want:  []byte{0x81, 0x8A, 0x8B, 0x96},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if len(tt.frame) != len(tt.want) {
				t.Fatalf("frame length = %d, want %d", len(tt.frame), len(tt.want))
			}
			for i := range tt.frame {
				if tt.frame[i] != tt.want[i] {
					t.Errorf("byte %d = 0x%02X, want 0x%02X", i, tt.frame[i], tt.want[i])
				}
			}
		})
	}
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		name    string
		frame   []byte
		want    *Status
		wantErr error
	}{
		{
			name: "powered on with colour",
			frame: []byte{
				0x81, 0x35, 0x23, 0x61, 0x21, 0x00,
				0xFF, 0x80, 0x00, 0x00, 0x03, 0x00, 0x00, 0x62,
			},
			want: &Status{PowerOn: true, Red: 255, Green: 128, Blue: 0, WarmWhite: 0},
		},
		{
			name: "powered off warm white",
			frame: []byte{
				0x81, 0x35, 0x24, 0x61, 0x21, 0x00,
				0x00, 0x00, 0x00, 0xC8, 0x03, 0x00, 0x00, 0x2D,
			},
			want: &Status{PowerOn: false, Red: 0, Green: 0, Blue: 0, WarmWhite: 200},
		},
		{
			name:    "short response",
			frame:   []byte{0x81, 0x35, 0x23},
			wantErr: ErrShortResponse,
		},
		{
			name:    "empty response",
			frame:   []byte{},
			wantErr: ErrShortResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseStatus(tt.frame)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("parseStatus() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseStatus() unexpected error: %v", err)
			}
			if *got != *tt.want {
				t.Errorf("parseStatus() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestControllerSetPower(t *testing.T) {
	fb := newFakeBulb(t, nil)
	c := NewController(fb.addr())

	if err := c.SetPower(context.Background(), true); err != nil {
		t.Fatalf("SetPower() error: %v", err)
	}

	frame := fb.waitForFrame(t)
	want := []byte{0x71, 0x23, 0x0F, 0xA3}
	if len(frame) != len(want) {
		t.Fatalf("frame length = %d, want %d", len(frame), len(want))
	}
	for i := range frame {
		if frame[i] != want[i] {
			t.Errorf("byte %d = 0x%02X, want 0x%02X", i, frame[i], want[i])
		}
	}
}

func TestControllerSetColor(t *testing.T) {
	fb := newFakeBulb(t, nil)
	c := NewController(fb.addr())

	if err := c.SetColor(context.Background(), 255, 128, 0); err != nil {
		t.Fatalf("SetColor() error: %v", err)
	}

	frame := fb.waitForFrame(t)
	if len(frame) != 9 {
		t.Fatalf("frame length = %d, want 9", len(frame))
	}
	if frame[1] != 255 || frame[2] != 128 || frame[3] != 0 {
		t.Errorf("colour bytes = %d,%d,%d, want 255,128,0", frame[1], frame[2], frame[3])
	}
}

func TestControllerQueryStatus(t *testing.T) {
	response := []byte{
		0x81, 0x35, 0x23, 0x61, 0x21, 0x00,
		0x0A, 0x14, 0x1E, 0x00, 0x03, 0x00, 0x00, 0x00,
	}
	fb := newFakeBulb(t, response)
	c := NewController(fb.addr())

	status, err := c.QueryStatus(context.Background())
	if err != nil {
		t.Fatalf("QueryStatus() error: %v", err)
	}

	if !status.PowerOn {
		t.Error("expected power on")
	}
	if status.Red != 10 || status.Green != 20 || status.Blue != 30 {
		t.Errorf("colour = %d,%d,%d, want 10,20,30", status.Red, status.Green, status.Blue)
	}
	if status.WarmWhite != 0 {
		t.Errorf("warm white = %d, want 0", status.WarmWhite)
	}
}

func TestControllerConnectFailure(t *testing.T) {
	// Reserve a port, then close the listener so nothing accepts.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	c := NewController(addr, WithConnectTimeout(500*time.Millisecond))

	if err := c.SetPower(context.Background(), true); !errors.Is(err, ErrConnectFailed) {
		t.Errorf("SetPower() error = %v, want ErrConnectFailed", err)
	}
}

func TestControllerReadTimeout(t *testing.T) {
	// Fake bulb with nil response never replies to the status query.
	fb := newFakeBulb(t, nil)
	c := NewController(fb.addr(), WithReadTimeout(200*time.Millisecond))

	if _, err := c.QueryStatus(context.Background()); !errors.Is(err, ErrReadFailed) {
		t.Errorf("QueryStatus() error = %v, want ErrReadFailed", err)
	}
}

func TestControllerContextCancelled(t *testing.T) {
	fb := newFakeBulb(t, nil)
	c := NewController(fb.addr())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := c.SetPower(ctx, true); !errors.Is(err, ErrConnectFailed) {
		t.Errorf("SetPower() error = %v, want ErrConnectFailed", err)
	}
}

func TestNewControllerAppendsDefaultPort(t *testing.T) {
	c := NewController("192.168.1.50")
	if c.Address() != "192.168.1.50:5577" {
		t.Errorf("Address() = %q, want %q", c.Address(), "192.168.1.50:5577")
	}

	c = NewController("192.168.1.50:1234")
	if c.Address() != "192.168.1.50:1234" {
		t.Errorf("Address() = %q, want %q", c.Address(), "192.168.1.50:1234")
	}
}
