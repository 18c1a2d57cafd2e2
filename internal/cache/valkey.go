package cache

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"
)

// ValkeyConfig holds connection parameters for a Valkey/Redis-compatible server.
type ValkeyConfig struct {
	Addr         string
	Username     string
	Password     string
	DB           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	TLS          bool
}

// ValkeyProvider implements Provider over a plain RESP connection per call.
// Report persistence is low-frequency (one write per pass), so connection
// pooling is not worth the machinery.
type ValkeyProvider struct {
	cfg ValkeyConfig
}

// NewValkeyProvider validates the config and pings the target to fail fast on
// bad credentials or connectivity.
func NewValkeyProvider(cfg ValkeyConfig) (*ValkeyProvider, error) {
	if cfg.Addr == "" {
		return nil, errors.New("valkey addr is required")
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 2 * time.Second
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 500 * time.Millisecond
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 500 * time.Millisecond
	}

	provider := &ValkeyProvider{cfg: cfg}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	if _, err := provider.do(ctx, "PING"); err != nil {
		return nil, fmt.Errorf("valkey ping: %w", err)
	}
	return provider, nil
}

// Get fetches bytes by key, returning ErrCacheMiss when the key is absent.
func (p *ValkeyProvider) Get(ctx context.Context, key string) ([]byte, error) {
	reply, err := p.do(ctx, "GET", key)
	if err != nil {
		return nil, err
	}
	if reply == nil {
		return nil, ErrCacheMiss
	}
	return reply, nil
}

// Set stores bytes, applying the TTL when positive.
func (p *ValkeyProvider) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	args := []string{"SET", key, string(value)}
	if ttl > 0 {
		args = append(args, "PX", strconv.FormatInt(ttl.Milliseconds(), 10))
	}
	_, err := p.do(ctx, args...)
	return err
}

// Del removes a key. Deleting a missing key is not an error.
func (p *ValkeyProvider) Del(ctx context.Context, key string) error {
	_, err := p.do(ctx, "DEL", key)
	return err
}

// Close is a no-op; connections are per-call.
func (p *ValkeyProvider) Close() error { return nil }

// do dials, authenticates, runs one command, and reads its reply.
func (p *ValkeyProvider) do(ctx context.Context, args ...string) ([]byte, error) {
	dialer := net.Dialer{Timeout: p.cfg.DialTimeout}
	var (
		conn net.Conn
		err  error
	)
	if p.cfg.TLS {
		tlsDialer := tls.Dialer{NetDialer: &dialer}
		conn, err = tlsDialer.DialContext(ctx, "tcp", p.cfg.Addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", p.cfg.Addr)
	}
	if err != nil {
		return nil, fmt.Errorf("dial valkey: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(p.cfg.ReadTimeout + p.cfg.WriteTimeout))
	}

	reader := bufio.NewReader(conn)

	if p.cfg.Password != "" {
		authArgs := []string{"AUTH", p.cfg.Password}
		if p.cfg.Username != "" {
			authArgs = []string{"AUTH", p.cfg.Username, p.cfg.Password}
		}
		if _, err := roundTrip(conn, reader, authArgs); err != nil {
			return nil, fmt.Errorf("valkey auth: %w", err)
		}
	}
	if p.cfg.DB > 0 {
		if _, err := roundTrip(conn, reader, []string{"SELECT", strconv.Itoa(p.cfg.DB)}); err != nil {
			return nil, fmt.Errorf("valkey select db: %w", err)
		}
	}

	return roundTrip(conn, reader, args)
}

func roundTrip(conn net.Conn, reader *bufio.Reader, args []string) ([]byte, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "*%d\r\n", len(args))
	for _, arg := range args {
		fmt.Fprintf(&sb, "$%d\r\n%s\r\n", len(arg), arg)
	}
	if _, err := conn.Write([]byte(sb.String())); err != nil {
		return nil, fmt.Errorf("write command: %w", err)
	}
	return readReply(reader)
}

// readReply parses one RESP reply. Nil bulk strings come back as a nil slice
// with no error so callers can map them to ErrCacheMiss.
func readReply(reader *bufio.Reader) ([]byte, error) {
	line, err := reader.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("read reply: %w", err)
	}
	line = strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r")
	if line == "" {
		return nil, errors.New("empty reply")
	}

	switch line[0] {
	case '+':
		return []byte(line[1:]), nil
	case ':':
		return []byte(line[1:]), nil
	case '-':
		return nil, fmt.Errorf("valkey error: %s", line[1:])
	case '$':
		length, err := strconv.Atoi(line[1:])
		if err != nil {
			return nil, fmt.Errorf("parse bulk length: %w", err)
		}
		if length < 0 {
			return nil, nil
		}
		buf := make([]byte, length+2)
		if _, err := io.ReadFull(reader, buf); err != nil {
			return nil, fmt.Errorf("read bulk body: %w", err)
		}
		return buf[:length], nil
	default:
		return nil, fmt.Errorf("unexpected reply type %q", line[0])
	}
}
