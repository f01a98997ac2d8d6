// Package fastagi hosts the FastAGI side of the engine: a TCP server that
// accepts one connection per call event, and a CallControl client that turns
// port operations into AGI commands on that connection.
//
// The AGI codec is line-oriented: commands go out as one line, and the
// platform answers "200 result=<n> (<data>)". It is hand-rolled on net and
// bufio; nothing heavier is needed.
package fastagi

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/voxflow/voxflow/pkg/ports"
)

// responseRe matches the status line of an AGI reply.
var responseRe = regexp.MustCompile(`^(\d{3}) result=(-?\d*)(?: \((.*)\))?`)

// reply is one parsed AGI response.
type reply struct {
	code   int
	result string
	data   string
}

// Client implements ports.CallControl over one AGI connection. Commands are
// serialized; the protocol allows one in flight at a time.
type Client struct {
	mu   sync.Mutex
	conn net.Conn
	r    *bufio.Reader
}

// NewClient wraps an established connection whose environment header has
// already been consumed.
func NewClient(conn net.Conn, r *bufio.Reader) *Client {
	if r == nil {
		r = bufio.NewReader(conn)
	}
	return &Client{conn: conn, r: r}
}

// command writes one AGI command line and reads the reply.
func (c *Client) command(ctx context.Context, format string, args ...any) (reply, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return reply{}, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetDeadline(deadline)
		defer c.conn.SetDeadline(time.Time{})
	}

	line := fmt.Sprintf(format, args...)
	if _, err := fmt.Fprintf(c.conn, "%s\n", line); err != nil {
		return reply{}, fmt.Errorf("agi write: %w", err)
	}

	for {
		raw, err := c.r.ReadString('\n')
		if err != nil {
			return reply{}, fmt.Errorf("agi read: %w", err)
		}
		raw = strings.TrimRight(raw, "\r\n")

		// Usage errors arrive as a 520-...520 block; swallow the body.
		if strings.HasPrefix(raw, "520-") {
			continue
		}

		m := responseRe.FindStringSubmatch(raw)
		if m == nil {
			return reply{}, fmt.Errorf("agi: unparseable reply %q to %q", raw, line)
		}
		code, _ := strconv.Atoi(m[1])
		if code != 200 {
			return reply{}, fmt.Errorf("agi: command %q failed with %q", line, raw)
		}
		return reply{code: code, result: m[2], data: m[3]}, nil
	}
}

// quote wraps an argument in double quotes the way AGI expects.
func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

func (c *Client) Answer(ctx context.Context) error {
	_, err := c.command(ctx, "ANSWER")
	return err
}

func (c *Client) Hangup(ctx context.Context, channel string) error {
	if channel == "" {
		_, err := c.command(ctx, "HANGUP")
		return err
	}
	_, err := c.command(ctx, "HANGUP %s", channel)
	return err
}

func (c *Client) StreamFile(ctx context.Context, file, escapeDigits string, offset int) error {
	_, err := c.command(ctx, "STREAM FILE %s %s %d", file, quote(escapeDigits), offset)
	return err
}

func (c *Client) RecordFile(ctx context.Context, p ports.RecordParams) error {
	cmd := fmt.Sprintf("RECORD FILE %s %s %s %d %d",
		p.File, p.Format, quote(p.EscapeDigits), p.TimeoutMS, p.Offset)
	if p.Beep {
		cmd += " BEEP"
	}
	if p.SilenceSec > 0 {
		cmd += fmt.Sprintf(" s=%d", p.SilenceSec)
	}
	_, err := c.command(ctx, "%s", cmd)
	return err
}

func (c *Client) CollectDigits(ctx context.Context, prompt string, timeoutMS, maxDigits int) (ports.DigitResult, error) {
	rep, err := c.command(ctx, "GET DATA %s %d %d", prompt, timeoutMS, maxDigits)
	if err != nil {
		return ports.DigitResult{}, err
	}
	return ports.DigitResult{
		Value:    rep.result,
		TimedOut: strings.Contains(rep.data, "timeout"),
	}, nil
}

func (c *Client) SetCallerID(ctx context.Context, number string) error {
	_, err := c.command(ctx, "SET CALLERID %s", number)
	return err
}

func (c *Client) SetMusic(ctx context.Context, on bool, class string) error {
	toggle := "OFF"
	if on {
		toggle = "ON"
	}
	cmd := fmt.Sprintf("SET MUSIC %s", toggle)
	if class != "" {
		cmd += " " + class
	}
	_, err := c.command(ctx, "%s", cmd)
	return err
}

func (c *Client) ExecApp(ctx context.Context, app, options string) error {
	_, err := c.command(ctx, "EXEC %s %s", app, quote(options))
	return err
}

func (c *Client) Verbose(ctx context.Context, message string, level int) error {
	_, err := c.command(ctx, "VERBOSE %s %d", quote(message), level)
	return err
}

func (c *Client) SetVariable(ctx context.Context, name, value string) error {
	_, err := c.command(ctx, "SET VARIABLE %s %s", name, quote(value))
	return err
}

func (c *Client) GetVariable(ctx context.Context, name string) (string, error) {
	rep, err := c.command(ctx, "GET VARIABLE %s", name)
	if err != nil {
		return "", err
	}
	return rep.data, nil
}

func (c *Client) GetFullVariable(ctx context.Context, expr string) (string, error) {
	rep, err := c.command(ctx, "GET FULL VARIABLE %s", quote(expr))
	if err != nil {
		return "", err
	}
	return rep.data, nil
}

func (c *Client) DBGet(ctx context.Context, family, key string) (string, error) {
	rep, err := c.command(ctx, "DATABASE GET %s %s", family, key)
	if err != nil {
		return "", err
	}
	return rep.data, nil
}

func (c *Client) DBPut(ctx context.Context, family, key, value string) error {
	_, err := c.command(ctx, "DATABASE PUT %s %s %s", family, key, quote(value))
	return err
}

func (c *Client) DBDel(ctx context.Context, family, key string) error {
	_, err := c.command(ctx, "DATABASE DEL %s %s", family, key)
	return err
}

// GotoOnExit arms the dialplan position the call continues at after the AGI
// session releases it.
func (c *Client) GotoOnExit(ctx context.Context, dialContext, extension, priority string) error {
	if dialContext != "" {
		if _, err := c.command(ctx, "SET CONTEXT %s", dialContext); err != nil {
			return err
		}
	}
	if extension != "" {
		if _, err := c.command(ctx, "SET EXTENSION %s", extension); err != nil {
			return err
		}
	}
	if priority != "" {
		if _, err := c.command(ctx, "SET PRIORITY %s", priority); err != nil {
			return err
		}
	}
	return nil
}
