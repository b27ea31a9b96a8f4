// Package stockfishapi is a fasthttp client for hosted Stockfish REST endpoints (RapidAPI style).
package stockfishapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/park285/cheese-sparring/internal/chess/rules"
)

var (
	ErrTimeout = errors.New("stockfish api timeout")
	ErrNoMove  = errors.New("stockfish api returned no move")
)

const defaultTimeout = 5 * time.Second

type Client struct {
	url    string
	host   string
	apiKey string
	http   *fasthttp.Client

	defaultTimeout time.Duration
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.defaultTimeout = d
		}
	}
}

// WithAPIKey sets the X-RapidAPI-Key and X-RapidAPI-Host headers.
func WithAPIKey(key, host string) Option {
	return func(c *Client) {
		c.apiKey = strings.TrimSpace(key)
		c.host = strings.TrimSpace(host)
	}
}

func WithDial(dial fasthttp.DialFunc) Option {
	return func(c *Client) { c.http.Dial = dial }
}

func NewClient(url string, opts ...Option) *Client {
	c := &Client{
		url:            strings.TrimSpace(url),
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 16},
		defaultTimeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Result is the decoded best-move response. Evaluation is in pawns from the side to move.
type Result struct {
	BestMove   string
	Depth      int
	Evaluation *float64
	Mate       *int
}

type bestMoveResponse struct {
	BestMove   string      `json:"bestmove"`
	Depth      json.Number `json:"depth"`
	Evaluation *float64    `json:"evaluation"`
	Mate       *int        `json:"mate"`
}

// BestMove posts fen and depth as a form and decodes the engine reply. Requests are not retried.
func (c *Client) BestMove(ctx context.Context, fen string, depth int) (Result, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(fasthttp.MethodPost)
	req.SetRequestURI(c.url)
	req.Header.SetContentType("application/x-www-form-urlencoded")
	if c.apiKey != "" {
		req.Header.Set("X-RapidAPI-Key", c.apiKey)
		if c.host != "" {
			req.Header.Set("X-RapidAPI-Host", c.host)
		}
	}

	args := fasthttp.AcquireArgs()
	defer fasthttp.ReleaseArgs(args)
	args.Set("fen", rules.NormalizeFEN(fen))
	args.Set("depth", strconv.Itoa(depth))
	req.SetBody(args.QueryString())

	if err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx)); err != nil {
		if isTimeout(err) {
			return Result{}, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return Result{}, fmt.Errorf("request failed: %w", err)
	}

	status := resp.StatusCode()
	if status < 200 || status >= 300 {
		return Result{}, fmt.Errorf("stockfish api error: status=%d body=%s", status, truncate(string(resp.Body()), 512))
	}

	var body bestMoveResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return Result{}, fmt.Errorf("decode response: %w", err)
	}
	move := parseMove(body.BestMove)
	if move == "" {
		return Result{}, ErrNoMove
	}

	res := Result{BestMove: move, Depth: depth, Evaluation: body.Evaluation, Mate: body.Mate}
	if d, err := body.Depth.Int64(); err == nil && d > 0 {
		res.Depth = int(d)
	}
	return res, nil
}

// parseMove accepts both "e2e4" and raw "bestmove e2e4 ponder e7e5" payloads.
func parseMove(raw string) string {
	parts := strings.Fields(strings.ToLower(raw))
	if len(parts) == 0 {
		return ""
	}
	move := parts[0]
	if move == "bestmove" {
		if len(parts) < 2 {
			return ""
		}
		move = parts[1]
	}
	if move == "(none)" || move == "0000" {
		return ""
	}
	return move
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func isTimeout(err error) bool {
	if errors.Is(err, fasthttp.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
