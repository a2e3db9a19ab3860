package python

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/caffeineduck/eyesy/hostfunc"
)

// Protocol constants shared with stdlib.py. Every guest message is framed
// as \x00<PREFIX><payload>\x00 on the guest's stderr.
const (
	protocolPrefix      = "\x00EYESY:"
	protocolReplyPrefix = "\x00EYESY_REPLY:"
	protocolFreePrefix  = "\x00EYESY_FREE:"
	protocolSuffix      = "\x00"
	readySignal         = "\x00EYESY_READY\x00"
)

type messageType int

const (
	messageNone messageType = iota
	messageReady
	messageReply
	messageCall
	messageFree
)

type callRequest struct {
	Fn   string         `json:"fn"`
	Args map[string]any `json:"args"`
}

type callResponse struct {
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

// reply answers the command with the same ID. Replies to commands the host
// already gave up on carry an older ID and are dropped.
type reply struct {
	ID    uint64 `json:"id"`
	Value any    `json:"value"`
	Bound *bool  `json:"bound,omitempty"`
	Error string `json:"error,omitempty"`
}

// findNextMessage returns the index and type of the earliest framed message
// in content.
func findNextMessage(content string) (int, messageType) {
	best, kind := -1, messageNone
	for _, m := range []struct {
		prefix string
		kind   messageType
	}{
		{readySignal, messageReady},
		{protocolReplyPrefix, messageReply},
		{protocolPrefix, messageCall},
		{protocolFreePrefix, messageFree},
	} {
		idx := strings.Index(content, m.prefix)
		if idx == -1 {
			continue
		}
		if best == -1 || idx < best {
			best, kind = idx, m.kind
		}
	}
	return best, kind
}

// extractMessage splits content at the message starting at idx. ok is false
// while the closing delimiter has not arrived yet.
func extractMessage(content string, idx int, prefix string) (payload, remaining string, ok bool) {
	start := idx + len(prefix)
	end := strings.Index(content[start:], protocolSuffix)
	if end == -1 {
		return "", content[idx:], false
	}
	return content[start : start+end], content[start+end+len(protocolSuffix):], true
}

// sessionProtocol sits on the guest's stderr. Plain output goes to the
// logger; replies are delivered on a channel; host calls are dispatched to
// the registry and answered on the guest's stdin. A free message names a
// host function the guest no longer references.
type sessionProtocol struct {
	ctx      context.Context
	registry *hostfunc.Registry
	stdin    io.Writer
	logger   *slog.Logger

	buf     bytes.Buffer
	readyCh chan struct{}
	replyCh chan reply
	ready   bool

	want   atomic.Uint64
	onFree func(name string)

	mu      sync.Mutex
	writeMu *sync.Mutex
}

func newSessionProtocol(ctx context.Context, registry *hostfunc.Registry, stdin io.Writer, writeMu *sync.Mutex, logger *slog.Logger) *sessionProtocol {
	return &sessionProtocol{
		ctx:      ctx,
		registry: registry,
		stdin:    stdin,
		logger:   logger,
		readyCh:  make(chan struct{}),
		replyCh:  make(chan reply, 4),
		writeMu:  writeMu,
	}
}

func (p *sessionProtocol) Write(data []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.buf.Write(data)

	for {
		content := p.buf.String()
		idx, kind := findNextMessage(content)
		if kind == messageNone {
			// Hold back a trailing partial frame; flush the rest.
			if cut := strings.LastIndex(content, "\x00"); cut != -1 {
				p.guestOutput(content[:cut])
				p.buf.Reset()
				p.buf.WriteString(content[cut:])
			} else {
				p.guestOutput(content)
				p.buf.Reset()
			}
			break
		}

		p.guestOutput(content[:idx])

		var payload, remaining string
		var ok bool
		switch kind {
		case messageReady:
			payload, remaining, ok = "", content[idx+len(readySignal):], true
		case messageReply:
			payload, remaining, ok = extractMessage(content, idx, protocolReplyPrefix)
		case messageCall:
			payload, remaining, ok = extractMessage(content, idx, protocolPrefix)
		case messageFree:
			payload, remaining, ok = extractMessage(content, idx, protocolFreePrefix)
		}
		p.buf.Reset()
		p.buf.WriteString(remaining)
		if !ok {
			break
		}

		switch kind {
		case messageReady:
			if !p.ready {
				p.ready = true
				close(p.readyCh)
			}
		case messageReply:
			p.handleReply(payload)
		case messageCall:
			p.handleCall(payload)
		case messageFree:
			p.handleFree(payload)
		}
	}

	return len(data), nil
}

func (p *sessionProtocol) guestOutput(s string) {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			p.logger.Warn(line, "source", "stderr")
		}
	}
}

// expect sets the ID of the only reply that will be delivered.
func (p *sessionProtocol) expect(id uint64) {
	p.want.Store(id)
}

func (p *sessionProtocol) handleReply(payload string) {
	var r reply
	dec := json.NewDecoder(strings.NewReader(payload))
	dec.UseNumber()
	if err := dec.Decode(&r); err != nil {
		r = reply{ID: p.want.Load(), Error: "invalid reply: " + err.Error()}
	}
	if want := p.want.Load(); r.ID != want {
		p.logger.Debug("dropped stale reply", "id", r.ID, "want", want)
		return
	}
	select {
	case p.replyCh <- r:
	default:
		p.logger.Error("dropped unexpected reply from guest")
	}
}

func (p *sessionProtocol) handleFree(name string) {
	p.registry.Unregister(name)
	if p.onFree != nil {
		p.onFree(name)
	}
}

func (p *sessionProtocol) handleCall(payload string) {
	var req callRequest
	dec := json.NewDecoder(strings.NewReader(payload))
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		go p.respond(callResponse{Error: "invalid call format"})
		return
	}

	// The guest blocks on stdin for the answer while this Write is still
	// on its stack, so the response must be written from another goroutine.
	go func() {
		p.respond(p.executeCall(req))
	}()
}

func (p *sessionProtocol) executeCall(req callRequest) callResponse {
	fn, ok := p.registry.Get(req.Fn)
	if !ok {
		return callResponse{Error: "unknown function: " + req.Fn}
	}

	result, err := fn(p.ctx, req.Args)
	if err != nil {
		return callResponse{Error: err.Error()}
	}
	return callResponse{Data: result}
}

func (p *sessionProtocol) respond(resp callResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		data = []byte(`{"error":"internal: failed to marshal response"}`)
	}

	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	p.stdin.Write(append(data, '\n'))
}

func (p *sessionProtocol) Ready() <-chan struct{} {
	return p.readyCh
}

func (p *sessionProtocol) Replies() <-chan reply {
	return p.replyCh
}

// lineLogger forwards guest stdout to the logger one line at a time.
type lineLogger struct {
	logger *slog.Logger
	mu     sync.Mutex
	buf    bytes.Buffer
}

func (l *lineLogger) Write(data []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.buf.Write(data)
	for {
		line, err := l.buf.ReadString('\n')
		if err != nil {
			l.buf.WriteString(line)
			break
		}
		if line = strings.TrimRight(line, "\r\n"); line != "" {
			l.logger.Info(line, "source", "stdout")
		}
	}
	return len(data), nil
}
