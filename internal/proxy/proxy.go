// Package proxy answers inbound requests with the transformed upstream
// page, or with a fallback page when the upstream cannot be used.
package proxy

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"miragend/internal/config"
	"miragend/internal/fetch"
	"miragend/internal/obfuscate"
	"miragend/internal/special"
	"miragend/internal/transform"
)

// Response is a complete answer to one inbound request.
type Response struct {
	Status int
	Header http.Header
	Body   string
}

// Proxy holds the state derived from one configuration. UpdateConfig swaps
// it whole; requests already running keep the state they started with.
type Proxy struct {
	mu    sync.RWMutex
	state *state

	fetchOpts    []fetch.Option
	dispatchOpts []transform.DispatcherOption
}

type state struct {
	config     *config.Config
	base       string
	host       string
	strategy   transform.Strategy
	fetcher    *fetch.Fetcher
	dispatcher *transform.Dispatcher
	style      special.Style
}

// Option configures a Proxy.
type Option func(*Proxy)

// WithFetchOptions passes options to every fetcher the proxy builds. They
// are applied after the configured timeout.
func WithFetchOptions(opts ...fetch.Option) Option {
	return func(p *Proxy) {
		p.fetchOpts = append(p.fetchOpts, opts...)
	}
}

// WithDispatcherOptions passes options to every dispatcher the proxy
// builds. They are applied after the configured script injection.
func WithDispatcherOptions(opts ...transform.DispatcherOption) Option {
	return func(p *Proxy) {
		p.dispatchOpts = append(p.dispatchOpts, opts...)
	}
}

// New creates a Proxy for cfg.
func New(cfg *config.Config, opts ...Option) (*Proxy, error) {
	p := &Proxy{}
	for _, opt := range opts {
		opt(p)
	}

	st, err := p.build(cfg)
	if err != nil {
		return nil, err
	}
	p.state = st
	return p, nil
}

// UpdateConfig replaces the configuration. The old one stays in effect
// when cfg is invalid.
func (p *Proxy) UpdateConfig(cfg *config.Config) error {
	st, err := p.build(cfg)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = st
	return nil
}

func (p *Proxy) current() *state {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

func (p *Proxy) build(cfg *config.Config) (*state, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	mappings := cfg.Mappings
	if mappings == nil {
		mappings = obfuscate.DefaultMappings()
	}

	var dispatchOpts []transform.DispatcherOption
	if cfg.InjectOnlineScript != "" {
		dispatchOpts = append(dispatchOpts, transform.WithInjectedScript(cfg.InjectOnlineScript))
	}
	dispatchOpts = append(dispatchOpts, p.dispatchOpts...)

	fetchOpts := append([]fetch.Option{fetch.WithTimeout(cfg.ConnectTimeout())}, p.fetchOpts...)

	var strategy transform.Strategy = &transform.Obfuscation{}
	if cfg.IsPatch() {
		strategy = cfg.Patch()
	}

	return &state{
		config:     cfg,
		base:       cfg.UpstreamBase(),
		host:       cfg.UpstreamHost(),
		strategy:   strategy,
		fetcher:    fetch.New(fetchOpts...),
		dispatcher: transform.NewDispatcher(obfuscate.NewCodec(mappings), cfg.ObfuscationRules(), dispatchOpts...),
		style:      special.ParseStyle(cfg.SpecialPageStyle),
	}, nil
}

// Transform fetches requestURI from the upstream with the inbound header
// and returns the response to send back. It never fails: every error is
// turned into a fallback page.
func (p *Proxy) Transform(ctx context.Context, inbound http.Header, requestURI string) Response {
	return p.current().transform(ctx, inbound, requestURI)
}

func (s *state) upstreamURL(requestURI string) string {
	return s.base + requestURI
}

func (s *state) transform(ctx context.Context, inbound http.Header, requestURI string) Response {
	url := s.upstreamURL(requestURI)

	switch outcome := s.fetcher.Load(ctx, url, OutboundHeader(inbound), s.host).(type) {
	case fetch.Special:
		return s.special(outcome.Status)
	case fetch.Forward:
		body, err := s.dispatcher.Transform(outcome.Kind, outcome.Body, s.strategy)
		if err != nil {
			slog.Error("Failed to transform response", "url", url, "kind", outcome.Kind, "error", err)
			return s.special(http.StatusInternalServerError)
		}
		return Response{
			Status: outcome.Status,
			Header: ResponseHeader(outcome.Header, outcome.Charset),
			Body:   body,
		}
	default:
		slog.Error("Unexpected fetch outcome", "url", url, "outcome", fmt.Sprintf("%T", outcome))
		return s.special(http.StatusInternalServerError)
	}
}

func (s *state) special(status int) Response {
	page := special.Build(status, s.style)
	header := make(http.Header)
	if page.ContentType != "" {
		header.Set("Content-Type", page.ContentType)
	}
	return Response{Status: page.Status, Header: header, Body: page.Body}
}
