package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/avollmer/tastygo/internal/model"
	"github.com/avollmer/tastygo/internal/quote"
)

const (
	protocolVersion = "0.1-js/1.0.0"
	feedChannel     = 1
)

// Session owns one streamer connection and drives it through the
// connect / authenticate / live lifecycle, reconnecting with
// exponential backoff when the transport fails.
//
// While live it decodes FEED_DATA into model events, writes them to the
// cache, and fans accepted events out through the registry. The cache
// write gates delivery, so consumers and cache reads always agree on
// event ordering. On every (re)entry to the live state the registry's
// full desired subscription set is replayed before new instructions are
// applied, so consumer subscriptions survive reconnects.
type Session struct {
	cfg      SessionConfig
	registry *Registry
	cache    *quote.Cache
	logger   *slog.Logger

	// newClient builds the transport; swapped in tests.
	newClient func(ClientConfig, *slog.Logger) Client

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	state atomic.Int32

	errMu    sync.Mutex
	finalErr error

	startOnce sync.Once
	stopOnce  sync.Once
}

// NewSession creates a streaming session. The registry supplies desired
// subscriptions and receives fan-out; the cache receives every accepted
// event.
func NewSession(cfg SessionConfig, registry *Registry, cache *quote.Cache, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		cfg:       cfg,
		registry:  registry,
		cache:     cache,
		logger:    logger,
		newClient: NewClient,
	}
}

// Start launches the session run loop. It returns immediately; use
// State and Err to observe progress.
func (s *Session) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		s.ctx, s.cancel = context.WithCancel(ctx)
		s.wg.Add(1)
		go s.run()
	})
}

// Shutdown stops the session, waits for the run loop to exit, and
// closes every consumer channel.
func (s *Session) Shutdown() {
	s.stopOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
		s.wg.Wait()
		s.registry.Close()
		s.setState(StateDisconnected)
		s.logger.Info("streaming session shut down")
	})
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Err returns the terminal error, if the session ended abnormally.
func (s *Session) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.finalErr
}

func (s *Session) setState(st State) {
	s.state.Store(int32(st))
}

func (s *Session) fail(err error) {
	s.errMu.Lock()
	if s.finalErr == nil {
		s.finalErr = err
	}
	s.errMu.Unlock()
}

// run drives connect/serve cycles until shutdown, a terminal auth
// rejection, or an exhausted retry budget.
func (s *Session) run() {
	defer s.wg.Done()

	attempt := 0
	delay := s.cfg.ReconnectBaseDelay

	for {
		client, err := s.connect()
		if err == nil {
			attempt = 0
			delay = s.cfg.ReconnectBaseDelay
			err = s.serve(client)
			client.Close()
		}

		if s.ctx.Err() != nil {
			s.setState(StateDisconnected)
			return
		}

		if errors.Is(err, ErrUnauthorized) {
			s.logger.Error("streamer authentication rejected, giving up")
			s.fail(err)
			s.registry.Close()
			s.setState(StateDisconnected)
			return
		}

		attempt++
		if s.cfg.MaxReconnectAttempts > 0 && attempt > s.cfg.MaxReconnectAttempts {
			s.logger.Error("reconnect attempts exhausted",
				"attempts", s.cfg.MaxReconnectAttempts,
				"error", err,
			)
			s.fail(fmt.Errorf("%w: %v", ErrRetriesExhausted, err))
			s.registry.Close()
			s.setState(StateDisconnected)
			return
		}

		s.setState(StateReconnecting)
		s.logger.Warn("stream disconnected, reconnecting",
			"attempt", attempt,
			"delay", delay,
			"error", err,
		)

		select {
		case <-s.ctx.Done():
			s.setState(StateDisconnected)
			return
		case <-time.After(delay):
		}

		delay *= 2
		if delay > s.cfg.ReconnectMaxDelay {
			delay = s.cfg.ReconnectMaxDelay
		}
	}
}

// connect dials the streamer and walks the control handshake through
// an authorized, opened feed channel.
func (s *Session) connect() (Client, error) {
	s.setState(StateConnecting)

	client := s.newClient(ClientConfig{
		URL:          s.cfg.URL,
		WriteTimeout: 5 * time.Second,
		BufferSize:   s.cfg.BufferSize,
	}, s.logger)

	dialCtx, cancel := context.WithTimeout(s.ctx, s.cfg.ConnectTimeout)
	defer cancel()
	if err := client.Connect(dialCtx); err != nil {
		return nil, fmt.Errorf("connect streamer: %w", err)
	}

	if err := s.handshake(client); err != nil {
		client.Close()
		return nil, err
	}

	return client, nil
}

// token returns the auth token for the current connect attempt.
func (s *Session) token() string {
	if s.cfg.TokenFunc != nil {
		return s.cfg.TokenFunc()
	}
	return s.cfg.Token
}

// handshake performs SETUP/AUTH on the control channel and opens the
// feed channel.
func (s *Session) handshake(client Client) error {
	s.setState(StateAuthenticating)

	deadline := time.NewTimer(s.cfg.AuthTimeout)
	defer deadline.Stop()

	setup := setupMessage{
		Type:                   typeSetup,
		Channel:                controlChannel,
		Version:                protocolVersion,
		KeepaliveTimeout:       int(s.cfg.KeepaliveTimeout / time.Second),
		AcceptKeepaliveTimeout: int(s.cfg.KeepaliveTimeout / time.Second),
	}
	if err := client.Send(setup); err != nil {
		return fmt.Errorf("send setup: %w", err)
	}

	authSent := false
	channelRequested := false

	for {
		select {
		case <-s.ctx.Done():
			return s.ctx.Err()
		case <-deadline.C:
			return fmt.Errorf("handshake: %w", ErrTimeout)
		case err := <-client.Errors():
			return fmt.Errorf("handshake read: %w", err)
		case msg := <-client.Messages():
			var f frame
			if err := json.Unmarshal(msg.Data, &f); err != nil {
				s.logger.Debug("unparseable handshake frame", "error", err)
				continue
			}

			switch f.Type {
			case typeSetup:
				// Server's setup acknowledgement carries its keepalive
				// expectations; nothing to do.

			case typeAuthState:
				var as authStateMessage
				if err := json.Unmarshal(msg.Data, &as); err != nil {
					continue
				}
				switch as.State {
				case authStateUnauthorized:
					if authSent {
						return ErrUnauthorized
					}
					auth := authMessage{Type: typeAuth, Channel: controlChannel, Token: s.token()}
					if err := client.Send(auth); err != nil {
						return fmt.Errorf("send auth: %w", err)
					}
					authSent = true
				case authStateAuthorized:
					if channelRequested {
						continue
					}
					req := channelRequestMessage{
						Type:       typeChannelRequest,
						Channel:    feedChannel,
						Service:    feedService,
						Parameters: map[string]string{"contract": "AUTO"},
					}
					if err := client.Send(req); err != nil {
						return fmt.Errorf("request feed channel: %w", err)
					}
					channelRequested = true
				}

			case typeChannelOpened:
				feedSetup := feedSetupMessage{
					Type:             typeFeedSetup,
					Channel:          feedChannel,
					AcceptDataFormat: "FULL",
				}
				if err := client.Send(feedSetup); err != nil {
					return fmt.Errorf("send feed setup: %w", err)
				}
				return nil

			case typeError:
				var em errorMessage
				json.Unmarshal(msg.Data, &em)
				return fmt.Errorf("handshake rejected: %s: %s", em.Error, em.Message)
			}
		}
	}
}

// serve runs the live loop: keepalives, subscription changes, and
// inbound data. Returns nil on shutdown, an error when the connection
// should be re-established.
func (s *Session) serve(client Client) error {
	s.setState(StateLive)
	s.logger.Info("stream live", "url", s.cfg.URL)

	// Replay the full desired set before consuming new instructions.
	if desired := s.registry.Desired(); len(desired) > 0 {
		sub := feedSubscriptionMessage{Type: typeFeedSubscription, Channel: feedChannel, Add: desired}
		if err := client.Send(sub); err != nil {
			return fmt.Errorf("replay subscriptions: %w", err)
		}
		s.logger.Info("replayed subscriptions", "count", len(desired))
	}

	keepalive := time.NewTicker(s.cfg.KeepaliveInterval)
	defer keepalive.Stop()

	lastInbound := time.Now()

	for {
		select {
		case <-s.ctx.Done():
			return nil

		case err := <-client.Errors():
			return fmt.Errorf("transport: %w", err)

		case <-s.registry.Notify():
			if err := s.applyInstructions(client); err != nil {
				return err
			}

		case <-keepalive.C:
			if time.Since(lastInbound) > s.cfg.KeepaliveTimeout {
				s.logger.Warn("no traffic from streamer, forcing reconnect",
					"timeout", s.cfg.KeepaliveTimeout,
				)
				return ErrStaleConnection
			}
			ka := keepaliveMessage{Type: typeKeepalive, Channel: controlChannel}
			if err := client.Send(ka); err != nil {
				return fmt.Errorf("send keepalive: %w", err)
			}

		case msg := <-client.Messages():
			lastInbound = time.Now()
			if err := s.handleFrame(msg.Data); err != nil {
				return err
			}
		}
	}
}

// applyInstructions drains queued registry changes into one
// FEED_SUBSCRIPTION message.
func (s *Session) applyInstructions(client Client) error {
	pending := s.registry.Drain()
	if len(pending) == 0 {
		return nil
	}

	sub := feedSubscriptionMessage{Type: typeFeedSubscription, Channel: feedChannel}
	for _, in := range pending {
		if in.Subscribe {
			sub.Add = append(sub.Add, in.Entry())
		} else {
			sub.Remove = append(sub.Remove, in.Entry())
		}
	}

	if err := client.Send(sub); err != nil {
		return fmt.Errorf("send subscription change: %w", err)
	}
	s.logger.Debug("subscription change sent", "add", len(sub.Add), "remove", len(sub.Remove))
	return nil
}

func (s *Session) handleFrame(data []byte) error {
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		s.logger.Debug("unparseable frame, dropping", "error", err)
		return nil
	}

	switch f.Type {
	case typeKeepalive:
		// Traffic already refreshed the staleness clock.

	case typeFeedData:
		var fd feedDataMessage
		if err := json.Unmarshal(data, &fd); err != nil {
			s.logger.Debug("unparseable feed data, dropping", "error", err)
			return nil
		}
		s.handleFeedData(fd)

	case typeAuthState:
		var as authStateMessage
		if err := json.Unmarshal(data, &as); err != nil {
			return nil
		}
		if as.State == authStateUnauthorized {
			return ErrUnauthorized
		}

	case typeError:
		var em errorMessage
		json.Unmarshal(data, &em)
		s.logger.Warn("streamer error", "code", em.Error, "message", em.Message)

	default:
		s.logger.Debug("unhandled frame type", "type", f.Type)
	}

	return nil
}

// handleFeedData decodes events, writes them through the cache, and
// fans accepted events out. Unknown event types are dropped.
func (s *Session) handleFeedData(fd feedDataMessage) {
	for _, raw := range fd.Data {
		var we wireEvent
		if err := json.Unmarshal(raw, &we); err != nil {
			s.logger.Debug("unparseable event, dropping", "error", err)
			continue
		}

		ev, ok := decodeEvent(we)
		if !ok {
			s.logger.Debug("unknown event type, dropping", "type", we.EventType)
			continue
		}

		if s.cache.Put(ev) {
			s.registry.Publish(ev)
		}
	}
}

// decodeEvent maps a wire event to its model variant.
func decodeEvent(we wireEvent) (model.MarketEvent, bool) {
	kind, ok := model.ParseEventKind(we.EventType)
	if !ok {
		return nil, false
	}

	sym, err := model.NewSymbol(we.EventSymbol)
	if err != nil {
		return nil, false
	}
	header := model.EventHeader{Symbol: sym, Time: we.Time}

	switch kind {
	case model.KindQuote:
		return model.Quote{
			EventHeader: header,
			BidPrice:    decimal.NewFromFloat(we.BidPrice),
			AskPrice:    decimal.NewFromFloat(we.AskPrice),
			BidSize:     decimal.NewFromFloat(we.BidSize),
			AskSize:     decimal.NewFromFloat(we.AskSize),
		}, true
	case model.KindTrade:
		return model.Trade{
			EventHeader: header,
			Price:       decimal.NewFromFloat(we.Price),
			Size:        decimal.NewFromFloat(we.Size),
			DayVolume:   decimal.NewFromFloat(we.DayVolume),
		}, true
	case model.KindGreeks:
		return model.Greeks{
			EventHeader: header,
			Price:       decimal.NewFromFloat(we.Price),
			Volatility:  decimal.NewFromFloat(we.Volatility),
			Delta:       decimal.NewFromFloat(we.Delta),
			Gamma:       decimal.NewFromFloat(we.Gamma),
			Theta:       decimal.NewFromFloat(we.Theta),
			Rho:         decimal.NewFromFloat(we.Rho),
			Vega:        decimal.NewFromFloat(we.Vega),
		}, true
	case model.KindProfile:
		return model.Profile{
			EventHeader:     header,
			Description:     we.Description,
			TradingStatus:   we.TradingStatus,
			HighLimitPrice:  decimal.NewFromFloat(we.HighLimitPrice),
			LowLimitPrice:   decimal.NewFromFloat(we.LowLimitPrice),
			High52WeekPrice: decimal.NewFromFloat(we.High52WeekPrice),
			Low52WeekPrice:  decimal.NewFromFloat(we.Low52WeekPrice),
		}, true
	case model.KindSummary:
		return model.Summary{
			EventHeader:       header,
			DayOpenPrice:      decimal.NewFromFloat(we.DayOpenPrice),
			DayHighPrice:      decimal.NewFromFloat(we.DayHighPrice),
			DayLowPrice:       decimal.NewFromFloat(we.DayLowPrice),
			PrevDayClosePrice: decimal.NewFromFloat(we.PrevDayClosePrice),
			OpenInterest:      decimal.NewFromFloat(we.OpenInterest),
		}, true
	default:
		return nil, false
	}
}
