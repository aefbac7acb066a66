package feed

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hedgeiq/gexstream/internal/domain"
	"github.com/hedgeiq/gexstream/internal/platform/deribit"
)

// Connection states reported by Status.
const (
	StateIdle         = "idle"
	StateConnected    = "connected"
	StateReconnecting = "reconnecting"
	StateStopped      = "stopped"
)

// Config holds feed behavior knobs.
type Config struct {
	WS              deribit.WSConfig
	Underlying      string
	BufferSize      int
	DedupWindow     int
	ReconnectBase   time.Duration
	ReconnectMax    time.Duration
	ReconnectJitter float64
	MaxRetries      int // consecutive failures before giving up, 0 = unlimited
}

// Feed maintains a websocket subscription to the raw option trade channel
// and emits validated, deduplicated trades on a bounded ordered channel.
type Feed struct {
	cfg    Config
	out    chan domain.Trade
	window *dedupWindow
	state  atomic.Value // string
	logger *slog.Logger

	// connect runs one connection attempt and reports whether a session was
	// established before the error. Swappable in tests.
	connect func(ctx context.Context) (bool, error)

	accepted atomic.Uint64
	dropped  atomic.Uint64
	dupes    atomic.Uint64
}

func New(cfg Config, logger *slog.Logger) *Feed {
	f := &Feed{
		cfg:    cfg,
		out:    make(chan domain.Trade, cfg.BufferSize),
		window: newDedupWindow(cfg.DedupWindow),
		logger: logger.With(slog.String("component", "feed")),
	}
	f.connect = f.runConnection
	f.state.Store(StateIdle)
	return f
}

// Trades is the ordered output channel. It is closed when Run returns.
func (f *Feed) Trades() <-chan domain.Trade { return f.out }

// Status reports the current connection state.
func (f *Feed) Status() string { return f.state.Load().(string) }

// Counters reports accepted, dropped and duplicate trade totals.
func (f *Feed) Counters() (accepted, dropped, dupes uint64) {
	return f.accepted.Load(), f.dropped.Load(), f.dupes.Load()
}

// Run connects, subscribes and pumps trades until the context is cancelled.
// Connection failures trigger reconnects with exponential backoff and
// jitter; the dedup window is kept across reconnects. An established
// session resets the failure count, so the MaxRetries ceiling measures one
// sustained outage, not the process lifetime; only MaxRetries consecutive
// failed attempts return domain.ErrFeedFatal.
func (f *Feed) Run(ctx context.Context) error {
	defer close(f.out)
	defer f.state.Store(StateStopped)

	failures := 0
	for {
		if ctx.Err() != nil {
			return nil
		}
		established, err := f.connect(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if established {
			failures = 0
		}
		failures++
		if f.cfg.MaxRetries > 0 && failures >= f.cfg.MaxRetries {
			f.logger.Error("giving up after repeated connection failures",
				slog.Int("failures", failures),
				slog.Any("error", err))
			return fmt.Errorf("feed: %d consecutive failures: %w", failures, domain.ErrFeedFatal)
		}

		delay := f.backoff(failures)
		f.state.Store(StateReconnecting)
		f.logger.Warn("connection lost, reconnecting",
			slog.Int("attempt", failures),
			slog.Duration("delay", delay),
			slog.Any("error", err))
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
	}
}

// runConnection performs one full session: dial, auth, subscribe, stream.
// The session counts as established once the subscription is acked.
func (f *Feed) runConnection(ctx context.Context) (bool, error) {
	client := deribit.NewWSClient(f.cfg.WS, f.logger)
	if err := client.Connect(ctx); err != nil {
		return false, err
	}
	defer client.Close()

	if err := client.Authenticate(ctx); err != nil {
		return false, err
	}
	channel := fmt.Sprintf("trades.option.%s.raw", f.cfg.Underlying)
	if err := client.Subscribe(ctx, []string{channel}); err != nil {
		return false, err
	}
	if err := client.EnableHeartbeat(ctx); err != nil {
		return false, err
	}

	f.state.Store(StateConnected)
	return true, client.Listen(ctx, func(trades []deribit.TradeMessage) {
		f.accept(ctx, trades)
	})
}

// accept validates, deduplicates and forwards one trade batch in order.
func (f *Feed) accept(ctx context.Context, msgs []deribit.TradeMessage) {
	for _, m := range msgs {
		trade, err := normalize(m)
		if err != nil {
			f.dropped.Add(1)
			f.logger.Warn("dropping malformed trade",
				slog.String("trade_id", m.TradeID),
				slog.String("instrument", m.InstrumentName),
				slog.Any("error", err))
			continue
		}
		if f.window.Observe(trade.ID) {
			f.dupes.Add(1)
			f.logger.Debug("duplicate trade suppressed", slog.String("trade_id", trade.ID))
			continue
		}
		select {
		case f.out <- trade:
			f.accepted.Add(1)
		case <-ctx.Done():
			return
		}
	}
}

// normalize converts a wire trade to a domain trade, rejecting prints that
// cannot be applied to inventory.
func normalize(m deribit.TradeMessage) (domain.Trade, error) {
	if m.TradeID == "" {
		return domain.Trade{}, fmt.Errorf("%w: missing trade id", domain.ErrInvalidTrade)
	}
	if m.InstrumentName == "" {
		return domain.Trade{}, fmt.Errorf("%w: missing instrument", domain.ErrInvalidTrade)
	}
	if _, ok := domain.ParseInstrumentName(m.InstrumentName); !ok {
		return domain.Trade{}, fmt.Errorf("%w: not an option instrument %q", domain.ErrInvalidTrade, m.InstrumentName)
	}
	if m.Amount <= 0 {
		return domain.Trade{}, fmt.Errorf("%w: non-positive size %v", domain.ErrInvalidTrade, m.Amount)
	}
	var side domain.Side
	switch strings.ToLower(m.Direction) {
	case "buy":
		side = domain.Buy
	case "sell":
		side = domain.Sell
	default:
		return domain.Trade{}, fmt.Errorf("%w: unknown direction %q", domain.ErrInvalidTrade, m.Direction)
	}
	iv := m.IV
	if iv > 5 {
		iv /= 100
	}
	return domain.Trade{
		ID:         m.TradeID,
		Instrument: m.InstrumentName,
		Timestamp:  time.UnixMilli(m.Timestamp).UTC(),
		Size:       m.Amount,
		Price:      m.Price,
		TakerSide:  side,
		IV:         iv,
	}, nil
}

func (f *Feed) backoff(attempt int) time.Duration {
	d := f.cfg.ReconnectBase
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= f.cfg.ReconnectMax {
			d = f.cfg.ReconnectMax
			break
		}
	}
	if f.cfg.ReconnectJitter > 0 {
		j := 1 + f.cfg.ReconnectJitter*(2*rand.Float64()-1)
		d = time.Duration(float64(d) * j)
	}
	if d < 0 {
		d = f.cfg.ReconnectBase
	}
	return d
}
