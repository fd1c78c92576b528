package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wricardo/chessbroker/auth"
	"github.com/wricardo/chessbroker/game/engine"
)

const (
	// DefaultProbeTimeout bounds how long a liveness probe waits for its ack
	DefaultProbeTimeout = 2 * time.Second
	// DefaultSweepInterval is the time between staleness sweeps
	DefaultSweepInterval = 10 * time.Second
	// DefaultSweepConcurrency caps sessions checked in parallel during a sweep
	DefaultSweepConcurrency = 16
)

// Options configures a Registry. Zero values fall back to defaults.
type Options struct {
	NewBoard         engine.Factory
	BufferSize       int
	ProbeTimeout     time.Duration
	SweepInterval    time.Duration
	SweepConcurrency int
	Logger           *zap.Logger
}

func (o *Options) setDefaults() {
	if o.NewBoard == nil {
		o.NewBoard = engine.NewChessFactory()
	}
	if o.BufferSize <= 0 {
		o.BufferSize = DefaultBufferSize
	}
	if o.ProbeTimeout <= 0 {
		o.ProbeTimeout = DefaultProbeTimeout
	}
	if o.SweepInterval <= 0 {
		o.SweepInterval = DefaultSweepInterval
	}
	if o.SweepConcurrency <= 0 {
		o.SweepConcurrency = DefaultSweepConcurrency
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
}

// Stats counts the registry's collections
type Stats struct {
	Sessions int `json:"sessions"`
	Waiting  int `json:"waiting"`
	Lobbies  int `json:"lobbies"`
}

// Registry owns active sessions, the random-match queue and the custom
// lobby. Each collection has its own lock; a registry lock is never held
// while calling into a session except to register a freshly paired one.
type Registry struct {
	opts   Options
	logger *zap.Logger

	sessionsMu sync.RWMutex
	sessions   map[uuid.UUID]*Session

	queueMu sync.Mutex
	queue   []*Conn

	lobbyMu sync.Mutex
	lobby   map[uuid.UUID]*Conn

	lifecycleMu sync.Mutex
	sweeper     *Sweeper
}

// NewRegistry creates an empty registry. Call Start to run the sweeper.
func NewRegistry(opts Options) *Registry {
	opts.setDefaults()
	return &Registry{
		opts:     opts,
		logger:   opts.Logger,
		sessions: make(map[uuid.UUID]*Session),
		lobby:    make(map[uuid.UUID]*Conn),
	}
}

// StartRandomMatch pairs playerID with the most recent waiting player, or
// queues it when nobody is waiting. Self-pairing never happens: a player
// already waiting is replaced by its newer request.
func (r *Registry) StartRandomMatch(playerID string) (*Conn, error) {
	if playerID == "" {
		return nil, auth.ErrPlayerNotAuthenticated
	}
	conn := NewConn(playerID, r.opts.BufferSize)

	for {
		r.queueMu.Lock()
		waiting := r.popLocked()

		if waiting == nil || waiting.PlayerID() == playerID {
			if waiting != nil {
				waiting.Close()
			}
			err := r.enqueueLocked(conn)
			r.queueMu.Unlock()
			return conn, err
		}
		r.queueMu.Unlock()

		sess, survivor, err := newSession(uuid.New(), waiting, conn, r.opts.NewBoard(), r.opts.BufferSize, r.logger)
		if err != nil {
			return nil, err
		}
		if sess != nil {
			r.addSession(sess)
			r.logger.Info("random match created",
				zap.Stringer("game_id", sess.ID()),
				zap.String("white", waiting.PlayerID()),
				zap.String("black", playerID))
			return conn, nil
		}

		if survivor == conn {
			// the waiting player was gone; try the next one
			r.logger.Debug("discarded dead waiting entry", zap.String("player_id", waiting.PlayerID()))
			continue
		}

		r.queueMu.Lock()
		_ = r.enqueueLocked(survivor)
		r.queueMu.Unlock()
		return conn, nil
	}
}

// popLocked removes the newest open entry. Caller holds queueMu.
func (r *Registry) popLocked() *Conn {
	for len(r.queue) > 0 {
		last := len(r.queue) - 1
		c := r.queue[last]
		r.queue[last] = nil
		r.queue = r.queue[:last]
		if !c.Closed() {
			return c
		}
	}
	return nil
}

func (r *Registry) enqueueLocked(c *Conn) error {
	if err := c.Push(WaitingForOpponent{}); err != nil {
		return err
	}
	r.queue = append(r.queue, c)
	return nil
}

// CreateCustomGame allocates an invite id, pushes CustomCreated and parks
// the creator in the lobby until someone joins with that id.
func (r *Registry) CreateCustomGame(playerID string) (uuid.UUID, *Conn, error) {
	if playerID == "" {
		return uuid.Nil, nil, auth.ErrPlayerNotAuthenticated
	}

	id := uuid.New()
	conn := NewConn(playerID, r.opts.BufferSize)
	if err := conn.Push(CustomCreated{GameID: id}); err != nil {
		return uuid.Nil, nil, err
	}

	r.lobbyMu.Lock()
	r.lobby[id] = conn
	r.lobbyMu.Unlock()

	r.logger.Info("custom game created", zap.Stringer("game_id", id), zap.String("player_id", playerID))
	return id, conn, nil
}

// Join reconnects to an active session or consumes a lobby entry
func (r *Registry) Join(id uuid.UUID, playerID string) (*Conn, error) {
	if playerID == "" {
		return nil, auth.ErrPlayerNotAuthenticated
	}

	if sess := r.lookup(id); sess != nil {
		return sess.Join(playerID)
	}

	r.lobbyMu.Lock()
	waiting, ok := r.lobby[id]
	if !ok {
		r.lobbyMu.Unlock()
		// paired by a concurrent joiner between the two lookups
		if sess := r.lookup(id); sess != nil {
			return sess.Join(playerID)
		}
		return nil, ErrInvalidSessionID
	}
	defer r.lobbyMu.Unlock()

	conn := NewConn(playerID, r.opts.BufferSize)

	if waiting.PlayerID() == playerID {
		if err := conn.Push(CustomCreated{GameID: id}); err != nil {
			return nil, err
		}
		r.lobby[id] = conn
		waiting.Close()
		return conn, nil
	}

	delete(r.lobby, id)
	sess, survivor, err := newSession(id, waiting, conn, r.opts.NewBoard(), r.opts.BufferSize, r.logger)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		if survivor == conn {
			// the creator is gone; the joiner now holds the invite
			if err := conn.Push(CustomCreated{GameID: id}); err != nil {
				return nil, err
			}
		}
		r.lobby[id] = survivor
		return conn, nil
	}

	r.addSession(sess)
	r.logger.Info("custom match created",
		zap.Stringer("game_id", id),
		zap.String("white", waiting.PlayerID()),
		zap.String("black", playerID))
	return conn, nil
}

// Spectate attaches a spectator stream to an active session
func (r *Registry) Spectate(id uuid.UUID, playerID string) (*Conn, error) {
	sess := r.lookup(id)
	if sess == nil {
		return nil, ErrInvalidSessionID
	}
	return sess.Spectate(playerID)
}

// PlayMove resolves the session and applies the move
func (r *Registry) PlayMove(id uuid.UUID, playerID string, move engine.Move) (engine.MoveOutcome, error) {
	if playerID == "" {
		return engine.Committed, auth.ErrPlayerNotAuthenticated
	}
	sess := r.lookup(id)
	if sess == nil {
		return engine.Committed, ErrInvalidSessionID
	}
	return sess.PlayMove(playerID, move)
}

// Get returns a snapshot of one active session
func (r *Registry) Get(id uuid.UUID) (Info, error) {
	sess := r.lookup(id)
	if sess == nil {
		return Info{}, ErrInvalidSessionID
	}
	return sess.Info(), nil
}

// List returns every active session, oldest first
func (r *Registry) List() []Info {
	result := make([]Info, 0)
	for _, sess := range r.snapshot() {
		result = append(result, sess.Info())
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

// Stats returns collection sizes
func (r *Registry) Stats() Stats {
	var st Stats

	r.sessionsMu.RLock()
	st.Sessions = len(r.sessions)
	r.sessionsMu.RUnlock()

	r.queueMu.Lock()
	st.Waiting = len(r.queue)
	r.queueMu.Unlock()

	r.lobbyMu.Lock()
	st.Lobbies = len(r.lobby)
	r.lobbyMu.Unlock()

	return st
}

// Sweep evicts every session whose staleness check reports true and
// drops queue and lobby entries whose stream has gone away. Sessions are
// checked outside the registry locks, at most SweepConcurrency at a time.
func (r *Registry) Sweep(ctx context.Context) (int, error) {
	sessions := r.snapshot()

	var (
		mu    sync.Mutex
		stale []*Session
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.SweepConcurrency)
	for _, sess := range sessions {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if sess.CheckStaleness(r.opts.ProbeTimeout) {
				mu.Lock()
				stale = append(stale, sess)
				mu.Unlock()
			}
			return nil
		})
	}
	err := g.Wait()

	r.sessionsMu.Lock()
	for _, sess := range stale {
		if r.sessions[sess.ID()] == sess {
			delete(r.sessions, sess.ID())
		}
	}
	r.sessionsMu.Unlock()

	for _, sess := range stale {
		sess.Close()
		r.logger.Info("session evicted", zap.Stringer("game_id", sess.ID()))
	}

	r.pruneWaiting()
	return len(stale), err
}

func (r *Registry) pruneWaiting() {
	r.queueMu.Lock()
	kept := r.queue[:0]
	for _, c := range r.queue {
		if !c.Closed() {
			kept = append(kept, c)
		}
	}
	for i := len(kept); i < len(r.queue); i++ {
		r.queue[i] = nil
	}
	r.queue = kept
	r.queueMu.Unlock()

	r.lobbyMu.Lock()
	for id, c := range r.lobby {
		if c.Closed() {
			delete(r.lobby, id)
			r.logger.Debug("lobby entry dropped", zap.Stringer("game_id", id))
		}
	}
	r.lobbyMu.Unlock()
}

// Start runs the staleness sweeper until ctx is cancelled or Stop is called
func (r *Registry) Start(ctx context.Context) {
	r.lifecycleMu.Lock()
	defer r.lifecycleMu.Unlock()

	if r.sweeper != nil {
		return
	}
	r.sweeper = NewSweeper(r, r.opts.SweepInterval, r.logger)
	r.sweeper.Start(ctx)
}

// Stop halts the sweeper and closes every session and waiting stream
func (r *Registry) Stop() {
	r.lifecycleMu.Lock()
	if r.sweeper != nil {
		r.sweeper.Stop()
		r.sweeper = nil
	}
	r.lifecycleMu.Unlock()

	r.sessionsMu.Lock()
	sessions := r.sessions
	r.sessions = make(map[uuid.UUID]*Session)
	r.sessionsMu.Unlock()
	for _, sess := range sessions {
		sess.Close()
	}

	r.queueMu.Lock()
	for _, c := range r.queue {
		c.Close()
	}
	r.queue = nil
	r.queueMu.Unlock()

	r.lobbyMu.Lock()
	for id, c := range r.lobby {
		c.Close()
		delete(r.lobby, id)
	}
	r.lobbyMu.Unlock()
}

func (r *Registry) lookup(id uuid.UUID) *Session {
	r.sessionsMu.RLock()
	defer r.sessionsMu.RUnlock()
	return r.sessions[id]
}

func (r *Registry) addSession(sess *Session) {
	r.sessionsMu.Lock()
	r.sessions[sess.ID()] = sess
	r.sessionsMu.Unlock()
}

func (r *Registry) snapshot() []*Session {
	r.sessionsMu.RLock()
	defer r.sessionsMu.RUnlock()

	result := make([]*Session, 0, len(r.sessions))
	for _, sess := range r.sessions {
		result = append(result, sess)
	}
	return result
}
