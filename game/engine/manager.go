package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/wricardo/typing-arena/game/grid"
	"github.com/wricardo/typing-arena/game/lang"
	"github.com/wricardo/typing-arena/game/protocol"
	"github.com/wricardo/typing-arena/logger"
	"github.com/wricardo/typing-arena/metrics"
)

// Listener receives every frame the manager emits. Listeners run with the
// manager locked and must not call back into it.
type Listener func(event string, payload any)

// Result is the outcome of a submitted request
type Result struct {
	Res protocol.Res
	Err error
}

type submission struct {
	req   protocol.Req
	reply chan Result
}

type bot struct {
	params ChaserParams
	handle TimerHandle
	gen    uint64
}

// Manager is the authoritative process of one game. It admits requests one
// at a time and applies every result to its own mirror before emitting it.
type Manager struct {
	mu       sync.Mutex
	config   *GameConfig
	game     *Game
	balancer *lang.Balancer
	rng      *rand.Rand

	nextEventID int
	elimCount   int
	over        bool
	// stopped is set once Run has exited; no request is queued after it
	stopped bool

	inbox     chan submission
	listeners map[int]Listener
	nextLis   int

	scheduler Scheduler
	bots      map[int]*bot
	onOver    func([]protocol.Standing)
	log       *slog.Logger
}

// Option configures a Manager
type Option func(*Manager)

// WithSeed makes grid and balancer randomness reproducible
func WithSeed(seed int64) Option {
	return func(m *Manager) { m.rng = rand.New(rand.NewSource(seed)) }
}

// WithScheduler replaces the wall-clock scheduler driving bots
func WithScheduler(s Scheduler) Option {
	return func(m *Manager) { m.scheduler = s }
}

// WithLogger sets the manager's logger
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// WithOnOver registers the completion callback fired once when the game ends
func WithOnOver(fn func([]protocol.Standing)) Option {
	return func(m *Manager) { m.onOver = fn }
}

// NewManager validates config and builds a labeled, spawned game in the
// PAUSED state.
func NewManager(config *GameConfig, opts ...Option) (*Manager, error) {
	if err := ValidateGameConfig(config); err != nil {
		return nil, err
	}

	m := &Manager{
		config:    config,
		inbox:     make(chan submission, InboxSize),
		listeners: make(map[int]Listener),
		bots:      make(map[int]*bot),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.rng == nil {
		m.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if m.scheduler == nil {
		m.scheduler = NewTimerScheduler()
	}
	if m.log == nil {
		m.log = logger.Get()
	}
	m.log = m.log.With("game", config.Name)

	g, err := grid.New(config.CoordSystem, config.Dimensions, m.rng)
	if err != nil {
		return nil, err
	}
	policy, err := lang.ParsePolicy(config.Balancing)
	if err != nil {
		return nil, err
	}
	b, err := lang.NewBuiltin(config.Lang.ID, config.Lang.WeightExaggeration, policy, m.rng)
	if err != nil {
		return nil, err
	}
	if err := lang.CheckCompatible(b, g.AmbiguityThreshold()); err != nil {
		return nil, err
	}
	m.balancer = b

	var players []*Player
	teams := make([]*Team, len(config.Teams))
	for ti, tc := range config.Teams {
		team := &Team{ID: ti, Name: tc.Name}
		if tc.Immortal {
			team.ElimOrder = ElimImmortal
		}
		for h := 0; h < tc.Humans; h++ {
			p := &Player{ID: len(players), Name: fmt.Sprintf("%s %d", tc.Name, h+1), TeamID: ti, Family: Human, Coord: grid.NoCoord}
			players = append(players, p)
			team.Members = append(team.Members, p.ID)
		}
		for bi := range tc.Bots {
			params := tc.Bots[bi]
			p := &Player{ID: len(players), Name: fmt.Sprintf("%s bot %d", tc.Name, bi+1), TeamID: ti, Family: Chaser, Coord: grid.NoCoord, Bot: &params}
			players = append(players, p)
			team.Members = append(team.Members, p.ID)
			m.bots[p.ID] = &bot{params: params}
		}
		teams[ti] = team
	}

	m.game = NewGame(g, players, teams)
	m.game.SetLogger(m.log)
	if err := m.startRound(); err != nil {
		return nil, err
	}
	return m, nil
}

// startRound relabels every tile, respawns players and drops health
func (m *Manager) startRound() error {
	g := m.game
	g.Grid.Reset()
	m.balancer.Reset()
	m.elimCount = 0

	for c := 0; c < g.Grid.Len(); c++ {
		csp, err := m.label(grid.Coord(c))
		if err != nil {
			return err
		}
		t := g.Grid.TileAt(grid.Coord(c))
		t.Char, t.Seq = csp.Char, csp.Seq
		t.Now++
	}

	counts := make([]int, len(g.Teams))
	for i, t := range g.Teams {
		counts[i] = len(t.Members)
	}
	spawns, err := g.Grid.GetSpawnCoords(counts)
	if err != nil {
		return err
	}
	for ti, t := range g.Teams {
		if !t.Immortal() {
			t.ElimOrder = ElimStanding
		}
		for i, id := range t.Members {
			p := g.Players[id]
			p.Coord = grid.NoCoord
			p.Health = m.startHealth()
			p.Score = 0
			p.Eliminated = false
			p.RequestInFlight = false
			g.relocate(p, spawns[ti][i])
		}
	}
	for _, mod := range m.dropHealth(grid.NoCoord) {
		g.Grid.TileAt(mod.Coord).Health = mod.Health
	}
	g.Status = protocol.StatusPaused
	return nil
}

func (m *Manager) startHealth() int {
	if m.config.StartHealth > 0 {
		return m.config.StartHealth
	}
	return DefaultStartHealth
}

// avoidFor collects the live sequences that could be confused with a new
// label at c: every tile reachable from a tile that can reach c.
func (m *Manager) avoidFor(c grid.Coord) []string {
	g := m.game.Grid
	seen := map[grid.Coord]bool{c: true}
	var avoid []string
	for _, src := range g.TileSourcesTo(c, 1) {
		for _, t := range g.TileDestsFrom(src.Coord, 1) {
			if seen[t.Coord] {
				continue
			}
			seen[t.Coord] = true
			if t.Seq != "" {
				avoid = append(avoid, t.Seq)
			}
		}
	}
	return avoid
}

func (m *Manager) label(c grid.Coord) (lang.CSP, error) {
	csp, err := m.balancer.GetNonConflictingChar(m.avoidFor(c))
	if err != nil {
		m.log.Error("balancer exhausted", "coord", c, "error", err)
		return csp, err
	}
	metrics.BalancerSelections.WithLabelValues(m.balancer.ID()).Inc()
	return csp, nil
}

// dropHealth tops the floor back up to health_on_floor, one unit per tile.
// exclude is a tile that must stay empty this round (the one just picked up).
func (m *Manager) dropHealth(exclude grid.Coord) []protocol.TileMod {
	g := m.game.Grid
	floor := 0
	free := 0
	for _, t := range g.Tiles() {
		floor += t.Health
		if t.Health == 0 && !t.IsOccupied() && t.Coord != exclude {
			free++
		}
	}

	var mods []protocol.TileMod
	need := min(m.config.HealthOnFloor-floor, free)
	if need <= 0 {
		return nil
	}
	placed := map[grid.Coord]bool{}
	for _, i := range m.rng.Perm(g.Len()) {
		if len(mods) == need {
			break
		}
		t := g.TileAt(grid.Coord(i))
		if t.Health != 0 || t.IsOccupied() || t.Coord == exclude || placed[t.Coord] {
			continue
		}
		placed[t.Coord] = true
		mods = append(mods, protocol.TileMod{Coord: t.Coord, Now: t.Now, Char: t.Char, Seq: t.Seq, Health: 1})
	}
	return mods
}

// Subscribe registers a listener and returns a function removing it
func (m *Manager) Subscribe(l Listener) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextLis
	m.nextLis++
	m.listeners[id] = l
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, id)
	}
}

func (m *Manager) emit(event string, payload any) {
	for _, l := range m.listeners {
		l(event, payload)
	}
}

// Enqueue runs the in-flight check and queues req for the run loop. The
// queue send happens under m.mu so Run's final drain cannot miss it.
func (m *Manager) Enqueue(req protocol.Req) (<-chan Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return nil, ErrStopped
	}
	p, ok := m.game.Player(req.PlayerID)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPlayer, req.PlayerID)
	}
	if p.RequestInFlight {
		metrics.RequestsTotal.WithLabelValues(metrics.ResultViolation).Inc()
		m.log.Warn("request while another is in flight", "player", p.ID)
		return nil, fmt.Errorf("%w: %w: player %d", ErrProtocolViolation, ErrRequestInFlight, p.ID)
	}

	reply := make(chan Result, 1)
	select {
	case m.inbox <- submission{req: req, reply: reply}:
		p.RequestInFlight = true
		return reply, nil
	default:
		return nil, ErrInboxFull
	}
}

// Submit enqueues req and waits for its result. A Run loop (or a caller
// of ProcessPending) must be draining the inbox.
func (m *Manager) Submit(ctx context.Context, req protocol.Req) (protocol.Res, error) {
	reply, err := m.Enqueue(req)
	if err != nil {
		return protocol.Res{}, err
	}
	select {
	case r := <-reply:
		return r.Res, r.Err
	case <-ctx.Done():
		return protocol.Res{}, ctx.Err()
	}
}

// Run drains the inbox in arrival order until ctx is done. On exit the
// manager is stopped: queued requests are answered with ctx's error and
// their players released, and later Enqueue calls fail with ErrStopped.
func (m *Manager) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			m.stop(ctx.Err())
			return ctx.Err()
		case s := <-m.inbox:
			if err := ctx.Err(); err != nil {
				m.release(s.req.PlayerID)
				s.reply <- Result{Err: err}
				continue
			}
			s.reply <- m.process(s.req)
		}
	}
}

func (m *Manager) stop(cause error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
	m.cancelBots()
	for {
		select {
		case s := <-m.inbox:
			if p, ok := m.game.Player(s.req.PlayerID); ok {
				p.RequestInFlight = false
			}
			s.reply <- Result{Err: cause}
		default:
			return
		}
	}
}

// Stopped reports whether the request loop has exited
func (m *Manager) Stopped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopped
}

// release clears the in-flight flag of a request that was never admitted
func (m *Manager) release(playerID int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.game.Player(playerID); ok {
		p.RequestInFlight = false
	}
}

// ProcessPending drains whatever is queued on the calling goroutine
func (m *Manager) ProcessPending() int {
	n := 0
	for {
		select {
		case s := <-m.inbox:
			s.reply <- m.process(s.req)
			n++
		default:
			return n
		}
	}
}

func (m *Manager) process(req protocol.Req) Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	res, err := m.admit(req)
	return Result{Res: res, Err: err}
}

// admit decides a request. The caller holds m.mu and has already marked
// the player in flight.
func (m *Manager) admit(req protocol.Req) (protocol.Res, error) {
	g := m.game
	p, ok := g.Player(req.PlayerID)
	if !ok {
		return protocol.Res{}, fmt.Errorf("%w: %d", ErrUnknownPlayer, req.PlayerID)
	}

	if g.Status != protocol.StatusPlaying {
		return m.reject(p), nil
	}
	if req.PlayerNow != p.ReqNow {
		p.RequestInFlight = false
		metrics.RequestsTotal.WithLabelValues(metrics.ResultViolation).Inc()
		detail := "stale"
		if req.PlayerNow > p.ReqNow {
			detail = "advanced"
		}
		m.log.Warn("protocol violation", "player", p.ID, "detail", detail, "sent", req.PlayerNow, "have", p.ReqNow)
		return protocol.Res{}, fmt.Errorf("%w: %s playerNow %d for player %d (expected %d)",
			ErrProtocolViolation, detail, req.PlayerNow, p.ID, p.ReqNow)
	}
	if p.Eliminated || p.Coord == grid.NoCoord {
		return m.reject(p), nil
	}

	dest := g.Grid.Normalize(req.Dest.Coord)
	if dest == p.Coord {
		return m.reject(p), nil
	}
	cost := 0
	switch req.MoveType {
	case protocol.MoveBoost:
		if g.Grid.Distance(p.Coord, dest) > 2 || p.Health < m.config.BoostCost {
			return m.reject(p), nil
		}
		cost = m.config.BoostCost
	case protocol.MoveNormal, "":
		if g.Grid.Distance(p.Coord, dest) > 1 {
			return m.reject(p), nil
		}
	default:
		return m.reject(p), nil
	}

	tile := g.Grid.TileAt(dest)
	if tile.IsOccupied() || req.Dest.Now != tile.Now {
		return m.reject(p), nil
	}

	return m.accept(p, tile, cost)
}

func (m *Manager) reject(p *Player) protocol.Res {
	p.LastRejectID++
	res := protocol.Res{PlayerID: p.ID, PlayerNow: p.ReqNow, RejectID: p.LastRejectID}
	m.game.Commit(res)
	metrics.RequestsTotal.WithLabelValues(metrics.ResultRejected).Inc()
	m.emit(protocol.EventMove, res)
	return res
}

func (m *Manager) accept(p *Player, tile *grid.Tile, cost int) (protocol.Res, error) {
	csp, err := m.label(tile.Coord)
	if err != nil {
		p.RequestInFlight = false
		return protocol.Res{}, err
	}

	pickup := tile.Health
	dest := tile.Coord
	m.nextEventID++
	res := protocol.Res{
		PlayerID:  p.ID,
		PlayerNow: p.ReqNow + 1,
		EventID:   m.nextEventID,
		Tiles: []protocol.TileMod{{
			Coord: dest, Now: tile.Now + 1, Char: csp.Char, Seq: csp.Seq, Health: 0,
		}},
		Players: map[int]protocol.PlayerMod{
			p.ID: {Health: p.Health - cost + pickup, Score: p.Score + 1, Coord: protocol.CoordPtr(dest)},
		},
	}

	// the picked-up tile counts as empty when topping the floor back up
	tile.Health = 0
	res.Tiles = append(res.Tiles, m.dropHealth(dest)...)
	tile.Health = pickup

	m.game.Commit(res)
	metrics.RequestsTotal.WithLabelValues(metrics.ResultAccepted).Inc()
	m.emit(protocol.EventMove, res)
	return res, nil
}

// Status returns the game status
func (m *Manager) Status() protocol.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.game.Status
}

// Resume moves PAUSED to PLAYING and wakes the bots
func (m *Manager) Resume() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return ErrStopped
	}
	if m.game.Status != protocol.StatusPaused {
		return fmt.Errorf("%w: %s -> %s", ErrBadTransition, m.game.Status, protocol.StatusPlaying)
	}
	m.game.Status = protocol.StatusPlaying
	m.emit(protocol.EventStatus, protocol.StatusChange{Status: protocol.StatusPlaying})
	// eliminations during a pause take effect once play resumes
	if m.finished() {
		m.end()
		return nil
	}
	for id := range m.bots {
		if !m.game.Players[id].Eliminated {
			m.scheduleBot(id)
		}
	}
	return nil
}

// Pause moves PLAYING to PAUSED and cancels bot timers
func (m *Manager) Pause() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.game.Status != protocol.StatusPlaying {
		return fmt.Errorf("%w: %s -> %s", ErrBadTransition, m.game.Status, protocol.StatusPaused)
	}
	m.game.Status = protocol.StatusPaused
	m.cancelBots()
	m.emit(protocol.EventStatus, protocol.StatusChange{Status: protocol.StatusPaused})
	return nil
}

// end enters OVER. The caller holds m.mu.
func (m *Manager) end() {
	if m.over {
		return
	}
	m.over = true
	m.game.Status = protocol.StatusOver
	m.cancelBots()

	standings := m.game.Standings()
	m.emit(protocol.EventStatus, protocol.StatusChange{Status: protocol.StatusOver})
	m.emit(protocol.EventOver, protocol.Over{Standings: standings})
	m.log.Info("game over", "standings", standings)
	if m.onOver != nil {
		m.onOver(standings)
	}
}

// Reset starts a new round: fresh labels and spawns, counters cleared,
// status back to PAUSED. Acknowledged request counters carry over.
func (m *Manager) Reset() (protocol.ResetSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.over {
		return protocol.ResetSnapshot{}, fmt.Errorf("%w: reset after game over", ErrBadTransition)
	}
	m.cancelBots()
	if err := m.startRound(); err != nil {
		return protocol.ResetSnapshot{}, err
	}
	snap := m.game.Snapshot()
	m.emit(protocol.EventReset, snap)
	m.emit(protocol.EventStatus, protocol.StatusChange{Status: protocol.StatusPaused})
	return snap, nil
}

// Eliminate removes a player from the board. A team whose last member falls
// gets the next elimination rank. A playing game ends when at most one team
// of several, or no mortal team, is left standing.
func (m *Manager) Eliminate(playerID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.eliminate(playerID)
}

func (m *Manager) eliminate(playerID int) error {
	g := m.game
	p, ok := g.Player(playerID)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownPlayer, playerID)
	}
	if p.Eliminated {
		return nil
	}
	if b, ok := m.bots[p.ID]; ok {
		m.cancelBot(b)
	}

	m.nextEventID++
	res := protocol.Res{
		PlayerID: protocol.NoPlayer,
		EventID:  m.nextEventID,
		Players: map[int]protocol.PlayerMod{
			p.ID: {Health: p.Health, Score: p.Score, Coord: protocol.CoordPtr(grid.NoCoord), Eliminated: true},
		},
	}
	team := g.Teams[p.TeamID]
	if !team.Immortal() && team.ElimOrder == ElimStanding {
		fallen := true
		for _, id := range team.Members {
			if id != p.ID && !g.Players[id].Eliminated {
				fallen = false
			}
		}
		if fallen {
			m.elimCount++
			res.Teams = map[int]protocol.TeamMod{team.ID: {ElimOrder: m.elimCount}}
		}
	}

	g.Commit(res)
	m.emit(protocol.EventMove, res)
	m.log.Info("player eliminated", "player", p.ID, "team", team.Name)

	if g.Status == protocol.StatusPlaying && m.finished() {
		m.end()
	}
	return nil
}

// finished applies the game-over rule
func (m *Manager) finished() bool {
	standing, mortal := 0, 0
	for _, t := range m.game.Teams {
		if t.Standing() {
			standing++
			if !t.Immortal() {
				mortal++
			}
		}
	}
	if len(m.game.Teams) >= 2 && standing <= 1 {
		return true
	}
	return mortal == 0
}

// Claim binds the first free human slot to name
func (m *Manager) Claim(name string) (*Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.over {
		return nil, ErrGameOver
	}
	for _, p := range m.game.Players {
		if p.Family == Human && !p.Claimed && !p.Eliminated {
			p.Claimed = true
			if name != "" {
				p.Name = name
			}
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrNoFreeSlot
}

// Forfeit releases a claimed slot and eliminates its player
func (m *Manager) Forfeit(playerID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.game.Player(playerID)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownPlayer, playerID)
	}
	p.Claimed = false
	return m.eliminate(playerID)
}

// TypeReport summarizes a batch of keystrokes typed through a server-side operator
type TypeReport struct {
	Buffer   string         `json:"buffer"`
	Moves    []protocol.Res `json:"moves"`
	Bells    int            `json:"bells"`
	Ignored  int            `json:"ignored"`
	Coord    grid.Coord     `json:"coord"`
	Position string         `json:"position"`
}

// Type feeds keys to the player's server-side operator, submitting each
// completed request and waiting for its result.
func (m *Manager) Type(ctx context.Context, playerID int, keys string, boost bool) (TypeReport, error) {
	var report TypeReport
	for _, r := range keys {
		m.mu.Lock()
		if _, ok := m.game.Player(playerID); !ok {
			m.mu.Unlock()
			return report, fmt.Errorf("%w: %d", ErrUnknownPlayer, playerID)
		}
		op := m.game.Operator(playerID)
		op.Boost = boost
		before := op.Bells()
		outcome, req := op.Type(r)
		m.mu.Unlock()

		switch outcome {
		case Bell:
			report.Bells++
		case Ignored:
			report.Ignored++
		case Completed:
			res, err := m.Submit(ctx, *req)
			if err != nil {
				return report, err
			}
			report.Moves = append(report.Moves, res)
			m.mu.Lock()
			if op.Bells() > before {
				report.Bells++
			}
			m.mu.Unlock()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	op := m.game.Operator(playerID)
	p := m.game.Players[playerID]
	report.Buffer = op.Buffer()
	report.Coord = p.Coord
	if p.Coord != grid.NoCoord {
		report.Position = m.game.Grid.Describe(p.Coord).String()
	}
	return report, nil
}

// Snapshot returns the full state for a joining mirror
func (m *Manager) Snapshot() protocol.ResetSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.game.Snapshot()
}

// Setup returns the static description mirrors are built from
func (m *Manager) Setup(gameID string) protocol.Setup {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := protocol.Setup{
		GameID:      gameID,
		Name:        m.config.Name,
		CoordSystem: m.config.CoordSystem,
		Dimensions:  m.config.Dimensions,
		Lang:        m.config.Lang.ID,
	}
	for _, p := range m.game.Players {
		s.Players = append(s.Players, protocol.PlayerInfo{ID: p.ID, Name: p.Name, TeamID: p.TeamID, Family: string(p.Family)})
	}
	for _, t := range m.game.Teams {
		s.Teams = append(s.Teams, protocol.TeamInfo{ID: t.ID, Name: t.Name, Immortal: t.Immortal()})
	}
	return s
}

// View runs fn against the authoritative mirror with the manager locked
func (m *Manager) View(fn func(g *Game)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(m.game)
}

// Config returns the preset the game was built from
func (m *Manager) Config() *GameConfig { return m.config }
