package engine

import "github.com/wricardo/typing-arena/game/protocol"

// scheduleBot arms the next tick of a chaser. The caller holds m.mu.
func (m *Manager) scheduleBot(id int) {
	b, ok := m.bots[id]
	if !ok {
		return
	}
	if b.handle != 0 {
		m.scheduler.Cancel(b.handle)
	}
	b.gen++
	gen := b.gen
	b.handle = m.scheduler.Schedule(b.params.Interval(), func() { m.tick(id, gen) })
}

// cancelBot disarms a chaser. A callback already past its timer sees a
// stale generation and does nothing.
func (m *Manager) cancelBot(b *bot) {
	if b.handle != 0 {
		m.scheduler.Cancel(b.handle)
		b.handle = 0
	}
	b.gen++
}

func (m *Manager) cancelBots() {
	for _, b := range m.bots {
		m.cancelBot(b)
	}
}

// tick runs one chaser decision and re-arms the timer
func (m *Manager) tick(id int, gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.bots[id]
	if !ok || b.gen != gen || m.stopped || m.game.Status != protocol.StatusPlaying {
		return
	}
	b.handle = 0
	p := m.game.Players[id]
	if p.Eliminated {
		return
	}

	req, intent := b.params.Think(m.game, p, m.config.BoostCost)
	if req != nil {
		p.RequestInFlight = true
		if _, err := m.admit(*req); err != nil {
			m.log.Error("bot move failed", "player", id, "intent", intent, "error", err)
			return
		}
	}
	if m.game.Status == protocol.StatusPlaying && b.gen == gen {
		m.scheduleBot(id)
	}
}
