package appender

import (
	"os"
	"time"
)

// retentionLoop deletes catalogue entries older than MaxAliveTime on a
// periodic sweep, jittered so many Appenders started in the same
// process don't all wake on the same tick.
func (a *Appender) retentionLoop() {
	defer a.wg.Done()

	jitter := newJitter(uint32(time.Now().UnixNano()))
	period := DefaultRetentionPeriod

	for {
		wait := jitterDuration(jitter, period)
		select {
		case <-time.After(wait):
			if err := a.sweep(); err != nil {
				a.log.Warnf("%s: retention sweep: %v", a.cfg.NamePrefix, err)
			}
		case <-a.retentionStop:
			return
		}
	}
}

func (a *Appender) sweep() error {
	maxAlive := a.maxAliveTimeKnob()
	if maxAlive <= 0 {
		return nil
	}
	cutoff := time.Now().Add(-maxAlive)

	entries, err := a.cat.FileInfos()
	if err != nil {
		return err
	}

	var removed int
	for _, e := range entries {
		if e.ModTime.Before(cutoff) {
			if err := os.Remove(e.Path); err != nil && !os.IsNotExist(err) {
				a.log.Warnf("%s: remove aged file %s: %v", a.cfg.NamePrefix, e.Path, err)
				continue
			}
			removed++
		}
	}
	if removed > 0 {
		a.cat.Invalidate()
		a.log.Infof("%s: retention sweep removed %d file(s)", a.cfg.NamePrefix, removed)
	}
	return nil
}

// jitterDuration shifts period by a random offset in [-5%, +5%) of
// period (a window 10% of period wide), using mt for the random
// component so the result is reproducible given a fixed seed in tests.
func jitterDuration(mt *mt19937, period time.Duration) time.Duration {
	span := period / 10
	if span <= 0 {
		return period
	}
	offset := time.Duration(mt.uint32()%uint32(span)) - span/2
	return period + offset
}

// mt19937 is a small Mersenne Twister PRNG, used only to spread
// retention sweep wakeups. Adapted from the classic MT19937 algorithm
// rather than crypto/rand since determinism under a fixed seed (for
// tests) matters more than unpredictability here.
type mt19937 struct {
	state [624]uint32
	index int
}

func newJitter(seed uint32) *mt19937 {
	m := &mt19937{index: 624}
	m.state[0] = seed
	for i := 1; i < 624; i++ {
		prev := m.state[i-1]
		m.state[i] = uint32(1812433253*(prev^(prev>>30)) + uint32(i))
	}
	return m
}

func (m *mt19937) generate() {
	for i := 0; i < 624; i++ {
		y := (m.state[i] & 0x80000000) + (m.state[(i+1)%624] & 0x7fffffff)
		m.state[i] = m.state[(i+397)%624] ^ (y >> 1)
		if y%2 != 0 {
			m.state[i] ^= 2567483615
		}
	}
	m.index = 0
}

func (m *mt19937) uint32() uint32 {
	if m.index >= 624 {
		m.generate()
	}
	y := m.state[m.index]
	y ^= y >> 11
	y ^= (y << 7) & 2636928640
	y ^= (y << 15) & 4022730752
	y ^= y >> 18
	m.index++
	return y
}
