package sequencer

import "github.com/charmbracelet/log"

// Continuous reports whether continuous play is active.
func (c *Controller) Continuous() bool {
	return c.continuous
}

// Cursor returns the continuous play position.
func (c *Controller) Cursor() int {
	return c.cursor
}

// StartAll plays the whole playlist from the first sentence, one after the
// other.
func (c *Controller) StartAll() error {
	if c.list.Len() == 0 {
		return ErrEmptyChunk
	}

	c.Stop()
	c.continuous, c.cursor = true, 0
	c.list.Jump(0)
	c.obs.Reveal()
	log.Debug("continuous play started", "sentences", c.list.Len())

	tok := c.token
	c.after(tok, c.timing.Start, func() {
		if s, ok := c.list.At(0); ok {
			c.play(s, true)
		}
	})
	c.notice(LevelInfo, "Starting continuous play for the chunk.")
	c.changed()
	return nil
}

// StopAll halts playback and ends continuous play. It is a no-op apart
// from halting when continuous play is not active.
func (c *Controller) StopAll() {
	was := c.continuous
	c.continuous, c.cursor = false, 0
	c.Stop()
	if was {
		log.Debug("continuous play stopped")
		c.notice(LevelInfo, "Continuous play stopped.")
	}
}

// Seek halts playback and moves the playlist to i. With replay set, or with
// a loop replay pending, the sentence plays from its first clip; in
// continuous play the cursor follows and the chain carries on from i.
func (c *Controller) Seek(i int, replay bool) bool {
	if !c.list.Jump(i) {
		return false
	}
	if c.continuous {
		c.cursor = i
	}
	if s, ok := c.list.Current(); ok && (replay || c.replay && c.looping) {
		c.play(s, c.continuous)
		return true
	}
	c.Stop()
	return true
}

// sequenceEnd decides what follows a finished sentence sequence.
func (c *Controller) sequenceEnd(tok uint64) {
	switch {
	case c.looping && !c.continuous:
		c.replay = true
		c.after(tok, c.timing.Advance, func() {
			c.replay = false
			if !c.looping || c.continuous {
				return
			}
			if s, ok := c.list.Current(); ok {
				c.play(s, false)
			}
		})

	case c.continuous:
		next := c.cursor + 1
		if next >= c.list.Len() {
			c.continuous, c.cursor = false, 0
			c.Stop()
			log.Debug("continuous play finished")
			c.notice(LevelInfo, "Continuous play finished.")
			return
		}
		c.cursor = next
		c.list.Jump(next)
		c.changed()
		c.after(tok, c.timing.Advance, func() {
			if s, ok := c.list.At(next); ok {
				c.play(s, true)
			}
		})
	}
}
