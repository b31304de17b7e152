package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/timer"
	tea "github.com/charmbracelet/bubbletea"
)

const switchAlert = "Time's up! Switch to native content."

// practiceTimer counts down a study block, after which the learner should
// switch to native material.
type practiceTimer struct {
	length  time.Duration
	timer   timer.Model
	started bool
	alert   bool
}

func newPracticeTimer(minutes int) practiceTimer {
	if minutes <= 0 {
		minutes = 5
	}
	d := time.Duration(minutes) * time.Minute
	return practiceTimer{length: d, timer: timer.NewWithInterval(d, time.Second)}
}

// toggle starts a fresh countdown, or pauses and resumes a running one.
func (p *practiceTimer) toggle() tea.Cmd {
	p.alert = false
	if !p.started || p.timer.Timedout() {
		p.timer = timer.NewWithInterval(p.length, time.Second)
		p.started = true
		return p.timer.Init()
	}
	return p.timer.Toggle()
}

// update forwards timer messages. It reports true when the countdown has
// just run out.
func (p *practiceTimer) update(msg tea.Msg) (tea.Cmd, bool) {
	switch msg := msg.(type) {
	case timer.TimeoutMsg:
		if msg.ID != p.timer.ID() {
			return nil, false
		}
		p.alert = true
		p.started = false
		return nil, true
	case timer.TickMsg, timer.StartStopMsg:
		var cmd tea.Cmd
		p.timer, cmd = p.timer.Update(msg)
		return cmd, false
	}
	return nil, false
}

func (p practiceTimer) view() string {
	if !p.started {
		return ""
	}
	left := p.timer.Timeout.Round(time.Second)
	s := fmt.Sprintf("⏱ %02d:%02d", int(left.Minutes()), int(left.Seconds())%60)
	if !p.timer.Running() {
		s += " paused"
	}
	return s
}
