// Package sequencer drives a single audio device through the clips of a
// study sentence: the source-language clip, a short gap, then the
// translation clip. It also implements looping one sentence and
// continuous play through a chunk.
//
// Every play request and every stop mints a new generation token. Timers,
// play outcomes and device events capture the token current when they were
// scheduled and do nothing if it has changed by the time they run. All
// Controller state is confined to the goroutine of its Scheduler.
package sequencer
