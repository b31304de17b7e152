// Package audio provides the playback device the sequencer drives: an
// oto/v3 backed device for real output and a mock device for tests and
// headless runs. A device holds at most one clip at a time.
package audio
