// Package prefetch fetches audio clips ahead of playback so that remote
// clips are already in the cache when a sentence plays.
//
// The clips of the sentence on screen are fetched first, followed by those
// of the next few sentences of the chunk. Moving on discards whatever
// lookahead work has not started.
package prefetch
