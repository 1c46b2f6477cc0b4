// Package audio owns the two halves of the session's audio path: the
// capture pipeline that chunks and encodes microphone frames, and the
// playback scheduler that queues synthesized chunks gaplessly on the
// output timeline and discards them on barge-in.
package audio
