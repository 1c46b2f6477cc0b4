// Package live drives the real-time voice session: the websocket
// transport carrying audio and transcription both ways, and the
// controller owning the session lifecycle, device wiring, playback
// scheduling and transcript assembly.
package live
