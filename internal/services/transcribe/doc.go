// Package transcribe talks to the speech-to-text gateway. The gateway accepts
// an audio URL and answers with a Whisper-style verbose transcript carrying
// per-segment timestamps.
package transcribe
