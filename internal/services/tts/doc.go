// Package tts is the text-to-speech gateway client. It lists the voice
// catalog and synthesizes one speaker turn at a time into MP3 audio.
package tts
