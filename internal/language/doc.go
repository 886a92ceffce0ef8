// Package language normalizes language codes and locales reported by the
// transcription and TTS gateways into ISO 639-1 codes and display names used
// in model prompts.
package language
