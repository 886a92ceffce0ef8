// Package highlight picks the most engaging passage of an episode script for
// a requested clip length and maps it onto audio time.
//
// Time is estimated from character counts at a configurable speech rate
// (seconds per character). Clips are cut from the synthesized episode audio,
// so offsets always come from the script rather than source timestamps.
package highlight
