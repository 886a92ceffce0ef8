// Package textutil provides title normalization and similarity scoring used
// to verify model output against ground-truth metadata, and rune-safe
// truncation for prompt inputs.
package textutil
