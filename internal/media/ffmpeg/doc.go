// Package ffmpeg wraps the ffmpeg binary for the two audio operations the
// pipeline needs: lossless concatenation of synthesized turns and cutting a
// fixed-bitrate clip out of a longer track.
package ffmpeg
