// Package resolve turns a task's source reference into plain text ready for
// analysis. There is one resolver per input modality: raw text is passed
// through, articles are fetched and cleaned with readability, and videos are
// downloaded with yt-dlp, uploaded, and transcribed.
package resolve
