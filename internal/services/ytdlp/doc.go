// Package ytdlp wraps the yt-dlp command line tool for probing and
// downloading YouTube subtitle tracks. Command execution sits behind an
// Executor interface so tests can script tool output without the binary.
package ytdlp
