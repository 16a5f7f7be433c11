// Package fetch turns a YouTube URL into a raw subtitle track. It parses
// the video id, serves cached tracks when present, and otherwise probes
// available subtitle languages and downloads the best match.
package fetch
