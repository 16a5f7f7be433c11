// Package subtitles converts raw caption tracks into clean prose text.
//
// The normalizer strips WebVTT structure, rejoins sentences split across
// cues, and collapses repeated content at line, sentence, and token-phrase
// granularity. Auto-generated caption tracks stutter badly, so the phrase
// pass scans windows from eighteen tokens down to three and removes runs of
// consecutive repeats at every length. Output is capped to a configurable
// character limit, preferring a sentence boundary near the cap.
package subtitles
