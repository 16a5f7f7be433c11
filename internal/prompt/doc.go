// Package prompt manages the text templates that drive story generation.
//
// Templates carry labeled blocks such as ORIGINAL_STORY: and STORY_CORE:
// whose content is braced or runs to the next all-caps section header. The
// Inject functions resolve each variable through three tiers: an explicit
// {{...}} placeholder, an existing labeled block, and finally an anchored
// insertion, so a value always lands in exactly one place and repeated
// injection replaces it instead of duplicating it. The Fill functions are
// the strict counterparts used by the classic pipeline, where a malformed
// template is an error rather than an insertion target.
package prompt
