// Package gateway implements the prompt-forwarding backend used when text
// generation goes through a deployed gateway app instead of a chat API.
// The gateway accepts {"prompt": ...} and answers with the generated text
// under a provider-dependent key, so the client probes the known shapes.
package gateway
