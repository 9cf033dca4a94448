// Package lang assigns typeable labels to grid tiles.
//
// A language is a forward map from display characters to the sequences a
// player types to select them, each with an authored frequency weight. The
// Balancer inverts that map into a prefix tree and hands out char/seq pairs
// (CSP) that share no prefix relation with a caller-supplied avoid set, while
// spreading usage across characters according to a balancing policy.
//
// Core Types:
//   - Descriptor: a language definition (built-ins are looked up with Builtin)
//   - Balancer: the prefix tree plus its usage counters
//   - Policy: seq, char or weight; controls which under-used pair surfaces first
//
// Setup Checks:
//
// CheckCompatible compares a balancer's Capacity against a topology's
// ambiguity threshold. A language that fails it must never be paired with the
// topology; GetNonConflictingChar returning ErrExhausted means that check was
// skipped and is a fatal error, not a retryable one.
package lang
