// Package protocol owns wire contract and parsing primitives.
//
// Ownership boundary:
// - tlv packet/field primitives
// - message type registry shared by agent and controller
package protocol
