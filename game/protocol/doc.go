// Package protocol defines the messages exchanged between the authoritative
// game manager and its mirrors, and the frame codec that carries them.
//
// A movement intent travels as a Req; the manager answers every Req with a
// Res that is either a rejection (playerNow unchanged, a requester-scoped
// rejectId) or an acceptance (playerNow+1, a fresh eventId and the tile,
// player and team mutations to apply). Mirrors that (re)join receive a
// ResetSnapshot and write it verbatim.
//
// Wire Format:
//
// Every frame is a two-element JSON array: the event name followed by its
// payload, for example
//
//	["move", {"playerId": 3, "playerNow": 4, "eventId": 17, "tiles": [...]}]
//
// Encode and Decode convert between frames and bytes; DecodePayload unpacks a
// frame's payload into a concrete message type.
package protocol
