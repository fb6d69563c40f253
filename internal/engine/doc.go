// Package engine contains the game loop and simulation logic.
// This is the heartbeat of the cookie engine.
//
// ARCHITECTURAL RULE: The Engine is the only writer of game state. Ticks,
// player commands, scheduled callbacks and loads are serialized on one lock.
// Notifications go to the events.Sink synchronously under that lock, so
// listeners must not call back into the Engine.
package engine
