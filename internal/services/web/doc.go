// Package web serves a read-mostly HTML viewer for story sessions.
//
// The viewer exists for humans watching or steering a narrated game: it lists
// live sessions, renders the latest narrative with pending deltas and decision
// history, and lets a player pick one of the offered choices.
package web
