// Package ptrutil provides small pointer-of-value helpers.
//
// The teacher pulled in github.com/maximhq/maxim-go for exactly this
// (maxim.StrPtr) to talk to the Maxim observability platform; nothing in
// this module's domain talks to that vendor, so the one helper it was
// used for is reproduced locally instead of carrying the dependency.
package ptrutil

// String returns a pointer to the given string value.
func String(s string) *string { return &s }

// Bool returns a pointer to the given bool value.
func Bool(b bool) *bool { return &b }

// Int returns a pointer to the given int value.
func Int(i int) *int { return &i }
