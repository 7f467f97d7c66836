package xid

import "github.com/google/uuid"

// New returns a random UUIDv4 string. Every persisted record uses it as its
// primary key so rows from different stores never collide.
func New() string {
	return uuid.NewString()
}

// Valid reports whether id has the shape produced by New.
func Valid(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
