// Package storage uploads ticket attachments to a local directory or S3.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

// Object describes an upload.
type Object struct {
	Key         string
	ContentType string
}

// Store persists attachment bytes and hands back a URL for the ticket.
type Store interface {
	Upload(ctx context.Context, r io.Reader, obj Object) (string, error)
	// Owns reports whether url names a ticket attachment in this store.
	Owns(url string) bool
	// Delete removes the object behind a URL returned by Upload. URLs the
	// store does not own are left alone and are not an error.
	Delete(ctx context.Context, url string) error
}

// keyRoot is the key space holding ticket attachments.
const keyRoot = "tickets/"

// Key builds the object key for a ticket attachment.
func Key(ticketID string, at time.Time, ext string) string {
	return fmt.Sprintf("%s%s/%d.%s", keyRoot, ticketID, at.UnixMilli(), ext)
}

// isTicketKey reports whether key is a clean path below keyRoot.
func isTicketKey(key string) bool {
	if !strings.HasPrefix(key, keyRoot) || len(key) == len(keyRoot) {
		return false
	}
	return path.Clean("/"+key) == "/"+key
}

// TempID is the placeholder ticket id used before the ticket exists.
func TempID(at time.Time) string {
	return fmt.Sprintf("temp-%d", at.UnixMilli())
}
