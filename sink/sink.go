// Package sink delivers finished webclip artifacts to storage backends:
// stdout, a local directory, a document server, an in-process callback,
// the SQLite store, or several of them at once.
package sink

import (
	"context"
	"strings"
	"time"

	"github.com/hazyhaar/webclip/container"
)

// Artifact is what the storage collaborator receives for one capture.
type Artifact struct {
	ID           string    `json:"id"`
	SessionID    string    `json:"session_id"`
	URL          string    `json:"url"`
	Title        string    `json:"title"`
	Excerpt      string    `json:"excerpt,omitempty"`
	DocumentPath string    `json:"document_path"`
	Width        uint32    `json:"width"`
	Height       uint32    `json:"height"`
	SliceCount   int       `json:"slice_count"`
	Container    []byte    `json:"container,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Size returns the encoded container length.
func (a Artifact) Size() int { return len(a.Container) }

// FileName returns DocumentPath with the .inkclip suffix.
func (a Artifact) FileName() string {
	if strings.HasSuffix(a.DocumentPath, container.Ext) {
		return a.DocumentPath
	}
	return a.DocumentPath + container.Ext
}

// Sink is the output interface. Send returning nil is the
// acknowledgement that the artifact was stored.
type Sink interface {
	Send(ctx context.Context, a Artifact) error
	Close() error
}
