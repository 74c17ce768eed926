package filestore

import "context"

// Metadata describes an uploaded blob.
type Metadata struct {
	Name        string
	ContentType string
	Owner       string
}

// Storage is the external file-storage collaborator. The core only records
// the returned URL; it never reads blobs back.
type Storage interface {
	Store(ctx context.Context, data []byte, meta Metadata) (url string, err error)
}
