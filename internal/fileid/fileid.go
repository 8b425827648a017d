// Package fileid derives deterministic record ids for catalog rows that do not carry one.
package fileid

import (
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
)

// namespace scopes generated ids so they never collide with ids minted elsewhere.
var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("licita:catalog"))

// RecordID returns a stable id for the row-th record of kind in the file at path.
// The same cleaned path, kind and row always give the same id, so re-importing an
// unchanged file updates records instead of duplicating them.
func RecordID(path, kind string, row int) string {
	key := fmt.Sprintf("%s#%s/%d", filepath.Clean(path), kind, row)
	return uuid.NewSHA1(namespace, []byte(key)).String()
}

// NewID returns a random id for records created through the API.
func NewID() string {
	return uuid.NewString()
}
