package core

import (
	"encoding/hex"
	"strings"

	"github.com/go-crypt/x/blake2b"
	"github.com/google/uuid"
)

// entryNamespace scopes entry IDs so they never collide with other SHA1 UUIDs.
var entryNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://poiesic.com/tradevec/entry"))

// EntryID derives a stable vector entry ID from a source kind and the
// record's natural key fields. Re-ingesting the same logical record always
// yields the same ID, so upserts overwrite instead of duplicating.
func EntryID(kind SourceKind, key ...string) string {
	name := string(kind) + "\x1f" + strings.Join(key, "\x1f")
	return uuid.NewSHA1(entryNamespace, []byte(name)).String()
}

// Digest returns the hex encoded 256-bit BLAKE2b digest of data.
func Digest(data []byte) string {
	h, _ := blake2b.New(32, nil) // 32 bytes = 256 bits
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}
