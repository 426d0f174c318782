package badger

// Key prefixes for different data types
const (
	collectionPrefix = "col:"
	entryPrefix      = "vec:"
	commitPrefix     = "jrn:"
)

// makeCollectionKey generates the key holding a collection's description.
func makeCollectionKey(name string) []byte {
	return []byte(collectionPrefix + name)
}

// makeEntryPrefix generates the prefix shared by all entries of a collection.
// Format: vec:collection:
func makeEntryPrefix(collection string) []byte {
	return []byte(entryPrefix + collection + ":")
}

// makeEntryKey generates the key for one entry.
// Format: vec:collection:id
func makeEntryKey(collection, id string) []byte {
	prefix := makeEntryPrefix(collection)
	buf := make([]byte, len(prefix)+len(id))
	offset := copy(buf, prefix)
	copy(buf[offset:], id)
	return buf
}

// makeCommitKey generates the journal key for a committed raw file.
func makeCommitKey(name string) []byte {
	return []byte(commitPrefix + name)
}
