/*
Package blossom implements a minimal local-disk blob store addressed by
the sha256 hash of the blob's contents, following the shape of the
Blossom protocol (BUD-01): PUT stores bytes under hex(sha256(bytes)),
GET retrieves them by that hash.

The store lives outside the event log entirely — spec §1 names the
Blossom blob store as an external collaborator of the storage core, not
part of it — and is exercised only by pkg/relay's HTTP upload/download
handlers.

# Usage

	store, err := blossom.NewStore("/var/lib/nostrd/blossom")
	hash, err := store.Put(data)
	data, err := store.Get(hash)
*/
package blossom
