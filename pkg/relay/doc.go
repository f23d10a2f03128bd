/*
Package relay is the runnable nostr relay built on top of pkg/storage: a
WebSocket endpoint for NIP-01 EVENT/REQ/CLOSE traffic, NIP-09 deletion
handling, a cached NIP-11 relay information document, and an HTTP surface
over pkg/blossom for content-addressed blob storage.

It is deliberately thin. REQ is answered by running the filter once
against the storage core and closing out with EOSE — there is no live
subscription fan-out, no query planner, and no cross-relay replication;
those are explicit non-goals of the storage core this package sits on.

# Usage

	store, err := storage.Open(cfg.DataDir)
	blobs, err := blossom.NewStore(cfg.BlossomDir)
	srv := relay.NewServer(cfg, store, blobs)
	go srv.Start()
	...
	srv.Stop(ctx)
*/
package relay
