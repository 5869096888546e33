// Package cache implements the content-addressed artifact cache.
//
// Every cached file is identified by a Selector, which maps deterministically
// to a path below the cache root:
//
//	<root>/launcher_metadata.json
//	<root>/<version>/version.json
//	<root>/<version>/<side>.jar
//	<root>/<version>/<side>_mappings.txt
//	<root>/assets/indexes/<id>.json
//	<root>/assets/objects/<hh>/<hash>
//
// The Store computes each selector at most once per process. Concurrent
// callers for the same selector share a single in-flight producer
// (singleflight) and later callers read the recorded Entry. Files with a
// known upstream SHA-1 are verified before reuse and after download; a local
// file that already matches is never downloaded again.
//
// In offline mode no network request is made. A lookup that cannot be
// satisfied from local state fails with OfflineUnavailableError.
package cache
