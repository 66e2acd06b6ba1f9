// Package record produces content-addressed fingerprints of paths inside a
// project tree so that a remote worker can reconstruct a build action's input
// closure byte-for-byte without receiving the whole source tree.
//
// The central type is Cache, which wraps a hash source (see Source) and, as a
// side effect of every lookup, appends one Entry per distinct path to an
// EntrySet. Symlinks whose resolution stays inside the project root are
// recorded as ordinary content; symlinks that escape the root are recorded as
// boundary entries naming the shortest escaping ancestor and its fully
// resolved target, which the remote side materializes separately.
//
// Entries are deduplicated by path and never mutated after insertion, so an
// EntrySet is safe to hand to a serialization layer while recording from
// concurrent build workers is still in flight.
package record
