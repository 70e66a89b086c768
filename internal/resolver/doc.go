// Package resolver turns free-text place names into coordinates.
//
// A batch flows through three pieces:
//
//   - [FocusResolver] geocodes the destination once. The result biases the
//     primary provider and anchors the plausibility filter.
//   - [Chain] walks the provider stages in order ([StagePrimary], then
//     [StageFallback]) until one yields a candidate within the plausibility
//     radius of the focus point.
//   - [Coordinator] deduplicates the batch, serves cache hits, fans the misses
//     out over a bounded worker pool, merges results into the cache as the
//     single writer, and flushes once.
//
// Nothing in this package returns an error to its caller. Provider failures,
// timeouts and implausible results all degrade to [domain.Absent] for the
// affected name only.
package resolver
