// Package fixedpool allocates storage for many values of one fixed-size
// type from pre-reserved pools, avoiding the general allocator for
// workloads that create and drop large numbers of same-sized objects.
//
//   - Each pool holds a fixed number of slots plus a bitmap with one bit
//     per slot; a set bit marks a free slot.
//   - Allocation takes the lowest free slot of the first pool with room,
//     appending a pool when all are full.
//   - Pools are never returned individually. Release gives all of them
//     back to the backing allocators at once.
//   - Slot memory comes from a backing.Allocator and is not scanned by the
//     garbage collector, so element types must not contain pointers.
//
// Allocators are safe for concurrent use.
package fixedpool
