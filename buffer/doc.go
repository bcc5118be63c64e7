// Package buffer models client buffers on their way through a surface
// commit: what they look like, how ready they are, and who still holds
// them.
//
// # Synchronicity
//
// Buffers come in two synchronicity classes. Synchronous buffers (shared
// memory) are readable the moment they are committed; the compositor copies
// their pixels out during the apply and can hand them back immediately.
// Asynchronous buffers (dmabuf) reference GPU memory that may still be
// written; they are readable only once a fence says so, either an explicit
// acquire point or an implicit sync file exported from the buffer itself.
//
// # Textures
//
// Texture is the compositor-side copy of synchronous content. UpdateFromSHM
// copies only the damaged rows, falling back to a full copy on resize, and
// can mirror the store into a GPU texture when a device provider is set.
//
// # Reference Counting
//
// Ref counts the state slots holding one buffer. During a commit hand-off
// the previous and the next state briefly share it; the last holder's
// Release runs the release hook, which is where the buffer travels back to
// its client.
package buffer
