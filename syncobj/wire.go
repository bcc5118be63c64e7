package syncobj

// Manager-interface error codes.
const (
	// CodeSurfaceExists: a second sync adapter was attached to a surface.
	CodeSurfaceExists uint32 = 0

	// CodeInvalidTimeline: the timeline fd could not be imported.
	CodeInvalidTimeline uint32 = 1
)

// Surface-interface error codes.
const (
	// CodeNoSurface: an explicit-sync request arrived after the surface
	// was destroyed.
	CodeNoSurface uint32 = 1

	// CodeUnsupportedBuffer: the attached buffer type cannot carry
	// explicit synchronization.
	CodeUnsupportedBuffer uint32 = 2

	// CodeNoBuffer: a commit with sync points resolved no buffer content.
	CodeNoBuffer uint32 = 3

	// CodeNoAcquirePoint: a commit with a buffer lacked a live acquire
	// timeline.
	CodeNoAcquirePoint uint32 = 4

	// CodeNoReleasePoint: a commit with a buffer lacked a live release
	// timeline.
	CodeNoReleasePoint uint32 = 5

	// CodeConflictingPoints: acquire and release share a timeline with
	// acquire >= release, so the client could observe its release before
	// the compositor acquired.
	CodeConflictingPoints uint32 = 6
)

// PointValue reassembles a 64-bit timeline value from the two 32-bit
// halves the wire carries.
func PointValue(hi, lo uint32) uint64 {
	return uint64(hi)<<32 | uint64(lo)
}
