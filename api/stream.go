// api/stream.go
//
// Generic byte-stream contract layered over a socket handle, usable by
// buffered-I/O consumers that know nothing about sockets.

package api

// Stream ioctl request codes.
const (
	// StreamPoll asks which of the conditions in the argument bitmask
	// currently hold. The check never blocks.
	StreamPoll uint = 3

	// StreamClose releases the underlying descriptor. Idempotent.
	StreamClose uint = 4
)

// Poll condition flags, caller-specified bitmask in, bitmask out.
// Values follow poll(2).
const (
	PollIn  uint = 0x0001 // readable
	PollOut uint = 0x0004 // writable
	PollErr uint = 0x0008 // error condition
	PollHup uint = 0x0010 // peer hang-up
)

// Stream abstracts a full-duplex byte stream over a socket handle.
//
// Read and Write follow the raw POSIX contract: short counts are normal
// and the caller loops. Errors are the kinds declared in this package,
// so a consumer can distinguish fatal failures from would-block/timeout.
type Stream interface {
	// Read fills p and returns the byte count.
	Read(p []byte) (n int, err error)

	// Write sends from p and returns the byte count actually written.
	Write(p []byte) (n int, err error)

	// Ioctl performs a stream control request (StreamPoll, StreamClose).
	Ioctl(req uint, arg uint) (uint, error)
}
