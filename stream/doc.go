// Package stream adapts a socket handle to the generic read/write/ioctl
// byte-stream contract in api, so buffered-I/O consumers can drive a
// socket without knowing about retry budgets or descriptors.
package stream
