// Package cosim is the blocking co-simulation channel between the harness
// and one external solver.
//
// # Wire contract
//
// The transport is a single TCP byte stream. A frame is 1+width IEEE-754
// float64 values with no header: the leading value is a timestamp and the
// rest are signals. Widths are fixed when the session starts, so the frame
// length is implied. Values are little-endian unless [WithByteOrder] says
// otherwise, and both ends must agree.
//
//	harness -> peer   [simTime, v0, v1, ...]   1+outWidth values
//	peer -> harness   [peerTime, u0, ...]      1+inWidth values
//
// Each exchange is strictly send-then-receive on the harness side, so the
// peer must receive-then-send. Reversing either side deadlocks both. Exactly
// one exchange is in flight at any time.
//
// # Errors
//
// Every failure is an [*Error] whose Kind is one of the sentinels below.
// Communication failures are fatal: the session closes and every later call
// fails with [ErrClosed], which also matches [ErrCommunication].
package cosim
