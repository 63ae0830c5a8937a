package registry

import "os"

// pid/tid identify the process for the header preamble. True OS
// thread ids are not portably obtainable from Go without cgo, and
// binding to a host's thread-info mechanism is out of scope for this
// module, so tid falls back to the process id as well.
func pid() int { return os.Getpid() }
func tid() int { return os.Getpid() }
