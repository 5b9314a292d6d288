package process

import (
	"bytes"
	"sync"
)

// OutputBuffer accumulates the combined stdout/stderr stream of a child
// process. It is safe for concurrent Write and Drain.
type OutputBuffer struct {
	mutex sync.Mutex
	buf   bytes.Buffer
}

func NewOutputBuffer() *OutputBuffer {
	return &OutputBuffer{}
}

func (o *OutputBuffer) Write(p []byte) (int, error) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	return o.buf.Write(p)
}

// Drain returns everything written since the previous Drain and empties the buffer.
func (o *OutputBuffer) Drain() []byte {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	out := make([]byte, o.buf.Len())
	copy(out, o.buf.Bytes())
	o.buf.Reset()
	return out
}

func (o *OutputBuffer) size() int {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	return o.buf.Len()
}
