package program

import (
	"github.com/edsrzf/mmap-go"
	"github.com/pkg/errors"
)

// Code is an executable copy of an assembled function. The mapping lives
// as long as the owning program.
type Code struct {
	mapping mmap.MMap
}

// Materialize copies the assembled bytes into an anonymous executable
// mapping.
func Materialize(machineCode []byte) (*Code, error) {
	if len(machineCode) == 0 {
		return nil, errors.New("empty code buffer")
	}

	mapping, err := mmap.MapRegion(nil, len(machineCode), mmap.RDWR|mmap.EXEC, mmap.ANON, 0)
	if err != nil {
		return nil, errors.Wrap(err, "mapping executable memory")
	}
	copy(mapping, machineCode)

	return &Code{mapping: mapping}, nil
}

// Bytes exposes the mapped code.
func (c *Code) Bytes() []byte {
	return c.mapping
}

// Release unmaps the code; the program must no longer be invoked.
func (c *Code) Release() error {
	if c.mapping == nil {
		return nil
	}
	err := c.mapping.Unmap()
	c.mapping = nil
	return errors.Wrap(err, "unmapping executable memory")
}
