package flash

import (
	"io"

	"github.com/xaionaro-go/bytesextra"
)

// Simulator is an in-process stand-in for the real HAL flash driver, used by
// tests and by the cmd/configvolctl tool. It implements Programmer directly
// against a byte slice instead of real flash registers; Unlock/Lock are
// no-ops and ErasePage fills the page with 0xFF instead of taking tens of
// milliseconds, but the offset arithmetic is identical to the real thing.
type Simulator struct {
	geom Geometry
	data []byte
}

// NewSimulator creates a Simulator and the raw backing array a Store should
// read from, pre-populated with zero bytes (an unformatted chip; this is not
// the 0xFF state ErasePage leaves behind).
func NewSimulator(geom Geometry) (*Simulator, []byte) {
	data := make([]byte, geom.ImageBytes)
	return &Simulator{geom: geom, data: data}, data
}

func (s *Simulator) Unlock() error { return nil }
func (s *Simulator) Lock() error   { return nil }

func (s *Simulator) ErasePage(pageID uint) error {
	start := pageID * s.geom.PageBytes
	end := start + s.geom.PageBytes
	if end > uint(len(s.data)) {
		end = uint(len(s.data))
	}
	for i := start; i < end; i++ {
		s.data[i] = 0xFF
	}
	return nil
}

func (s *Simulator) ProgramHalfword(address uint32, data uint16) error {
	offset := address - s.geom.BaseAddress
	s.data[offset] = byte(data)
	s.data[offset+1] = byte(data >> 8)
	return nil
}

// Stream exposes the simulated chip as an io.ReadWriteSeeker, the same
// pattern github.com/dargueta/disko/testing.LoadDiskImage uses to hand test
// code a seekable view over an in-memory image via
// github.com/xaionaro-go/bytesextra. Useful for dumping the simulated chip
// contents to a file for offline inspection.
func (s *Simulator) Stream() io.ReadWriteSeeker {
	return bytesextra.NewReadWriteSeeker(s.data)
}
