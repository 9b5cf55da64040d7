package debug

import (
	"fmt"
	"io"
	"os"

	"github.com/bradleyjkemp/memviz"

	"github.com/kazuhito-m/nes-emulator-study/internal/emulator"
)

// Snapshot is what a memviz dump shows: the machine state and the zero page.
type Snapshot struct {
	Info     emulator.EmuInfo
	ZeroPage [0x100]uint8
	Stack    [0x100]uint8
}

// TakeSnapshot reads the state of e without side effects.
func TakeSnapshot(e *emulator.Emulator) (*Snapshot, error) {
	s := &Snapshot{Info: e.GetEmuInfo()}
	for i := range s.ZeroPage {
		v, err := e.ReadMemory(uint16(i))
		if err != nil {
			return nil, err
		}
		s.ZeroPage[i] = v
	}
	for i := range s.Stack {
		v, err := e.ReadMemory(0x100 + uint16(i))
		if err != nil {
			return nil, err
		}
		s.Stack[i] = v
	}
	return s, nil
}

// WriteSnapshot renders s as a Graphviz dot graph.
func WriteSnapshot(w io.Writer, s *Snapshot) {
	memviz.Map(w, s)
}

// DumpSnapshot takes a snapshot of e and writes it to path as dot.
func DumpSnapshot(path string, e *emulator.Emulator) error {
	s, err := TakeSnapshot(e)
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	WriteSnapshot(f, s)
	return f.Close()
}
