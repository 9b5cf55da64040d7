//go:build !linux

package graphics

import "os"

// keyboard reads stdin as is; without termios keys arrive after Enter.
type keyboard struct {
	in *os.File
}

func openKeyboard(in *os.File) (*keyboard, error) {
	return &keyboard{in: in}, nil
}

func (kb *keyboard) run(feed func([]byte)) {
	buf := make([]byte, 16)
	for {
		n, err := kb.in.Read(buf)
		if err != nil {
			return
		}
		feed(buf[:n])
	}
}

func (kb *keyboard) restore() error {
	return nil
}
