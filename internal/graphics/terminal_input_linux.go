//go:build linux

package graphics

import (
	"fmt"
	"os"

	"github.com/pkg/term/termios"
	"golang.org/x/sys/unix"
)

// keyboard reads stdin in cbreak mode so single key presses arrive
// without Enter and are not echoed.
type keyboard struct {
	in        *os.File
	canonAttr unix.Termios
}

func openKeyboard(in *os.File) (*keyboard, error) {
	kb := &keyboard{in: in}
	if err := termios.Tcgetattr(in.Fd(), &kb.canonAttr); err != nil {
		return nil, fmt.Errorf("read terminal attributes: %w", err)
	}
	cbreak := kb.canonAttr
	termios.Cfmakecbreak(&cbreak)
	if err := termios.Tcsetattr(in.Fd(), termios.TCSANOW, &cbreak); err != nil {
		return nil, fmt.Errorf("enter cbreak mode: %w", err)
	}
	return kb, nil
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
	return termios.Tcsetattr(kb.in.Fd(), termios.TCSANOW, &kb.canonAttr)
}
