package arglayout

import (
	"unicode/utf8"

	"github.com/iotaledger/hive.go/ierrors"

	"github.com/objectledger/exec-core/pkg/wire"
)

func (l *Layout) read(r *wire.Reader) error {
	switch l.Kind {
	case LayoutBool:
		_, err := r.ReadBool()

		return err

	case LayoutU8:
		_, err := r.ReadBytes(1)

		return err

	case LayoutU16:
		_, err := r.ReadBytes(2)

		return err

	case LayoutU32:
		_, err := r.ReadBytes(4)

		return err

	case LayoutU64:
		_, err := r.ReadBytes(8)

		return err

	case LayoutU128:
		_, err := r.ReadBytes(wire.U128Size)

		return err

	case LayoutU256:
		_, err := r.ReadBytes(wire.U256Size)

		return err

	case LayoutAddress:
		_, err := r.ReadAddress()

		return err

	case LayoutAscii:
		b, err := readStringBytes(r)
		if err != nil {
			return err
		}
		for _, c := range b {
			if c > 0x7f {
				return ierrors.Errorf("byte 0x%02x is not ascii", c)
			}
		}

		return nil

	case LayoutUTF8:
		b, err := readStringBytes(r)
		if err != nil {
			return err
		}
		if !utf8.Valid(b) {
			return ierrors.New("string bytes are not valid utf8")
		}

		return nil

	case LayoutOption:
		some, err := r.ReadOption()
		if err != nil {
			return err
		}
		if !some {
			return nil
		}

		return l.Elem.read(r)

	case LayoutVector:
		count, err := r.ReadLen()
		if err != nil {
			return err
		}
		for i := 0; i < count; i++ {
			if err := l.Elem.read(r); err != nil {
				return ierrors.Wrapf(err, "element %d", i)
			}
		}

		return nil

	default:
		return ierrors.Errorf("unknown layout kind %d", l.Kind)
	}
}

func readStringBytes(r *wire.Reader) ([]byte, error) {
	n, err := r.ReadLen()
	if err != nil {
		return nil, err
	}

	return r.ReadBytes(n)
}
