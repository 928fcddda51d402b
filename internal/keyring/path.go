package keyring

import (
	"fmt"
	"strconv"
	"strings"
)

// HardenedOffset marks a hardened path component.
const HardenedOffset uint32 = 0x80000000

// CoinType is the registered coin type used by every derivation scheme.
const CoinType uint32 = 501

// Path is the binary form of a hierarchical derivation path.
type Path []uint32

// ParsePath converts "m/501'/0'/0'/0'" style strings into a Path.
// An apostrophe suffix marks the component hardened.
func ParsePath(strPath string) (Path, error) {
	if strings.TrimSpace(strPath) == "" {
		return nil, fmt.Errorf("empty derivation path")
	}
	elems := strings.Split(strPath, "/")
	if strings.TrimSpace(elems[0]) == "m" {
		elems = elems[1:]
	}
	if len(elems) == 0 {
		return nil, fmt.Errorf("derivation path has no components")
	}

	path := make(Path, 0, len(elems))
	for _, elem := range elems {
		elem = strings.TrimSpace(elem)
		var offset uint32
		if strings.HasSuffix(elem, "'") {
			offset = HardenedOffset
			elem = strings.TrimSpace(strings.TrimSuffix(elem, "'"))
		}
		value, err := strconv.ParseUint(elem, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid path component %q", elem)
		}
		if uint32(value) >= HardenedOffset {
			return nil, fmt.Errorf("path component %d out of range", value)
		}
		path = append(path, offset+uint32(value))
	}
	return path, nil
}

func (p Path) String() string {
	if len(p) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("m")
	for _, component := range p {
		hardened := component >= HardenedOffset
		if hardened {
			component -= HardenedOffset
		}
		fmt.Fprintf(&b, "/%d", component)
		if hardened {
			b.WriteString("'")
		}
	}
	return b.String()
}

// Hardened reports whether every component carries the hardened bit.
func (p Path) Hardened() bool {
	for _, component := range p {
		if component < HardenedOffset {
			return false
		}
	}
	return len(p) > 0
}

func (p Path) Clone() Path {
	return append(Path(nil), p...)
}
