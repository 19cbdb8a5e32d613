package blueprint

import (
	"encoding/hex"
	"fmt"
	"io"
	"sort"

	"github.com/zeebo/blake3"
)

// ContentHash is a 32-byte BLAKE3 digest of a blueprint's parsed structure.
// Two files whose parsed structure is equivalent hash identically
// regardless of source formatting, so they are one node for cycle
// detection and share one parse-cache slot.
type ContentHash [32]byte

// blueprintDomainKey keys the BLAKE3 hash so blueprint content hashes can
// never collide with hashes computed for other purposes. The bytes are the
// ASCII domain name zero-padded to 32, readable in hex dumps.
var blueprintDomainKey = [32]byte{
	'f', 'l', 'e', 'e', 't', 'f', 'l', 'o', 'w', '.', 'b', 'l', 'u', 'e', 'p', 'r',
	'i', 'n', 't', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

func (h ContentHash) String() string {
	return hex.EncodeToString(h[:8])
}

// hashContent computes the normalized-parse hash of a decoded YAML tree.
func hashContent(v any) ContentHash {
	hasher, err := blake3.NewKeyed(blueprintDomainKey[:])
	if err != nil {
		// The key is a 32-byte constant; NewKeyed can only reject a wrong size.
		panic(err)
	}
	writeCanonical(hasher, v)
	var out ContentHash
	copy(out[:], hasher.Sum(nil))
	return out
}

// writeCanonical feeds a deterministic, type-tagged encoding of the tree to
// the hasher: map keys are sorted, every value is prefixed with a type tag
// and strings with their length, so distinct structures cannot produce the
// same byte stream.
func writeCanonical(w io.Writer, v any) {
	switch val := v.(type) {
	case nil:
		io.WriteString(w, "z")
	case bool:
		if val {
			io.WriteString(w, "b1")
		} else {
			io.WriteString(w, "b0")
		}
	case string:
		fmt.Fprintf(w, "s%d:%s", len(val), val)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		fmt.Fprintf(w, "i%v", val)
	case float32, float64:
		fmt.Fprintf(w, "f%v", val)
	case []any:
		fmt.Fprintf(w, "l%d", len(val))
		for _, elem := range val {
			writeCanonical(w, elem)
		}
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Fprintf(w, "m%d", len(val))
		for _, k := range keys {
			fmt.Fprintf(w, "s%d:%s", len(k), k)
			writeCanonical(w, val[k])
		}
	case map[any]any:
		normalized := make(map[string]any, len(val))
		for k, elem := range val {
			normalized[fmt.Sprintf("%v", k)] = elem
		}
		writeCanonical(w, normalized)
	default:
		// Rare YAML scalars (timestamps, binary) fall back to their Go
		// string form; still deterministic for equal parses.
		fmt.Fprintf(w, "o%T:%v", val, val)
	}
}
