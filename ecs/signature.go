package ecs

// Op selects how a mask is compared against an entity signature.
type Op uint8

const (
	// MatchAll requires every bit of the mask to be set in the signature.
	MatchAll Op = iota
	// MatchAny requires at least one bit of the mask to be set in the signature.
	MatchAny
)

func (o Op) String() string {
	switch o {
	case MatchAll:
		return "all"
	case MatchAny:
		return "any"
	default:
		return "unknown"
	}
}

// Signature is a bit vector with one bit per component type followed by one bit per tag.
// It is used both for the per-entity membership record and for query masks.
type Signature []byte

func signatureBytes(numBits uint32) uint32 {
	return (numBits + 7) / 8
}

// Test reports whether bit is set
func (s Signature) Test(bit uint32) bool {
	return s[bit>>3]&(1<<(bit&7)) != 0
}

func (s Signature) set(bit uint32, value bool) {
	if value {
		s[bit>>3] |= 1 << (bit & 7)
	} else {
		s[bit>>3] &^= 1 << (bit & 7)
	}
}

func (s Signature) clear() {
	clear(s)
}

// match compares sig against mask byte by byte. numBits is the number of valid bits;
// padding bits in the final byte are ignored on both sides.
func match(sig, mask Signature, numBits uint32, op Op) bool {
	n := len(mask)
	if n == 0 {
		return op == MatchAll
	}

	last := n - 1
	tail := byte(0xFF)
	if rem := numBits & 7; rem != 0 {
		tail = byte(1)<<rem - 1
	}

	if op == MatchAny {
		for i := 0; i < last; i++ {
			if sig[i]&mask[i] != 0 {
				return true
			}
		}
		return sig[last]&mask[last]&tail != 0
	}

	for i := 0; i < last; i++ {
		if sig[i]&mask[i] != mask[i] {
			return false
		}
	}
	m := mask[last] & tail
	return sig[last]&m == m
}

// Filter selects entities that match Include under IncludeOp and do not match Exclude
// under ExcludeOp. A nil Exclude excludes nothing.
type Filter struct {
	Include   Signature
	IncludeOp Op
	Exclude   Signature
	ExcludeOp Op
}

// Without returns a copy of the filter that also rejects entities matching mask under op.
func (f Filter) Without(mask Signature, op Op) Filter {
	f.Exclude = mask
	f.ExcludeOp = op
	return f
}

// signatureIndex stores one Signature per entity slot in a single byte table.
type signatureIndex struct {
	rows              []byte
	stride            uint32
	numBits           uint32
	numComponentTypes uint32
}

func (x *signatureIndex) init(rows []byte, numComponentTypes, numTags uint32) {
	x.rows = rows
	x.numComponentTypes = numComponentTypes
	x.numBits = numComponentTypes + numTags
	x.stride = signatureBytes(x.numBits)
	clear(x.rows)
}

func (x *signatureIndex) row(slot uint32) Signature {
	start := int(slot) * int(x.stride)
	end := start + int(x.stride)
	return Signature(x.rows[start:end:end])
}

func (x *signatureIndex) set(slot, bit uint32, value bool) {
	x.row(slot).set(bit, value)
}

func (x *signatureIndex) test(slot, bit uint32) bool {
	return x.row(slot).Test(bit)
}

func (x *signatureIndex) clear(slot uint32) {
	x.row(slot).clear()
}

func (x *signatureIndex) tagBit(tag TagID) uint32 {
	return x.numComponentTypes + uint32(tag)
}

func (x *signatureIndex) matches(slot uint32, mask Signature, op Op) bool {
	return match(x.row(slot), mask, x.numBits, op)
}

func (x *signatureIndex) qualifies(slot uint32, f Filter) bool {
	if !x.matches(slot, f.Include, f.IncludeOp) {
		return false
	}
	if f.Exclude == nil {
		return true
	}
	return !x.matches(slot, f.Exclude, f.ExcludeOp)
}
