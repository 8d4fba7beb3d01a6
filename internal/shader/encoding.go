package shader

// SwizzleIdentity selects .xyzw: four 2-bit lane selectors, x=00 y=01 z=10 w=11.
const SwizzleIdentity = 0xE4

// SwizzleElement returns the lane selected for component index of swizzle.
func SwizzleElement(swizzle uint8, index int) int {
	return int(swizzle>>(index*2)) & 0x03
}

// ComposeSwizzle applies right then left: the result selects
// left[right[i]] for each lane i.
func ComposeSwizzle(left, right uint8) uint8 {
	return uint8(SwizzleElement(left, SwizzleElement(right, 0))<<0 |
		SwizzleElement(left, SwizzleElement(right, 1))<<2 |
		SwizzleElement(left, SwizzleElement(right, 2))<<4 |
		SwizzleElement(left, SwizzleElement(right, 3))<<6)
}

// MaskContainsComponent reports whether the write mask enables component.
func MaskContainsComponent(mask, component int) bool {
	return mask&(1<<component) != 0
}

// SwizzleContainsComponent reports whether any lane of swizzle selects component.
func SwizzleContainsComponent(swizzle, component int) bool {
	return SwizzleContainsComponentMasked(swizzle, component, 0xF)
}

// SwizzleContainsComponentMasked reports whether a mask-enabled lane of
// swizzle selects component.
func SwizzleContainsComponentMasked(swizzle, component, mask int) bool {
	for lane := 0; lane < 4; lane++ {
		if mask&(1<<lane) != 0 && SwizzleElement(uint8(swizzle), lane) == component {
			return true
		}
	}
	return false
}

// ReplicateSwizzle returns the swizzle broadcasting a single lane.
func ReplicateSwizzle(lane int) uint8 {
	return uint8(lane) * 0x55
}

const (
	fnvOffsetBasis uint64 = 0xCBF29CE484222325
	fnvPrime       uint64 = 0x100000001B3
)

// fnv1 hashes the token words with 64-bit FNV-1, little-endian byte order.
func fnv1(tokens []uint32) int64 {
	hash := fnvOffsetBasis
	for _, tok := range tokens {
		for b := 0; b < 4; b++ {
			hash = hash * fnvPrime
			hash = hash ^ uint64(tok>>(8*b)&0xFF)
		}
	}
	return int64(hash)
}
