package shader

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComposeSwizzleIdentity(t *testing.T) {
	for s := 0; s < 256; s++ {
		require.Equal(t, uint8(s), ComposeSwizzle(uint8(s), SwizzleIdentity))
		require.Equal(t, uint8(s), ComposeSwizzle(SwizzleIdentity, uint8(s)))
	}
}

func TestComposeSwizzleAssociative(t *testing.T) {
	// Strides of 7, 11 and 13 sample the swizzle space to keep the loop small.
	for a := 0; a < 256; a += 7 {
		for b := 0; b < 256; b += 11 {
			for c := 0; c < 256; c += 13 {
				left := ComposeSwizzle(ComposeSwizzle(uint8(a), uint8(b)), uint8(c))
				right := ComposeSwizzle(uint8(a), ComposeSwizzle(uint8(b), uint8(c)))
				require.Equal(t, left, right, "a=%#x b=%#x c=%#x", a, b, c)
			}
		}
	}
}

func TestComposeSwizzleSelects(t *testing.T) {
	// left ∘ right selects left[right[i]] per lane.
	left := uint8(0x1B)  // .wzyx
	right := uint8(0x00) // .xxxx
	require.Equal(t, uint8(0xFF), ComposeSwizzle(left, right))

	require.Equal(t, 3, SwizzleElement(0x1B, 0))
	require.Equal(t, 0, SwizzleElement(0x1B, 3))
}

func TestSwizzleContainsComponent(t *testing.T) {
	require.True(t, SwizzleContainsComponent(SwizzleIdentity, 2))
	require.False(t, SwizzleContainsComponent(0x00, 2)) // .xxxx never reads z

	// Masked variant only considers write-enabled lanes.
	require.True(t, SwizzleContainsComponentMasked(SwizzleIdentity, 1, 0x2))
	require.False(t, SwizzleContainsComponentMasked(SwizzleIdentity, 1, 0x1))
}

func TestMaskContainsComponent(t *testing.T) {
	require.True(t, MaskContainsComponent(0xF, 3))
	require.False(t, MaskContainsComponent(0x7, 3))
}

func TestReplicateSwizzle(t *testing.T) {
	require.Equal(t, uint8(0x00), ReplicateSwizzle(0))
	require.Equal(t, uint8(0x55), ReplicateSwizzle(1))
	require.Equal(t, uint8(0xAA), ReplicateSwizzle(2))
	require.Equal(t, uint8(0xFF), ReplicateSwizzle(3))
}
