package shader

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func dclOutputToken(usage Usage, usageIndex uint8) uint32 {
	return 0x80000000 | uint32(usage) | uint32(usageIndex)<<16
}

func TestVertexShaderSM3Declarations(t *testing.T) {
	tokens := []uint32{
		vs30Header,
		opToken(OpDcl, 2),
		dclOutputToken(UsagePosition, 0),
		dstToken(ParamOutput, 3, 0xF),
		opToken(OpDcl, 2),
		dclOutputToken(UsagePSize, 0),
		dstToken(ParamOutput, 5, 0x2),
		opToken(OpDcl, 2),
		dclOutputToken(UsageTexCoord, 2),
		dstToken(ParamOutput, 1, 0x3),
		opToken(OpDcl, 2),
		dclOutputToken(UsageNormal, 0),
		dstToken(ParamInput, 4, 0xF),
		EndToken,
	}

	vs, err := ParseVertexShader(tokens)
	require.NoError(t, err)

	require.Equal(t, 3, vs.PositionRegister)
	require.Equal(t, 5, vs.PointSizeRegister)

	for c := 0; c < 4; c++ {
		require.Equal(t, Semantic{Usage: uint8(UsagePosition)}, vs.Output[3][c])
	}

	// Point size is declared with a y-only mask.
	require.False(t, vs.Output[5][0].Active())
	require.Equal(t, Semantic{Usage: uint8(UsagePSize)}, vs.Output[5][1])

	require.Equal(t, Semantic{Usage: uint8(UsageTexCoord), Index: 2}, vs.Output[1][0])
	require.Equal(t, Semantic{Usage: uint8(UsageTexCoord), Index: 2}, vs.Output[1][1])
	require.False(t, vs.Output[1][2].Active())

	require.Equal(t, Semantic{Usage: uint8(UsageNormal)}, vs.Input[4])
	require.False(t, vs.Input[0].Active())
}

func TestVertexShaderLegacyOutputs(t *testing.T) {
	tokens := []uint32{
		vs11Header,
		uint32(OpMov), // mov oPos, v0
		dstToken(ParamRastOut, 0, 0xF),
		srcToken(ParamInput, 0, SwizzleIdentity),
		uint32(OpMov), // mov oD0.xyz, v1
		dstToken(ParamAttrOut, 0, 0x7),
		srcToken(ParamInput, 1, SwizzleIdentity),
		uint32(OpMov), // mov oT2, v2
		dstToken(ParamTexCrdOut, 2, 0xF),
		srcToken(ParamInput, 2, SwizzleIdentity),
		EndToken,
	}

	vs, err := ParseVertexShader(tokens)
	require.NoError(t, err)

	require.Equal(t, outPos, vs.PositionRegister)
	require.Equal(t, -1, vs.PointSizeRegister)

	for c := 0; c < 4; c++ {
		require.Equal(t, Semantic{Usage: uint8(UsagePosition)}, vs.Output[outPos][c])
	}

	require.Equal(t, Semantic{Usage: uint8(UsageColor), Index: 0}, vs.Output[outD0][0])
	require.Equal(t, Semantic{Usage: uint8(UsageColor), Index: 0}, vs.Output[outD0][2])
	require.False(t, vs.Output[outD0][3].Active())

	require.Equal(t, Semantic{Usage: uint8(UsageTexCoord), Index: 2}, vs.Output[outT0+2][0])
}

func TestVertexShaderTexldl(t *testing.T) {
	tokens := []uint32{
		vs30Header,
		opToken(OpTexLdl, 3),
		dstToken(ParamTemp, 0, 0xF),
		srcToken(ParamTemp, 1, SwizzleIdentity),
		srcToken(ParamSampler, 0, SwizzleIdentity),
		EndToken,
	}

	vs, err := ParseVertexShader(tokens)
	require.NoError(t, err)
	require.True(t, vs.ContainsTexldl())
	require.True(t, vs.UsesSampler(0))
}
