package shader

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPixelShaderSM3Semantics(t *testing.T) {
	tokens := []uint32{
		ps30Header,
		opToken(OpDcl, 2),
		dclOutputToken(UsageTexCoord, 1),
		dstToken(ParamInput, 2, 0x3),
		opToken(OpDcl, 2),
		dclOutputToken(UsagePosition, 0),
		dstToken(ParamMiscType, 0, 0xF), // vPos
		opToken(OpDcl, 2),
		dclOutputToken(UsagePosition, 0),
		dstToken(ParamMiscType, 1, 0xF), // vFace
		EndToken,
	}

	ps, err := ParsePixelShader(tokens)
	require.NoError(t, err)

	require.Equal(t, Semantic{Usage: uint8(UsageTexCoord), Index: 1}, ps.Semantic[2][0])
	require.Equal(t, Semantic{Usage: uint8(UsageTexCoord), Index: 1}, ps.Semantic[2][1])
	require.False(t, ps.Semantic[2][2].Active())

	require.True(t, ps.VPosDeclared)
	require.True(t, ps.VFaceDeclared)
}

func TestPixelShaderCentroid(t *testing.T) {
	tokens := []uint32{
		ps30Header,
		opToken(OpDcl, 2),
		dclOutputToken(UsageColor, 0),
		dstToken(ParamInput, 0, 0xF) | 0x00400000, // Centroid
		EndToken,
	}

	ps, err := ParsePixelShader(tokens)
	require.NoError(t, err)
	require.True(t, ps.ContainsCentroid())
	require.True(t, ps.Semantic[0][0].Centroid)
}

func TestPixelShaderZOverrideAndKill(t *testing.T) {
	depth := []uint32{
		ps20Header,
		opToken(OpMov, 2),
		dstToken(ParamDepthOut, 0, 0x1),
		srcToken(ParamTemp, 0, SwizzleIdentity),
		EndToken,
	}
	ps, err := ParsePixelShader(depth)
	require.NoError(t, err)
	require.True(t, ps.DepthOverride())
	require.False(t, ps.ContainsTexkill())

	kill := []uint32{
		ps20Header,
		opToken(OpTexKill, 1),
		dstToken(ParamTemp, 0, 0xF),
		EndToken,
	}
	ps, err = ParsePixelShader(kill)
	require.NoError(t, err)
	require.True(t, ps.ContainsTexkill())
	require.False(t, ps.DepthOverride())
}

func TestInterpolantLiveness2DSample(t *testing.T) {
	// dcl_2d s0; texld r0, t0, s0: only .xy of t0 is interpolated.
	tokens := []uint32{
		ps20Header,
		opToken(OpDcl, 2),
		0x80000000 | uint32(Sampler2D)<<27,
		dstToken(ParamSampler, 0, 0xF),
		opToken(OpTex, 3),
		dstToken(ParamTemp, 0, 0xF),
		srcToken(ParamTexture, 0, SwizzleIdentity),
		srcToken(ParamSampler, 0, SwizzleIdentity),
		EndToken,
	}

	ps, err := ParsePixelShader(tokens)
	require.NoError(t, err)

	require.True(t, ps.UsesTexture(0, 0))
	require.True(t, ps.UsesTexture(0, 1))
	require.False(t, ps.UsesTexture(0, 2))
	require.False(t, ps.UsesTexture(0, 3))

	// The diffuse and specular color defaults are dead without readers.
	for c := 0; c < 4; c++ {
		require.False(t, ps.UsesDiffuse(c))
		require.False(t, ps.UsesSpecular(c))
	}
}

func TestInterpolantLivenessMaskedArithmetic(t *testing.T) {
	// mov r0.x, v0.y: only the y component of color 0 stays live.
	tokens := []uint32{
		ps20Header,
		opToken(OpMov, 2),
		dstToken(ParamTemp, 0, 0x1),
		srcToken(ParamInput, 0, 0x55), // .yyyy
		EndToken,
	}

	ps, err := ParsePixelShader(tokens)
	require.NoError(t, err)

	require.False(t, ps.UsesDiffuse(0))
	require.True(t, ps.UsesDiffuse(1))
	require.False(t, ps.UsesDiffuse(2))
	require.False(t, ps.UsesDiffuse(3))
}

func TestInterpolantLivenessDP3(t *testing.T) {
	// dp3 always evaluates .xyz of its sources, whatever the write mask.
	tokens := []uint32{
		ps20Header,
		opToken(OpDP3, 3),
		dstToken(ParamTemp, 0, 0x1),
		srcToken(ParamInput, 0, SwizzleIdentity),
		srcToken(ParamInput, 1, SwizzleIdentity),
		EndToken,
	}

	ps, err := ParsePixelShader(tokens)
	require.NoError(t, err)

	require.True(t, ps.UsesDiffuse(0))
	require.True(t, ps.UsesDiffuse(1))
	require.True(t, ps.UsesDiffuse(2))
	require.False(t, ps.UsesDiffuse(3))

	require.True(t, ps.UsesSpecular(0))
	require.False(t, ps.UsesSpecular(3))
}

// Every opcode that can consume an interpolant source in a pre-2.0 pixel
// shader must have an entry in the liveness table; an uncovered opcode
// would silently fall back to the conservative all-components rule.
func TestInterpolantRuleCoverage(t *testing.T) {
	arithmetic := []Opcode{
		OpMov, OpAdd, OpSub, OpMad, OpMul, OpRcp, OpRsq, OpDP3, OpDP4,
		OpMin, OpMax, OpExp, OpLog, OpLrp, OpFrc, OpCnd, OpCmp, OpAbs,
		OpM4x4, OpM4x3, OpM3x4, OpM3x3, OpM3x2, OpCrs, OpNrm, OpSinCos,
		OpPow, OpDP2Add, OpDsx, OpDsy, OpSetP, OpBreakC,
		OpTexCoord, OpTexKill, OpTexBem, OpTexBemL, OpTexReg2AR,
		OpTexReg2GB, OpTexM3x2Pad, OpTexM3x2Tex, OpTexM3x3Pad,
		OpTexM3x3Tex, OpTexM3x3Spec, OpTexM3x3VSpec, OpTexReg2RGB,
		OpTexDP3Tex, OpTexM3x2Depth, OpTexDP3, OpTexM3x3,
	}

	for _, op := range arithmetic {
		if op == OpTexKill || op == OpTexM3x3Spec || op == OpTexM3x3VSpec {
			continue // Destination-driven rules, handled structurally
		}
		_, ok := interpolantRules[op]
		require.True(t, ok, "no interpolant rule for %s", op)
	}
}
