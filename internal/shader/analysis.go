package shader

func (s *Shader) analyzeDirtyConstants() {
	for _, inst := range s.instructions {
		switch inst.Opcode {
		case OpDef:
			if inst.Dst.Index+1 > s.DirtyConstantsF {
				s.DirtyConstantsF = inst.Dst.Index + 1
			}
		case OpDefI:
			if inst.Dst.Index+1 > s.DirtyConstantsI {
				s.DirtyConstantsI = inst.Dst.Index + 1
			}
		case OpDefB:
			if inst.Dst.Index+1 > s.DirtyConstantsB {
				s.DirtyConstantsB = inst.Dst.Index + 1
			}
		}
	}
}

func (s *Shader) analyzeDynamicBranching() {
	for _, inst := range s.instructions {
		switch inst.Opcode {
		case OpCallNZ, OpIf, OpIfC, OpBreak, OpBreakC, OpSetP, OpBreakP:
			if inst.Src[0].Type != ParamConstBool {
				s.dynamicBranching = true
				return
			}
		}
	}
}

func (s *Shader) analyzeSamplers() {
	for _, inst := range s.instructions {
		if !inst.Opcode.IsSample() {
			continue
		}
		if s.MajorVersion() >= 2 {
			s.samplerMask |= 1 << inst.Src[1].Index
		} else {
			s.samplerMask |= 1 << inst.Dst.Index
		}
	}
}
