package glsl

import (
	"fmt"

	"github.com/swrast/swrast/internal/shader"
)

// variableArray is one register file: each slot holds the identifier
// occupying it, nil marking a free slot. Multi-register identifiers occupy
// consecutive slots.
type variableArray []*Node

// lookup returns the first register of variable, or -1. Identity is
// pointer equality, falling back to symbol-ID equality so distinct
// references to one declaration share registers.
func (e *Emitter) lookup(list variableArray, variable *Node) int {
	for i, v := range list {
		if v == variable {
			return i
		}
	}

	if symbol := variable.AsSymbol(); symbol != nil {
		for i, v := range list {
			if v == nil {
				continue
			}
			if s := v.AsSymbol(); s != nil && s.ID == symbol.ID {
				return i
			}
		}
	}

	return -1
}

// allocate finds the first free run long enough for variable, or grows the
// file.
func (e *Emitter) allocate(list *variableArray, variable *Node) int {
	if index := e.lookup(*list, variable); index != -1 {
		return index
	}

	registerCount := variable.TotalRegisterCount()

	for i := 0; i < len(*list); i++ {
		if (*list)[i] != nil {
			continue
		}
		run := 1
		for ; run < registerCount && i+run < len(*list); run++ {
			if (*list)[i+run] != nil {
				break
			}
		}
		if run == registerCount {
			for j := 0; j < registerCount; j++ {
				(*list)[i+j] = variable
			}
			return i
		}
	}

	index := len(*list)
	for i := 0; i < registerCount; i++ {
		*list = append(*list, variable)
	}
	return index
}

// release frees the register run held by variable.
func (e *Emitter) release(list variableArray, variable *Node) {
	index := e.lookup(list, variable)
	if index < 0 {
		return
	}
	occupant := list[index]
	registerCount := variable.TotalRegisterCount()
	for i := 0; i < registerCount && index+i < len(list); i++ {
		if list[index+i] == occupant {
			list[index+i] = nil
		}
	}
}

func (e *Emitter) temporaryRegister(temporary *Node) int {
	return e.allocate(&e.temporaries, temporary)
}

func (e *Emitter) varyingRegister(varying *Node) int {
	reg := e.lookup(e.varyings, varying)
	if reg != -1 {
		return reg
	}

	reg = e.allocate(&e.varyings, varying)
	componentCount := varying.NominalSize()
	registerCount := varying.TotalRegisterCount()

	if e.pixelShader != nil {
		if reg+registerCount > shader.MaxInputVaryings {
			e.ctx.Error(varying.Line, "Varyings packing failed: Too many varyings", "fragment shader")
			return 0
		}

		if varying.Type.Qualifier == QualPointCoord {
			for c := 0; c < componentCount; c++ {
				e.pixelShader.Semantic[reg][c] = shader.Semantic{Usage: uint8(shader.UsageTexCoord), Index: uint8(reg)}
			}
		} else {
			for i := 0; i < registerCount; i++ {
				for c := 0; c < componentCount; c++ {
					e.pixelShader.Semantic[reg+i][c] = shader.Semantic{Usage: uint8(shader.UsageColor), Index: uint8(reg + i)}
				}
			}
		}
	} else if e.vertexShader != nil {
		if reg+registerCount > shader.MaxOutputVaryings {
			e.ctx.Error(varying.Line, "Varyings packing failed: Too many varyings", "vertex shader")
			return 0
		}

		switch varying.Type.Qualifier {
		case QualPosition:
			for c := 0; c < 4; c++ {
				e.vertexShader.Output[reg][c] = shader.Semantic{Usage: uint8(shader.UsagePosition)}
			}
			e.vertexShader.PositionRegister = reg
		case QualPointSize:
			for c := 0; c < 4; c++ {
				e.vertexShader.Output[reg][c] = shader.Semantic{Usage: uint8(shader.UsagePSize)}
			}
			e.vertexShader.PointSizeRegister = reg
		default:
			// Semantic indexes for user varyings are assigned at program
			// link to match the pixel shader.
		}
	}

	e.declareVarying(varying, reg)

	return reg
}

func (e *Emitter) declareVarying(varying *Node, reg int) {
	if varying.Type.Qualifier == QualPointCoord {
		return // gl_PointCoord does not need linking
	}

	name := varying.Name
	if symbol := varying.AsSymbol(); symbol != nil {
		name = symbol.Name
	}

	// The varying may have been declared before a register was assigned.
	for i := range e.reflection.Varyings {
		if e.reflection.Varyings[i].Name == name {
			if reg >= 0 {
				e.reflection.Varyings[i].Register = reg
			}
			return
		}
	}

	e.reflection.Varyings = append(e.reflection.Varyings, Varying{
		Type:      variableType(&varying.Type),
		Name:      name,
		ArraySize: varying.Type.ArraySize,
		Register:  reg,
		Column:    0,
	})
}

func (e *Emitter) uniformRegister(uniform *Node) int {
	symbol := uniform.AsSymbol()
	if symbol == nil {
		return 0
	}

	index := e.lookup(e.uniforms, uniform)
	if index == -1 {
		index = e.allocate(&e.uniforms, uniform)
		e.declareUniform(&uniform.Type, symbol.Name, index)
	}

	return index
}

func (e *Emitter) attributeRegister(attribute *Node) int {
	index := e.lookup(e.attributes, attribute)
	if index != -1 {
		return index
	}

	symbol := attribute.AsSymbol()
	if symbol == nil {
		return 0
	}

	index = e.allocate(&e.attributes, attribute)
	registerCount := attribute.TotalRegisterCount()

	if e.vertexShader != nil {
		if index+registerCount > shader.MaxInputAttributes {
			e.ctx.Error(attribute.Line, "Too many vertex attributes", symbol.Name)
			return 0
		}
		for i := 0; i < registerCount; i++ {
			e.vertexShader.Input[index+i] = shader.Semantic{Usage: uint8(shader.UsageTexCoord), Index: uint8(index + i)}
		}
	}

	e.reflection.Attributes = append(e.reflection.Attributes, Attribute{
		Type:          variableType(&attribute.Type),
		Name:          symbol.Name,
		ArraySize:     attribute.Type.ArraySize,
		RegisterIndex: index,
	})

	return index
}

func (e *Emitter) samplerRegister(sampler *Node) int {
	if symbol := sampler.AsSymbol(); symbol != nil {
		index := e.lookup(e.samplers, sampler)
		if index == -1 {
			index = e.allocate(&e.samplers, sampler)
			e.reflection.Uniforms = append(e.reflection.Uniforms, Uniform{
				Type:          variableType(&sampler.Type),
				Precision:     variablePrecision(&sampler.Type),
				Name:          symbol.Name,
				ArraySize:     sampler.Type.ArraySize,
				RegisterIndex: index,
			})
			for i := 0; i < sampler.TotalRegisterCount(); i++ {
				e.shader.DeclareSampler(index + i)
			}
		}
		return index
	}

	if binary := sampler.AsBinary(); binary != nil {
		// Indexing a sampler array; the element offset is added by the
		// argument resolver.
		return e.samplerRegister(binary.Left)
	}

	return 0
}

func (e *Emitter) fragmentOutputRegister(output *Node) int {
	return e.allocate(&e.fragmentOutputs, output)
}

// declareUniform flattens struct and array composition into reflected
// entries named name[i].field.
func (e *Emitter) declareUniform(t *Type, name string, index int) {
	if !t.IsStruct() {
		e.reflection.Uniforms = append(e.reflection.Uniforms, Uniform{
			Type:          variableType(t),
			Precision:     variablePrecision(t),
			Name:          name,
			ArraySize:     t.ArraySize,
			RegisterIndex: index,
		})
		return
	}

	if t.IsArray() {
		elementIndex := index
		for i := 0; i < t.ArraySize; i++ {
			for j := range t.Fields {
				fieldType := t.Fields[j].Type
				e.declareUniform(fieldType, fmt.Sprintf("%s[%d].%s", name, i, t.Fields[j].Name), elementIndex)
				elementIndex += fieldType.TotalRegisterCount()
			}
		}
		return
	}

	fieldIndex := index
	for j := range t.Fields {
		fieldType := t.Fields[j].Type
		e.declareUniform(fieldType, name+"."+t.Fields[j].Name, fieldIndex)
		fieldIndex += fieldType.TotalRegisterCount()
	}
}
