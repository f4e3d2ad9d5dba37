package reader

import "github.com/vertexdlt/wasmlink/wasm"

func (r *reader) readCodeSection() error {
	n, err := r.c.readU32LEB("code count")
	if err != nil {
		return err
	}
	if err := r.h.OnCodeCount(n); err != nil {
		return err
	}
	if n != r.counts.funcs {
		return r.c.errf("code section declares %d bodies, function section declared %d", n, r.counts.funcs)
	}
	for i := uint32(0); i < n; i++ {
		funcIdx := r.counts.funcImports + i
		if err := r.readFunctionBody(funcIdx); err != nil {
			return err
		}
	}
	return nil
}

func (r *reader) readFunctionBody(funcIdx uint32) error {
	bodySize, err := r.c.readU32LEB("function body size")
	if err != nil {
		return err
	}
	bodyStart := r.c.offset()
	bodyEnd := bodyStart + bodySize
	if uint32(r.c.remaining())+bodyStart < bodyEnd {
		return r.c.errf("function body declares size %d past end of code section", bodySize)
	}

	if err := r.h.BeginFunctionBody(funcIdx, bodySize); err != nil {
		return err
	}

	groupCount, err := r.c.readU32LEB("local decl count")
	if err != nil {
		return err
	}
	if err := r.h.OnLocalDeclCount(groupCount); err != nil {
		return err
	}
	for g := uint32(0); g < groupCount; g++ {
		count, err := r.c.readU32LEB("local group count")
		if err != nil {
			return err
		}
		b, err := r.c.readByte()
		if err != nil {
			return err
		}
		vt, ok := wasm.DecodeValueType(b)
		if !ok {
			return r.c.errf("invalid local value type 0x%02x", b)
		}
		if err := r.h.OnLocalDecl(g, wasm.LocalGroup{Count: count, Type: vt}); err != nil {
			return err
		}
	}

	sawEnd := false
	for r.c.offset() < bodyEnd {
		instrOffset := r.c.offset() - bodyStart
		opByte, err := r.c.readByte()
		if err != nil {
			return err
		}
		instr, err := r.decodeInstruction(opByte, instrOffset)
		if err != nil {
			return err
		}
		if err := r.h.OnInstruction(instr); err != nil {
			return err
		}
		sawEnd = opByte == 0x0B
	}
	if r.c.offset() != bodyEnd {
		return r.c.errf("function body %d: declared size %d but decoded %d bytes", funcIdx, bodySize, r.c.offset()-bodyStart)
	}
	if !sawEnd {
		return r.c.errf("function body %d does not end with the end opcode", funcIdx)
	}

	return r.h.EndFunctionBody(funcIdx)
}
