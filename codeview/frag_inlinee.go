package codeview

const (
	// InlineeSignatureNormal marks entries without extra files.
	InlineeSignatureNormal = 0
	// InlineeSignatureExtraFiles marks entries followed by extra file lists.
	InlineeSignatureExtraFiles = 1
)

// InlineeSite tells where inlined function is defined.
type InlineeSite struct {
	// Inlinee is the type index of the inlined function id record.
	Inlinee uint32
	// FileID is the offset of the file entry in the file checksums fragment.
	FileID     uint32
	SourceLine uint32
	ExtraFiles []uint32
}

// InlineeLinesFragment is the decoded view of KindInlineeLines fragment.
// Sites are decoded eagerly, the fragment is small and rarely revisited.
type InlineeLinesFragment struct {
	Signature uint32
	Sites     []InlineeSite

	size int
}

// Size returns payload size in bytes.
func (f *InlineeLinesFragment) Size() int {
	return f.size
}

// HasExtraFiles reports whether sites carry extra file lists.
func (f *InlineeLinesFragment) HasExtraFiles() bool {
	return f.Signature == InlineeSignatureExtraFiles
}

// DecodeInlineeLines validates and decodes payload of KindInlineeLines fragment.
func DecodeInlineeLines(data []byte) (*InlineeLinesFragment, error) {
	c := cursor{data: data}
	sig, err := c.u32()
	if err != nil {
		return nil, malformed(KindInlineeLines, "missing signature")
	}
	if sig != InlineeSignatureNormal && sig != InlineeSignatureExtraFiles {
		return nil, malformed(KindInlineeLines, "unknown signature %d", sig)
	}

	f := &InlineeLinesFragment{Signature: sig, size: len(data)}
	for !c.empty() {
		start := c.off
		var s InlineeSite
		if c.remaining() < 12 {
			return nil, malformed(KindInlineeLines, "truncated site at offset %d", start)
		}
		s.Inlinee, _ = c.u32()
		s.FileID, _ = c.u32()
		s.SourceLine, _ = c.u32()
		if f.HasExtraFiles() {
			n, err := c.u32()
			if err != nil {
				return nil, malformed(KindInlineeLines, "site at offset %d: missing extra file count", start)
			}
			if uint64(n)*4 > uint64(c.remaining()) {
				return nil, malformed(KindInlineeLines, "site at offset %d: %d extra files do not fit", start, n)
			}
			s.ExtraFiles = make([]uint32, n)
			for i := range s.ExtraFiles {
				s.ExtraFiles[i], _ = c.u32()
			}
		}
		f.Sites = append(f.Sites, s)
	}
	return f, nil
}
