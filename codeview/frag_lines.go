package codeview

const (
	lineHeaderLen      = 12
	lineBlockHeaderLen = 12
	lineEntryLen       = 8
	columnEntryLen     = 4

	// LineFlagHaveColumns is set in LineHeader.Flags when every block
	// carries column entries after its line entries.
	LineFlagHaveColumns = 0x1

	lineStartMask     = 0x00ffffff
	lineEndDeltaMask  = 0x7f000000
	lineEndDeltaShift = 24
	lineStatementFlag = 0x80000000
)

// LineHeader describes code range line information belongs to.
type LineHeader struct {
	RelocOffset  uint32
	RelocSegment uint16
	Flags        uint16
	CodeSize     uint32
}

// HasColumns reports whether blocks carry column entries.
func (h LineHeader) HasColumns() bool {
	return h.Flags&LineFlagHaveColumns != 0
}

// LineEntry maps code offset to a source line.
type LineEntry struct {
	Offset uint32
	Flags  uint32
}

// Start returns first source line of the entry.
func (e LineEntry) Start() uint32 {
	return e.Flags & lineStartMask
}

// End returns last source line of the entry.
func (e LineEntry) End() uint32 {
	return e.Start() + (e.Flags&lineEndDeltaMask)>>lineEndDeltaShift
}

// IsStatement reports whether entry starts a statement rather than an expression.
func (e LineEntry) IsStatement() bool {
	return e.Flags&lineStatementFlag != 0
}

// ColumnEntry holds column range for the line entry with the same index.
type ColumnEntry struct {
	Start uint16
	End   uint16
}

// LineBlock is the set of line entries contributed by a single source file.
// NameIndex is the offset of the file entry in the file checksums fragment.
type LineBlock struct {
	NameIndex uint32
	Lines     []LineEntry
	Columns   []ColumnEntry
}

// LineFragment is the decoded view of KindLines fragment.
//
// Layout is fully validated by DecodeLines, blocks are materialized on first
// call to Blocks and cached on the view, so handlers which look at blocks
// more than once do not decode again. View aliases record payload.
type LineFragment struct {
	Header LineHeader

	data      []byte
	blockOffs []int
	blocks    []LineBlock
}

// DecodeLines validates payload of KindLines fragment.
func DecodeLines(data []byte) (*LineFragment, error) {
	c := cursor{data: data}
	if c.remaining() < lineHeaderLen {
		return nil, malformed(KindLines, "header needs %d bytes, have %d", lineHeaderLen, c.remaining())
	}

	f := &LineFragment{data: data}
	f.Header.RelocOffset, _ = c.u32()
	f.Header.RelocSegment, _ = c.u16()
	f.Header.Flags, _ = c.u16()
	f.Header.CodeSize, _ = c.u32()

	entryLen := uint64(lineEntryLen)
	if f.Header.HasColumns() {
		entryLen += columnEntryLen
	}

	for !c.empty() {
		start := c.off
		if c.remaining() < lineBlockHeaderLen {
			return nil, malformed(KindLines, "truncated block header at offset %d", start)
		}
		nameIndex, _ := c.u32()
		numLines, _ := c.u32()
		blockSize, _ := c.u32()

		want := lineBlockHeaderLen + uint64(numLines)*entryLen
		if uint64(blockSize) != want {
			return nil, malformed(KindLines, "block for file %d at offset %d has size %d, %d lines need %d",
				nameIndex, start, blockSize, numLines, want)
		}
		if _, err := c.bytes(int(blockSize) - lineBlockHeaderLen); err != nil {
			return nil, malformed(KindLines, "block for file %d at offset %d: %v", nameIndex, start, err)
		}
		f.blockOffs = append(f.blockOffs, start)
	}
	return f, nil
}

// Size returns payload size in bytes.
func (f *LineFragment) Size() int {
	return len(f.data)
}

// NumBlocks returns number of file blocks without materializing them.
func (f *LineFragment) NumBlocks() int {
	return len(f.blockOffs)
}

// Blocks returns file blocks in fragment order.
func (f *LineFragment) Blocks() []LineBlock {
	if f.blocks != nil || len(f.blockOffs) == 0 {
		return f.blocks
	}
	blocks := make([]LineBlock, 0, len(f.blockOffs))
	for _, off := range f.blockOffs {
		blocks = append(blocks, f.readBlock(off))
	}
	f.blocks = blocks
	return f.blocks
}

// readBlock materializes block at already validated offset.
func (f *LineFragment) readBlock(off int) LineBlock {
	c := cursor{data: f.data, off: off}
	var b LineBlock
	b.NameIndex, _ = c.u32()
	n, _ := c.u32()
	_, _ = c.u32()

	b.Lines = make([]LineEntry, n)
	for i := range b.Lines {
		b.Lines[i].Offset, _ = c.u32()
		b.Lines[i].Flags, _ = c.u32()
	}
	if f.Header.HasColumns() {
		b.Columns = make([]ColumnEntry, n)
		for i := range b.Columns {
			b.Columns[i].Start, _ = c.u16()
			b.Columns[i].End, _ = c.u16()
		}
	}
	return b
}
