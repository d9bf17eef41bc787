package cvtest

const (
	coffFileHeaderLen    = 20
	coffSectionHeaderLen = 40
	coffMachineAMD64     = 0x8664
	// debug/pe always reads a DOS header sized prefix.
	coffMinSize = 96
)

// Section is a named COFF section, names longer than 8 bytes are not
// supported.
type Section struct {
	Name string
	Data []byte
}

// COFFObject lays out minimal AMD64 COFF object with given sections and no
// symbols or relocations.
func COFFObject(sections ...Section) []byte {
	dataOff := coffFileHeaderLen + coffSectionHeaderLen*len(sections)

	var b []byte
	b = u16(b, coffMachineAMD64)
	b = u16(b, uint16(len(sections)))
	b = u32(b, 0) // timestamp
	b = u32(b, 0) // symbol table
	b = u32(b, 0) // symbols
	b = u16(b, 0) // optional header
	b = u16(b, 0) // characteristics

	var data []byte
	for _, s := range sections {
		var name [8]byte
		copy(name[:], s.Name)
		b = append(b, name[:]...)
		b = u32(b, 0)
		b = u32(b, 0)
		b = u32(b, uint32(len(s.Data)))
		b = u32(b, uint32(dataOff+len(data)))
		b = u32(b, 0)
		b = u32(b, 0)
		b = u16(b, 0)
		b = u16(b, 0)
		b = u32(b, 0x42100040) // initialized data, discardable, readable
		data = append(data, s.Data...)
	}
	b = append(b, data...)
	for len(b) < coffMinSize {
		b = append(b, 0)
	}
	return b
}
