package codeview

import (
	"fmt"
	"slices"
)

const checksumEntryHeaderLen = 6

// ChecksumKind identifies algorithm used for file checksum.
type ChecksumKind uint8

const (
	ChecksumNone   ChecksumKind = 0
	ChecksumMD5    ChecksumKind = 1
	ChecksumSHA1   ChecksumKind = 2
	ChecksumSHA256 ChecksumKind = 3
)

func (k ChecksumKind) String() string {
	switch k {
	case ChecksumNone:
		return "none"
	case ChecksumMD5:
		return "md5"
	case ChecksumSHA1:
		return "sha1"
	case ChecksumSHA256:
		return "sha256"
	default:
		return fmt.Sprintf("checksum(%d)", uint8(k))
	}
}

// FileChecksum is a single entry of the file checksums fragment.
type FileChecksum struct {
	// Offset of this entry inside the fragment, line blocks refer to files
	// by it.
	Offset uint32
	// FileNameOffset is the offset of the file name in the string table.
	FileNameOffset uint32
	Kind           ChecksumKind
	// Checksum aliases fragment payload.
	Checksum []byte
}

// FileChecksumFragment is the decoded view of KindFileChecksums fragment.
//
// Entry offsets are collected when decoding, entries themselves are
// materialized on first use and cached.
//
// Unlike other views this one may be retained past the handler call: it only
// aliases fragment payload, so it stays valid as long as the buffer records
// were taken from. Visitors keep it to resolve file names in Finished.
type FileChecksumFragment struct {
	data    []byte
	offsets []uint32
	entries []FileChecksum
}

// DecodeFileChecksums validates payload of KindFileChecksums fragment.
func DecodeFileChecksums(data []byte) (*FileChecksumFragment, error) {
	f := &FileChecksumFragment{data: data}
	c := cursor{data: data}
	for !c.empty() {
		start := c.off
		if c.remaining() < checksumEntryHeaderLen {
			return nil, malformed(KindFileChecksums, "truncated entry header at offset %d", start)
		}
		_, _ = c.u32()
		size, _ := c.u8()
		_, _ = c.u8()
		if _, err := c.bytes(int(size)); err != nil {
			return nil, malformed(KindFileChecksums, "entry at offset %d: checksum of %d bytes: %v", start, size, err)
		}
		c.align(4)
		f.offsets = append(f.offsets, uint32(start))
	}
	return f, nil
}

// Size returns payload size in bytes.
func (f *FileChecksumFragment) Size() int {
	return len(f.data)
}

// Len returns number of entries.
func (f *FileChecksumFragment) Len() int {
	return len(f.offsets)
}

// Entries returns all entries in fragment order.
func (f *FileChecksumFragment) Entries() []FileChecksum {
	if f.entries != nil || len(f.offsets) == 0 {
		return f.entries
	}
	entries := make([]FileChecksum, 0, len(f.offsets))
	for _, off := range f.offsets {
		entries = append(entries, f.readEntry(off))
	}
	f.entries = entries
	return f.entries
}

// Lookup finds entry by its offset in the fragment (LineBlock.NameIndex).
func (f *FileChecksumFragment) Lookup(offset uint32) (FileChecksum, bool) {
	i, ok := slices.BinarySearch(f.offsets, offset)
	if !ok {
		return FileChecksum{}, false
	}
	if f.entries != nil {
		return f.entries[i], true
	}
	return f.readEntry(offset), true
}

func (f *FileChecksumFragment) readEntry(off uint32) FileChecksum {
	c := cursor{data: f.data, off: int(off)}
	e := FileChecksum{Offset: off}
	e.FileNameOffset, _ = c.u32()
	size, _ := c.u8()
	kind, _ := c.u8()
	e.Kind = ChecksumKind(kind)
	e.Checksum, _ = c.bytes(int(size))
	return e
}
