package codeview

import "fmt"

// ResolveFileName follows file reference used by line blocks and inlinee
// sites (offset of the entry in file checksums fragment) to the file name in
// string table.
func ResolveFileName(checksums *FileChecksumFragment, strtab *StringTableFragment, fileOffset uint32) (string, error) {
	if checksums == nil {
		return "", fmt.Errorf("file 0x%x: no file checksums", fileOffset)
	}
	e, ok := checksums.Lookup(fileOffset)
	if !ok {
		return "", fmt.Errorf("file 0x%x: no such file checksums entry", fileOffset)
	}
	if strtab == nil {
		return "", fmt.Errorf("file 0x%x: no string table", fileOffset)
	}
	name, err := strtab.Lookup(e.FileNameOffset)
	if err != nil {
		return "", fmt.Errorf("file 0x%x: %w", fileOffset, err)
	}
	return name, nil
}
