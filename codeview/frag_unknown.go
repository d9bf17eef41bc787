package codeview

// UnknownFragment wraps payload of any fragment without dedicated decoder.
// Nothing is validated. Data aliases record payload.
type UnknownFragment struct {
	Kind Kind
	Data []byte
}
