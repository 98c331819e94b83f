package protocol

// HasNonBlankByte reports whether any byte of the block at addr differs
// from 0xFF. Bytes at or past CodeSize are not inspected.
func (g Geometry) HasNonBlankByte(mem Memory, addr int) bool {
	for i := addr; i < addr+g.BlockSize && i < g.CodeSize; i++ {
		if mem.ByteAt(i) != BlankByte {
			return true
		}
	}
	return false
}

// ShouldSend decides whether the block at addr has to be transmitted.
// Until the first block went out every block is sent; block 0 is always
// sent. Any other block is skipped when it is entirely blank.
func (g Geometry) ShouldSend(mem Memory, addr int, firstSent bool) bool {
	if !firstSent || addr == 0 {
		return true
	}
	return g.HasNonBlankByte(mem, addr)
}

// Limit returns the exclusive upper bound of block addresses visited for an
// image of the given length.
func (g Geometry) Limit(length int) int {
	if length < g.CodeSize {
		return length
	}
	return g.CodeSize
}
