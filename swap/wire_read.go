package swap

import "encoding/binary"

// Field readers advance *off and attach the field-specific code on a short
// buffer. Callers check the exact total length first, so these only fire on
// internal layout mistakes.

func readU8(b []byte, off *int, code ErrorCode) (uint8, error) {
	if *off+1 > len(b) {
		return 0, swaperr(code, "unexpected EOF (u8)")
	}
	v := b[*off]
	*off++
	return v, nil
}

func readU64le(b []byte, off *int, code ErrorCode) (uint64, error) {
	if *off+8 > len(b) {
		return 0, swaperr(code, "unexpected EOF (u64le)")
	}
	v := binary.LittleEndian.Uint64(b[*off : *off+8])
	*off += 8
	return v, nil
}

func read32(b []byte, off *int, code ErrorCode) ([32]byte, error) {
	var v [32]byte
	if *off+32 > len(b) {
		return v, swaperr(code, "unexpected EOF (bytes32)")
	}
	copy(v[:], b[*off:*off+32])
	*off += 32
	return v, nil
}

func readIdentity(b []byte, off *int, code ErrorCode) (Identity, error) {
	v, err := read32(b, off, code)
	return Identity(v), err
}
