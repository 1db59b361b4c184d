package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/subtle"
	"encoding/binary"
	"errors"
)

// AES-256 key wrap, RFC 3394.

var kwIV = [8]byte{0xA6, 0xA6, 0xA6, 0xA6, 0xA6, 0xA6, 0xA6, 0xA6}

var ErrKeyWrapIntegrity = errors.New("keywrap: integrity check failed")

func kwCipher(kek []byte) (cipher.Block, error) {
	if len(kek) != 32 {
		return nil, errors.New("keywrap: kek must be 32 bytes (AES-256)")
	}
	return aes.NewCipher(kek)
}

// WrapKey wraps key under kek. key must be 16..4096 bytes and a multiple
// of 8 bytes; the result is 8 bytes longer.
func WrapKey(kek, key []byte) ([]byte, error) {
	if len(key) < 16 || len(key) > 4096 || len(key)%8 != 0 {
		return nil, errors.New("keywrap: key must be 16..4096 bytes and a multiple of 8")
	}
	block, err := kwCipher(kek)
	if err != nil {
		return nil, err
	}

	n := len(key) / 8
	out := make([]byte, 8+len(key))
	copy(out[8:], key)
	a := binary.BigEndian.Uint64(kwIV[:])

	var b [16]byte
	for j := 0; j < 6; j++ {
		for i := 1; i <= n; i++ {
			ri := out[i*8 : i*8+8]
			binary.BigEndian.PutUint64(b[0:8], a)
			copy(b[8:], ri)
			block.Encrypt(b[:], b[:])
			a = binary.BigEndian.Uint64(b[0:8]) ^ uint64(n*j+i)
			copy(ri, b[8:])
		}
	}
	binary.BigEndian.PutUint64(out[0:8], a)
	return out, nil
}

// UnwrapKey reverses WrapKey and checks the integrity vector.
func UnwrapKey(kek, wrapped []byte) ([]byte, error) {
	if len(wrapped) < 24 || len(wrapped) > 4104 || len(wrapped)%8 != 0 {
		return nil, errors.New("keywrap: wrapped must be 24..4104 bytes and a multiple of 8")
	}
	block, err := kwCipher(kek)
	if err != nil {
		return nil, err
	}

	n := len(wrapped)/8 - 1
	r := make([]byte, n*8)
	copy(r, wrapped[8:])
	a := binary.BigEndian.Uint64(wrapped[0:8])

	var b [16]byte
	for j := 5; j >= 0; j-- {
		for i := n; i >= 1; i-- {
			ri := r[(i-1)*8 : i*8]
			binary.BigEndian.PutUint64(b[0:8], a^uint64(n*j+i))
			copy(b[8:], ri)
			block.Decrypt(b[:], b[:])
			a = binary.BigEndian.Uint64(b[0:8])
			copy(ri, b[8:])
		}
	}

	var got [8]byte
	binary.BigEndian.PutUint64(got[:], a)
	if subtle.ConstantTimeCompare(got[:], kwIV[:]) != 1 {
		return nil, ErrKeyWrapIntegrity
	}
	return r, nil
}
