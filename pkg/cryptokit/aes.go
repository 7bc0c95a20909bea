package cryptokit

import (
	"crypto/aes"
	"crypto/cipher"
)

// AESBlockSize is the AES block size in bytes.
const AESBlockSize = aes.BlockSize

// AESCBCEncrypt encrypts plaintext (which must already be a multiple of the
// AES block size — PKCS#7 padding, if needed, is the caller's concern) under
// AES-128-CBC with the given 16-byte key and 16-byte IV.
func AESCBCEncrypt(key, iv, plaintext []byte) ([]byte, error) {
	if len(key) != 16 {
		return nil, ErrInvalidKeyLength
	}
	if len(iv) != AESBlockSize {
		return nil, ErrInvalidIVLength
	}
	if len(plaintext)%AESBlockSize != 0 {
		return nil, ErrCiphertextAlignment
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, ErrInvalidKeyLength
	}
	ciphertext := make([]byte, len(plaintext))
	mode := cipher.NewCBCEncrypter(block, iv)
	mode.CryptBlocks(ciphertext, plaintext)
	return ciphertext, nil
}

// AESCBCDecrypt decrypts ciphertext under AES-128-CBC with the given key
// and IV.
func AESCBCDecrypt(key, iv, ciphertext []byte) ([]byte, error) {
	if len(key) != 16 {
		return nil, ErrInvalidKeyLength
	}
	if len(iv) != AESBlockSize {
		return nil, ErrInvalidIVLength
	}
	if len(ciphertext)%AESBlockSize != 0 {
		return nil, ErrCiphertextAlignment
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, ErrInvalidKeyLength
	}
	plaintext := make([]byte, len(ciphertext))
	mode := cipher.NewCBCDecrypter(block, iv)
	mode.CryptBlocks(plaintext, ciphertext)
	return plaintext, nil
}

// Pkcs7Pad pads data to a multiple of blockSize using PKCS#7.
func Pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+padLen)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padLen)
	}
	return padded
}

// Pkcs7Unpad removes PKCS#7 padding from data, validating the pad bytes.
func Pkcs7Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 || len(data)%AESBlockSize != 0 {
		return nil, ErrCiphertextAlignment
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > AESBlockSize || padLen > len(data) {
		return nil, ErrInvalidEncodingPadding
	}
	for _, b := range data[len(data)-padLen:] {
		if int(b) != padLen {
			return nil, ErrInvalidEncodingPadding
		}
	}
	return data[:len(data)-padLen], nil
}
