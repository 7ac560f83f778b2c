package token

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"io"
	"math/big"
	"time"
)

const (
	zegoVersion = "04"
	ivAlphabet  = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// Zego04 implements the ZEGOCLOUD "token04" format: JSON claims AES-CBC
// encrypted with the server secret, length-prefixed and base64 encoded.
type Zego04 struct {
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

func (z Zego04) Issue(appID uint32, userID, secret string, ttl time.Duration, payload string) (string, error) {
	if len(secret) != 32 {
		return "", ErrInvalidSecret
	}
	now := time.Now
	if z.Now != nil {
		now = z.Now
	}

	nonce, err := randomInt32()
	if err != nil {
		return "", err
	}
	created := now().Unix()
	claims := Claims{
		AppID:   appID,
		UserID:  userID,
		Nonce:   nonce,
		Ctime:   created,
		Expire:  created + int64(ttl/time.Second),
		Payload: payload,
	}
	plain, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}

	iv, err := randomIV()
	if err != nil {
		return "", err
	}
	encrypted, err := aesCBCEncrypt(plain, []byte(secret), iv)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.BigEndian, claims.Expire)
	_ = binary.Write(&buf, binary.BigEndian, int16(len(iv)))
	buf.Write(iv)
	_ = binary.Write(&buf, binary.BigEndian, int16(len(encrypted)))
	buf.Write(encrypted)

	return zegoVersion + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// DecodeZego04 reverses Issue. It is used to verify tokens in tests and by
// operators debugging a rejected call.
func DecodeZego04(tok, secret string) (Claims, error) {
	var claims Claims
	if len(tok) < len(zegoVersion) || tok[:len(zegoVersion)] != zegoVersion {
		return claims, errMalformed
	}
	raw, err := base64.StdEncoding.DecodeString(tok[len(zegoVersion):])
	if err != nil {
		return claims, err
	}
	r := bytes.NewReader(raw)
	var expire int64
	var ivLen, ctLen int16
	if err := binary.Read(r, binary.BigEndian, &expire); err != nil {
		return claims, errMalformed
	}
	if err := binary.Read(r, binary.BigEndian, &ivLen); err != nil || ivLen <= 0 {
		return claims, errMalformed
	}
	iv := make([]byte, ivLen)
	if _, err := io.ReadFull(r, iv); err != nil {
		return claims, errMalformed
	}
	if err := binary.Read(r, binary.BigEndian, &ctLen); err != nil || ctLen <= 0 {
		return claims, errMalformed
	}
	ct := make([]byte, ctLen)
	if _, err := io.ReadFull(r, ct); err != nil {
		return claims, errMalformed
	}
	plain, err := aesCBCDecrypt(ct, []byte(secret), iv)
	if err != nil {
		return claims, err
	}
	if err := json.Unmarshal(plain, &claims); err != nil {
		return claims, err
	}
	return claims, nil
}

func randomIV() ([]byte, error) {
	iv := make([]byte, aes.BlockSize)
	alphabetLen := big.NewInt(int64(len(ivAlphabet)))
	for i := range iv {
		n, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			return nil, err
		}
		iv[i] = ivAlphabet[n.Int64()]
	}
	return iv, nil
}

func randomInt32() (int32, error) {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(b[:]) & 0x7fffffff), nil
}

func aesCBCEncrypt(plain, key, iv []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	padded := pkcs7Pad(plain, block.BlockSize())
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
	return out, nil
}

func aesCBCDecrypt(ct, key, iv []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	if len(ct)%block.BlockSize() != 0 {
		return nil, errMalformed
	}
	out := make([]byte, len(ct))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, ct)
	return pkcs7Unpad(out, block.BlockSize())
}

func pkcs7Pad(b []byte, size int) []byte {
	n := size - len(b)%size
	return append(b, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(b []byte, size int) ([]byte, error) {
	if len(b) == 0 || len(b)%size != 0 {
		return nil, errMalformed
	}
	n := int(b[len(b)-1])
	if n == 0 || n > size || n > len(b) {
		return nil, errMalformed
	}
	return b[:len(b)-n], nil
}
