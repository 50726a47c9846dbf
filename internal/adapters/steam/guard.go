package steam

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"
)

const guardAlphabet = "23456789BCDFGHJKMNPQRTVWXY"

// GenerateAuthCode calcula el código Steam Guard (TOTP de 30s, alfabeto propio)
// para el instante dado.
func GenerateAuthCode(sharedSecret string, at time.Time) (string, error) {
	key, err := base64.StdEncoding.DecodeString(sharedSecret)
	if err != nil {
		return "", fmt.Errorf("steam: shared secret: %w", err)
	}

	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], uint64(at.Unix()/30))

	mac := hmac.New(sha1.New, key)
	mac.Write(msg[:])
	sum := mac.Sum(nil)

	offset := sum[19] & 0x0f
	full := binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7fffffff

	code := make([]byte, 5)
	for i := range code {
		code[i] = guardAlphabet[full%uint32(len(guardAlphabet))]
		full /= uint32(len(guardAlphabet))
	}
	return string(code), nil
}

// ConfirmationKey firma (time, tag) con el identity secret para mobileconf.
func ConfirmationKey(identitySecret string, at time.Time, tag string) (string, error) {
	key, err := base64.StdEncoding.DecodeString(identitySecret)
	if err != nil {
		return "", fmt.Errorf("steam: identity secret: %w", err)
	}

	msg := make([]byte, 8, 8+len(tag))
	binary.BigEndian.PutUint64(msg, uint64(at.Unix()))
	msg = append(msg, tag...)

	mac := hmac.New(sha1.New, key)
	mac.Write(msg)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

// DeviceID deriva el device id "android:" estable a partir del SteamID64.
func DeviceID(steamID uint64) string {
	sum := sha1.Sum([]byte(strconv.FormatUint(steamID, 10)))
	h := hex.EncodeToString(sum[:])
	return fmt.Sprintf("android:%s-%s-%s-%s-%s", h[0:8], h[8:12], h[12:16], h[16:20], h[20:32])
}
