package utils

import (
	"crypto/md5"
	"crypto/rand"
	"encoding/hex"
	"math/big"
	"strings"
	"time"
)

func GenerateRandomString(length int) string {
	const charset = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	result := make([]byte, length)
	for i := range result {
		n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		result[i] = charset[n.Int64()]
	}
	return string(result)
}

// GeneratePurchaseKey builds a 32-char key for checkouts posted without one.
func GeneratePurchaseKey(email string) string {
	seed := strings.ToLower(strings.TrimSpace(email)) + time.Now().UTC().Format(time.RFC3339Nano) + GenerateRandomString(16)
	sum := md5.Sum([]byte(seed))
	return hex.EncodeToString(sum[:])
}
