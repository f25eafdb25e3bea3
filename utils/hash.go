package utils

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
)

// BytesMD5 returns the hex MD5 of data.
func BytesMD5(data []byte) string {
	hash := md5.New()
	hash.Write(data)
	return hex.EncodeToString(hash.Sum(nil))
}

// NormalizeAddress lower-cases the address and collapses whitespace so that
// trivially different spellings share a cache entry.
func NormalizeAddress(address string) string {
	return strings.Join(strings.Fields(strings.ToLower(address)), " ")
}

// AddressKey returns the cache key for an address.
func AddressKey(address string) string {
	return "estimate:" + BytesMD5([]byte(NormalizeAddress(address)))
}
