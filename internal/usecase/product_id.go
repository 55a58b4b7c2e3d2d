package usecase

import (
	"strconv"

	"github.com/superpoupe/backend/internal/domain"
)

// idNamePrefixLength bounds the part of the normalized name that feeds the id
const idNamePrefixLength = 48

// StableID derives the upsert key of a product. A retailer code takes
// precedence; otherwise the id is a hash of the normalized name and unit.
// Ids are always qualified with the store.
func StableID(name, unit string, store domain.StoreID, code string) string {
	if c := normalizeKey(code); c != "" {
		return string(store) + "-" + c
	}

	key := normalizeKey(name)
	if len(key) > idNamePrefixLength {
		key = key[:idNamePrefixLength]
	}
	key += "|" + normalizeKey(unit)

	return string(store) + "-" + strconv.FormatUint(rollingHash(key), 36)
}

const (
	hashBase   uint64 = 1099511628211
	hashOffset uint64 = 14695981039346656037
)

// rollingHash is a polynomial hash over the bytes of s, modulo 2^64
func rollingHash(s string) uint64 {
	h := hashOffset
	for i := 0; i < len(s); i++ {
		h = h*hashBase + uint64(s[i])
	}
	return h
}
