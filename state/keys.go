package state

import "encoding/binary"

const (
	bookKey       = "lending/book"
	loanPrefix    = "lending/loan/"
	auctionPrefix = "auction/sale/"
	accountPrefix = "accounts/"
	custodyPrefix = "custody/"
)

func assetKey(prefix string, assetID uint64) []byte {
	key := make([]byte, len(prefix)+8)
	copy(key, prefix)
	binary.BigEndian.PutUint64(key[len(prefix):], assetID)
	return key
}

func accountKey(addr [20]byte) []byte {
	key := make([]byte, len(accountPrefix)+len(addr))
	copy(key, accountPrefix)
	copy(key[len(accountPrefix):], addr[:])
	return key
}
