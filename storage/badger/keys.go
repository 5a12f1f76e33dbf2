package badger

import (
	"encoding/binary"
)

// Key prefixes. Community and source IDs are separated by a zero byte so
// that one community's keys never prefix another's.
const (
	jobPrefix    = "ksrc:"
	resultPrefix = "ksres:"
	chunkPrefix  = "kschk:"
	keySep       = 0x00
)

// makeCommunityKey generates the prefix shared by all keys of a community.
// Format: prefix community 0x00
func makeCommunityKey(prefix, communityID string) []byte {
	buf := make([]byte, 0, len(prefix)+len(communityID)+1)
	buf = append(buf, prefix...)
	buf = append(buf, communityID...)
	return append(buf, keySep)
}

// makeSourceKey generates the key of a single source.
// Format: prefix community 0x00 source
func makeSourceKey(prefix, communityID, sourceID string) []byte {
	return append(makeCommunityKey(prefix, communityID), sourceID...)
}

func makeJobKey(communityID, sourceID string) []byte {
	return makeSourceKey(jobPrefix, communityID, sourceID)
}

func makeResultKey(communityID, sourceID string) []byte {
	return makeSourceKey(resultPrefix, communityID, sourceID)
}

// makeChunkSourceKey generates the prefix of all chunk audits of a source.
// Format: prefix community 0x00 source 0x00
func makeChunkSourceKey(communityID, sourceID string) []byte {
	return append(makeSourceKey(chunkPrefix, communityID, sourceID), keySep)
}

// makeChunkKey generates the key of one chunk audit.
// The index is written BigEndian so that lexicographic order is index order.
func makeChunkKey(communityID, sourceID string, index int) []byte {
	key := makeChunkSourceKey(communityID, sourceID)
	return binary.BigEndian.AppendUint32(key, uint32(index))
}
