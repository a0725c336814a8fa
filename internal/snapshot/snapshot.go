package snapshot

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"

	"VestLedger/internal/storage"
)

// snapshotVersion is the current snapshot format version.
const snapshotVersion uint32 = 1

// snapshotPrefixes are the key prefixes captured in a snapshot:
// schedules, beneficiary counts, asset totals, global counter,
// pause flag, balances, chain height.
var snapshotPrefixes = [][]byte{
	[]byte("s:"),
	[]byte("c:"),
	[]byte("a:"),
	[]byte("n:"),
	[]byte("p:"),
	[]byte("b:"),
	[]byte("h:"),
}

// entry is one key-value pair in a snapshot.
type entry struct {
	key   []byte
	value []byte
}

// Export serializes the full ledger state into a compressed snapshot.
// Format before compression: u32 version + u64 entry count + entries
// (u32 key len, key, u32 value len, value) + 32-byte blake3 checksum
// over everything preceding it. Entries are in key order, so exports
// of identical state are byte-identical.
func Export(db *storage.Storage) ([]byte, error) {
	entries, err := collectEntries(db)
	if err != nil {
		return nil, fmt.Errorf("collect entries:\n%w", err)
	}

	payload := encodePayload(entries)

	checksum := blake3.Sum256(payload)
	payload = append(payload, checksum[:]...)

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, err
	}
	defer encoder.Close()

	return encoder.EncodeAll(payload, nil), nil
}

// Import restores ledger state from a compressed snapshot.
// Verifies the checksum before writing anything; all entries land
// in one atomic batch.
func Import(db *storage.Storage, data []byte) error {
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return err
	}
	defer decoder.Close()

	payload, err := decoder.DecodeAll(data, nil)
	if err != nil {
		return fmt.Errorf("decompress snapshot:\n%w", err)
	}

	entries, err := decodePayload(payload)
	if err != nil {
		return err
	}

	pairs := make([]storage.KeyValue, len(entries))
	for i, e := range entries {
		pairs[i] = storage.KeyValue{Key: e.key, Value: e.value}
	}

	if err := db.SetBatch(pairs); err != nil {
		return fmt.Errorf("restore entries:\n%w", err)
	}

	return nil
}

// collectEntries gathers all snapshot-relevant key-value pairs in key order.
func collectEntries(db *storage.Storage) ([]entry, error) {
	var entries []entry

	for _, prefix := range snapshotPrefixes {
		err := db.IteratePrefix(prefix, func(key, value []byte) error {
			entries = append(entries, entry{
				key:   append([]byte(nil), key...),
				value: append([]byte(nil), value...),
			})

			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return entries, nil
}

// encodePayload serializes the version header and entries.
func encodePayload(entries []entry) []byte {
	size := 4 + 8
	for _, e := range entries {
		size += 4 + len(e.key) + 4 + len(e.value)
	}

	buf := make([]byte, 0, size)

	var scratch [8]byte
	binary.LittleEndian.PutUint32(scratch[:4], snapshotVersion)
	buf = append(buf, scratch[:4]...)

	binary.LittleEndian.PutUint64(scratch[:], uint64(len(entries)))
	buf = append(buf, scratch[:]...)

	for _, e := range entries {
		binary.LittleEndian.PutUint32(scratch[:4], uint32(len(e.key)))
		buf = append(buf, scratch[:4]...)
		buf = append(buf, e.key...)

		binary.LittleEndian.PutUint32(scratch[:4], uint32(len(e.value)))
		buf = append(buf, scratch[:4]...)
		buf = append(buf, e.value...)
	}

	return buf
}

// decodePayload verifies the checksum and parses entries.
func decodePayload(payload []byte) ([]entry, error) {
	if len(payload) < 4+8+32 {
		return nil, fmt.Errorf("snapshot too short: %d bytes", len(payload))
	}

	body := payload[:len(payload)-32]
	checksum := payload[len(payload)-32:]

	computed := blake3.Sum256(body)
	if !bytes.Equal(checksum, computed[:]) {
		return nil, fmt.Errorf("snapshot checksum mismatch")
	}

	version := binary.LittleEndian.Uint32(body[0:4])
	if version != snapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version: %d", version)
	}

	count := binary.LittleEndian.Uint64(body[4:12])
	offset := uint64(12)

	entries := make([]entry, 0, count)
	for i := uint64(0); i < count; i++ {
		key, next, err := readChunk(body, offset)
		if err != nil {
			return nil, fmt.Errorf("entry %d key:\n%w", i, err)
		}

		value, after, err := readChunk(body, next)
		if err != nil {
			return nil, fmt.Errorf("entry %d value:\n%w", i, err)
		}

		entries = append(entries, entry{key: key, value: value})
		offset = after
	}

	return entries, nil
}

// readChunk reads a u32-length-prefixed byte chunk at offset.
func readChunk(data []byte, offset uint64) ([]byte, uint64, error) {
	if uint64(len(data)) < offset+4 {
		return nil, 0, fmt.Errorf("truncated length at offset %d", offset)
	}

	length := uint64(binary.LittleEndian.Uint32(data[offset : offset+4]))
	start := offset + 4

	if uint64(len(data)) < start+length {
		return nil, 0, fmt.Errorf("truncated chunk at offset %d", start)
	}

	chunk := make([]byte, length)
	copy(chunk, data[start:start+length])

	return chunk, start + length, nil
}
