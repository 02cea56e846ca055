package flat

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
)

// Vector blob layout: 4-byte magic, uint32 version, uint32 dimension,
// uint32 count, then count*dimension little-endian float32 values.
const (
	blobMagic   = "DPVX"
	blobVersion = 1
	headerSize  = 16
)

func encodeVectors(dim int, vectors [][]float32) []byte {
	buf := make([]byte, headerSize+len(vectors)*dim*4)
	copy(buf, blobMagic)
	binary.LittleEndian.PutUint32(buf[4:], blobVersion)
	binary.LittleEndian.PutUint32(buf[8:], uint32(dim))
	binary.LittleEndian.PutUint32(buf[12:], uint32(len(vectors)))

	off := headerSize
	for _, v := range vectors {
		for _, f := range v {
			binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(f))
			off += 4
		}
	}
	return buf
}

func decodeVectorsFile(path string) (int, [][]float32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, nil, err
	}
	return decodeVectors(data)
}

func decodeVectors(data []byte) (int, [][]float32, error) {
	if len(data) < headerSize {
		return 0, nil, fmt.Errorf("vector blob truncated: %d bytes", len(data))
	}
	if string(data[:4]) != blobMagic {
		return 0, nil, fmt.Errorf("bad vector blob magic %q", data[:4])
	}
	if v := binary.LittleEndian.Uint32(data[4:]); v != blobVersion {
		return 0, nil, fmt.Errorf("unsupported vector blob version %d", v)
	}

	dim := int(binary.LittleEndian.Uint32(data[8:]))
	count := int(binary.LittleEndian.Uint32(data[12:]))

	// A zero dimension with a nonzero count would pass the size check
	// for any count; reject it before the allocation below trusts count.
	if dim == 0 && count > 0 {
		return 0, nil, fmt.Errorf("vector blob header invalid: %d vectors with zero dimension", count)
	}
	want := int64(headerSize) + int64(count)*int64(dim)*4
	if int64(len(data)) != want {
		return 0, nil, fmt.Errorf("vector blob size %d, want %d", len(data), want)
	}

	vectors := make([][]float32, count)
	off := headerSize
	for i := range vectors {
		v := make([]float32, dim)
		for j := range v {
			v[j] = math.Float32frombits(binary.LittleEndian.Uint32(data[off:]))
			off += 4
		}
		vectors[i] = v
	}
	return dim, vectors, nil
}
