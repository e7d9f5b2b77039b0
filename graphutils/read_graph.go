package graphutils

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"
	"strconv"

	"github.com/pkg/errors"
)

const (
	headerAdj    = "AdjacencyGraph"
	headerWghAdj = "WeightedAdjacencyGraph"
)

// ReadGraph loads a graph file. ASCII files use the adjacency-graph
// format (header line, n, m, n offsets, m edges, and for weighted
// graphs m weights); binary files use the packed CSR format below.
func ReadGraph(path string, symmetric, binaryFormat bool) (*Graph, error) {
	if binaryFormat {
		return readBinary(path, symmetric)
	}
	return readASCII(path, symmetric)
}

func readASCII(path string, symmetric bool) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 1024*1024), 1024*1024)
	sc.Split(bufio.ScanWords)
	next := func() (string, error) {
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return "", err
			}
			return "", io.ErrUnexpectedEOF
		}
		return sc.Text(), nil
	}
	nextInt := func() (int64, error) {
		tok, err := next()
		if err != nil {
			return 0, err
		}
		return strconv.ParseInt(tok, 10, 64)
	}

	header, err := next()
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	weighted := header == headerWghAdj
	if !weighted && header != headerAdj {
		return nil, errors.Errorf("%s: unknown graph header %q", path, header)
	}

	n64, err := nextInt()
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	m64, err := nextInt()
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	n, m := int(n64), int(m64)

	offsets := make([]int64, n+1)
	for i := 0; i < n; i++ {
		if offsets[i], err = nextInt(); err != nil {
			return nil, errors.Wrapf(err, "%s: offset %d", path, i)
		}
	}
	offsets[n] = int64(m)
	edges := make([]int32, m)
	for i := 0; i < m; i++ {
		v, err := nextInt()
		if err != nil {
			return nil, errors.Wrapf(err, "%s: edge %d", path, i)
		}
		edges[i] = int32(v)
	}
	var weights []int32
	if weighted {
		weights = make([]int32, m)
		for i := 0; i < m; i++ {
			v, err := nextInt()
			if err != nil {
				return nil, errors.Wrapf(err, "%s: weight %d", path, i)
			}
			weights[i] = int32(v)
		}
	}
	return NewGraph(n, offsets, edges, weights, symmetric), nil
}

// Binary CSR layout, little endian:
//
//	n (uint64)
//	m (uint64)
//	sizes (uint64)  total file size in bytes, for validation
//	offsets[0..n]   (n+1)*uint64
//	edges[0..m)     m*uint32
//	weights[0..m)   m*int32, optional
func readBinary(path string, symmetric bool) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()
	r := bufio.NewReader(f)

	var n, m, sizes uint64
	for _, p := range []*uint64{&n, &m, &sizes} {
		if err = binary.Read(r, binary.LittleEndian, p); err != nil {
			return nil, errors.Wrapf(err, "%s: header", path)
		}
	}
	base := 3*8 + (n+1)*8 + m*4
	if sizes != base && sizes != base+m*4 {
		return nil, errors.Errorf("%s: size mismatch: got %d, expected %d or %d",
			path, sizes, base, base+m*4)
	}

	rawOffsets := make([]uint64, n+1)
	if err = binary.Read(r, binary.LittleEndian, &rawOffsets); err != nil {
		return nil, errors.Wrapf(err, "%s: offsets", path)
	}
	offsets := make([]int64, n+1)
	for i, o := range rawOffsets {
		offsets[i] = int64(o)
	}
	rawEdges := make([]uint32, m)
	if err = binary.Read(r, binary.LittleEndian, &rawEdges); err != nil {
		return nil, errors.Wrapf(err, "%s: edges", path)
	}
	edges := make([]int32, m)
	for i, e := range rawEdges {
		edges[i] = int32(e)
	}
	var weights []int32
	if sizes == base+m*4 {
		weights = make([]int32, m)
		if err = binary.Read(r, binary.LittleEndian, &weights); err != nil {
			return nil, errors.Wrapf(err, "%s: weights", path)
		}
	}
	return NewGraph(int(n), offsets, edges, weights, symmetric), nil
}
