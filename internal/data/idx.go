package data

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/born-ml/blocks/internal/tensor"
	"github.com/klauspost/compress/gzip"
)

// IDX magic numbers (unsigned byte data, 1 and 3 dimensions).
const (
	idxLabelsMagic = 0x00000801 // 2049
	idxImagesMagic = 0x00000803 // 2051
)

// maxIDXBytes bounds the payload a header may announce.
const maxIDXBytes = 1 << 31

// ReadIDXImages reads an IDX image file.
//
// IDX file format for images:
//
//	magic number: 0x00000803 (2051)
//	number of images: 4 bytes
//	number of rows: 4 bytes (28)
//	number of cols: 4 bytes (28)
//	pixel data: unsigned bytes (0-255)
//
// Returns the pixel bytes of all images back to back plus rows and cols.
func ReadIDXImages(r io.Reader) (pixels []byte, rows, cols int, err error) {
	var header [4]uint32
	if err := binary.Read(r, binary.BigEndian, &header); err != nil {
		return nil, 0, 0, fmt.Errorf("failed to read header: %w", err)
	}
	if header[0] != idxImagesMagic {
		return nil, 0, 0, fmt.Errorf("invalid magic number: got %d, want %d", header[0], idxImagesMagic)
	}

	if header[2] == 0 || header[3] == 0 {
		return nil, 0, 0, fmt.Errorf("invalid image size %dx%d", header[2], header[3])
	}
	size, err := payloadSize(header[1], header[2], header[3])
	if err != nil {
		return nil, 0, 0, err
	}
	if pixels, err = readPayload(r, size); err != nil {
		return nil, 0, 0, fmt.Errorf("failed to read %d images: %w", header[1], err)
	}
	return pixels, int(header[2]), int(header[3]), nil
}

// ReadIDXLabels reads an IDX label file.
//
// IDX file format for labels:
//
//	magic number: 0x00000801 (2049)
//	number of labels: 4 bytes
//	label data: unsigned bytes (0-9)
func ReadIDXLabels(r io.Reader) ([]byte, error) {
	var header [2]uint32
	if err := binary.Read(r, binary.BigEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if header[0] != idxLabelsMagic {
		return nil, fmt.Errorf("invalid magic number: got %d, want %d", header[0], idxLabelsMagic)
	}

	size, err := payloadSize(header[1])
	if err != nil {
		return nil, err
	}
	labels, err := readPayload(r, size)
	if err != nil {
		return nil, fmt.Errorf("failed to read %d labels: %w", header[1], err)
	}
	return labels, nil
}

// payloadSize multiplies header dimensions, rejecting products above
// maxIDXBytes.
func payloadSize(dims ...uint32) (int64, error) {
	size := int64(1)
	for _, d := range dims {
		if d != 0 && size > maxIDXBytes/int64(d) {
			return 0, fmt.Errorf("header dimensions %v exceed %d bytes", dims, int64(maxIDXBytes))
		}
		size *= int64(d)
	}
	return size, nil
}

// readPayload reads exactly size bytes. The buffer grows with the data
// actually present, so a lying header cannot force a large allocation.
func readPayload(r io.Reader, size int64) ([]byte, error) {
	buf, err := io.ReadAll(io.LimitReader(r, size))
	if err != nil {
		return nil, err
	}
	if int64(len(buf)) != size {
		return nil, fmt.Errorf("got %d of %d bytes: %w", len(buf), size, io.ErrUnexpectedEOF)
	}
	return buf, nil
}

// openIDX opens path, falling back to path + ".gz". Gzip input is detected
// by its magic bytes, so a compressed file without the suffix also works.
func openIDX(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		f, err = os.Open(path + ".gz")
	}
	if err != nil {
		return nil, err
	}

	br := bufio.NewReader(f)
	magic, err := br.Peek(2)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("read %s: %w", f.Name(), err)
	}
	if magic[0] != 0x1f || magic[1] != 0x8b {
		return struct {
			io.Reader
			io.Closer
		}{br, f}, nil
	}

	zr, err := gzip.NewReader(br)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("gunzip %s: %w", f.Name(), err)
	}
	return &gzipFile{Reader: zr, file: f}, nil
}

type gzipFile struct {
	*gzip.Reader
	file *os.File
}

func (g *gzipFile) Close() error {
	return errors.Join(g.Reader.Close(), g.file.Close())
}

// MNIST file names inside a data directory (optionally with a .gz suffix).
const (
	TrainImagesFile = "train-images-idx3-ubyte"
	TrainLabelsFile = "train-labels-idx1-ubyte"
	TestImagesFile  = "t10k-images-idx3-ubyte"
	TestLabelsFile  = "t10k-labels-idx1-ubyte"
)

// LoadMNIST loads the MNIST training or test split from dataDir.
//
// Pixels are normalized to [0, 1] and each example is flattened to
// [rows*cols]. maxSamples > 0 truncates the split.
func LoadMNIST(dataDir string, train bool, maxSamples int) (*ArrayDataset, error) {
	imageFile, labelFile := TestImagesFile, TestLabelsFile
	if train {
		imageFile, labelFile = TrainImagesFile, TrainLabelsFile
	}

	pixels, rows, cols, err := readImagesFile(filepath.Join(dataDir, imageFile))
	if err != nil {
		return nil, fmt.Errorf("failed to load images: %w", err)
	}
	rawLabels, err := readLabelsFile(filepath.Join(dataDir, labelFile))
	if err != nil {
		return nil, fmt.Errorf("failed to load labels: %w", err)
	}

	imageSize := rows * cols
	numSamples := len(pixels) / max(imageSize, 1)
	if numSamples != len(rawLabels) {
		return nil, fmt.Errorf("image count (%d) != label count (%d)", numSamples, len(rawLabels))
	}
	if maxSamples > 0 && numSamples > maxSamples {
		numSamples = maxSamples
	}

	features := make([]float32, numSamples*imageSize)
	for i := range features {
		features[i] = float32(pixels[i]) / 255.0
	}
	labels := make([]int32, numSamples)
	for i := range labels {
		labels[i] = int32(rawLabels[i])
	}

	return NewArrayDataset(features, labels, tensor.Shape{imageSize})
}

func readImagesFile(path string) ([]byte, int, int, error) {
	rc, err := openIDX(path)
	if err != nil {
		return nil, 0, 0, err
	}
	defer rc.Close()
	return ReadIDXImages(rc)
}

func readLabelsFile(path string) ([]byte, error) {
	rc, err := openIDX(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return ReadIDXLabels(rc)
}
