package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// PackMagic prefixes every packed frame.
const PackMagic = "RGB3"

const packHeaderLen = len(PackMagic) + 4 + 4

var (
	zstdEncoderLevel = zstd.SpeedFastest

	sharedZstdEncoder persistentZstdEncoder
	sharedZstdDecoder persistentZstdDecoder
)

type persistentZstdEncoder struct {
	once sync.Once
	mu   sync.Mutex
	enc  *zstd.Encoder
	err  error
}

func (p *persistentZstdEncoder) use(fn func(*zstd.Encoder) error) error {
	p.once.Do(func() {
		p.enc, p.err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstdEncoderLevel), zstd.WithEncoderConcurrency(1))
	})
	if p.err != nil {
		return p.err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	return fn(p.enc)
}

type persistentZstdDecoder struct {
	once sync.Once
	mu   sync.Mutex
	dec  *zstd.Decoder
	err  error
}

func (p *persistentZstdDecoder) use(fn func(*zstd.Decoder) error) error {
	p.once.Do(func() {
		p.dec, p.err = zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	})
	if p.err != nil {
		return p.err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	return fn(p.dec)
}

// Pack compresses a frame into a self-describing zstd payload.
func Pack(f Frame) ([]byte, error) {
	if !f.Valid() {
		return nil, fmt.Errorf("invalid frame %dx%d (%d bytes)", f.Width, f.Height, len(f.Data))
	}
	var buf bytes.Buffer
	buf.Grow(packHeaderLen + len(f.Data)/4)
	buf.WriteString(PackMagic)
	var dims [8]byte
	binary.LittleEndian.PutUint32(dims[0:4], uint32(f.Width))
	binary.LittleEndian.PutUint32(dims[4:8], uint32(f.Height))
	buf.Write(dims[:])

	err := sharedZstdEncoder.use(func(enc *zstd.Encoder) error {
		buf.Write(enc.EncodeAll(f.Data, nil))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("zstd encode: %w", err)
	}
	return buf.Bytes(), nil
}

// Unpack restores a frame produced by Pack. The result owns a fresh buffer.
func Unpack(data []byte) (Frame, error) {
	if len(data) < packHeaderLen || string(data[:len(PackMagic)]) != PackMagic {
		return Frame{}, fmt.Errorf("not a packed frame")
	}
	w := int(binary.LittleEndian.Uint32(data[4:8]))
	h := int(binary.LittleEndian.Uint32(data[8:12]))
	if w <= 0 || h <= 0 {
		return Frame{}, fmt.Errorf("bad packed frame size %dx%d", w, h)
	}
	var raw []byte
	err := sharedZstdDecoder.use(func(dec *zstd.Decoder) error {
		var err error
		raw, err = dec.DecodeAll(data[packHeaderLen:], make([]byte, 0, w*h*3))
		return err
	})
	if err != nil {
		return Frame{}, fmt.Errorf("zstd decode: %w", err)
	}
	return FrameFromRGB(raw, w, h)
}
