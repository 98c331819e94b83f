package ihex

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/marcinbor85/gohex"
)

const blank = 0xFF

// Highest record type defined by Intel-HEX (start linear address).
const maxRecordType = 0x05

// Image is a parsed Intel-HEX firmware image. Addresses without data read
// as 0xFF.
type Image struct {
	length int
	data   []byte
}

// ParseError reports a malformed Intel-HEX file.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("invalid Intel-HEX data: %v", e.Err)
	}
	return fmt.Sprintf("invalid Intel-HEX file %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Load reads and parses the Intel-HEX file at path. Data at or beyond
// limit is accounted for in Len but never stored.
func Load(path string, limit int) (*Image, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read firmware file: %w", err)
	}

	img, err := LoadReader(bytes.NewReader(raw), limit)
	if err != nil {
		if pe, ok := err.(*ParseError); ok {
			pe.Path = path
		}
		return nil, err
	}
	return img, nil
}

// LoadReader parses Intel-HEX records from r.
func LoadReader(r io.Reader, limit int) (*Image, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read firmware: %w", err)
	}
	if err := checkRecordTypes(raw); err != nil {
		return nil, &ParseError{Err: err}
	}

	mem := gohex.NewMemory()
	if err := mem.ParseIntelHex(bytes.NewReader(raw)); err != nil {
		return nil, &ParseError{Err: err}
	}

	length := 0
	for _, seg := range mem.GetDataSegments() {
		if end := int(seg.Address) + len(seg.Data); end > length {
			length = end
		}
	}

	size := length
	if limit >= 0 && size > limit {
		size = limit
	}

	var data []byte
	if size > 0 {
		data = mem.ToBinary(0, uint32(size), blank)
	}

	return &Image{length: length, data: data}, nil
}

// Len returns the highest populated address plus one.
func (img *Image) Len() int {
	return img.length
}

// ByteAt returns the byte at addr, or 0xFF if the image holds no data there.
func (img *Image) ByteAt(addr int) byte {
	if addr < 0 || addr >= len(img.data) {
		return blank
	}
	return img.data[addr]
}

// checkRecordTypes rejects records gohex would otherwise skip silently.
// Lines too short to carry a type byte are left to the parser.
func checkRecordTypes(raw []byte) error {
	sc := bufio.NewScanner(bytes.NewReader(raw))
	for line := 1; sc.Scan(); line++ {
		rec := bytes.TrimSpace(sc.Bytes())
		if len(rec) < 9 || rec[0] != ':' {
			continue
		}
		var typ [1]byte
		if _, err := hex.Decode(typ[:], rec[7:9]); err != nil {
			continue
		}
		if typ[0] > maxRecordType {
			return fmt.Errorf("line %d: unsupported record type 0x%02X", line, typ[0])
		}
	}
	return sc.Err()
}
