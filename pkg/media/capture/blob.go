package capture

import "bytes"

const DEFAULT_MIME_TYPE = "audio/webm"

// Blob is a finalized, immutable piece of recorded media.
type Blob struct {
	Data        []byte
	ContentType string
}

// NewBlob concatenates chunks in order.
func NewBlob(chunks [][]byte, contentType string) *Blob {
	if contentType == "" {
		contentType = DEFAULT_MIME_TYPE
	}
	return &Blob{
		Data:        bytes.Join(chunks, nil),
		ContentType: contentType,
	}
}

func (b *Blob) Size() int {
	if b == nil {
		return 0
	}
	return len(b.Data)
}
