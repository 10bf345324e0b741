// SPDX-FileCopyrightText: 2022-present Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package ssh

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
)

const (
	// chunkHeader starts every chunk of NETCONF 1.1 chunked framing
	chunkHeader = "\n#"

	// endOfChunks terminates a chunked message
	endOfChunks = "\n##\n"

	// maxChunkDigits bounds the chunk-size field (RFC 6242 caps it at 4294967295)
	maxChunkDigits = 10

	maxMessageSize = 16 << 20
)

// ErrBadChunk indicates a chunked framing protocol error occurred
var ErrBadChunk = errors.New("bad chunk")

// Conn exchanges NETCONF messages with chunked framing
type Conn struct {
	r  *bufio.Reader
	w  io.Writer
	mu sync.Mutex
}

// NewConn returns a Conn reading from r and writing to w
func NewConn(r io.Reader, w io.Writer) *Conn {
	return &Conn{
		r: bufio.NewReader(r),
		w: w,
	}
}

// Send writes data as a single chunk followed by the end-of-chunks marker
func (c *Conn) Send(data []byte) error {
	if len(data) == 0 {
		return ErrBadChunk
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	var message bytes.Buffer
	message.Grow(len(data) + 24)
	fmt.Fprintf(&message, "%s%d\n", chunkHeader, len(data))
	message.Write(data)
	message.WriteString(endOfChunks)

	_, err := c.w.Write(message.Bytes())
	return err
}

// Receive reads the next message and returns the concatenation of its chunks.
// io.EOF is returned when the peer closes between two messages.
func (c *Conn) Receive() ([]byte, error) {
	var message []byte
	for {
		if err := c.expect(chunkHeader); err != nil {
			if len(message) > 0 && err == io.EOF {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}
		b, err := c.r.ReadByte()
		if err != nil {
			return nil, unexpected(err)
		}
		switch {
		case b == '#':
			if err := c.expect("\n"); err != nil {
				return nil, unexpected(err)
			}
			if len(message) == 0 {
				return nil, ErrBadChunk
			}
			return message, nil
		case b < '1' || b > '9':
			return nil, ErrBadChunk
		}

		size, err := c.chunkSize(b)
		if err != nil {
			return nil, err
		}
		if len(message)+size > maxMessageSize {
			return nil, ErrBadChunk
		}
		chunk := make([]byte, size)
		if _, err := io.ReadFull(c.r, chunk); err != nil {
			return nil, unexpected(err)
		}
		message = append(message, chunk...)
	}
}

func (c *Conn) chunkSize(first byte) (int, error) {
	digits := []byte{first}
	for {
		b, err := c.r.ReadByte()
		if err != nil {
			return 0, unexpected(err)
		}
		if b == '\n' {
			break
		}
		if b < '0' || b > '9' || len(digits) == maxChunkDigits {
			return 0, ErrBadChunk
		}
		digits = append(digits, b)
	}
	size, err := strconv.ParseUint(string(digits), 10, 32)
	if err != nil {
		return 0, ErrBadChunk
	}
	return int(size), nil
}

func (c *Conn) expect(token string) error {
	buf := make([]byte, len(token))
	if _, err := io.ReadFull(c.r, buf); err != nil {
		return err
	}
	if string(buf) != token {
		return ErrBadChunk
	}
	return nil
}

func unexpected(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
