package protocol

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

const (
	// HeaderSize 4 байта длины тела + 2 байта типа
	HeaderSize = 6
	// MaxFrameSize максимальный размер тела кадра
	MaxFrameSize = 1 << 20
)

var (
	ErrFrameTooLarge  = errors.New("protocol: frame too large")
	ErrUnknownMessage = errors.New("protocol: unknown message type")
)

// Frame кадр протокола: тип и JSON тело
type Frame struct {
	Type MessageType
	Body []byte
}

// Decode разбирает JSON тело кадра в v
func (f Frame) Decode(v interface{}) error {
	if err := json.Unmarshal(f.Body, v); err != nil {
		return fmt.Errorf("ошибка разбора %s: %w", f.Type, err)
	}
	return nil
}

// Marshal собирает кадр целиком: заголовок и JSON тело
func Marshal(t MessageType, v interface{}) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации %s: %w", t, err)
	}
	if len(body) > MaxFrameSize {
		return nil, fmt.Errorf("%w: %s %d байт", ErrFrameTooLarge, t, len(body))
	}

	buf := make([]byte, HeaderSize+len(body))
	binary.BigEndian.PutUint32(buf[0:4], uint32(len(body)))
	binary.BigEndian.PutUint16(buf[4:6], uint16(t))
	copy(buf[HeaderSize:], body)
	return buf, nil
}

// WriteFrame сериализует v и пишет кадр одним вызовом Write
func WriteFrame(w io.Writer, t MessageType, v interface{}) error {
	buf, err := Marshal(t, v)
	if err != nil {
		return err
	}
	_, err = w.Write(buf)
	return err
}

// ReadFrame читает один кадр. Слишком длинный кадр дает ErrFrameTooLarge
// до чтения тела, неизвестный тип - ErrUnknownMessage после чтения тела.
func ReadFrame(r io.Reader) (Frame, error) {
	var header [HeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return Frame{}, err
	}

	size := binary.BigEndian.Uint32(header[0:4])
	t := MessageType(binary.BigEndian.Uint16(header[4:6]))
	if size > MaxFrameSize {
		return Frame{Type: t}, fmt.Errorf("%w: %d байт", ErrFrameTooLarge, size)
	}

	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		return Frame{Type: t}, fmt.Errorf("ошибка чтения тела %s: %w", t, err)
	}
	if !t.Valid() {
		return Frame{Type: t, Body: body}, fmt.Errorf("%w: %d", ErrUnknownMessage, uint16(t))
	}
	return Frame{Type: t, Body: body}, nil
}
