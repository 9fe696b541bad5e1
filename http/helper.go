package http

import (
	"errors"
	"math"
)

var errInvalidNumber = errors.New("invalid number")

func atoi(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, errInvalidNumber
	}

	var n int
	for _, c := range b {
		if c < '0' || c > '9' {
			return 0, errInvalidNumber
		}
		d := int(c - '0')
		if n > (math.MaxInt-d)/10 {
			return 0, errInvalidNumber
		}
		n = n*10 + d
	}
	return n, nil
}

func hexToByte(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10
	}
	return 255 // Invalid hex
}

