package repository

import (
	"encoding/base64"
	"time"
)

const (
	timeFormat = "2006-01-02T15:04:05.999999999Z07:00" // RFC3339Nano

	DefaultPageSize int64 = 10
	MaxPageSize     int64 = 100
)

// DecodeCursor will decode cursor from user for the repository
func DecodeCursor(encodedTime string) (time.Time, error) {
	byt, err := base64.StdEncoding.DecodeString(encodedTime)
	if err != nil {
		return time.Time{}, err
	}

	return time.Parse(timeFormat, string(byt))
}

// EncodeCursor will encode cursor from the repository to user
func EncodeCursor(t time.Time) string {
	timeString := t.UTC().Format(timeFormat)
	return base64.StdEncoding.EncodeToString([]byte(timeString))
}

// PageVerify clamps a requested page size into [1, MaxPageSize]
func PageVerify(num *int64) {
	switch {
	case *num <= 0:
		*num = DefaultPageSize
	case *num > MaxPageSize:
		*num = MaxPageSize
	}
}
