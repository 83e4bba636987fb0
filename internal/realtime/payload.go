// Package realtime decodes change-feed payloads of the likes relation.
//
// Wire shape, shared by the redis and postgres feeds:
//
//	{"type":"INSERT","table":"likes","origin":"<instance>","commit_timestamp":"...",
//	 "record":{"post_id":1,"user_id":"..."},"old_record":null}
//
// Inserts carry the row in "record", deletes in "old_record".
package realtime

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/Guyuepp/artfeed/domain"
)

const LikesTable = "likes"

// DecodeError reports a payload that does not fit the likes row schema
type DecodeError struct {
	Field  string
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: %s %s", domain.ErrMalformedChange, e.Field, e.Reason)
}

func (e *DecodeError) Unwrap() error {
	return domain.ErrMalformedChange
}

type wireRow struct {
	PostID json.RawMessage `json:"post_id"`
	UserID json.RawMessage `json:"user_id"`
}

type wireChange struct {
	Type            string     `json:"type"`
	Table           string     `json:"table"`
	Origin          string     `json:"origin,omitempty"`
	CommitTimestamp *time.Time `json:"commit_timestamp,omitempty"`
	Record          *wireRow   `json:"record"`
	OldRecord       *wireRow   `json:"old_record"`
}

// DecodeLikeChange parses one payload. Errors are always *DecodeError.
func DecodeLikeChange(data []byte) (domain.LikeChange, error) {
	var w wireChange
	if err := json.Unmarshal(data, &w); err != nil {
		return domain.LikeChange{}, &DecodeError{Field: "payload", Reason: err.Error()}
	}
	if w.Table != "" && w.Table != LikesTable {
		return domain.LikeChange{}, &DecodeError{Field: "table", Reason: fmt.Sprintf("unexpected %q", w.Table)}
	}

	var row *wireRow
	change := domain.LikeChange{Origin: w.Origin}
	switch domain.ChangeType(w.Type) {
	case domain.ChangeInsert:
		change.Type, row = domain.ChangeInsert, w.Record
		if row == nil {
			return domain.LikeChange{}, &DecodeError{Field: "record", Reason: "missing"}
		}
	case domain.ChangeDelete:
		change.Type, row = domain.ChangeDelete, w.OldRecord
		if row == nil {
			return domain.LikeChange{}, &DecodeError{Field: "old_record", Reason: "missing"}
		}
	default:
		return domain.LikeChange{}, &DecodeError{Field: "type", Reason: fmt.Sprintf("unsupported %q", w.Type)}
	}

	postID, err := decodePostID(row.PostID)
	if err != nil {
		return domain.LikeChange{}, err
	}
	userID, err := decodeUserID(row.UserID)
	if err != nil {
		return domain.LikeChange{}, err
	}
	change.PostID, change.UserID = postID, userID
	if w.CommitTimestamp != nil {
		change.CommitTimestamp = *w.CommitTimestamp
	}
	return change, nil
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// decodePostID accepts a JSON integer or a string holding one
func decodePostID(raw json.RawMessage) (int64, error) {
	if isNull(raw) {
		return 0, &DecodeError{Field: "post_id", Reason: "missing"}
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, &DecodeError{Field: "post_id", Reason: "not a number"}
		}
		n = json.Number(s)
	}
	id, err := strconv.ParseInt(n.String(), 10, 64)
	if err != nil {
		return 0, &DecodeError{Field: "post_id", Reason: "not an integer"}
	}
	return id, nil
}

func decodeUserID(raw json.RawMessage) (string, error) {
	if isNull(raw) {
		return "", &DecodeError{Field: "user_id", Reason: "missing"}
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", &DecodeError{Field: "user_id", Reason: "not a string"}
	}
	if s == "" {
		return "", &DecodeError{Field: "user_id", Reason: "empty"}
	}
	return s, nil
}

// EncodeLikeChange is the inverse of DecodeLikeChange
func EncodeLikeChange(c domain.LikeChange) ([]byte, error) {
	row := &wireRow{
		PostID: json.RawMessage(strconv.FormatInt(c.PostID, 10)),
	}
	userID, err := json.Marshal(c.UserID)
	if err != nil {
		return nil, err
	}
	row.UserID = userID

	w := wireChange{
		Type:   string(c.Type),
		Table:  LikesTable,
		Origin: c.Origin,
	}
	if !c.CommitTimestamp.IsZero() {
		ts := c.CommitTimestamp.UTC()
		w.CommitTimestamp = &ts
	}
	switch c.Type {
	case domain.ChangeInsert:
		w.Record = row
	case domain.ChangeDelete:
		w.OldRecord = row
	default:
		return nil, fmt.Errorf("unsupported change type %q", c.Type)
	}
	return json.Marshal(w)
}
