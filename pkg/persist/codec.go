package persist

import (
	"encoding/base64"
	"encoding/json"
	"net/url"

	"github.com/vango-dev/stackkit/internal/errors"
	"github.com/vango-dev/stackkit/pkg/overlay"
)

// DefaultQueryParam is the parameter QueryCodec uses when Param is empty.
const DefaultQueryParam = "overlays"

// QueryCodec stores a stack in one URL query parameter as base64url JSON.
type QueryCodec struct {
	Param string
}

func (c QueryCodec) param() string {
	if c.Param == "" {
		return DefaultQueryParam
	}
	return c.Param
}

// Encode returns the parameter value for entries. An empty stack encodes to
// the empty string.
func (c QueryCodec) Encode(entries []overlay.Entry) (string, error) {
	if len(entries) == 0 {
		return "", nil
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return "", errors.New("P002").Wrap(err)
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

// Decode parses a parameter value written by Encode.
func (c QueryCodec) Decode(value string) ([]overlay.Entry, error) {
	if value == "" {
		return nil, nil
	}
	data, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, errors.New("P003").Wrap(err)
	}
	var entries []overlay.Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, errors.New("P003").Wrap(err)
	}
	for _, e := range entries {
		if e.Key == "" || e.ID <= 0 {
			return nil, errors.New("P003").WithDetailf("entry %+v has no key or id", e)
		}
	}
	return entries, nil
}

// Read decodes the stack from q.
func (c QueryCodec) Read(q url.Values) ([]overlay.Entry, error) {
	return c.Decode(q.Get(c.param()))
}

// Write stores entries in q, removing the parameter for an empty stack.
func (c QueryCodec) Write(q url.Values, entries []overlay.Entry) error {
	value, err := c.Encode(entries)
	if err != nil {
		return err
	}
	if value == "" {
		q.Del(c.param())
		return nil
	}
	q.Set(c.param(), value)
	return nil
}
