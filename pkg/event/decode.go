// Copyright 2017 Capsule8, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package event

import (
	"io"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

// Decoder reads a stream of JSON encoded events.
type Decoder struct {
	dec *json.Decoder
	n   uint64
}

// NewDecoder returns a decoder reading events from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{
		dec: json.NewDecoder(r),
	}
}

// Next decodes the next event. It returns io.EOF after the last one.
// Events without a number are numbered in input order.
func (d *Decoder) Next() (*Event, error) {
	ev := &Event{}
	if err := d.dec.Decode(ev); err != nil {
		if err == io.EOF {
			return nil, err
		}
		return nil, errors.Wrapf(err, "decoding event %d", d.n+1)
	}
	d.n++
	if ev.Num == 0 {
		ev.Num = d.n
	}
	return ev, nil
}

// Encode writes ev to w as a single line of JSON.
func Encode(w io.Writer, ev *Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	b = append(b, '\n')
	_, err = w.Write(b)
	return err
}
