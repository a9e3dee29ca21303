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

package fields

import (
	"github.com/capsule8/evfilter/pkg/filter"
	"github.com/capsule8/evfilter/pkg/value"
)

const (
	containerID = iota
	containerName
	containerImage
	containerImageID
	containerPrivileged
)

func newContainerFamily() filter.Family {
	return &family{
		info: filter.FamilyInfo{
			Name:        "container",
			Description: "Container information.",
			Fields: []filter.FieldDescriptor{
				{ID: containerID, Type: value.CharBuf, Name: "container.id", Description: "the container id."},
				{ID: containerName, Type: value.CharBuf, Name: "container.name", Description: "the container name."},
				{ID: containerImage, Type: value.CharBuf, Name: "container.image", Description: "the container image name (e.g. nginx:latest)."},
				{ID: containerImageID, Type: value.CharBuf, Name: "container.image.id", Description: "the container image id."},
				{ID: containerPrivileged, Type: value.Bool, Name: "container.privileged", Description: "'true' for containers running as privileged."},
			},
		},
		newExtractor: func() filter.Extractor { return &containerExtractor{} },
	}
}

type containerExtractor struct {
	scratch
}

func (x *containerExtractor) Extract(ev filter.Event, f *filter.FieldDescriptor, arg string) ([]byte, bool) {
	e := asEvent(ev)
	if e == nil || e.Container == nil {
		return nil, false
	}
	c := e.Container

	switch f.ID {
	case containerID:
		return str(c.ID)
	case containerName:
		return str(c.Name)
	case containerImage:
		return str(c.Image)
	case containerImageID:
		return str(c.ImageID)
	case containerPrivileged:
		if c.Privileged == nil {
			return nil, false
		}
		return x.bool(*c.Privileged), true
	}
	return nil, false
}
