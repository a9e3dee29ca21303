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

// Package proc reads process state from the proc pseudo-filesystem and
// presents it as events, so running processes can be matched against
// filters and rules.
package proc

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/capsule8/evfilter/pkg/event"
)

// SnapshotType is the event type of process snapshots.
const SnapshotType = "procinfo"

// clockTicks is USER_HZ, the unit of times in /proc/[pid]/stat.
const clockTicks = 100

// FileSystem represents data accessible through the proc pseudo-filesystem.
type FileSystem struct {
	MountPoint string
}

// New returns a FileSystem for the procfs mounted at mountPoint.
func New(mountPoint string) (*FileSystem, error) {
	fi, err := os.Stat(mountPoint)
	if err != nil {
		return nil, errors.Wrapf(err, "%s not found", mountPoint)
	}
	if !fi.IsDir() {
		return nil, errors.Errorf("%s not a directory", mountPoint)
	}
	return &FileSystem{MountPoint: mountPoint}, nil
}

// Open opens the procfs file indicated by the given relative path.
func (fs *FileSystem) Open(relativePath string) (*os.File, error) {
	return os.Open(filepath.Join(fs.MountPoint, relativePath))
}

// ReadFile returns the contents of the procfs file indicated by the
// given relative path.
func (fs *FileSystem) ReadFile(relativePath string) ([]byte, error) {
	return os.ReadFile(filepath.Join(fs.MountPoint, relativePath))
}

// PIDs returns the PIDs of all processes in ascending order.
func (fs *FileSystem) PIDs() ([]int, error) {
	entries, err := os.ReadDir(fs.MountPoint)
	if err != nil {
		return nil, err
	}

	var pids []int
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if pid, err := strconv.Atoi(e.Name()); err == nil {
			pids = append(pids, pid)
		}
	}
	sort.Ints(pids)
	return pids, nil
}

// splitNUL splits a NUL separated list, as found in cmdline and environ.
func splitNUL(b []byte) []string {
	var list []string

	reader := bufio.NewReader(bytes.NewReader(b))
	for {
		s, err := reader.ReadString(0)
		if len(s) > 0 && s[len(s)-1] == 0 {
			s = s[:len(s)-1]
		}
		if len(s) > 0 {
			list = append(list, s)
		}
		if err != nil {
			break
		}
	}

	return list
}

// CommandLine gets the full command-line arguments for the process
// indicated by the given PID.
func (fs *FileSystem) CommandLine(pid int) []string {
	//
	// This misses the command-line arguments for short-lived processes,
	// which is clearly not ideal.
	//
	cmdline, err := fs.ReadFile(fmt.Sprintf("%d/cmdline", pid))
	if err != nil {
		return nil
	}
	return splitNUL(cmdline)
}

// Environ gets the initial environment of the process indicated by the
// given PID. Reading it usually requires privileges.
func (fs *FileSystem) Environ(pid int) map[string]string {
	environ, err := fs.ReadFile(fmt.Sprintf("%d/environ", pid))
	if err != nil {
		return nil
	}

	env := make(map[string]string)
	for _, kv := range splitNUL(environ) {
		if i := strings.IndexByte(kv, '='); i > 0 {
			env[kv[:i]] = kv[i+1:]
		}
	}
	return env
}

// link reads a symbolic link below the process directory, or returns ""
// if it cannot be read.
func (fs *FileSystem) link(pid int, name string) string {
	dest, err := os.Readlink(filepath.Join(fs.MountPoint, strconv.Itoa(pid), name))
	if err != nil {
		return ""
	}
	return dest
}

// Cgroups returns the cgroup membership of the process
// indicated by the given PID.
func (fs *FileSystem) Cgroups(pid int) ([]Cgroup, error) {
	filename := fmt.Sprintf("%d/cgroup", pid)
	cgroup, err := fs.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	return parseProcPidCgroup(cgroup)
}

// parseProcPidCgroup parses the contents of /proc/[pid]/cgroup
func parseProcPidCgroup(cgroup []byte) ([]Cgroup, error) {
	var cgroups []Cgroup

	scanner := bufio.NewScanner(bytes.NewReader(cgroup))
	for scanner.Scan() {
		t := scanner.Text()
		parts := strings.SplitN(t, ":", 3)
		if len(parts) != 3 {
			return nil, errors.Errorf("couldn't parse cgroup line: %s", t)
		}
		ID, err := strconv.Atoi(parts[0])
		if err != nil {
			return nil, errors.Errorf("couldn't parse cgroup line: %s", t)
		}

		c := Cgroup{
			ID:   ID,
			Path: parts[2],
		}
		if parts[1] != "" {
			c.Controllers = strings.Split(parts[1], ",")
		}

		cgroups = append(cgroups, c)
	}

	return cgroups, scanner.Err()
}

// Cgroup describes the cgroup membership of a process
type Cgroup struct {
	// Unique hierarchy ID
	ID int

	// Cgroup controllers (subsystems) bound to the hierarchy
	Controllers []string

	// Path is the pathname of the control group to which the process
	// belongs. It is relative to the mountpoint of the hierarchy.
	Path string
}

// ContainerID returns the container ID running the process indicated
// by the given PID. Returns the empty string if the process is not
// running within a container. Returns a non-nil error if the process
// indicated by the given PID wasn't found.
func (fs *FileSystem) ContainerID(pid int) (string, error) {
	cgroups, err := fs.Cgroups(pid)
	if err != nil {
		return "", err
	}

	glog.V(10).Infof("pid:%d cgroups:%+v", pid, cgroups)

	return containerIDFromCgroups(cgroups), nil
}

func isContainerID(s string) bool {
	if len(s) != 64 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= '0' && c <= '9') && !(c >= 'a' && c <= 'f') {
			return false
		}
	}
	return true
}

// containerIDFromCgroups finds a container ID in cgroup paths such as
// /docker/<id>, /kubepods/burstable/pod<uid>/<id> or
// /system.slice/docker-<id>.scope.
func containerIDFromCgroups(cgroups []Cgroup) string {
	for _, pci := range cgroups {
		pathParts := strings.Split(pci.Path, "/")
		for i := len(pathParts) - 1; i > 0; i-- {
			part := strings.TrimSuffix(pathParts[i], ".scope")
			if j := strings.LastIndexAny(part, "-:"); j >= 0 {
				part = part[j+1:]
			}
			if isContainerID(part) {
				return part
			}
		}
	}

	return ""
}

// statFields parses the contents of a /proc/PID/stat field into fields.
func statFields(stat string) []string {
	//
	// Parse out the command field.
	//
	// This requires special care because the command can contain white space
	// and / or punctuation. Fortunately, we are guaranteed that the command
	// will always be between the first '(' and the last ')'.
	//
	firstLParen := strings.IndexByte(stat, '(')
	lastRParen := strings.LastIndexByte(stat, ')')
	if firstLParen < 0 || lastRParen < 0 || lastRParen < firstLParen {
		return nil
	}
	command := stat[firstLParen+1 : lastRParen]
	statFields := []string{
		strings.TrimRight(stat[:firstLParen], " "),
		command,
	}
	return append(statFields, strings.Fields(stat[lastRParen+1:])...)
}

// Stat reads the given process's status from the ProcFS receiver and
// returns a ProcessStatus.
func (fs *FileSystem) Stat(pid int) (*ProcessStatus, error) {
	stat, err := fs.ReadFile(fmt.Sprintf("%d/stat", pid))
	if err != nil {
		return nil, err
	}
	return parseStat(string(stat))
}

// ProcessStatus represents process status available via /proc/[pid]/stat
type ProcessStatus struct {
	PID        int
	Command    string
	ParentPID  int
	StartTime  uint64
	StartStack uint64
}

func parseStat(stat string) (*ProcessStatus, error) {
	fields := statFields(stat)
	if len(fields) < 28 {
		return nil, errors.Errorf("couldn't parse stat: %q", stat)
	}

	var (
		ps  = &ProcessStatus{Command: fields[1]}
		err error
	)
	if ps.PID, err = strconv.Atoi(fields[0]); err != nil {
		return nil, errors.Wrap(err, "couldn't parse PID")
	}
	if ps.ParentPID, err = strconv.Atoi(fields[3]); err != nil {
		return nil, errors.Wrap(err, "couldn't parse PPID")
	}
	if ps.StartTime, err = strconv.ParseUint(fields[22-1], 10, 64); err != nil {
		return nil, errors.Wrap(err, "couldn't parse starttime")
	}
	if ps.StartStack, err = strconv.ParseUint(fields[28-1], 10, 64); err != nil {
		return nil, errors.Wrap(err, "couldn't parse startstack")
	}
	return ps, nil
}

// Status holds the fields of /proc/[pid]/status used by snapshots.
type Status struct {
	UID    uint32
	VMSize uint32
	VMRSS  uint32
}

// Status reads the real UID and memory usage of the given process.
func (fs *FileSystem) Status(pid int) (*Status, error) {
	b, err := fs.ReadFile(fmt.Sprintf("%d/status", pid))
	if err != nil {
		return nil, err
	}

	st := &Status{}
	scanner := bufio.NewScanner(bytes.NewReader(b))
	for scanner.Scan() {
		key, val, ok := strings.Cut(scanner.Text(), ":")
		if !ok {
			continue
		}
		fields := strings.Fields(val)
		if len(fields) == 0 {
			continue
		}

		var dst *uint32
		switch key {
		case "Uid":
			dst = &st.UID
		case "VmSize":
			dst = &st.VMSize
		case "VmRSS":
			dst = &st.VMRSS
		default:
			continue
		}
		n, err := strconv.ParseUint(fields[0], 10, 32)
		if err != nil {
			return nil, errors.Wrapf(err, "couldn't parse %s", key)
		}
		*dst = uint32(n)
	}
	return st, scanner.Err()
}

// BootTime returns the system boot time in seconds since the epoch.
func (fs *FileSystem) BootTime() (uint64, error) {
	b, err := fs.ReadFile("stat")
	if err != nil {
		return 0, err
	}

	scanner := bufio.NewScanner(bytes.NewReader(b))
	for scanner.Scan() {
		if v, ok := strings.CutPrefix(scanner.Text(), "btime "); ok {
			return strconv.ParseUint(strings.TrimSpace(v), 10, 64)
		}
	}
	return 0, errors.New("btime not found in stat")
}

// Snapshot returns an event describing the process with the given PID as
// of now, in nanoseconds since the epoch. bootTime is the value returned
// by BootTime.
func (fs *FileSystem) Snapshot(pid int, now, bootTime uint64) (*event.Event, error) {
	ps, err := fs.Stat(pid)
	if err != nil {
		return nil, err
	}
	st, err := fs.Status(pid)
	if err != nil {
		return nil, err
	}

	p := &event.Process{
		PID:    int64(ps.PID),
		TID:    int64(ps.PID),
		PPID:   int64(ps.ParentPID),
		Name:   ps.Command,
		Exe:    fs.link(pid, "exe"),
		Args:   fs.CommandLine(pid),
		Cwd:    fs.link(pid, "cwd"),
		Env:    fs.Environ(pid),
		VMSize: st.VMSize,
		VMRSS:  st.VMRSS,
	}
	if bootTime > 0 {
		p.StartTime = bootTime*1e9 + ps.StartTime*(1e9/clockTicks)
	}

	ev := &event.Event{
		Type:      SnapshotType,
		Timestamp: now,
		Process:   p,
		User:      &event.User{UID: st.UID},
	}

	if id, err := fs.ContainerID(pid); err == nil && id != "" {
		ev.Container = &event.Container{ID: id}
	}
	return ev, nil
}

// Snapshots returns a snapshot of every process. Processes that exit while
// being read are skipped.
func (fs *FileSystem) Snapshots(now uint64) ([]*event.Event, error) {
	pids, err := fs.PIDs()
	if err != nil {
		return nil, err
	}
	bootTime, err := fs.BootTime()
	if err != nil {
		glog.Warningf("Couldn't read boot time: %s", err)
	}

	events := make([]*event.Event, 0, len(pids))
	for _, pid := range pids {
		ev, err := fs.Snapshot(pid, now, bootTime)
		if err != nil {
			glog.V(1).Infof("Skipping pid %d: %s", pid, err)
			continue
		}
		ev.Num = uint64(len(events) + 1)
		events = append(events, ev)
	}
	return events, nil
}
