// Copyright (c) 2025 Stefano Scafiti
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package sysinfo

import (
	"bufio"
	"os"
	"os/user"
	"runtime"
	"strconv"
	"strings"
)

// SysInfo describes the host a program runs on.
type SysInfo struct {
	Name    string // kernel name, e.g. "Linux"
	Release string // distribution or product name, e.g. "Ubuntu 24.04 LTS"
	Version string // kernel or build version
	Host    string
	Arch    string
	UID     int
}

// Unknown holds the details available on every platform.
func Unknown() SysInfo {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}

	uid := -1
	if u, err := user.Current(); err == nil {
		if id, err := strconv.Atoi(u.Uid); err == nil {
			uid = id
		}
	}

	return SysInfo{
		Name:    runtime.GOOS,
		Release: "unknown",
		Version: "unknown",
		Host:    host,
		Arch:    runtime.GOARCH,
		UID:     uid,
	}
}

// Stat gathers the operating system details of the current host.
func Stat() SysInfo {
	info := Unknown()
	statOS(&info)
	return info
}

// readOSRelease returns the PRETTY_NAME (or NAME and VERSION) of an os-release file.
func readOSRelease(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	fields := make(map[string]string)

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), "=")
		if ok {
			fields[key] = strings.Trim(value, `"'`)
		}
	}

	if name := fields["PRETTY_NAME"]; name != "" {
		return name
	}
	return strings.TrimSpace(fields["NAME"] + " " + fields["VERSION"])
}
