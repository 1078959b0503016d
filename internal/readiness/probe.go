// Copyright 2024 github.com/ucirello
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package readiness implements single-shot, non-blocking readiness checks
// for the probe kinds a manifest can declare. Every check is pure: it owns
// no timers or retry state, so the supervision loop is free to schedule
// attempts however it likes.
package readiness

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"cirello.io/proctor/internal/manifest"
	"cirello.io/proctor/internal/process"
)

const dialTimeout = 500 * time.Millisecond

var loopbackAddrs = []string{"127.0.0.1", "::1"}

// Check runs one attempt of probe and reports whether the target is ready.
// Each network step is bounded by 500ms per loopback address: the connect,
// and for HTTP also the request/response exchange. Since 127.0.0.1 and ::1
// are tried in turn, a TCP check can take up to about 1s and an HTTP check
// up to about 2s. An Exec check takes however long its command runs.
func Check(probe *manifest.Probe, env map[string]string) bool {
	switch probe.Kind {
	case manifest.ProbeTCP:
		return checkTCP(probe.Port)
	case manifest.ProbeHTTP:
		return checkHTTP(probe.Port, probe.Path, probe.ExpectedStatus)
	case manifest.ProbeExec:
		return checkExec(probe.Command, env)
	default:
		return false
	}
}

func checkTCP(port uint16) bool {
	for _, addr := range loopbackAddrs {
		conn, err := net.DialTimeout("tcp", net.JoinHostPort(addr, strconv.Itoa(int(port))), dialTimeout)
		if err == nil {
			conn.Close()
			return true
		}
	}
	return false
}

func checkHTTP(port uint16, path string, expected *int) bool {
	if path == "" {
		path = "/"
	}
	for _, addr := range loopbackAddrs {
		if httpAttempt(addr, port, path, expected) {
			return true
		}
	}
	return false
}

func httpAttempt(addr string, port uint16, path string, expected *int) bool {
	conn, err := net.DialTimeout("tcp", net.JoinHostPort(addr, strconv.Itoa(int(port))), dialTimeout)
	if err != nil {
		return false
	}
	defer conn.Close()

	deadline := time.Now().Add(dialTimeout)
	conn.SetDeadline(deadline)

	req := fmt.Sprintf("GET %s HTTP/1.0\r\nHost: localhost:%d\r\nConnection: close\r\n\r\n", path, port)
	if _, err := conn.Write([]byte(req)); err != nil {
		return false
	}

	reader := bufio.NewReader(io.LimitReader(conn, 256))
	statusLine, err := reader.ReadString('\n')
	if err != nil && statusLine == "" {
		return false
	}
	code, ok := parseStatusLine(statusLine)
	if !ok {
		return false
	}
	if expected != nil {
		return code == *expected
	}
	return code < 500
}

func parseStatusLine(line string) (code int, ok bool) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return 0, false
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

func checkExec(command string, env map[string]string) bool {
	c := exec.Command(process.Shell(), "-c", command)
	if len(env) > 0 {
		c.Env = append(c.Env, os.Environ()...)
		for k, v := range env {
			c.Env = append(c.Env, k+"="+v)
		}
	}
	return c.Run() == nil
}
