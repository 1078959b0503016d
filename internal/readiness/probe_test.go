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

package readiness

import (
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"cirello.io/proctor/internal/manifest"
)

func TestCheckTCPReadyWhenListening(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	port := uint16(ln.Addr().(*net.TCPAddr).Port)

	if !Check(&manifest.Probe{Kind: manifest.ProbeTCP, Port: port}, nil) {
		t.Error("expected TCP probe to be ready")
	}
}

func TestCheckTCPNotReadyWhenClosed(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	port := uint16(ln.Addr().(*net.TCPAddr).Port)
	ln.Close()

	if Check(&manifest.Probe{Kind: manifest.ProbeTCP, Port: port}, nil) {
		t.Error("expected TCP probe to report not ready on a closed port")
	}
}

func TestCheckHTTPDefaultAcceptsBelow500(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()
	port := serverPort(t, srv)

	if !Check(&manifest.Probe{Kind: manifest.ProbeHTTP, Port: port, Path: "/"}, nil) {
		t.Error("expected a 404 to count as ready without expected_status")
	}
}

func TestCheckHTTPExpectedStatusMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	port := serverPort(t, srv)
	want := 201

	if Check(&manifest.Probe{Kind: manifest.ProbeHTTP, Port: port, Path: "/", ExpectedStatus: &want}, nil) {
		t.Error("expected mismatch against expected_status to be not ready")
	}
}

func TestCheckHTTPServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	port := serverPort(t, srv)

	if Check(&manifest.Probe{Kind: manifest.ProbeHTTP, Port: port, Path: "/"}, nil) {
		t.Error("expected a 500 to be not ready without expected_status")
	}
}

func TestCheckExecSuccess(t *testing.T) {
	if !Check(&manifest.Probe{Kind: manifest.ProbeExec, Command: "true"}, nil) {
		t.Error("expected exec probe running true to be ready")
	}
}

func TestCheckExecFailure(t *testing.T) {
	if Check(&manifest.Probe{Kind: manifest.ProbeExec, Command: "false"}, nil) {
		t.Error("expected exec probe running false to be not ready")
	}
}

func TestCheckExecSeesEnv(t *testing.T) {
	ready := Check(&manifest.Probe{Kind: manifest.ProbeExec, Command: `[ "$MY_VAR" = "hi" ]`}, map[string]string{"MY_VAR": "hi"})
	if !ready {
		t.Error("expected exec probe to see overlaid environment")
	}
}

func serverPort(t *testing.T, srv *httptest.Server) uint16 {
	t.Helper()
	_, portStr, err := net.SplitHostPort(srv.Listener.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	n, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatal(err)
	}
	return uint16(n)
}
