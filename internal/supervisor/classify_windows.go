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

//go:build windows

package supervisor

import "cirello.io/proctor/internal/process"

// Windows has no signal-based termination status; a non-zero exit code is
// the only outcome exec.Cmd exposes, so "signaled" never applies here.
func classify(result process.ExitResult) exitStatus {
	if result.State == nil {
		return exitStatus{success: false, exitCode: -1}
	}
	if result.State.Success() {
		return exitStatus{success: true}
	}
	return exitStatus{exitCode: result.State.ExitCode()}
}
