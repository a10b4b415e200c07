// Copyright 2025 The packetd Authors
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

package fabric

import "github.com/packetd/nukleus-http/logger"

// loggingSource is a placeholder Source used until a real fabric transport
// (ring-buffer I/O, dispatching) is wired in; that substrate is external to
// this repository. It only logs, matching the "connection-pool TODO" style
// placeholder the reject path uses in httpsource.
type loggingSource struct{}

// NewLoggingSource returns a Source that logs every call instead of driving
// real ring-buffer I/O. Callers that own an actual fabric transport should
// supply their own Source implementation instead.
func NewLoggingSource() Source {
	return loggingSource{}
}

func (loggingSource) DoWindow(sourceID StreamID, update int) error {
	logger.Debugf("fabric: source %d granted window %d", sourceID, update)
	return nil
}

func (loggingSource) DoReset(sourceID StreamID) error {
	logger.Debugf("fabric: source %d reset", sourceID)
	return nil
}

func (loggingSource) RemoveStream(sourceID StreamID) {
	logger.Debugf("fabric: source %d removed", sourceID)
}
