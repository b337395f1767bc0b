// Copyright 2025 Ewout Prangsma
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
//
// Author Ewout Prangsma
//

package loopback

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/binkynet/ShiftWorker/pkg/metrics"
)

const (
	subSystem = "loopback"
)

var (
	// Total number of completed cycles
	cyclesTotal = metrics.MustRegisterCounter(subSystem,
		"cycles_total",
		"Total number of completed cycles")
	// Total number of cycles that failed
	faultsTotal = metrics.MustRegisterCounter(subSystem,
		"faults_total",
		"Total number of cycles that failed")
	// Duration of a single cycle
	cycleDuration = metrics.MustRegisterHistogram(subSystem,
		"cycle_duration_seconds",
		"Duration of a single cycle",
		prometheus.ExponentialBuckets(0.001, 2, 10))
)
