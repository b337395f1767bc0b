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

package shiftreg

import (
	"github.com/binkynet/ShiftWorker/pkg/metrics"
)

const (
	subSystem = "shiftreg"
)

var (
	// Total number of completed transfers per register
	transfersTotal = metrics.MustRegisterCounterVec(subSystem,
		"transfers_total",
		"Total number of completed transfers",
		"register")
	// Total number of transfers aborted by a hardware fault per register
	faultsTotal = metrics.MustRegisterCounterVec(subSystem,
		"faults_total",
		"Total number of transfers aborted by a hardware fault",
		"register")
	// Last value latched onto the output register
	outputValueGauge = metrics.MustRegisterGauge(subSystem,
		"output_value",
		"Last value latched onto the output register")
)

const (
	registerOutput = "output"
	registerInput  = "input"
)
