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

package debounce

import (
	"github.com/pkg/errors"

	"github.com/binkynet/ShiftWorker/pkg/metrics"
)

const (
	subSystem = "debounce"
)

var (
	maskAny = errors.WithStack

	// Total number of samples where both reads agreed
	acceptedTotal = metrics.MustRegisterCounter(subSystem,
		"accepted_total",
		"Total number of samples where both reads agreed")
	// Total number of samples where the accepted value changed
	acceptedChangesTotal = metrics.MustRegisterCounter(subSystem,
		"accepted_changes_total",
		"Total number of samples where the accepted value changed")
	// Total number of samples rejected because the reads disagreed
	rejectedTotal = metrics.MustRegisterCounter(subSystem,
		"rejected_total",
		"Total number of samples rejected because the reads disagreed")
	// Last accepted input value
	acceptedValueGauge = metrics.MustRegisterGauge(subSystem,
		"accepted_value",
		"Last accepted input value")
)
