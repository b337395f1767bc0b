//    Copyright 2018 Ewout Prangsma
//
//    Licensed under the Apache License, Version 2.0 (the "License");
//    you may not use this file except in compliance with the License.
//    You may obtain a copy of the License at
//
//        http://www.apache.org/licenses/LICENSE-2.0
//
//    Unless required by applicable law or agreed to in writing, software
//    distributed under the License is distributed on an "AS IS" BASIS,
//    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//    See the License for the specific language governing permissions and
//    limitations under the License.

package environment

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"
)

const (
	sysfsGPIOPath = "/sys/class/gpio"
)

// AutoDetectBridgeType returns the bridge type that fits the host.
// ARM boards with a sysfs GPIO interface get "sysfs", other ARM boards
// get "periph". Anything else falls back to "virtual".
func AutoDetectBridgeType(log zerolog.Logger) string {
	var name unix.Utsname
	if err := unix.Uname(&name); err != nil {
		// Fallback to virtual
		log.Warn().Err(err).Msg("Uname failed")
		return BridgeTypeVirtual
	}
	machine := strings.TrimSpace(unix.ByteSliceToString(name.Machine[:]))
	return bridgeTypeForMachine(machine, hasSysfsGPIO())
}

func hasSysfsGPIO() bool {
	_, err := os.Stat(sysfsGPIOPath)
	return err == nil
}
