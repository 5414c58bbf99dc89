/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package prober

import (
	"math"
	"net/netip"
	"sort"
	"strconv"
	"strings"
)

// ParsePorts extracts the ports a vessel may use from its resource
// descriptor. Port lines look like "resource messport 12345" and the number
// is sometimes written as a float.
func ParsePorts(descriptor string) []int {
	seen := make(map[int]struct{})

	for _, line := range strings.Split(descriptor, "\n") {
		if !strings.Contains(line, "messport") && !strings.Contains(line, "connport") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}

		f, err := strconv.ParseFloat(fields[2], 64)
		if err != nil || math.IsNaN(f) || f < 0 || f > 65535 {
			continue
		}

		seen[int(f)] = struct{}{}
	}

	ports := make([]int, 0, len(seen))
	for p := range seen {
		ports = append(ports, p)
	}

	sort.Ints(ports)

	return ports
}

// usableAddress rejects NAT forwarder ids and anything that is not a plain
// dotted-quad IPv4 address.
func usableAddress(address string) bool {
	if strings.HasPrefix(address, "NAT") {
		return false
	}

	addr, err := netip.ParseAddr(address)

	return err == nil && addr.Is4()
}
