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

package rules

import "math"

// EarthRadiusKm is the mean radius used for separation distances.
const EarthRadiusKm = 6367.0

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Haversine returns the great-circle distance in km between two points given
// in decimal degrees.
func Haversine(lon1, lat1, lon2, lat2 float64) float64 {
	lon1, lat1, lon2, lat2 = radians(lon1), radians(lat1), radians(lon2), radians(lat2)

	a := math.Pow(math.Sin((lat2-lat1)/2), 2)
	b := math.Cos(lat1) * math.Cos(lat2) * math.Pow(math.Sin((lon2-lon1)/2), 2)

	return 2 * EarthRadiusKm * math.Asin(math.Min(1, math.Sqrt(a+b)))
}
