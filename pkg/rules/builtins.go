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

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/language"

	"github.com/carverauto/vesselbroker/pkg/models"
)

const (
	RuleLocationSpecific = "location_specific"
	RuleSeparationRadius = "location_separation_radius"
	RuleLocationDiffer   = "location_different"
	RuleNumIPChange      = "num_ip_change"
	RuleNodeType         = "node_type"
	RulePort             = "port"

	// UnboundedLocations stands in for a location_count of "infinity".
	UnboundedLocations = 1 << 32

	locationCity    = "city"
	locationCountry = "country"
)

// Builtins returns fresh instances of the built-in rules.
func Builtins() []Rule {
	return []Rule{
		NewRule(RuleLocationSpecific, models.ScopeVessel, locationSpecific, prepareLocationSpecific),
		NewRule(RuleSeparationRadius, models.ScopeGroup, separationRadius, prepareSeparationRadius),
		NewRule(RuleLocationDiffer, models.ScopeGroup, locationDifferent, prepareLocationDifferent),
		NewRule(RuleNumIPChange, models.ScopeVessel, numIPChange, prepareNumIPChange),
		NewRule(RuleNodeType, models.ScopeVessel, nodeType, prepareNodeType),
		NewRule(RulePort, models.ScopeVessel, port, preparePort),
	}
}

// narrow applies a vessel rule's polarity to its raw matches.
func narrow(ctx EvalContext, matches models.HandleSet) models.HandleSet {
	if ctx.Invert {
		return ctx.Candidates.Difference(matches)
	}

	return ctx.Candidates.Intersect(matches)
}

func prepareLocationSpecific(params Params) (Params, error) {
	country, err := params.requiredString("country")
	if err != nil {
		return nil, err
	}

	region, err := language.ParseRegion(strings.ToUpper(country))
	if err != nil || !region.IsCountry() {
		return nil, fmt.Errorf("%w: unknown country %q", ErrInvalidParameter, country)
	}

	city, err := params.String("city")
	if err != nil {
		return nil, err
	}

	city = strings.ToLower(strings.TrimSpace(city))
	if city == "?" {
		city = ""
	}

	return Params{"country": strings.ToLower(region.String()), "city": city}, nil
}

// locationSpecific only ever returns located handles, in either polarity.
func locationSpecific(ctx EvalContext) models.HandleSet {
	country, _ := ctx.Params["country"].(string)
	city, _ := ctx.Params["city"].(string)

	matches := ctx.Inventory.HandlesInLocation(country, city)
	if ctx.Invert {
		return ctx.Candidates.Intersect(ctx.Inventory.LocatedHandles()).Difference(matches)
	}

	return ctx.Candidates.Intersect(matches)
}

func prepareSeparationRadius(params Params) (Params, error) {
	lo, hi, err := params.orderedRange("min_radius", "max_radius")
	if err != nil {
		return nil, err
	}

	return Params{"min_radius": lo, "max_radius": hi}, nil
}

type point struct{ lon, lat float64 }

func coordinates(inv Inventory, h models.Handle) (point, bool) {
	rec, ok := inv.Record(h)
	if !ok || !rec.Geo.HasCoordinates() {
		return point{}, false
	}

	return point{lon: *rec.Geo.Longitude, lat: *rec.Geo.Latitude}, true
}

// separationRadius keeps candidates whose distance to every selected member
// with coordinates lies in range. Candidates without coordinates never pass.
func separationRadius(ctx EvalContext) models.HandleSet {
	lo, _ := ctx.Params["min_radius"].(float64)
	hi, _ := ctx.Params["max_radius"].(float64)

	anchors := make([]point, 0, len(ctx.Selected))

	for _, h := range ctx.Selected {
		if p, ok := coordinates(ctx.Inventory, h); ok {
			anchors = append(anchors, p)
		}
	}

	out := models.NewHandleSet()

	for h := range ctx.Candidates {
		c, ok := coordinates(ctx.Inventory, h)
		if !ok {
			continue
		}

		good := true

		for _, a := range anchors {
			d := Haversine(c.lon, c.lat, a.lon, a.lat)
			if d < lo || d > hi {
				good = false
				break
			}
		}

		if good != ctx.Invert {
			out.Add(h)
		}
	}

	return out
}

func prepareLocationDifferent(params Params) (Params, error) {
	count := 0

	raw, _ := params.String("location_count")
	if strings.EqualFold(strings.TrimSpace(raw), "infinity") {
		count = UnboundedLocations
	} else {
		f, err := params.number("location_count")
		if err != nil {
			return nil, err
		}

		if math.IsInf(f, 1) {
			count = UnboundedLocations
		} else if f >= 1 && f <= UnboundedLocations {
			count = int(f)
		}
	}

	if count <= 0 {
		return nil, fmt.Errorf("%w: location_count must be a positive integer", ErrInvalidParameter)
	}

	kind, err := params.requiredString("location_type")
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(kind) {
	case "city", "cities":
		kind = locationCity
	case "country", "countries", "country_code":
		kind = locationCountry
	default:
		return nil, fmt.Errorf("%w: unknown location_type %q", ErrInvalidParameter, kind)
	}

	return Params{"location_count": count, "location_type": kind}, nil
}

func locationKey(rec *models.EndpointRecord, kind string) string {
	if kind == locationCountry {
		return rec.Geo.CountryCode
	}

	return rec.Geo.CountryCode + "/" + rec.Geo.City
}

// locationDifferent spreads members over new locations until location_count
// of them are represented, then keeps to the represented ones. Invert flips
// both phases.
func locationDifferent(ctx EvalContext) models.HandleSet {
	count, _ := ctx.Params["location_count"].(int)
	kind, _ := ctx.Params["location_type"].(string)

	seen := make(map[string]struct{})

	for _, h := range ctx.Selected {
		if rec, ok := ctx.Inventory.Record(h); ok && rec.Geo.Known() {
			seen[locationKey(&rec, kind)] = struct{}{}
		}
	}

	wantNew := len(seen) < count
	if ctx.Invert {
		wantNew = !wantNew
	}

	out := models.NewHandleSet()

	for h := range ctx.Candidates {
		rec, ok := ctx.Inventory.Record(h)
		if !ok || !rec.Geo.Known() {
			continue
		}

		_, repeated := seen[locationKey(&rec, kind)]
		if repeated != wantNew {
			out.Add(h)
		}
	}

	return out
}

func prepareNumIPChange(params Params) (Params, error) {
	lo, hi, err := params.orderedRange("min_change", "max_change")
	if err != nil {
		return nil, err
	}

	return Params{"min_change": lo, "max_change": hi}, nil
}

func numIPChange(ctx EvalContext) models.HandleSet {
	lo, _ := ctx.Params["min_change"].(float64)
	hi, _ := ctx.Params["max_change"].(float64)

	return narrow(ctx, ctx.Inventory.HandlesByAddressChanges(lo, hi))
}

func prepareNodeType(params Params) (Params, error) {
	raw, err := params.requiredString("node_type")
	if err != nil {
		return nil, err
	}

	t, err := models.ParseNodeType(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidParameter, err)
	}

	return Params{"node_type": t}, nil
}

func nodeType(ctx EvalContext) models.HandleSet {
	t, _ := ctx.Params["node_type"].(models.NodeType)

	return narrow(ctx, ctx.Inventory.HandlesOfNodeType(t))
}

func preparePort(params Params) (Params, error) {
	f, err := params.Float("port")
	if err != nil {
		return nil, err
	}

	p := int(f)
	if p < 1 || p > 65535 {
		return nil, fmt.Errorf("%w: port %v out of range", ErrInvalidParameter, f)
	}

	return Params{"port": p}, nil
}

func port(ctx EvalContext) models.HandleSet {
	p, _ := ctx.Params["port"].(int)

	return narrow(ctx, ctx.Inventory.HandlesWithPort(p))
}
