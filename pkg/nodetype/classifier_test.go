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

package nodetype

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/vesselbroker/pkg/logger"
	"github.com/carverauto/vesselbroker/pkg/models"
)

type fakeResolver struct {
	names map[string][]string
	calls int
}

func (f *fakeResolver) LookupAddr(_ context.Context, addr string) ([]string, error) {
	f.calls++

	names, ok := f.names[addr]
	if !ok {
		return nil, errors.New("no such host")
	}

	return names, nil
}

func TestClassifyName(t *testing.T) {
	domains := []string{"testbed.example.org"}

	tests := []struct {
		name string
		want models.NodeType
	}{
		{"planetlab1.testbed.example.org.", models.NodeTypeTestbed},
		{"testbed.example.org", models.NodeTypeTestbed},
		{"node7.cs.washington.edu.", models.NodeTypeUniversity},
		{"host.cs.ox.ac.uk", models.NodeTypeUniversity},
		{"www.unsw.edu.au", models.NodeTypeUniversity},
		{"c-24-16-1-2.hsd1.wa.dsl.provider.net", models.NodeTypeHome},
		{"pool-71-1-2-3.nycmny.fios.verizon.net", models.NodeTypeHome},
		{"ppp-88.static.isp.example", models.NodeTypeHome},
		{"ec2-3-4-5-6.compute.amazonaws.com", models.NodeTypeUnknown},
		{"", models.NodeTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyName(tt.name, domains))
		})
	}
}

func TestClassifierUsesStaticListAndCache(t *testing.T) {
	resolver := &fakeResolver{names: map[string][]string{
		"10.0.0.2": {"lab.cs.example.edu."},
		"10.0.0.3": {"dyn-10-0-0-3.example.net.", "gw.example.edu."},
	}}

	c, err := newClassifier(&Config{TestbedAddresses: []string{"10.0.0.1"}}, resolver, logger.NewTestLogger())
	require.NoError(t, err)

	ctx := context.Background()

	assert.Equal(t, models.NodeTypeTestbed, c.Classify(ctx, "10.0.0.1"))
	assert.Equal(t, 0, resolver.calls)

	assert.Equal(t, models.NodeTypeUniversity, c.Classify(ctx, "10.0.0.2"))
	assert.Equal(t, models.NodeTypeUniversity, c.Classify(ctx, "10.0.0.2"))
	assert.Equal(t, 1, resolver.calls)

	assert.Equal(t, models.NodeTypeUniversity, c.Classify(ctx, "10.0.0.3"), "university outranks home")
	assert.Equal(t, models.NodeTypeUnknown, c.Classify(ctx, "10.0.0.9"))
}

func TestClassifierForceRefresh(t *testing.T) {
	resolver := &fakeResolver{names: map[string][]string{"10.0.0.2": {"lab.example.edu"}}}

	c, err := newClassifier(&Config{ForceRefresh: true}, resolver, nil)
	require.NoError(t, err)

	ctx := context.Background()
	c.Classify(ctx, "10.0.0.2")
	c.Classify(ctx, "10.0.0.2")

	assert.Equal(t, 2, resolver.calls)
}

func TestConfigValidateDefaults(t *testing.T) {
	cfg := &Config{}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, defaultCacheSize, cfg.CacheSize)
}
