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

package lifecycle

import (
	"github.com/carverauto/vesselbroker/pkg/logger"
)

// CreateComponentLogger builds the root logger from config and tags it with
// component.
func CreateComponentLogger(component string, config *logger.Config) (logger.Logger, error) {
	base, err := logger.New(config)
	if err != nil {
		return nil, err
	}

	return ComponentLogger(base, component), nil
}

// ComponentLogger derives a tagged child logger. A nil parent yields a
// discarding logger so optional loggers need no nil checks.
func ComponentLogger(parent logger.Logger, component string) logger.Logger {
	if parent == nil {
		return logger.NewTestLogger()
	}

	return logger.Wrap(parent.WithComponent(component))
}
