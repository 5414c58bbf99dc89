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

package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/carverauto/vesselbroker/pkg/app"
	"github.com/carverauto/vesselbroker/pkg/lifecycle"
	"github.com/carverauto/vesselbroker/pkg/version"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	configPath := flag.String("config", "/etc/vesselbroker/broker.json", "Path to broker config file")
	showVersion := flag.Bool("version", false, "Print the version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Get())
		return nil
	}

	ctx := context.Background()

	cfg, err := app.LoadConfig(ctx, *configPath)
	if err != nil {
		return err
	}

	mainLogger, err := lifecycle.CreateComponentLogger("broker", cfg.Logging)
	if err != nil {
		return err
	}

	mainLogger.Info().Str("version", version.Get().String()).Str("config", *configPath).Msg("Starting vessel broker")

	server, err := app.NewServer(ctx, cfg, mainLogger)
	if err != nil {
		return err
	}

	return lifecycle.RunServer(ctx, &lifecycle.ServerOptions{
		ListenAddr:      cfg.ListenAddr,
		ServiceName:     "vesselbroker",
		Service:         server,
		Handler:         server.Handler(),
		ShutdownTimeout: cfg.ShutdownTimeout.Std(),
		Logger:          mainLogger,
	})
}
