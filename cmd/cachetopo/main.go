// Copyright The cachetopo Authors. All Rights Reserved.
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

// cachetopo is a small CLI for inspecting the CPU cache topology of the
// running machine.
package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"github.com/hwtools/cachetopo/pkg/cachetopo"
	"github.com/hwtools/cachetopo/pkg/healthz"
	logger "github.com/hwtools/cachetopo/pkg/log"
	"github.com/hwtools/cachetopo/pkg/metrics"
	"github.com/hwtools/cachetopo/pkg/version"
)

var log = logger.Get("cachetopo")

var (
	sysPath  string
	procPath string
	output   string
	address  string
	debug    bool
)

func discoverOptions() []cachetopo.Option {
	var opts []cachetopo.Option
	if sysPath != "" {
		opts = append(opts, cachetopo.WithSysPath(sysPath))
	}
	if procPath != "" {
		opts = append(opts, cachetopo.WithProcPath(procPath))
	}
	return opts
}

func runShow(cmd *cobra.Command, args []string) error {
	info, err := cachetopo.Discover(discoverOptions()...)
	if err != nil {
		return err
	}
	defer info.Release()

	switch output {
	case "text":
		printText(info)
	case "yaml":
		data, err := yaml.Marshal(info)
		if err != nil {
			return err
		}
		fmt.Print(string(data))
	case "json":
		data, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
	default:
		return fmt.Errorf("invalid output format %q", output)
	}

	return nil
}

func printText(info *cachetopo.Info) {
	fmt.Printf("online CPUs: %s\n", info.OnlineCPUs())
	for _, cpu := range info.CPUs {
		state := "online"
		if !cpu.Online {
			state = "offline"
		}
		fmt.Printf("CPU #%d (%s):\n", cpu.ID, state)
		if len(cpu.Caches) == 0 {
			fmt.Printf("  no cache data\n")
			continue
		}
		for _, c := range cpu.Caches {
			fmt.Printf("  L%d %-11s %8s  line %3dB  %2d-way\n",
				c.Level, c.Kind, formatSize(c.Size), c.LineSize, c.Ways)
		}
	}
}

func formatSize(size uint64) string {
	switch {
	case size >= 1<<30 && size%(1<<30) == 0:
		return fmt.Sprintf("%dG", size>>30)
	case size >= 1<<20 && size%(1<<20) == 0:
		return fmt.Sprintf("%dM", size>>20)
	case size >= 1<<10 && size%(1<<10) == 0:
		return fmt.Sprintf("%dK", size>>10)
	}
	return fmt.Sprintf("%dB", size)
}

func runLLC(cmd *cobra.Command, args []string) error {
	size, line := cachetopo.LLCSize(discoverOptions()...)
	if size == 0 {
		fmt.Println("LLC size unknown")
		return nil
	}
	fmt.Printf("LLC size: %s, cache line size: %dB\n", formatSize(size), line)
	return nil
}

func runMetrics(cmd *cobra.Command, args []string) error {
	info, err := cachetopo.Discover(discoverOptions()...)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	if err := metrics.Register(reg, info); err != nil {
		return err
	}

	healthz.RegisterHealthChecker("discovery", func() (healthz.Status, error) {
		probe, err := cachetopo.Discover(discoverOptions()...)
		if err != nil {
			return healthz.NonFunctional, err
		}
		probe.Release()
		return healthz.Healthy, nil
	})

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	healthz.Setup(mux)

	log.Info("serving metrics on %s/metrics", address)
	return http.ListenAndServe(address, mux)
}

func main() {
	root := &cobra.Command{
		Use:           "cachetopo",
		Short:         "Inspect the CPU cache topology of this machine",
		Version:       version.Version + " (build " + version.Build + ")",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if debug {
				logger.SetDebug(map[string]bool{"*": true})
			}
		},
	}

	root.PersistentFlags().StringVar(&sysPath, "sys-path", "", "override sysfs mount point")
	root.PersistentFlags().StringVar(&procPath, "proc-path", "", "override procfs mount point")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	show := &cobra.Command{
		Use:   "show",
		Short: "Show the full discovered cache topology",
		RunE:  runShow,
	}
	show.Flags().StringVarP(&output, "output", "o", "text", "output format (text, yaml, json)")

	llc := &cobra.Command{
		Use:   "llc",
		Short: "Show the last-level cache size and line size",
		RunE:  runLLC,
	}

	serve := &cobra.Command{
		Use:   "metrics",
		Short: "Serve the discovered topology as prometheus metrics",
		RunE:  runMetrics,
	}
	serve.Flags().StringVar(&address, "address", ":8891", "address to serve metrics on")

	root.AddCommand(show, llc, serve)

	if err := root.Execute(); err != nil {
		log.Error("%v", err)
		os.Exit(1)
	}
}
