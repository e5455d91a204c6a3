// Package config loads the simulator's node-class configuration. The file
// is sectioned key/value: each section describes one node class, and the
// required "number" key says how many nodes to instantiate from it. Sizes
// accept bytes or human-friendly strings ("500 KiB"), times accept seconds
// or spans ("1 day", "100 years", "inf").
package config

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
	"gopkg.in/ini.v1"

	"github.com/mpilipov/2a-p2p-backup/internal/sim"
	"github.com/mpilipov/2a-p2p-backup/pkg/utils/timespan"
)

// Load reads path and expands every node class into its instances, in
// section order. Instances are named "<class>-<i>".
func Load(path string) ([]sim.NodeSpec, error) {
	file, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("reading configuration: %w", err)
	}

	return expand(file)
}

// LoadBytes is Load over in-memory configuration text.
func LoadBytes(data []byte) ([]sim.NodeSpec, error) {
	file, err := ini.Load(data)
	if err != nil {
		return nil, fmt.Errorf("reading configuration: %w", err)
	}

	return expand(file)
}

func expand(file *ini.File) ([]sim.NodeSpec, error) {
	var specs []sim.NodeSpec

	for _, section := range file.Sections() {
		if section.Name() == ini.DefaultSection {
			continue
		}

		class, number, err := parseClass(section)
		if err != nil {
			return nil, fmt.Errorf("node class %q: %w", section.Name(), err)
		}

		for i := 0; i < number; i++ {
			spec := class
			spec.Name = fmt.Sprintf("%s-%d", section.Name(), i)
			if err := spec.Validate(); err != nil {
				return nil, fmt.Errorf("node class %q: %w", section.Name(), err)
			}
			specs = append(specs, spec)
		}
	}

	return specs, nil
}

func parseClass(section *ini.Section) (sim.NodeSpec, int, error) {
	var spec sim.NodeSpec
	var firstErr error

	// every getter records only the first problem so the caller reports
	// the offending key, not a pile-up
	fail := func(key string, err error) {
		if firstErr == nil {
			firstErr = fmt.Errorf("key %q: %w", key, err)
		}
	}

	raw := func(key string) string {
		if !section.HasKey(key) {
			fail(key, fmt.Errorf("missing"))
			return ""
		}
		str := section.Key(key).String()
		if str == "" {
			fail(key, fmt.Errorf("empty"))
		}
		return str
	}

	intVal := func(key string) int {
		str := raw(key)
		if str == "" {
			return 0
		}
		v, err := section.Key(key).Int()
		if err != nil {
			fail(key, err)
		}
		return v
	}

	sizeVal := func(key string) int64 {
		str := raw(key)
		if str == "" {
			return 0
		}
		v, err := humanize.ParseBytes(str)
		if err != nil {
			fail(key, err)
			return 0
		}
		if v > math.MaxInt64 {
			fail(key, fmt.Errorf("size %q overflows", str))
			return 0
		}
		return int64(v)
	}

	speedVal := func(key string) float64 {
		return float64(sizeVal(key))
	}

	spanVal := func(key string) float64 {
		str := raw(key)
		if str == "" {
			return 0
		}
		v, err := timespan.Parse(str)
		if err != nil {
			fail(key, err)
		}
		return v
	}

	number := intVal("number")

	spec.N = intVal("n")
	spec.K = intVal("k")
	spec.DataSize = sizeVal("data_size")
	spec.StorageSize = sizeVal("storage_size")
	spec.UploadSpeed = speedVal("upload_speed")
	spec.DownloadSpeed = speedVal("download_speed")
	spec.AverageUptime = spanVal("average_uptime")
	spec.AverageDowntime = spanVal("average_downtime")
	spec.AverageLifetime = spanVal("average_lifetime")
	spec.AverageRecoverTime = spanVal("average_recover_time")
	spec.ArrivalTime = spanVal("arrival_time")

	if firstErr != nil {
		return sim.NodeSpec{}, 0, firstErr
	}
	if number < 0 {
		return sim.NodeSpec{}, 0, fmt.Errorf("key %q: must be non-negative, got %d", "number", number)
	}

	return spec, number, nil
}
